package filter

import (
	"context"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/dsl"
)

// ExprFilter 按 CEL 表达式圈选：表达式为保留条件，返回 false 的商品
// 被过滤。deals 等规则化内容用它圈选，例如：
//
//	product.discount_percent > 0.0 && product.stock > 0
//
// 表达式求值出错时保守放行（不过滤）。
type ExprFilter struct {
	Expr string
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Expr == "" {
		return false, nil
	}
	keep, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
