package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("product", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是条件表达式解释器，使用 CEL (Common Expression Language) 实现，
// 驱动表达式过滤器与 deals 等规则化内容的圈选。
//
// 表达式语法（CEL 标准语法）：
//   - 商品字段：product.discount_percent > 15.0 / product.category == "boys"
//   - 分数：item.score > 0.7 / item.final_score >= 0.5
//   - 来源：label.algorithm.contains("collaborative")
//   - 用户：rctx.user_id != "" / "high-value" in rctx.segments
//   - 逻辑组合：product.stock > 0 && product.discount_percent > 0.0
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的解释器，可对同一 item 多次调用 Evaluate。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 编译并执行表达式，返回布尔结果。空表达式恒为 true。
// 访问不存在的 key 会返回错误，存在性检查请用 label.key != null。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env unavailable")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 把 Item/Product/画像摊平成 CEL 输入。
func (e *Eval) buildInput() map[string]interface{} {
	labelAccessor := make(map[string]interface{})
	for k, v := range e.item.Labels {
		labelAccessor[k] = v.Value
	}

	item := map[string]interface{}{
		"id":          e.item.ID,
		"score":       e.item.Score,
		"final_score": e.item.FinalScore,
		"features":    e.item.Features,
		"meta":        e.item.Meta,
	}

	product := map[string]interface{}{}
	if p := e.item.Product; p != nil {
		product = map[string]interface{}{
			"id":               p.ID,
			"category":         p.Category,
			"brand":            p.Brand,
			"age_range":        p.AgeRange,
			"price":            p.Price,
			"old_price":        p.OldPrice,
			"discount_percent": p.DiscountPercent(),
			"stock":            p.Stock,
			"available":        p.Available,
			"tags":             p.Tags,
		}
	}

	prof := e.rctx.Profile()
	rctx := map[string]interface{}{
		"user_id":  e.rctx.UserID,
		"scene":    e.rctx.Scene,
		"segments": prof.Segments,
		"params":   e.rctx.Params,
	}

	return map[string]interface{}{
		"item":    item,
		"product": product,
		"label":   labelAccessor,
		"rctx":    rctx,
	}
}
