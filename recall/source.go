package recall

import (
	"context"
	"sort"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pipeline"
)

// Source 表示一个可复用的召回生成器（popularity/trending/seasonal/
// content/collaborative）。可以把它理解为“可并发 fan-out 的策略单元”，
// 混合器对它们做加权合并。
//
// 约定：输入为空/无可用数据时返回空列表而不是报错；上游数据源故障
// 返回 error，由调用边界（混合器/引擎）捕获、打日志并降级为空结果。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// SourceNode 把 Source 适配成 Pipeline Node，单算法链路直接使用。
type SourceNode struct {
	Source Source
}

func (n *SourceNode) Name() string        { return n.Source.Name() }
func (n *SourceNode) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *SourceNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return n.Source.Recall(ctx, rctx)
}

// sortByScore 按 Score 降序稳定排序并截断到 topK（topK<=0 不截断）。
func sortByScore(items []*core.Item, topK int) []*core.Item {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if topK > 0 && len(items) > topK {
		items = items[:topK]
	}
	return items
}

// productIndex 拉取全量活跃商品并按 ID 建索引，召回结果借此挂上商品元信息。
func productIndex(ctx context.Context, catalog core.CatalogStore) (map[string]*core.Product, error) {
	products, err := catalog.FindActiveProducts(ctx, core.ProductFilter{})
	if err != nil {
		return nil, err
	}
	idx := make(map[string]*core.Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx, nil
}
