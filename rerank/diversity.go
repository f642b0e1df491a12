package rerank

import (
	"context"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pipeline"
)

// Diversity 是品类多样性重排节点：限制单一品类在结果中的条数，
// 避免首页推荐被一个品类刷屏。保序淘汰，超额商品直接丢弃。
type Diversity struct {
	// MaxPerCategory 每个品类最多保留的条数，<=0 时默认 3
	MaxPerCategory int
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	max := n.MaxPerCategory
	if max <= 0 {
		max = 3
	}

	seen := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		cate := ""
		if it.Product != nil {
			cate = it.Product.Category
		}
		if cate == "" {
			out = append(out, it)
			continue
		}
		if seen[cate] >= max {
			continue
		}
		seen[cate]++
		out = append(out, it)
	}
	return out, nil
}
