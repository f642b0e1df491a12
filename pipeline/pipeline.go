package pipeline

import (
	"context"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：
// 混合召回 → 个性化排序 → 硬过滤 → TopN 截断。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
