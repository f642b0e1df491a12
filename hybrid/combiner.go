package hybrid

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pipeline"
	"github.com/bouzaHichem/damio-kids-backend-sub000/recall"
)

// WeightedSource 是参与混合的召回源及其权重。
type WeightedSource struct {
	Source recall.Source
	Weight float64
}

// Combiner 并发 fan-out 所有加权召回源并按 Σ(weight×score) 合并去重。
// 单个源出错或 panic 只损失它那一路的贡献：记日志、按空结果处理，
// 绝不让整条链路失败。多源命中的商品会在 algorithm Label 上累积
// 所有贡献算法。
type Combiner struct {
	Sources []WeightedSource
	Logger  *zap.Logger

	// Timeout 单次 fan-out 的总超时，<=0 时不额外限时
	Timeout time.Duration
}

var _ pipeline.Node = (*Combiner)(nil)

func (c *Combiner) Name() string        { return "recall.hybrid" }
func (c *Combiner) Kind() pipeline.Kind { return pipeline.KindRecall }

func (c *Combiner) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	// 每个源占一个固定槽位，保证合并顺序与声明顺序一致。
	results := make([][]*core.Item, len(c.Sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, ws := range c.Sources {
		i, ws := i, ws
		g.Go(func() error {
			// errgroup 不接管 goroutine 里的 panic，必须就地兜住，
			// 否则一个源的 panic 会带崩整个进程。
			defer func() {
				if r := recover(); r != nil {
					c.logger().Warn("recall source panicked, dropping its contribution",
						zap.String("source", ws.Source.Name()),
						zap.Any("panic", r))
					results[i] = nil
				}
			}()
			items, err := ws.Source.Recall(gctx, rctx)
			if err != nil {
				c.logger().Warn("recall source failed, dropping its contribution",
					zap.String("source", ws.Source.Name()),
					zap.Error(err))
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait() // goroutine 一律返回 nil，失败和 panic 都已就地降级

	return c.merge(results), nil
}

// merge 按源声明顺序合并：同一商品的分数累积 weight×score，
// 排序为最终分降序、同分保持首次出现顺序。
func (c *Combiner) merge(results [][]*core.Item) []*core.Item {
	merged := make(map[string]*core.Item)
	var order []*core.Item

	for i, items := range results {
		weight := c.Sources[i].Weight
		for _, it := range items {
			if acc, ok := merged[it.ID]; ok {
				acc.Score += weight * it.Score
				for k, lbl := range it.Labels {
					acc.PutLabel(k, lbl)
				}
				continue
			}
			cp := it.Clone()
			cp.Score = weight * it.Score
			merged[it.ID] = cp
			order = append(order, cp)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Score > order[j].Score
	})
	return order
}

func (c *Combiner) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}
