package recall

import (
	"context"
	"time"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"
)

// Trending 是趋势召回源：看 7 天窗口内的按日订单数，
// score = 日均 × (峰值/日均)，偏好突发尖峰而不是平稳热卖。
type Trending struct {
	Orders  core.OrderStore
	Catalog core.CatalogStore
	Config  core.Config

	// TopK 返回条数上限，<=0 时默认 50
	TopK int
}

func (r *Trending) Name() string { return "recall.trending" }

func (r *Trending) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}

	since := time.Now().AddDate(0, 0, -r.Config.TrendingWindowDays)
	daily, err := r.Orders.DailyOrderCounts(ctx, since)
	if err != nil {
		return nil, err
	}
	if len(daily) == 0 {
		return nil, nil
	}

	idx, err := productIndex(ctx, r.Catalog)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(daily))
	for productID, counts := range daily {
		p, ok := idx[productID]
		if !ok {
			continue
		}
		score := trendScore(counts)
		if score <= 0 {
			continue
		}
		it := core.NewProductItem(p)
		it.Score = score
		it.Reason = "Trending this week"
		it.PutLabel(core.LabelAlgorithm, utils.Label{Value: "trending", Source: "recall"})
		out = append(out, it)
	}
	return sortByScore(out, topK), nil
}

// trendScore 用日均单量乘以 峰值/日均 的放大系数。
func trendScore(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	total, peak := 0, 0
	for _, c := range counts {
		total += c
		if c > peak {
			peak = c
		}
	}
	if total <= 0 {
		return 0
	}
	avg := float64(total) / float64(len(counts))
	return avg * (float64(peak) / avg)
}
