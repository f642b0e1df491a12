package recall

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"
)

// popularityCacheKey 是 popularity 结果的缓存 key（30 分钟 TTL）。
const popularityCacheKey = "rec:popularity"

// Popularity 是热门召回源：按 30 天窗口的订单数(0.4)、销量(0.3)、
// 营收/100(0.3) 的加权组合排序。它同时是 collaborative / content
// 的兜底召回源。
type Popularity struct {
	Orders  core.OrderStore
	Catalog core.CatalogStore

	// Cache 可选：结果缓存，失败一律按 miss 处理
	Cache core.Cache

	Config core.Config

	// TopK 返回条数上限，<=0 时默认 50
	TopK int
}

func (r *Popularity) Name() string { return "recall.popularity" }

type popularityEntry struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
}

func (r *Popularity) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}

	idx, err := productIndex(ctx, r.Catalog)
	if err != nil {
		return nil, err
	}

	entries := r.fromCache(ctx)
	if entries == nil {
		entries, err = r.compute(ctx)
		if err != nil {
			return nil, err
		}
		r.toCache(ctx, entries)
	}

	out := make([]*core.Item, 0, len(entries))
	for _, e := range entries {
		p, ok := idx[e.ProductID]
		if !ok {
			continue // 已下架/不活跃的商品不出现在结果里
		}
		it := core.NewProductItem(p)
		it.Score = e.Score
		it.Reason = "Bestseller over the last 30 days"
		it.PutLabel(core.LabelAlgorithm, utils.Label{Value: "popularity", Source: "recall"})
		out = append(out, it)
	}
	return sortByScore(out, topK), nil
}

func (r *Popularity) compute(ctx context.Context) ([]popularityEntry, error) {
	since := time.Now().AddDate(0, 0, -r.Config.PopularityWindowDays)
	sales, err := r.Orders.SalesSince(ctx, since)
	if err != nil {
		return nil, err
	}

	entries := make([]popularityEntry, 0, len(sales))
	for _, s := range sales {
		score := 0.4*float64(s.OrderCount) + 0.3*float64(s.Quantity) + 0.3*s.Revenue/100
		if score <= 0 {
			continue
		}
		entries = append(entries, popularityEntry{ProductID: s.ProductID, Score: score})
	}
	return entries, nil
}

func (r *Popularity) fromCache(ctx context.Context) []popularityEntry {
	if r.Cache == nil {
		return nil
	}
	data, err := r.Cache.Get(ctx, popularityCacheKey)
	if err != nil {
		return nil
	}
	var entries []popularityEntry
	if json.Unmarshal(data, &entries) != nil {
		return nil
	}
	return entries
}

func (r *Popularity) toCache(ctx context.Context, entries []popularityEntry) {
	if r.Cache == nil {
		return
	}
	if data, err := json.Marshal(entries); err == nil {
		_ = r.Cache.Set(ctx, popularityCacheKey, data, r.Config.PopularityTTL)
	}
}
