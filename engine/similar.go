package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/feature"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/similarity"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"
)

// FindSimilarProducts 返回与种子商品属性最相似的活跃商品
// （商品向量余弦相似度，与用户无关）。种子商品不存在时返回
// NOT_FOUND；结果按商品维度缓存。
func (e *Engine) FindSimilarProducts(ctx context.Context, productID string, limit int) ([]*core.Item, error) {
	if limit <= 0 {
		limit = 10
	}

	seed, err := e.Catalog.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("rec:similar:%s:%d", productID, limit)
	if items, ok := e.cachedItems(ctx, key); ok {
		return items, nil
	}

	products, err := e.Catalog.FindActiveProducts(ctx, core.ProductFilter{InStockOnly: true})
	if err != nil {
		return nil, err
	}

	seedVec := feature.ProductVector(seed)
	out := make([]*core.Item, 0, len(products))
	for _, p := range products {
		if p.ID == seed.ID {
			continue
		}
		score := similarity.Cosine(seedVec, feature.ProductVector(p))
		if score <= 0 {
			continue
		}
		it := core.NewProductItem(p)
		it.Score = score
		it.FinalScore = score
		it.Reason = "Similar to " + seed.Name
		it.PutLabel(core.LabelAlgorithm, utils.Label{Value: "similar", Source: "recall"})
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}

	e.cacheItems(ctx, key, out, e.Config.RecommendationTTL)
	return out, nil
}
