package recall

import (
	"context"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/feature"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/similarity"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"
)

// Content 是基于内容的召回源：用户兴趣向量与商品属性向量做余弦相似。
// 冷启动用户（无兴趣画像）走 Fallback 召回源。
type Content struct {
	Catalog core.CatalogStore

	// Fallback 在画像为空时兜底，通常配成 Popularity；为 nil 时返回空
	Fallback Source

	// TopK 返回条数上限，<=0 时默认 50
	TopK int
}

func (r *Content) Name() string { return "recall.content" }

func (r *Content) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}

	prof := rctx.Profile()
	if !prof.HasInterests() {
		if r.Fallback == nil {
			return nil, nil
		}
		return r.Fallback.Recall(ctx, rctx)
	}

	products, err := r.Catalog.FindActiveProducts(ctx, core.ProductFilter{})
	if err != nil {
		return nil, err
	}

	interests := map[string]float64(prof.Interests)
	var out []*core.Item
	for _, p := range products {
		score := similarity.Cosine(interests, feature.ProductVector(p))
		if score <= 0 {
			continue
		}
		it := core.NewProductItem(p)
		it.Score = score
		it.Reason = "Matches your interests"
		it.PutLabel(core.LabelAlgorithm, utils.Label{Value: "content", Source: "recall"})
		out = append(out, it)
	}
	return sortByScore(out, topK), nil
}
