package recall

import (
	"context"
	"sort"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/similarity"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"
)

// Collaborative 是协同过滤召回源（user-based）：
// 用已购商品集合的 Jaccard 相似度找近邻用户，近邻买过而目标用户
// 没买过的商品按 相似度×购买件数 聚合打分。
// 无购买历史的用户走 Fallback。
type Collaborative struct {
	Orders  core.OrderStore
	Catalog core.CatalogStore
	Config  core.Config

	// Fallback 在目标用户无购买历史时兜底，通常配成 Popularity
	Fallback Source

	// CandidateLimit 参与近邻计算的候选用户数上限，<=0 时默认 200
	CandidateLimit int

	// TopK 返回条数上限，<=0 时默认 50
	TopK int
}

func (r *Collaborative) Name() string { return "recall.collaborative" }

type neighbor struct {
	userID string
	sim    float64
}

func (r *Collaborative) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}
	candLimit := r.CandidateLimit
	if candLimit <= 0 {
		candLimit = 200
	}

	owned, err := r.purchasedSet(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		if r.Fallback == nil {
			return nil, nil
		}
		return r.Fallback.Recall(ctx, rctx)
	}

	buyers, err := r.Orders.ActiveBuyers(ctx, candLimit)
	if err != nil {
		return nil, err
	}

	neighbors, neighborSets, err := r.findNeighbors(ctx, rctx.UserID, owned, buyers)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	// 近邻买过、目标用户没买过的商品，按 相似度×件数 聚合。
	scores := make(map[string]float64)
	for _, nb := range neighbors {
		for productID, qty := range neighborSets[nb.userID] {
			if _, has := owned[productID]; has {
				continue
			}
			scores[productID] += nb.sim * float64(qty)
		}
	}

	idx, err := productIndex(ctx, r.Catalog)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(scores))
	for productID, score := range scores {
		p, ok := idx[productID]
		if !ok {
			continue
		}
		it := core.NewProductItem(p)
		it.Score = score
		it.Reason = "Shoppers like you also bought this"
		it.PutLabel(core.LabelAlgorithm, utils.Label{Value: "collaborative", Source: "recall"})
		out = append(out, it)
	}
	return sortByScore(out, topK), nil
}

// findNeighbors 返回 Jaccard 相似度超过阈值的近邻（降序、截断到
// NeighborLimit），以及每个近邻的 商品ID→购买件数 映射。
func (r *Collaborative) findNeighbors(
	ctx context.Context,
	userID string,
	owned map[string]int,
	buyers []string,
) ([]neighbor, map[string]map[string]int, error) {
	ownedSet := keySet(owned)

	var neighbors []neighbor
	sets := make(map[string]map[string]int)
	for _, buyer := range buyers {
		if buyer == userID {
			continue
		}
		theirs, err := r.purchasedSet(ctx, buyer)
		if err != nil {
			return nil, nil, err
		}
		sim := similarity.Jaccard(ownedSet, keySet(theirs))
		if sim <= r.Config.NeighborMinSimilarity {
			continue
		}
		neighbors = append(neighbors, neighbor{userID: buyer, sim: sim})
		sets[buyer] = theirs
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].sim > neighbors[j].sim
	})
	if limit := r.Config.NeighborLimit; limit > 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, sets, nil
}

// purchasedSet 返回用户已购的 商品ID→累计件数 映射（已送达/处理中的订单）。
func (r *Collaborative) purchasedSet(ctx context.Context, userID string) (map[string]int, error) {
	orders, err := r.Orders.FindOrdersByUser(ctx, userID, core.PurchasedStatuses)
	if err != nil {
		return nil, err
	}
	set := make(map[string]int)
	for _, o := range orders {
		for _, item := range o.Items {
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			set[item.ProductID] += qty
		}
	}
	return set, nil
}

func keySet(m map[string]int) map[string]struct{} {
	s := make(map[string]struct{}, len(m))
	for k := range m {
		s[k] = struct{}{}
	}
	return s
}
