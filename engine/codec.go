package engine

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"
)

// cachedItem 是推荐结果的缓存表示：只存 ID 和分数，商品元信息在
// 命中时从目录重新挂载，保证缓存期间的价格/库存变更可见。
type cachedItem struct {
	ID         string   `json:"id"`
	Score      float64  `json:"score"`
	FinalScore float64  `json:"final_score"`
	Reason     string   `json:"reason,omitempty"`
	Algorithms []string `json:"algorithms,omitempty"`
}

// cachedItems 读取并还原一份缓存的推荐列表。缓存失败、解码失败或
// 商品已下架都按 miss / 缺项处理。
func (e *Engine) cachedItems(ctx context.Context, key string) ([]*core.Item, bool) {
	data, err := e.Cache.Get(ctx, key)
	if err != nil {
		if !core.IsCacheMiss(err) {
			e.Logger.Warn("recommendation cache read failed",
				zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var cached []cachedItem
	if err := json.Unmarshal(data, &cached); err != nil {
		e.Logger.Warn("recommendation cache decode failed",
			zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return e.decodeItems(ctx, cached), true
}

// cacheItems 把推荐列表写入缓存（尽力而为）。
func (e *Engine) cacheItems(ctx context.Context, key string, items []*core.Item, ttl int) {
	data, err := json.Marshal(encodeItems(items))
	if err != nil {
		return
	}
	if err := e.Cache.Set(ctx, key, data, ttl); err != nil {
		e.Logger.Warn("recommendation cache write failed",
			zap.String("key", key), zap.Error(err))
	}
}

func encodeItems(items []*core.Item) []cachedItem {
	cached := make([]cachedItem, 0, len(items))
	for _, it := range items {
		cached = append(cached, cachedItem{
			ID:         it.ID,
			Score:      it.Score,
			FinalScore: it.FinalScore,
			Reason:     it.Reason,
			Algorithms: it.Algorithms(),
		})
	}
	return cached
}

// decodeItems 把缓存表示还原成带商品元信息的 Item，已下架商品跳过。
func (e *Engine) decodeItems(ctx context.Context, cached []cachedItem) []*core.Item {
	out := make([]*core.Item, 0, len(cached))
	for _, c := range cached {
		p, err := e.Catalog.FindProductByID(ctx, c.ID)
		if err != nil {
			continue
		}
		it := core.NewProductItem(p)
		it.Score = c.Score
		it.FinalScore = c.FinalScore
		it.Reason = c.Reason
		if len(c.Algorithms) > 0 {
			it.PutLabel(core.LabelAlgorithm, utils.Label{
				Value:  strings.Join(c.Algorithms, "|"),
				Source: "cache",
			})
		}
		out = append(out, it)
	}
	return out
}
