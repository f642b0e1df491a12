package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/feature"
	"github.com/bouzaHichem/damio-kids-backend-sub000/filter"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pipeline"
	"github.com/bouzaHichem/damio-kids-backend-sub000/rank"
	"github.com/bouzaHichem/damio-kids-backend-sub000/rerank"
)

// ContentType 是个性化内容的类型枚举。
type ContentType string

const (
	ContentProducts   ContentType = "products"   // 个性化商品列表
	ContentCategories ContentType = "categories" // 品类亲和度排行
	ContentDeals      ContentType = "deals"      // 个性化折扣商品
	ContentHomepage   ContentType = "homepage"   // 首页组合内容
)

// dealExpr 是 deals 的圈选规则：在售且有折扣。
const dealExpr = "product.discount_percent > 0.0 && product.stock > 0"

// CategoryAffinity 是一个品类及其兴趣权重（0-100）。
type CategoryAffinity struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

// Content 是 GetPersonalizedContent 的结果。只有与请求类型对应的
// 字段会被填充；homepage 填充 Featured/Deals/Categories/Segments。
type Content struct {
	Type       ContentType        `json:"type"`
	Products   []*core.Item       `json:"products,omitempty"`
	Deals      []*core.Item       `json:"deals,omitempty"`
	Featured   []*core.Item       `json:"featured,omitempty"`
	Categories []CategoryAffinity `json:"categories,omitempty"`
	Segments   []string           `json:"segments,omitempty"`
}

// GetPersonalizedContent 按类型返回个性化内容。未知类型按 products
// 处理。与 GetRecommendations 一样永不失败：任何一块内容算不出来就
// 留空，结果按用户+类型缓存（ContentTTL）。
func (e *Engine) GetPersonalizedContent(ctx context.Context, userID string, typ ContentType, limit int) (c *Content) {
	// 兜住任何一块内容的 panic，保证调用方始终拿到非 nil 的 Content。
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("personalized content panic recovered", zap.Any("panic", r))
			c = &Content{Type: typ}
		}
	}()

	switch typ {
	case ContentProducts, ContentCategories, ContentDeals, ContentHomepage:
	default:
		typ = ContentProducts
	}
	if limit <= 0 {
		limit = 10
	}

	key := fmt.Sprintf("content:user:%s:%s:%d", userID, typ, limit)
	if cached, ok := e.cachedContent(ctx, key); ok {
		return cached
	}

	rctx := e.buildContext(ctx, userID)
	c = &Content{Type: typ}

	switch typ {
	case ContentProducts:
		c.Products = e.GetRecommendations(ctx, userID, Options{Limit: limit})
	case ContentCategories:
		c.Categories = categoryAffinities(rctx.Profile(), limit)
	case ContentDeals:
		c.Deals = e.deals(ctx, rctx, limit)
	case ContentHomepage:
		prof := rctx.Profile()
		c.Featured = e.GetRecommendations(ctx, userID, Options{Limit: limit})
		c.Deals = e.deals(ctx, rctx, limit/2+1)
		c.Categories = categoryAffinities(prof, 5)
		c.Segments = prof.Segments
	}

	e.cacheContent(ctx, key, c)
	return c
}

// deals 圈选在售折扣商品并按画像重排：基础分为折扣力度，
// 个性化乘数叠加其上。
func (e *Engine) deals(ctx context.Context, rctx *core.RecommendContext, limit int) []*core.Item {
	products, err := e.Catalog.FindActiveProducts(ctx, core.ProductFilter{InStockOnly: true})
	if err != nil {
		e.Logger.Warn("deal selection failed",
			zap.String("user_id", rctx.UserID), zap.Error(err))
		return []*core.Item{}
	}

	items := make([]*core.Item, 0, len(products))
	for _, p := range products {
		it := core.NewProductItem(p)
		it.Score = p.DiscountPercent() / 100
		it.Reason = fmt.Sprintf("%.0f%% off", p.DiscountPercent())
		items = append(items, it)
	}

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&filter.FilterNode{Filters: []filter.Filter{&filter.ExprFilter{Expr: dealExpr}}},
		&rank.PersonalizeNode{Config: e.Config},
		&rerank.TopNNode{N: limit},
	}}
	out, err := p.Run(ctx, rctx, items)
	if err != nil {
		e.Logger.Warn("deal pipeline failed",
			zap.String("user_id", rctx.UserID), zap.Error(err))
		return []*core.Item{}
	}
	return out
}

// categoryAffinities 从画像里取品类兴趣，按权重降序。
func categoryAffinities(prof *core.InterestProfile, limit int) []CategoryAffinity {
	var out []CategoryAffinity
	for key, w := range prof.Interests {
		if !strings.HasPrefix(key, feature.KeyCategoryPrefix) || w <= 0 {
			continue
		}
		out = append(out, CategoryAffinity{
			Category: strings.TrimPrefix(key, feature.KeyCategoryPrefix),
			Weight:   w,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// contentCache 是 Content 的缓存表示，商品列表降维成 cachedItem。
type contentCache struct {
	Type       ContentType        `json:"type"`
	Products   []cachedItem       `json:"products,omitempty"`
	Deals      []cachedItem       `json:"deals,omitempty"`
	Featured   []cachedItem       `json:"featured,omitempty"`
	Categories []CategoryAffinity `json:"categories,omitempty"`
	Segments   []string           `json:"segments,omitempty"`
}

func (e *Engine) cachedContent(ctx context.Context, key string) (*Content, bool) {
	data, err := e.Cache.Get(ctx, key)
	if err != nil {
		if !core.IsCacheMiss(err) {
			e.Logger.Warn("content cache read failed",
				zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var cc contentCache
	if err := json.Unmarshal(data, &cc); err != nil {
		return nil, false
	}
	return &Content{
		Type:       cc.Type,
		Products:   e.decodeItems(ctx, cc.Products),
		Deals:      e.decodeItems(ctx, cc.Deals),
		Featured:   e.decodeItems(ctx, cc.Featured),
		Categories: cc.Categories,
		Segments:   cc.Segments,
	}, true
}

func (e *Engine) cacheContent(ctx context.Context, key string, c *Content) {
	cc := contentCache{
		Type:       c.Type,
		Products:   encodeItems(c.Products),
		Deals:      encodeItems(c.Deals),
		Featured:   encodeItems(c.Featured),
		Categories: c.Categories,
		Segments:   c.Segments,
	}
	data, err := json.Marshal(cc)
	if err != nil {
		return
	}
	if err := e.Cache.Set(ctx, key, data, e.Config.ContentTTL); err != nil {
		e.Logger.Warn("content cache write failed",
			zap.String("key", key), zap.Error(err))
	}
}
