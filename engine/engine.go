// Package engine 是推荐引擎的对外门面：组装召回/排序/过滤/截断链路，
// 暴露 GetRecommendations / TrackBehavior / GetPersonalizedContent /
// FindSimilarProducts 四个操作。
//
// 引擎本身无全局状态：目录、订单、缓存全部注入，多个实例可并存。
// 所有读操作遵循降级链：指定算法 → hybrid → popularity → 空列表，
// 任何一层失败都只记日志，绝不向调用方抛错。
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/filter"
	"github.com/bouzaHichem/damio-kids-backend-sub000/hybrid"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pipeline"
	"github.com/bouzaHichem/damio-kids-backend-sub000/profile"
	"github.com/bouzaHichem/damio-kids-backend-sub000/rank"
	"github.com/bouzaHichem/damio-kids-backend-sub000/recall"
	"github.com/bouzaHichem/damio-kids-backend-sub000/rerank"
)

// Algorithm 是推荐算法的封闭枚举。未知值按 AlgorithmHybrid 处理。
type Algorithm string

const (
	AlgorithmPopularity    Algorithm = "popularity"
	AlgorithmTrending      Algorithm = "trending"
	AlgorithmSeasonal      Algorithm = "seasonal"
	AlgorithmContent       Algorithm = "content"
	AlgorithmCollaborative Algorithm = "collaborative"
	AlgorithmHybrid        Algorithm = "hybrid"
)

// Options 是 GetRecommendations 的请求选项。零值表示 hybrid、10 条、
// 不排除已购、不含无货商品、不限品类价格。
type Options struct {
	Algorithm         Algorithm
	Limit             int
	ExcludeOwned      bool
	IncludeOutOfStock bool
	Categories        []string
	PriceRange        *core.PriceRange
	ForceRefresh      bool
}

// Engine 是推荐引擎实例。字段在 New 后不再修改，可被多 goroutine 共享。
type Engine struct {
	Catalog  core.CatalogStore
	Orders   core.OrderStore
	Cache    core.Cache
	Config   core.Config
	Profiles *profile.Service
	Logger   *zap.Logger

	// SeasonalSeed 可选：seasonal 召回的随机种子（测试注入用），
	// 0 表示按时间取种
	SeasonalSeed int64

	sources map[Algorithm]recall.Source
}

// New 组装一个引擎实例。logger 传 nil 时为 no-op。
func New(catalog core.CatalogStore, orders core.OrderStore, cache core.Cache, cfg core.Config, logger *zap.Logger) *Engine {
	cfg = cfg.Complete()
	if logger == nil {
		logger = zap.NewNop()
	}

	profiles := profile.NewService(orders, cache, cfg)
	profiles.Catalog = catalog
	profiles.Logger = logger

	e := &Engine{
		Catalog:  catalog,
		Orders:   orders,
		Cache:    cache,
		Config:   cfg,
		Profiles: profiles,
		Logger:   logger,
	}
	e.sources = e.buildSources()
	return e
}

// SetSeasonalSeed 固定 seasonal 召回的随机种子并重建召回源。
// 仅限测试：必须在引擎被任何其他 goroutine 使用之前调用，
// 之后引擎恢复只读。召回时各请求用种子新建本地随机源，读路径无共享状态。
func (e *Engine) SetSeasonalSeed(seed int64) {
	e.SeasonalSeed = seed
	e.sources = e.buildSources()
}

// buildSources 构建五个召回源；popularity 同时作为 content/collaborative
// 的冷启动兜底。
func (e *Engine) buildSources() map[Algorithm]recall.Source {
	popularity := &recall.Popularity{
		Orders:  e.Orders,
		Catalog: e.Catalog,
		Cache:   e.Cache,
		Config:  e.Config,
	}
	return map[Algorithm]recall.Source{
		AlgorithmPopularity: popularity,
		AlgorithmTrending: &recall.Trending{
			Orders:  e.Orders,
			Catalog: e.Catalog,
			Config:  e.Config,
		},
		AlgorithmSeasonal: &recall.Seasonal{
			Catalog: e.Catalog,
			Seed:    e.SeasonalSeed,
		},
		AlgorithmContent: &recall.Content{
			Catalog:  e.Catalog,
			Fallback: popularity,
		},
		AlgorithmCollaborative: &recall.Collaborative{
			Orders:   e.Orders,
			Catalog:  e.Catalog,
			Config:   e.Config,
			Fallback: popularity,
		},
	}
}

// combiner 按配置权重组装 hybrid 混合器。
func (e *Engine) combiner() *hybrid.Combiner {
	w := e.Config.Hybrid
	return &hybrid.Combiner{
		Logger: e.Logger,
		Sources: []hybrid.WeightedSource{
			{Source: e.sources[AlgorithmCollaborative], Weight: w.Collaborative},
			{Source: e.sources[AlgorithmContent], Weight: w.Content},
			{Source: e.sources[AlgorithmPopularity], Weight: w.Popularity},
			{Source: e.sources[AlgorithmTrending], Weight: w.Trending},
			{Source: e.sources[AlgorithmSeasonal], Weight: w.Seasonal},
		},
	}
}

// GetRecommendations 返回个性化推荐列表。
//
// 永不失败：画像缺失按空画像处理，算法失败沿降级链退让
// （指定算法 → hybrid → popularity → 空列表），最坏返回空列表。
// 结果按选项维度缓存（RecommendationTTL），ForceRefresh 绕过缓存。
func (e *Engine) GetRecommendations(ctx context.Context, userID string, opts Options) (items []*core.Item) {
	// 算法层的 panic 在 run 里就地转 error 走降级链；这里兜的是
	// 链路之外（缓存编解码、画像构建）的意外，保证返回值永不为 nil。
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("recommendation panic recovered", zap.Any("panic", r))
			items = []*core.Item{}
		}
	}()

	opts = normalize(opts)
	key := recCacheKey(userID, opts)

	if !opts.ForceRefresh {
		if cached, ok := e.cachedItems(ctx, key); ok {
			return cached
		}
	}

	rctx := e.buildContext(ctx, userID)
	items = e.runWithFallback(ctx, rctx, opts)
	e.cacheItems(ctx, key, items, e.Config.RecommendationTTL)
	return items
}

// runWithFallback 依次尝试 指定算法 → hybrid → popularity，全败返回空。
func (e *Engine) runWithFallback(ctx context.Context, rctx *core.RecommendContext, opts Options) []*core.Item {
	attempts := []Algorithm{opts.Algorithm}
	if opts.Algorithm != AlgorithmHybrid {
		attempts = append(attempts, AlgorithmHybrid)
	}
	if opts.Algorithm != AlgorithmPopularity {
		attempts = append(attempts, AlgorithmPopularity)
	}

	for _, algo := range attempts {
		items, err := e.run(ctx, rctx, algo, opts)
		if err != nil {
			e.Logger.Warn("recommendation tier failed, degrading",
				zap.String("user_id", rctx.UserID),
				zap.String("algorithm", string(algo)),
				zap.Error(err))
			continue
		}
		return items
	}
	return []*core.Item{}
}

// run 组装并执行一次完整链路：召回 → 个性化排序 → 过滤 → 截断。
// 链路里的 panic 在本层转成 error，交给降级链继续退让。
func (e *Engine) run(ctx context.Context, rctx *core.RecommendContext, algo Algorithm, opts Options) (items []*core.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("algorithm %s panicked: %v", algo, r)
		}
	}()

	var recallNode pipeline.Node
	if algo == AlgorithmHybrid {
		recallNode = e.combiner()
	} else {
		recallNode = &recall.SourceNode{Source: e.sources[algo]}
	}

	filters := []filter.Filter{
		&filter.StockFilter{IncludeOutOfStock: opts.IncludeOutOfStock},
		&filter.CategoryFilter{Allowed: opts.Categories},
		&filter.PriceFilter{Range: opts.PriceRange},
	}
	if opts.ExcludeOwned {
		filters = append(filters, &filter.OwnedFilter{Orders: e.Orders})
	}

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		recallNode,
		&rank.PersonalizeNode{Config: e.Config},
		&filter.FilterNode{Filters: filters},
		&rerank.TopNNode{N: opts.Limit},
	}}

	items, err = p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*core.Item{}
	}
	return items, nil
}

// TrackBehavior 记录一条行为事件并更新画像，同时失效该用户的
// 推荐/内容缓存，下次请求按新画像重算。
func (e *Engine) TrackBehavior(ctx context.Context, userID string, ev core.BehaviorEvent) (*core.InterestProfile, error) {
	p, err := e.Profiles.TrackBehavior(ctx, userID, ev)
	if err != nil {
		return nil, err
	}
	if err := e.Cache.DeletePattern(ctx, "rec:user:"+userID+":*"); err != nil {
		e.Logger.Warn("recommendation cache invalidation failed",
			zap.String("user_id", userID), zap.Error(err))
	}
	if err := e.Cache.DeletePattern(ctx, "content:user:"+userID+":*"); err != nil {
		e.Logger.Warn("content cache invalidation failed",
			zap.String("user_id", userID), zap.Error(err))
	}
	return p, nil
}

// buildContext 构建请求上下文；画像读取永不失败（内部已兜底）。
func (e *Engine) buildContext(ctx context.Context, userID string) *core.RecommendContext {
	rctx := core.NewRecommendContext(userID)
	if userID == "" {
		return rctx
	}
	prof, err := e.Profiles.GetProfile(ctx, userID)
	if err == nil {
		rctx.User = prof
	}
	return rctx
}

func normalize(opts Options) Options {
	switch opts.Algorithm {
	case AlgorithmPopularity, AlgorithmTrending, AlgorithmSeasonal,
		AlgorithmContent, AlgorithmCollaborative, AlgorithmHybrid:
	default:
		opts.Algorithm = AlgorithmHybrid
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	return opts
}

// recCacheKey 把请求选项编码进缓存 key，不同选项互不串扰。
func recCacheKey(userID string, opts Options) string {
	pr := ""
	if opts.PriceRange != nil {
		pr = fmt.Sprintf("%g-%g", opts.PriceRange.Min, opts.PriceRange.Max)
	}
	return fmt.Sprintf("rec:user:%s:%s:%d:%t:%t:%s:%s",
		userID, opts.Algorithm, opts.Limit, opts.ExcludeOwned, opts.IncludeOutOfStock,
		strings.Join(opts.Categories, ","), pr)
}
