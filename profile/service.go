// Package profile 实现用户兴趣画像存储：惰性构建、事件驱动衰减、
// 分段重算与缓存。画像是推荐链路的“全局上下文 + 特征源 + 决策信号”。
package profile

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/feature"
)

// CacheKeyPrefix 是画像缓存 key 前缀，实际 key 为 profile:user:<userID>。
const CacheKeyPrefix = "profile:user:"

// Sink 是画像摘要的持久化出口：宿主系统把去范式化的摘要落到用户记录上，
// 缓存被逐出后仍可恢复。实现方自定，写失败只记日志、不中断链路。
type Sink interface {
	SaveProfileSummary(ctx context.Context, p *core.InterestProfile) error
}

// WarmStartSource 为没有任何订单/行为的用户提供初始兴趣
// （如 Feast 在线特征库，见 feature.FeastSource）。
type WarmStartSource interface {
	UserInterests(ctx context.Context, userID string) (core.FeatureVector, error)
}

// Service 是兴趣画像服务。无全局状态：依赖全部注入，多实例可并存。
//
// 并发语义：同一用户的并发 TrackBehavior 不互斥，缓存画像上
// last-writer-wins，衰减可能被多算或漏算一次。个性化是读多写少、
// 尽力而为的场景，这是接受的不一致（有测试演示该行为）。
type Service struct {
	Orders core.OrderStore
	Cache  core.Cache
	Config core.Config

	// Catalog 可选：用于把行为事件里的 productId 解析成完整特征键。
	// 缺省时只使用事件自带的 category。
	Catalog core.CatalogStore

	// Sink 可选：画像摘要的去范式化持久化出口。
	Sink Sink

	// WarmStart 可选：冷启动用户的兴趣补水源。
	WarmStart WarmStartSource

	// Logger 可选，nil 时为 no-op。
	Logger *zap.Logger
}

// NewService 创建画像服务，cfg 会补全默认值。
func NewService(orders core.OrderStore, cache core.Cache, cfg core.Config) *Service {
	return &Service{
		Orders: orders,
		Cache:  cache,
		Config: cfg.Complete(),
	}
}

func (s *Service) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// GetProfile 返回用户画像：缓存命中且未过期直接返回，否则从订单历史
// 重建并以 ProfileTTL 缓存。构建失败退回 DefaultProfile，从不报错给上层。
func (s *Service) GetProfile(ctx context.Context, userID string) (*core.InterestProfile, error) {
	if userID == "" {
		return core.DefaultProfile(userID), nil
	}

	if p, ok := s.fromCache(ctx, userID); ok {
		return p, nil
	}

	p, err := s.rebuild(ctx, userID)
	if err != nil {
		s.logger().Warn("profile rebuild failed, falling back to default profile",
			zap.String("user_id", userID), zap.Error(err))
		return core.DefaultProfile(userID), nil
	}

	s.persist(ctx, p)
	return p, nil
}

// TrackBehavior 记录一条行为事件并增量更新画像：
//  1. 追加事件（裁剪到最近 1000 条）
//  2. 对未被本次事件触达的既有权重做一次衰减 weight *= (1-DecayFactor)
//  3. 叠加本次事件的贡献（action 权重 × 触达的 feature key）
//  4. 重算分段与画像丰富度，回写缓存
//
// 返回更新后的画像。
func (s *Service) TrackBehavior(ctx context.Context, userID string, ev core.BehaviorEvent) (*core.InterestProfile, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidInput, "profile: empty user id")
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		p = core.DefaultProfile(userID)
	}

	p.AddEvent(ev)

	touched := s.eventKeys(ctx, ev)
	s.decayExcept(p.Interests, touched)

	w := s.Config.ActionWeight(ev.Action)
	for _, key := range touched {
		p.Interests.Add(key, w)
	}

	p.Segments = DeriveSegments(p, s.Config, time.Now())
	p.PersonalizationScore = richnessScore(p)
	p.UpdatedAt = time.Now()

	s.persist(ctx, p)
	return p, nil
}

// Invalidate 丢弃缓存画像，下一次访问触发重建。
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, CacheKeyPrefix+userID); err != nil {
		s.logger().Warn("profile cache invalidate failed",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// rebuild 从订单历史构建画像：每个订单条目按 数量×purchase 权重
// 贡献到对应 feature key，随后整体归一化到 MaxInterest 量纲。
func (s *Service) rebuild(ctx context.Context, userID string) (*core.InterestProfile, error) {
	orders, err := s.Orders.FindOrdersByUser(ctx, userID, core.PurchasedStatuses)
	if err != nil {
		return nil, err
	}

	p := core.NewInterestProfile(userID)
	purchaseWeight := s.Config.ActionWeight(core.ActionPurchase)

	for _, o := range orders {
		for _, item := range o.Items {
			w := float64(item.Quantity) * purchaseWeight
			for _, key := range feature.OrderItemKeys(item) {
				// 归一化前不夹上限，比例信息在 Normalize 时才有意义
				p.Interests[key] += w
			}
		}
	}
	p.Interests.Normalize(core.MaxInterest)

	if len(orders) == 0 && s.WarmStart != nil {
		s.hydrate(ctx, p)
	}

	p.Summary = buildSummary(orders)
	p.Segments = DeriveSegments(p, s.Config, time.Now())
	p.PersonalizationScore = richnessScore(p)
	return p, nil
}

// hydrate 用外部特征库的兴趣给冷启动画像补水（尽力而为）。
func (s *Service) hydrate(ctx context.Context, p *core.InterestProfile) {
	interests, err := s.WarmStart.UserInterests(ctx, p.UserID)
	if err != nil {
		s.logger().Warn("warm-start hydrate failed",
			zap.String("user_id", p.UserID), zap.Error(err))
		return
	}
	for k, w := range interests {
		p.Interests.Add(k, w)
	}
}

// eventKeys 解析一条行为事件触达的 feature key。
// 有 productId 且目录可用时使用完整商品向量的 key，否则退回事件自带类目。
func (s *Service) eventKeys(ctx context.Context, ev core.BehaviorEvent) []string {
	if ev.ProductID != "" && s.Catalog != nil {
		if prod, err := s.Catalog.FindProductByID(ctx, ev.ProductID); err == nil && prod != nil {
			v := feature.ProductVector(prod)
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			return keys
		}
	}
	if ev.Category != "" {
		return []string{feature.KeyCategoryPrefix + ev.Category}
	}
	return nil
}

func (s *Service) decayExcept(v core.FeatureVector, touched []string) {
	skip := make(map[string]struct{}, len(touched))
	for _, k := range touched {
		skip[k] = struct{}{}
	}
	factor := s.Config.DecayFactor
	for k, w := range v {
		if _, ok := skip[k]; ok {
			continue
		}
		v[k] = w * (1 - factor)
	}
}

func (s *Service) fromCache(ctx context.Context, userID string) (*core.InterestProfile, bool) {
	if s.Cache == nil {
		return nil, false
	}
	data, err := s.Cache.Get(ctx, CacheKeyPrefix+userID)
	if err != nil {
		if !core.IsCacheMiss(err) {
			// 缓存故障按 miss 处理，从不致命
			s.logger().Warn("profile cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var p core.InterestProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	if p.Interests == nil {
		p.Interests = make(core.FeatureVector)
	}
	return &p, true
}

func (s *Service) persist(ctx context.Context, p *core.InterestProfile) {
	if s.Cache != nil {
		if data, err := json.Marshal(p); err == nil {
			if err := s.Cache.Set(ctx, CacheKeyPrefix+p.UserID, data, s.Config.ProfileTTL); err != nil {
				s.logger().Warn("profile cache write failed",
					zap.String("user_id", p.UserID), zap.Error(err))
			}
		}
	}
	if s.Sink != nil {
		if err := s.Sink.SaveProfileSummary(ctx, p); err != nil {
			s.logger().Warn("profile summary persist failed",
				zap.String("user_id", p.UserID), zap.Error(err))
		}
	}
}
