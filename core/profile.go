package core

import "time"

// MaxInterest 是兴趣权重的上限；所有 FeatureVector 权重都落在 [0, MaxInterest]。
const MaxInterest = 100.0

// MaxBehaviorEvents 是画像中保留的行为日志上限，超出时最旧的先被淘汰。
const MaxBehaviorEvents = 1000

// FeatureVector 是稀疏特征向量：feature key -> 非负权重。
// key 开放式命名（category_boys / price_medium / brand_Nike / age_2-3years），
// 缺失即权重 0。
type FeatureVector map[string]float64

// Add 累加权重并夹到 [0, MaxInterest]。
func (v FeatureVector) Add(key string, w float64) {
	nw := v[key] + w
	if nw < 0 {
		nw = 0
	}
	if nw > MaxInterest {
		nw = MaxInterest
	}
	v[key] = nw
}

// Decay 对所有既有权重做一次乘性衰减 weight *= (1 - factor)。
// 衰减是事件驱动的：每记录一条行为应用一次，而不是按墙钟周期。
func (v FeatureVector) Decay(factor float64) {
	if factor <= 0 {
		return
	}
	for k, w := range v {
		v[k] = w * (1 - factor)
	}
}

// Normalize 把向量线性缩放到最大权重等于 scale（全零向量不动）。
func (v FeatureVector) Normalize(scale float64) {
	var max float64
	for _, w := range v {
		if w > max {
			max = w
		}
	}
	if max <= 0 {
		return
	}
	for k, w := range v {
		v[k] = w / max * scale
	}
}

// Clone 拷贝向量。链路中的读取都是快照式的，避免共享可变状态。
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	for k, w := range v {
		out[k] = w
	}
	return out
}

// BehaviorAction 是被追踪的用户行为类型。
type BehaviorAction string

const (
	ActionView      BehaviorAction = "view"
	ActionAddToCart BehaviorAction = "addToCart"
	ActionPurchase  BehaviorAction = "purchase"
	ActionLike      BehaviorAction = "like"
	ActionShare     BehaviorAction = "share"
	ActionSearch    BehaviorAction = "search"
)

// BehaviorEvent 是一条不可变的行为记录。
type BehaviorEvent struct {
	Action      BehaviorAction
	ProductID   string
	Category    string
	SearchQuery string
	SessionID   string
	Timestamp   time.Time
	Metadata    map[string]any
}

// PurchaseSummary 是从订单历史派生的消费摘要。
type PurchaseSummary struct {
	TotalOrders        int
	TotalSpent         float64
	AvgOrderValue      float64
	FavoriteCategories []string
	Frequency          string // frequent / regular / occasional / rare / none
}

// Segment 标签常量。分段每次重算，不做累积。
const (
	SegmentNewUser       = "new-user"
	SegmentHighValue     = "high-value"
	SegmentMidValue      = "mid-value"
	SegmentLowValue      = "low-value"
	SegmentBrowser       = "browser"
	SegmentCartHeavy     = "cart-heavy"
	SegmentFrequentBuyer = "frequent-buyer"
)

// InterestProfile 是单个用户的兴趣画像。
//
// 一句话定义：画像 = 推荐链路的“全局上下文 + 特征源 + 决策信号”。
//
// 维度          作用
// Interests     content / personalization 核心
// Events        短窗行为分段、实时调权
// Summary       价值分层、频次分层
// Segments      下游内容选择
// 生命周期：首次访问时由订单历史惰性构建，带 TTL 缓存，
// 每条行为事件增量更新；画像归属单个用户，引擎从不跨用户共享实例。
type InterestProfile struct {
	UserID               string
	Interests            FeatureVector
	Events               []BehaviorEvent
	Summary              PurchaseSummary
	Segments             []string
	PersonalizationScore float64 // 0-100，画像丰富度
	UpdatedAt            time.Time
}

// NewInterestProfile 创建一个空画像。
func NewInterestProfile(userID string) *InterestProfile {
	return &InterestProfile{
		UserID:    userID,
		Interests: make(FeatureVector),
		Events:    make([]BehaviorEvent, 0),
		Summary:   PurchaseSummary{Frequency: "none"},
		Segments:  []string{},
		UpdatedAt: time.Now(),
	}
}

// DefaultProfile 是画像构建失败时的兜底画像：空兴趣、new-user 分段、0 分。
func DefaultProfile(userID string) *InterestProfile {
	p := NewInterestProfile(userID)
	p.Segments = []string{SegmentNewUser}
	return p
}

// AddEvent 追加行为事件并裁剪到最近 MaxBehaviorEvents 条（最旧的先出局）。
func (p *InterestProfile) AddEvent(ev BehaviorEvent) {
	p.Events = append(p.Events, ev)
	if len(p.Events) > MaxBehaviorEvents {
		p.Events = p.Events[len(p.Events)-MaxBehaviorEvents:]
	}
	p.UpdatedAt = time.Now()
}

// EventsSince 返回窗口内的行为事件（短窗分段用）。
func (p *InterestProfile) EventsSince(since time.Time) []BehaviorEvent {
	out := make([]BehaviorEvent, 0)
	for _, ev := range p.Events {
		if !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
	}
	return out
}

// HasInterests 判断画像是否有任何非零兴趣。
func (p *InterestProfile) HasInterests() bool {
	for _, w := range p.Interests {
		if w > 0 {
			return true
		}
	}
	return false
}

// InterestWeight 获取某个 feature key 的兴趣权重。
func (p *InterestProfile) InterestWeight(key string) float64 {
	if p.Interests == nil {
		return 0
	}
	return p.Interests[key]
}

// HasSegment 判断画像是否带有某个分段标签。
func (p *InterestProfile) HasSegment(seg string) bool {
	for _, s := range p.Segments {
		if s == seg {
			return true
		}
	}
	return false
}

// Clone 深拷贝画像。每个请求操作自己的副本，读是调用时快照。
func (p *InterestProfile) Clone() *InterestProfile {
	cp := &InterestProfile{
		UserID:               p.UserID,
		Interests:            p.Interests.Clone(),
		Events:               make([]BehaviorEvent, len(p.Events)),
		Summary:              p.Summary,
		Segments:             make([]string, len(p.Segments)),
		PersonalizationScore: p.PersonalizationScore,
		UpdatedAt:            p.UpdatedAt,
	}
	copy(cp.Events, p.Events)
	copy(cp.Segments, p.Segments)
	cp.Summary.FavoriteCategories = append([]string(nil), p.Summary.FavoriteCategories...)
	return cp
}
