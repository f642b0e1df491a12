package core

// HybridWeights 是混合器的固定算法权重，五项之和应为 1.0。
type HybridWeights struct {
	Collaborative float64 `yaml:"collaborative"`
	Content       float64 `yaml:"content"`
	Popularity    float64 `yaml:"popularity"`
	Trending      float64 `yaml:"trending"`
	Seasonal      float64 `yaml:"seasonal"`
}

// Sum 返回五个权重之和（校验/测试用）。
func (w HybridWeights) Sum() float64 {
	return w.Collaborative + w.Content + w.Popularity + w.Trending + w.Seasonal
}

// DefaultHybridWeights 是默认权重：协同 0.30、内容 0.25、热门 0.20、
// 趋势 0.15、季节 0.10。
func DefaultHybridWeights() HybridWeights {
	return HybridWeights{
		Collaborative: 0.30,
		Content:       0.25,
		Popularity:    0.20,
		Trending:      0.15,
		Seasonal:      0.10,
	}
}

// Config 是引擎的显式配置。权重/衰减/阈值全部在此，不放模块级字面量，
// 替代权重无需 monkey-patch 即可测试。Config 按值传递，构造后不再修改。
type Config struct {
	// Hybrid 混合器算法权重
	Hybrid HybridWeights `yaml:"hybrid"`

	// DecayFactor 每条行为事件触发的兴趣衰减系数（weight *= 1-DecayFactor）
	DecayFactor float64 `yaml:"decay_factor"`

	// ActionWeights 行为到兴趣贡献的权重表
	ActionWeights map[BehaviorAction]float64 `yaml:"action_weights"`

	// NeighborLimit collaborative 使用的邻居数上限
	NeighborLimit int `yaml:"neighbor_limit"`

	// NeighborMinSimilarity 邻居的最小 Jaccard 相似度（> 此值才保留）
	NeighborMinSimilarity float64 `yaml:"neighbor_min_similarity"`

	// ReasonThreshold 兴趣分量进入 reason 文案的可见阈值（0-100）
	ReasonThreshold float64 `yaml:"reason_threshold"`

	// MultiplierCap 个性化乘数上限
	MultiplierCap float64 `yaml:"multiplier_cap"`

	// TTL 配置，单位秒
	ProfileTTL        int `yaml:"profile_ttl"`        // 画像缓存
	PopularityTTL     int `yaml:"popularity_ttl"`     // popularity 结果缓存
	RecommendationTTL int `yaml:"recommendation_ttl"` // 推荐列表缓存
	ContentTTL        int `yaml:"content_ttl"`        // 个性化内容缓存

	// 时间窗口配置，单位天
	PopularityWindowDays int `yaml:"popularity_window_days"`
	TrendingWindowDays   int `yaml:"trending_window_days"`
	BehaviorWindowDays   int `yaml:"behavior_window_days"` // 短窗分段窗口
}

// DefaultActionWeights 是行为权重表：purchase=10, share=4, addToCart=3,
// like=2, search=1.5, view=1。
func DefaultActionWeights() map[BehaviorAction]float64 {
	return map[BehaviorAction]float64{
		ActionPurchase:  10,
		ActionShare:     4,
		ActionAddToCart: 3,
		ActionLike:      2,
		ActionSearch:    1.5,
		ActionView:      1,
	}
}

// DefaultConfig 返回全默认配置。
func DefaultConfig() Config {
	return Config{
		Hybrid:                DefaultHybridWeights(),
		DecayFactor:           0.1,
		ActionWeights:         DefaultActionWeights(),
		NeighborLimit:         10,
		NeighborMinSimilarity: 0.1,
		ReasonThreshold:       50,
		MultiplierCap:         5,
		ProfileTTL:            3600,
		PopularityTTL:         1800,
		RecommendationTTL:     1800,
		ContentTTL:            3600,
		PopularityWindowDays:  30,
		TrendingWindowDays:    7,
		BehaviorWindowDays:    7,
	}
}

// Complete 把零值字段补成默认值，返回新 Config（原值不动）。
// YAML 局部覆盖时只需写关心的字段。
func (c Config) Complete() Config {
	def := DefaultConfig()
	if c.Hybrid.Sum() == 0 {
		c.Hybrid = def.Hybrid
	}
	if c.DecayFactor == 0 {
		c.DecayFactor = def.DecayFactor
	}
	if len(c.ActionWeights) == 0 {
		c.ActionWeights = def.ActionWeights
	}
	if c.NeighborLimit == 0 {
		c.NeighborLimit = def.NeighborLimit
	}
	if c.NeighborMinSimilarity == 0 {
		c.NeighborMinSimilarity = def.NeighborMinSimilarity
	}
	if c.ReasonThreshold == 0 {
		c.ReasonThreshold = def.ReasonThreshold
	}
	if c.MultiplierCap == 0 {
		c.MultiplierCap = def.MultiplierCap
	}
	if c.ProfileTTL == 0 {
		c.ProfileTTL = def.ProfileTTL
	}
	if c.PopularityTTL == 0 {
		c.PopularityTTL = def.PopularityTTL
	}
	if c.RecommendationTTL == 0 {
		c.RecommendationTTL = def.RecommendationTTL
	}
	if c.ContentTTL == 0 {
		c.ContentTTL = def.ContentTTL
	}
	if c.PopularityWindowDays == 0 {
		c.PopularityWindowDays = def.PopularityWindowDays
	}
	if c.TrendingWindowDays == 0 {
		c.TrendingWindowDays = def.TrendingWindowDays
	}
	if c.BehaviorWindowDays == 0 {
		c.BehaviorWindowDays = def.BehaviorWindowDays
	}
	return c
}

// ActionWeight 返回行为的兴趣贡献权重，未知行为为 0。
func (c Config) ActionWeight(a BehaviorAction) float64 {
	if c.ActionWeights == nil {
		return 0
	}
	return c.ActionWeights[a]
}
