package core

import "github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"

// 约定的 Label key，贯穿整个链路。
const (
	LabelAlgorithm = "algorithm" // 贡献算法，多个算法以 '|' 累积
	LabelReason    = "reason"    // 人类可读的推荐解释
	LabelFiltered  = "filtered"  // 被过滤时的原因（调试/观测用）
)

// Item 是推荐链路中的统一承载结构：商品、分数、来源、解释。
// Score 是单算法的原始分；FinalScore 是混合/个性化之后的最终分。
// Labels 用于解释与策略驱动，algorithm Label 记录贡献的生成器。
type Item struct {
	ID         string
	Score      float64
	FinalScore float64
	Reason     string
	Product    *Product
	Features   map[string]float64
	Meta       map[string]any
	Labels     map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// NewProductItem 基于商品记录构建 Item，商品引用只读共享、不复制。
func NewProductItem(p *Product) *Item {
	it := NewItem(p.ID)
	it.Product = p
	return it
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Algorithms 返回贡献过该 Item 的算法名列表（按首次贡献顺序）。
func (it *Item) Algorithms() []string {
	if it.Labels == nil {
		return nil
	}
	return it.Labels[LabelAlgorithm].Values()
}

// Clone 拷贝 Item 的可变部分（分数、Labels、Features、Meta）。
// Product 指针共享：商品向量是派生数据，链路中从不修改商品本身。
func (it *Item) Clone() *Item {
	cp := &Item{
		ID:         it.ID,
		Score:      it.Score,
		FinalScore: it.FinalScore,
		Reason:     it.Reason,
		Product:    it.Product,
		Features:   make(map[string]float64, len(it.Features)),
		Meta:       make(map[string]any, len(it.Meta)),
		Labels:     make(map[string]utils.Label, len(it.Labels)),
	}
	for k, v := range it.Features {
		cp.Features[k] = v
	}
	for k, v := range it.Meta {
		cp.Meta[k] = v
	}
	for k, v := range it.Labels {
		cp.Labels[k] = v
	}
	return cp
}
