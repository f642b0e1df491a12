package rank

import (
	"context"
	"sort"
	"strings"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/feature"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pipeline"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"
)

// PersonalizeNode 按用户兴趣画像重排：对每个商品算一个乘法提升系数
//
//	m = (1 + w_category/100) × (1 + w_price/100 × 0.5)
//	  × (1 + w_brand/100 × 0.3) × (1 + w_age/100 × 0.7)
//
// 上限封顶（默认 5），FinalScore = Score × m。画像为空时 m=1，排序
// 退化为输入顺序的基础分排序。兴趣权重超过阈值的维度会写进推荐解释。
type PersonalizeNode struct {
	Config core.Config
}

var _ pipeline.Node = (*PersonalizeNode)(nil)

func (n *PersonalizeNode) Name() string        { return "rank.personalize" }
func (n *PersonalizeNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *PersonalizeNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cfg := n.Config.Complete()
	prof := rctx.Profile()

	for _, it := range items {
		base := it.Score
		if it.FinalScore > 0 {
			base = it.FinalScore
		}
		m, reasons := multiplier(prof, it.Product, cfg)
		it.FinalScore = base * m
		if len(reasons) > 0 {
			it.Reason = strings.Join(reasons, "; ")
			it.PutLabel(core.LabelReason, utils.Label{Value: it.Reason, Source: "rank.personalize"})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].FinalScore > items[j].FinalScore
	})
	return items, nil
}

// multiplier 返回提升系数（∈ [1, MultiplierCap]）以及超过解释阈值的
// 维度对应的人类可读解释。
func multiplier(prof *core.InterestProfile, p *core.Product, cfg core.Config) (float64, []string) {
	if p == nil || !prof.HasInterests() {
		return 1, nil
	}

	type dim struct {
		key    string
		factor float64
		reason string
	}
	dims := []dim{
		{feature.KeyCategoryPrefix + p.Category, 1.0, "matches your favorite category"},
		{feature.KeyPricePrefix + feature.PriceBucket(p.Price), 0.5, "fits your usual price range"},
		{feature.KeyBrandPrefix + p.Brand, 0.3, "from a brand you like"},
		{feature.KeyAgePrefix + p.AgeRange, 0.7, "right for the age you shop for"},
	}

	m := 1.0
	var reasons []string
	for _, d := range dims {
		w := prof.InterestWeight(d.key)
		if w <= 0 {
			continue
		}
		m *= 1 + w/core.MaxInterest*d.factor
		if w >= cfg.ReasonThreshold {
			reasons = append(reasons, d.reason)
		}
	}
	if m > cfg.MultiplierCap {
		m = cfg.MultiplierCap
	}
	return m, reasons
}
