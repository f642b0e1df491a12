package profile

import (
	"sort"
	"time"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// 分段阈值。价值分层按生命周期消费额，短窗行为按 7 天窗口计数。
const (
	highValueSpend = 1000.0
	midValueSpend  = 500.0

	browserViews      = 20
	cartHeavyAdds     = 5
	frequentBuyerBuys = 2
)

// DeriveSegments 把画像归类到命名分段：价值分层、频次分层、
// 最多 2 个高消费类目标签、短窗行为标签。
// 分段每次整体重算，不做累积；旧标签自然消失。
func DeriveSegments(p *core.InterestProfile, cfg core.Config, now time.Time) []string {
	segs := make([]string, 0, 6)

	// 价值分层
	switch {
	case p.Summary.TotalOrders == 0:
		segs = append(segs, core.SegmentNewUser)
	case p.Summary.TotalSpent >= highValueSpend:
		segs = append(segs, core.SegmentHighValue)
	case p.Summary.TotalSpent >= midValueSpend:
		segs = append(segs, core.SegmentMidValue)
	default:
		segs = append(segs, core.SegmentLowValue)
	}

	// 频次分层
	if p.Summary.Frequency != "" && p.Summary.Frequency != "none" {
		segs = append(segs, "frequency-"+p.Summary.Frequency)
	}

	// 类目亲和（最多 2 个高消费类目）
	for i, cat := range p.Summary.FavoriteCategories {
		if i >= 2 {
			break
		}
		segs = append(segs, "category-"+cat)
	}

	// 短窗行为标签
	since := now.AddDate(0, 0, -cfg.BehaviorWindowDays)
	var views, adds, buys int
	for _, ev := range p.EventsSince(since) {
		switch ev.Action {
		case core.ActionView:
			views++
		case core.ActionAddToCart:
			adds++
		case core.ActionPurchase:
			buys++
		}
	}
	if views >= browserViews {
		segs = append(segs, core.SegmentBrowser)
	}
	if adds >= cartHeavyAdds {
		segs = append(segs, core.SegmentCartHeavy)
	}
	if buys >= frequentBuyerBuys {
		segs = append(segs, core.SegmentFrequentBuyer)
	}

	return segs
}

// buildSummary 从订单历史派生消费摘要。
func buildSummary(orders []*core.Order) core.PurchaseSummary {
	sum := core.PurchaseSummary{Frequency: "none"}
	sum.TotalOrders = len(orders)
	if len(orders) == 0 {
		return sum
	}

	spendByCat := make(map[string]float64)
	first := orders[0].CreatedAt
	for _, o := range orders {
		sum.TotalSpent += o.Total
		if o.CreatedAt.Before(first) {
			first = o.CreatedAt
		}
		for _, item := range o.Items {
			if item.Category != "" {
				spendByCat[item.Category] += item.Price * float64(item.Quantity)
			}
		}
	}
	sum.AvgOrderValue = sum.TotalSpent / float64(len(orders))
	sum.FavoriteCategories = topCategories(spendByCat, 2)
	sum.Frequency = frequencyTier(len(orders), first)
	return sum
}

// frequencyTier 按月均订单数分层。
func frequencyTier(orderCount int, firstOrder time.Time) string {
	months := time.Since(firstOrder).Hours() / (24 * 30)
	if months < 1 {
		months = 1
	}
	perMonth := float64(orderCount) / months
	switch {
	case perMonth >= 3:
		return "frequent"
	case perMonth >= 1:
		return "regular"
	case orderCount > 0:
		return "occasional"
	default:
		return "none"
	}
}

func topCategories(spend map[string]float64, n int) []string {
	type catSpend struct {
		cat   string
		spend float64
	}
	all := make([]catSpend, 0, len(spend))
	for c, s := range spend {
		all = append(all, catSpend{c, s})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].spend == all[j].spend {
			return all[i].cat < all[j].cat
		}
		return all[i].spend > all[j].spend
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make([]string, 0, len(all))
	for _, cs := range all {
		out = append(out, cs.cat)
	}
	return out
}

// richnessScore 评估画像丰富度（0-100）：兴趣键数、订单数、行为量各占一部分。
func richnessScore(p *core.InterestProfile) float64 {
	score := float64(len(p.Interests)) * 4
	if score > 40 {
		score = 40
	}
	orderPart := float64(p.Summary.TotalOrders) * 6
	if orderPart > 30 {
		orderPart = 30
	}
	eventPart := float64(len(p.Events)) * 0.3
	if eventPart > 30 {
		eventPart = 30
	}
	return score + orderPart + eventPart
}
