package recall

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/conv"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"
)

// 北半球季节关键词表。商品的名称/描述/标签命中任意关键词即入选。
var seasonKeywords = map[string][]string{
	"spring": {"spring", "rain", "raincoat", "floral", "light jacket", "easter"},
	"summer": {"summer", "beach", "swim", "shorts", "sandals", "sun", "t-shirt"},
	"autumn": {"autumn", "fall", "school", "sweater", "cardigan", "backpack"},
	"winter": {"winter", "warm", "coat", "jacket", "boots", "fleece", "christmas"},
}

// Seasonal 是季节召回源：按当前月份选定季节关键词表做文本匹配，
// 命中的商品拿一个 [0.5,1) 的均匀随机分。随机抖动是刻意保留的
// 轮换机制，让同一批应季商品在请求之间换位展示。
type Seasonal struct {
	Catalog core.CatalogStore

	// Season 覆盖季节（测试用）；为空时按当前月份推导
	Season string

	// Seed 随机种子（测试用）；为 0 时按当前时间取种。
	// 每次召回各自新建随机源，并发调用互不干扰。
	Seed int64

	// TopK 返回条数上限，<=0 时默认 50
	TopK int
}

func (r *Seasonal) Name() string { return "recall.seasonal" }

func (r *Seasonal) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}

	// 请求参数可逐次覆盖季节（运营预热下一季时用）。
	season := conv.ParamGet(rctx.Params, "season", r.Season)
	if season == "" {
		season = CurrentSeason(time.Now())
	}
	keywords := seasonKeywords[season]
	if len(keywords) == 0 {
		return nil, nil
	}

	seed := r.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	products, err := r.Catalog.FindActiveProducts(ctx, core.ProductFilter{})
	if err != nil {
		return nil, err
	}

	var out []*core.Item
	for _, p := range products {
		if !matchesSeason(p, keywords) {
			continue
		}
		it := core.NewProductItem(p)
		it.Score = 0.5 + rnd.Float64()*0.5
		it.Reason = "Perfect for the season"
		it.PutLabel(core.LabelAlgorithm, utils.Label{Value: "seasonal", Source: "recall"})
		out = append(out, it)
	}
	return sortByScore(out, topK), nil
}

// CurrentSeason 按月份推导季节（北半球）。
func CurrentSeason(now time.Time) string {
	switch now.Month() {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "autumn"
	default:
		return "winter"
	}
}

func matchesSeason(p *core.Product, keywords []string) bool {
	text := strings.ToLower(p.Name + " " + p.Description + " " + strings.Join(p.Tags, " "))
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
