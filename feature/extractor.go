package feature

import (
	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// feature key 前缀约定，画像与商品向量共用同一套命名空间。
const (
	KeyCategoryPrefix = "category_"
	KeyPricePrefix    = "price_"
	KeyBrandPrefix    = "brand_"
	KeyAgePrefix      = "age_"
)

// 价格桶边界：low ≤20，medium ≤50，high ≤100，其余 premium。
const (
	BucketLow     = "low"
	BucketMedium  = "medium"
	BucketHigh    = "high"
	BucketPremium = "premium"
)

// PriceBucket 返回价格所属的桶。
func PriceBucket(price float64) string {
	switch {
	case price <= 20:
		return BucketLow
	case price <= 50:
		return BucketMedium
	case price <= 100:
		return BucketHigh
	default:
		return BucketPremium
	}
}

// ProductVector 把商品记录派生为稀疏特征向量：每个存在的属性类
// （类目、价格桶、品牌、年龄段）贡献单位权重 1，不做归一化。
// 纯函数：同一商品永远得到同一向量，向量按需重算、从不回写商品。
func ProductVector(p *core.Product) core.FeatureVector {
	v := make(core.FeatureVector, 4)
	if p == nil {
		return v
	}
	if p.Category != "" {
		v[KeyCategoryPrefix+p.Category] = 1
	}
	v[KeyPricePrefix+PriceBucket(p.Price)] = 1
	if p.Brand != "" {
		v[KeyBrandPrefix+p.Brand] = 1
	}
	if p.AgeRange != "" {
		v[KeyAgePrefix+p.AgeRange] = 1
	}
	return v
}

// OrderItemKeys 返回一个订单条目会触达的 feature key 列表
// （画像重建与行为更新共用此映射）。
func OrderItemKeys(item core.OrderItem) []string {
	keys := make([]string, 0, 2)
	if item.Category != "" {
		keys = append(keys, KeyCategoryPrefix+item.Category)
	}
	keys = append(keys, KeyPricePrefix+PriceBucket(item.Price))
	return keys
}
