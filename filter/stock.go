package filter

import (
	"context"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// StockFilter 过滤不可售的商品：下架或无库存。
// IncludeOutOfStock 为 true 时仅过滤下架商品，保留零库存商品。
type StockFilter struct {
	IncludeOutOfStock bool
}

func (f *StockFilter) Name() string {
	return "filter.stock"
}

func (f *StockFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	p := item.Product
	if p == nil {
		return true, nil
	}
	if !p.Available {
		return true, nil
	}
	if !f.IncludeOutOfStock && p.Stock <= 0 {
		return true, nil
	}
	return false, nil
}
