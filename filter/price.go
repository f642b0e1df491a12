package filter

import (
	"context"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// PriceFilter 只保留价格落在区间内的商品。Range 为 nil 时不做限制。
type PriceFilter struct {
	Range *core.PriceRange
}

func (f *PriceFilter) Name() string {
	return "filter.price"
}

func (f *PriceFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Range == nil {
		return false, nil
	}
	p := item.Product
	if p == nil {
		return true, nil
	}
	return !f.Range.Contains(p.Price), nil
}
