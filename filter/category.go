package filter

import (
	"context"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// CategoryFilter 只保留给定品类的商品。Allowed 为空时不做限制。
type CategoryFilter struct {
	Allowed []string
}

func (f *CategoryFilter) Name() string {
	return "filter.category"
}

func (f *CategoryFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if len(f.Allowed) == 0 {
		return false, nil
	}
	p := item.Product
	if p == nil {
		return true, nil
	}
	for _, c := range f.Allowed {
		if p.Category == c {
			return false, nil
		}
	}
	return true, nil
}
