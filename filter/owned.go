package filter

import (
	"context"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// OwnedFilter 过滤用户已购买过的商品（已送达/处理中的订单）。
// 已购集合在首次判定时懒加载一次；订单查询失败按“无历史”处理，
// 宁可多推也不让整条链路失败。
//
// 每次请求应构建新的 OwnedFilter 实例，不做跨请求复用。
type OwnedFilter struct {
	Orders core.OrderStore

	loaded bool
	owned  map[string]struct{}
}

func (f *OwnedFilter) Name() string {
	return "filter.owned"
}

func (f *OwnedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if !f.loaded {
		f.load(ctx, rctx.UserID)
	}
	if item.Product == nil {
		return false, nil
	}
	_, has := f.owned[item.Product.ID]
	return has, nil
}

func (f *OwnedFilter) load(ctx context.Context, userID string) {
	f.loaded = true
	f.owned = make(map[string]struct{})
	if f.Orders == nil || userID == "" {
		return
	}
	orders, err := f.Orders.FindOrdersByUser(ctx, userID, core.PurchasedStatuses)
	if err != nil {
		return
	}
	for _, o := range orders {
		for _, it := range o.Items {
			f.owned[it.ProductID] = struct{}{}
		}
	}
}
