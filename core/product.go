package core

import (
	"context"
	"time"
)

// Product 是商品目录中的一条记录。
// 推荐引擎只读取商品；商品向量按需派生（见 feature 包），从不回写。
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Brand       string
	AgeRange    string // 例如 "2-3years"
	Tags        []string
	Price       float64
	OldPrice    float64 // 划线价，>Price 时表示在打折
	Stock       int
	Available   bool
	CreatedAt   time.Time
}

// DiscountPercent 返回折扣百分比；未打折返回 0。
func (p *Product) DiscountPercent() float64 {
	if p.OldPrice <= p.Price || p.OldPrice <= 0 {
		return 0
	}
	return (p.OldPrice - p.Price) / p.OldPrice * 100
}

// PriceRange 表示一个闭区间价格过滤条件。Max<=0 表示不限上限。
type PriceRange struct {
	Min float64
	Max float64
}

// Contains 判断价格是否落在区间内。
func (r PriceRange) Contains(price float64) bool {
	if price < r.Min {
		return false
	}
	if r.Max > 0 && price > r.Max {
		return false
	}
	return true
}

// ProductFilter 是目录查询条件。零值表示全量活跃商品。
type ProductFilter struct {
	Categories  []string
	PriceRange  *PriceRange
	InStockOnly bool
}

// OrderStatus 是订单状态。已购判定只认 delivered / processing。
type OrderStatus string

const (
	OrderDelivered  OrderStatus = "delivered"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderPending    OrderStatus = "pending"
	OrderCancelled  OrderStatus = "cancelled"
)

// PurchasedStatuses 是“算作已购买”的订单状态集合。
var PurchasedStatuses = []OrderStatus{OrderDelivered, OrderProcessing}

// OrderItem 是订单中的一个条目。
type OrderItem struct {
	ProductID string
	Category  string
	Quantity  int
	Price     float64
}

// Order 是一笔用户订单。
type Order struct {
	ID        string
	UserID    string
	Items     []OrderItem
	Total     float64
	Status    OrderStatus
	CreatedAt time.Time
}

// ProductSales 是按商品聚合的销量统计（popularity 窗口聚合结果）。
type ProductSales struct {
	ProductID  string
	OrderCount int
	Quantity   int
	Revenue    float64
}

// CatalogStore 是商品目录的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由宿主系统的持久化层实现
//   - 引擎不关心底层是 Mongo / SQL / 内存，只依赖此接口
type CatalogStore interface {
	// FindActiveProducts 按条件查询活跃商品
	FindActiveProducts(ctx context.Context, filter ProductFilter) ([]*Product, error)

	// FindProductByID 按 ID 查询商品，不存在返回 (nil, NOT_FOUND)
	FindProductByID(ctx context.Context, id string) (*Product, error)
}

// OrderStore 是订单数据的领域接口，同时承担推荐所需的聚合查询。
type OrderStore interface {
	// FindOrdersByUser 查询某用户的订单；statuses 为空表示不过滤状态
	FindOrdersByUser(ctx context.Context, userID string, statuses []OrderStatus) ([]*Order, error)

	// SalesSince 聚合窗口期内每个商品的订单数/销量/营收（popularity 用）
	SalesSince(ctx context.Context, since time.Time) ([]ProductSales, error)

	// DailyOrderCounts 返回窗口期内每个商品按天的订单数序列（trending 用）
	DailyOrderCounts(ctx context.Context, since time.Time) (map[string][]int, error)

	// ActiveBuyers 返回近期有成交订单的用户 ID（collaborative 的邻居候选池）
	ActiveBuyers(ctx context.Context, limit int) ([]string, error)
}

// 目录/订单错误定义
var (
	ErrProductNotFound = NewDomainError(ModuleCatalog, ErrorCodeNotFound, "catalog: product not found")
)
