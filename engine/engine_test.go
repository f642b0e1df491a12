package engine

import (
	"context"
	"testing"
	"time"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/store"
)

type fakeCatalog struct {
	products map[string]*core.Product
	err      error
}

func (f *fakeCatalog) FindActiveProducts(_ context.Context, _ core.ProductFilter) ([]*core.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*core.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) FindProductByID(_ context.Context, id string) (*core.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, core.ErrProductNotFound
	}
	return p, nil
}

type fakeOrders struct {
	orders map[string][]*core.Order
	sales  []core.ProductSales
	daily  map[string][]int
	err    error
}

func (f *fakeOrders) FindOrdersByUser(_ context.Context, userID string, _ []core.OrderStatus) ([]*core.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders[userID], nil
}

func (f *fakeOrders) SalesSince(_ context.Context, _ time.Time) ([]core.ProductSales, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sales, nil
}

func (f *fakeOrders) DailyOrderCounts(_ context.Context, _ time.Time) (map[string][]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.daily, nil
}

func (f *fakeOrders) ActiveBuyers(_ context.Context, _ int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]string, 0, len(f.orders))
	for id := range f.orders {
		ids = append(ids, id)
	}
	return ids, nil
}

func testProducts(ids ...string) map[string]*core.Product {
	m := make(map[string]*core.Product, len(ids))
	for _, id := range ids {
		m[id] = &core.Product{ID: id, Name: "Product " + id, Category: "boys", Price: 30, Stock: 5, Available: true}
	}
	return m
}

func newTestEngine(t *testing.T, catalog core.CatalogStore, orders core.OrderStore) *Engine {
	t.Helper()
	cache := store.NewMemoryCache()
	t.Cleanup(func() { cache.Close() })
	return New(catalog, orders, cache, core.DefaultConfig(), nil)
}

func TestGetRecommendations_HybridReturnsRankedItems(t *testing.T) {
	catalog := &fakeCatalog{products: testProducts("p1", "p2", "p3")}
	orders := &fakeOrders{sales: []core.ProductSales{
		{ProductID: "p1", OrderCount: 10, Quantity: 12, Revenue: 400},
		{ProductID: "p2", OrderCount: 3, Quantity: 3, Revenue: 90},
	}}
	e := newTestEngine(t, catalog, orders)

	items := e.GetRecommendations(context.Background(), "u1", Options{Limit: 2})
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Product.ID != "p1" {
		t.Errorf("top = %s, want p1 (strongest popularity signal)", items[0].Product.ID)
	}
	for i := 1; i < len(items); i++ {
		if items[i].FinalScore > items[i-1].FinalScore {
			t.Errorf("items not sorted by FinalScore at %d", i)
		}
	}
}

func TestGetRecommendations_Idempotent(t *testing.T) {
	catalog := &fakeCatalog{products: testProducts("p1", "p2")}
	orders := &fakeOrders{sales: []core.ProductSales{
		{ProductID: "p1", OrderCount: 5, Quantity: 5, Revenue: 150},
		{ProductID: "p2", OrderCount: 1, Quantity: 1, Revenue: 30},
	}}
	e := newTestEngine(t, catalog, orders)
	ctx := context.Background()

	first := e.GetRecommendations(ctx, "u1", Options{Limit: 5})
	second := e.GetRecommendations(ctx, "u1", Options{Limit: 5})

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("order differs at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}

	// The second call must have been served from the result cache.
	if _, err := e.Cache.Get(ctx, recCacheKey("u1", normalize(Options{Limit: 5}))); err != nil {
		t.Errorf("result cache not populated: %v", err)
	}
}

func TestGetRecommendations_ExcludeOwned(t *testing.T) {
	catalog := &fakeCatalog{products: testProducts("p1", "p2")}
	orders := &fakeOrders{
		orders: map[string][]*core.Order{
			"u1": {{
				UserID: "u1", Status: core.OrderDelivered, Total: 30, CreatedAt: time.Now(),
				Items: []core.OrderItem{{ProductID: "p1", Category: "boys", Quantity: 1, Price: 30}},
			}},
		},
		sales: []core.ProductSales{
			{ProductID: "p1", OrderCount: 9, Quantity: 9, Revenue: 270},
			{ProductID: "p2", OrderCount: 1, Quantity: 1, Revenue: 30},
		},
	}
	e := newTestEngine(t, catalog, orders)

	items := e.GetRecommendations(context.Background(), "u1", Options{Limit: 10, ExcludeOwned: true})
	for _, it := range items {
		if it.Product.ID == "p1" {
			t.Errorf("owned product p1 recommended")
		}
	}
	if len(items) == 0 {
		t.Errorf("items empty, want p2 to survive")
	}
}

func TestGetRecommendations_NeverFails(t *testing.T) {
	catalog := &fakeCatalog{err: core.NewDomainError(core.ModuleCatalog, core.ErrorCodeUnavailable, "catalog down")}
	orders := &fakeOrders{err: core.NewDomainError(core.ModuleOrder, core.ErrorCodeUnavailable, "orders down")}
	e := newTestEngine(t, catalog, orders)

	items := e.GetRecommendations(context.Background(), "u1", Options{Algorithm: AlgorithmCollaborative})
	if items == nil {
		t.Fatalf("items = nil, want empty list")
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0 when every tier is down", len(items))
	}
}

// panicOrders blows up on the trending aggregate only; everything else works.
type panicOrders struct{ *fakeOrders }

func (p *panicOrders) DailyOrderCounts(context.Context, time.Time) (map[string][]int, error) {
	panic("order aggregation exploded")
}

// panicCache blows up on every read.
type panicCache struct{ core.Cache }

func (p *panicCache) Get(context.Context, string) ([]byte, error) {
	panic("cache exploded")
}

func TestGetRecommendations_PanickingTierDegrades(t *testing.T) {
	catalog := &fakeCatalog{products: testProducts("p1")}
	orders := &panicOrders{fakeOrders: &fakeOrders{sales: []core.ProductSales{
		{ProductID: "p1", OrderCount: 4, Quantity: 4, Revenue: 120},
	}}}
	e := newTestEngine(t, catalog, orders)

	// The trending tier panics; the call must survive it and degrade to a
	// tier that still works instead of crashing or returning nil.
	items := e.GetRecommendations(context.Background(), "u1", Options{Algorithm: AlgorithmTrending})
	if items == nil {
		t.Fatalf("items = nil, want degraded result")
	}
	if len(items) != 1 || items[0].Product.ID != "p1" {
		t.Fatalf("items = %v, want p1 from a surviving tier", items)
	}
}

func TestGetRecommendations_RecoversToEmptyList(t *testing.T) {
	catalog := &fakeCatalog{products: testProducts("p1")}
	orders := &fakeOrders{}
	mem := store.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	e := New(catalog, orders, &panicCache{Cache: mem}, core.DefaultConfig(), nil)

	items := e.GetRecommendations(context.Background(), "u1", Options{Limit: 5})
	if items == nil {
		t.Fatalf("items = nil after recovered panic, want empty list")
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0", len(items))
	}
}

func TestGetRecommendations_ColdUserCollaborativeFallsBack(t *testing.T) {
	catalog := &fakeCatalog{products: testProducts("p1")}
	orders := &fakeOrders{sales: []core.ProductSales{
		{ProductID: "p1", OrderCount: 4, Quantity: 4, Revenue: 120},
	}}
	e := newTestEngine(t, catalog, orders)

	items := e.GetRecommendations(context.Background(), "cold-user", Options{Algorithm: AlgorithmCollaborative})
	if len(items) != 1 || items[0].Product.ID != "p1" {
		t.Fatalf("items = %v, want popularity fallback result", items)
	}
	if algos := items[0].Algorithms(); len(algos) == 0 || algos[0] != "popularity" {
		t.Errorf("algorithms = %v, want popularity provenance", algos)
	}
}

func TestGetRecommendations_UnknownAlgorithmDefaultsToHybrid(t *testing.T) {
	got := normalize(Options{Algorithm: "definitely-not-real"})
	if got.Algorithm != AlgorithmHybrid {
		t.Errorf("algorithm = %s, want hybrid", got.Algorithm)
	}
	if got.Limit != 10 {
		t.Errorf("limit = %d, want default 10", got.Limit)
	}
}

func TestTrackBehavior_InvalidatesRecommendationCache(t *testing.T) {
	catalog := &fakeCatalog{products: testProducts("p1")}
	orders := &fakeOrders{sales: []core.ProductSales{
		{ProductID: "p1", OrderCount: 2, Quantity: 2, Revenue: 60},
	}}
	e := newTestEngine(t, catalog, orders)
	ctx := context.Background()

	e.GetRecommendations(ctx, "u1", Options{Limit: 5})
	key := recCacheKey("u1", normalize(Options{Limit: 5}))
	if _, err := e.Cache.Get(ctx, key); err != nil {
		t.Fatalf("cache not primed: %v", err)
	}

	if _, err := e.TrackBehavior(ctx, "u1", core.BehaviorEvent{Action: core.ActionView, Category: "boys"}); err != nil {
		t.Fatalf("TrackBehavior() error = %v", err)
	}

	if _, err := e.Cache.Get(ctx, key); !core.IsCacheMiss(err) {
		t.Errorf("recommendation cache survived TrackBehavior, err = %v", err)
	}
}
