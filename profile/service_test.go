package profile

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/store"
)

// fakeOrderStore serves canned orders and aggregates for tests.
type fakeOrderStore struct {
	orders map[string][]*core.Order
	err    error
}

func (f *fakeOrderStore) FindOrdersByUser(_ context.Context, userID string, _ []core.OrderStatus) ([]*core.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders[userID], nil
}

func (f *fakeOrderStore) SalesSince(_ context.Context, _ time.Time) ([]core.ProductSales, error) {
	return nil, nil
}

func (f *fakeOrderStore) DailyOrderCounts(_ context.Context, _ time.Time) (map[string][]int, error) {
	return nil, nil
}

func (f *fakeOrderStore) ActiveBuyers(_ context.Context, _ int) ([]string, error) {
	ids := make([]string, 0, len(f.orders))
	for id := range f.orders {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeCatalog struct {
	products map[string]*core.Product
}

func (f *fakeCatalog) FindActiveProducts(_ context.Context, _ core.ProductFilter) ([]*core.Product, error) {
	out := make([]*core.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) FindProductByID(_ context.Context, id string) (*core.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, core.ErrProductNotFound
	}
	return p, nil
}

func newTestService(orders *fakeOrderStore) (*Service, *store.MemoryCache) {
	cache := store.NewMemoryCache()
	svc := NewService(orders, cache, core.DefaultConfig())
	return svc, cache
}

func TestGetProfile_RebuildFromOrders(t *testing.T) {
	orders := &fakeOrderStore{orders: map[string][]*core.Order{
		"u1": {
			{
				ID: "o1", UserID: "u1", Total: 60, Status: core.OrderDelivered,
				CreatedAt: time.Now().AddDate(0, -1, 0),
				Items: []core.OrderItem{
					{ProductID: "p1", Category: "boys", Quantity: 2, Price: 30},
				},
			},
			{
				ID: "o2", UserID: "u1", Total: 15, Status: core.OrderDelivered,
				CreatedAt: time.Now().AddDate(0, 0, -5),
				Items: []core.OrderItem{
					{ProductID: "p2", Category: "girls", Quantity: 1, Price: 15},
				},
			},
		},
	}}
	svc, cache := newTestService(orders)
	defer cache.Close()

	p, err := svc.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}

	// boys contributed 2x10=20 raw, the max, so it normalizes to MaxInterest.
	if got := p.Interests["category_boys"]; got != core.MaxInterest {
		t.Errorf("category_boys = %v, want %v", got, core.MaxInterest)
	}
	// girls contributed 10 raw -> half of the max after normalization.
	if got := p.Interests["category_girls"]; math.Abs(got-50) > 1e-9 {
		t.Errorf("category_girls = %v, want 50", got)
	}
	if p.Summary.TotalOrders != 2 {
		t.Errorf("TotalOrders = %d, want 2", p.Summary.TotalOrders)
	}
	if math.Abs(p.Summary.TotalSpent-75) > 1e-9 {
		t.Errorf("TotalSpent = %v, want 75", p.Summary.TotalSpent)
	}
	if math.Abs(p.Summary.AvgOrderValue-37.5) > 1e-9 {
		t.Errorf("AvgOrderValue = %v, want 37.5", p.Summary.AvgOrderValue)
	}
	if p.PersonalizationScore <= 0 {
		t.Errorf("PersonalizationScore = %v, want > 0", p.PersonalizationScore)
	}
}

func TestGetProfile_CacheHit(t *testing.T) {
	orders := &fakeOrderStore{orders: map[string][]*core.Order{}}
	svc, cache := newTestService(orders)
	defer cache.Close()

	first, _ := svc.GetProfile(context.Background(), "u1")
	// Break the order store; a cached profile must still be served.
	orders.err = core.NewDomainError(core.ModuleOrder, core.ErrorCodeUnavailable, "order store down")

	second, err := svc.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if second.UserID != first.UserID {
		t.Errorf("cached profile user = %q, want %q", second.UserID, first.UserID)
	}
}

func TestGetProfile_FallsBackToDefaultOnStoreFailure(t *testing.T) {
	orders := &fakeOrderStore{err: core.NewDomainError(core.ModuleOrder, core.ErrorCodeUnavailable, "order store down")}
	svc, cache := newTestService(orders)
	defer cache.Close()

	p, err := svc.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile() must not error, got %v", err)
	}
	if !p.HasSegment(core.SegmentNewUser) {
		t.Errorf("default profile segments = %v, want %q included", p.Segments, core.SegmentNewUser)
	}
	if p.HasInterests() {
		t.Errorf("default profile must have empty interests, got %v", p.Interests)
	}
	if p.PersonalizationScore != 0 {
		t.Errorf("default profile score = %v, want 0", p.PersonalizationScore)
	}
}

// fakeWarmStart serves canned initial interests and records lookups.
type fakeWarmStart struct {
	interests core.FeatureVector
	err       error
	calls     int
}

func (f *fakeWarmStart) UserInterests(_ context.Context, _ string) (core.FeatureVector, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.interests, nil
}

func TestGetProfile_WarmStartHydratesColdUser(t *testing.T) {
	orders := &fakeOrderStore{orders: map[string][]*core.Order{}}
	svc, cache := newTestService(orders)
	defer cache.Close()
	warm := &fakeWarmStart{interests: core.FeatureVector{"category_boys": 30, "brand_nike": 12}}
	svc.WarmStart = warm

	p, err := svc.GetProfile(context.Background(), "newcomer")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if got := p.Interests["category_boys"]; math.Abs(got-30) > 1e-9 {
		t.Errorf("category_boys = %v, want 30 from warm start", got)
	}
	if got := p.Interests["brand_nike"]; math.Abs(got-12) > 1e-9 {
		t.Errorf("brand_nike = %v, want 12 from warm start", got)
	}
	if warm.calls != 1 {
		t.Errorf("warm start calls = %d, want 1", warm.calls)
	}
}

func TestGetProfile_WarmStartSkippedWithOrderHistory(t *testing.T) {
	orders := &fakeOrderStore{orders: map[string][]*core.Order{
		"u1": {{
			ID: "o1", UserID: "u1", Total: 30, Status: core.OrderDelivered,
			CreatedAt: time.Now().AddDate(0, 0, -3),
			Items:     []core.OrderItem{{ProductID: "p1", Category: "boys", Quantity: 1, Price: 30}},
		}},
	}}
	svc, cache := newTestService(orders)
	defer cache.Close()
	warm := &fakeWarmStart{interests: core.FeatureVector{"category_girls": 99}}
	svc.WarmStart = warm

	p, err := svc.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if warm.calls != 0 {
		t.Errorf("warm start calls = %d, want 0 when order history exists", warm.calls)
	}
	if _, ok := p.Interests["category_girls"]; ok {
		t.Errorf("warm-start interest leaked into an order-built profile: %v", p.Interests)
	}
}

func TestGetProfile_WarmStartFailureIsTolerated(t *testing.T) {
	orders := &fakeOrderStore{orders: map[string][]*core.Order{}}
	svc, cache := newTestService(orders)
	defer cache.Close()
	svc.WarmStart = &fakeWarmStart{err: core.NewDomainError(core.ModuleProfile, core.ErrorCodeUnavailable, "feature store down")}

	p, err := svc.GetProfile(context.Background(), "newcomer")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.HasInterests() {
		t.Errorf("interests = %v, want empty when warm start fails", p.Interests)
	}
}

func TestTrackBehavior_PurchaseWeightAndDecay(t *testing.T) {
	orders := &fakeOrderStore{orders: map[string][]*core.Order{}}
	svc, cache := newTestService(orders)
	defer cache.Close()
	svc.Catalog = &fakeCatalog{products: map[string]*core.Product{
		"px": {ID: "px", Category: "boys", Brand: "Nike", AgeRange: "2-3years", Price: 30},
	}}

	ctx := context.Background()

	// Seed an unrelated interest, then track a purchase.
	_, err := svc.TrackBehavior(ctx, "u1", core.BehaviorEvent{
		Action: core.ActionView, Category: "girls", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("TrackBehavior(view) error = %v", err)
	}

	p, err := svc.TrackBehavior(ctx, "u1", core.BehaviorEvent{
		Action: core.ActionPurchase, ProductID: "px", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("TrackBehavior(purchase) error = %v", err)
	}

	// Purchase adds exactly its action weight (10) to the touched keys.
	if got := p.Interests["category_boys"]; math.Abs(got-10) > 1e-9 {
		t.Errorf("category_boys = %v, want 10", got)
	}
	// The untouched girls interest decays once: 1 * 0.9.
	if got := p.Interests["category_girls"]; math.Abs(got-0.9) > 1e-9 {
		t.Errorf("category_girls = %v, want 0.9", got)
	}
	if len(p.Events) != 2 {
		t.Errorf("events = %d, want 2", len(p.Events))
	}
}

func TestTrackBehavior_DecayMonotone(t *testing.T) {
	orders := &fakeOrderStore{orders: map[string][]*core.Order{}}
	svc, cache := newTestService(orders)
	defer cache.Close()

	ctx := context.Background()
	if _, err := svc.TrackBehavior(ctx, "u1", core.BehaviorEvent{Action: core.ActionLike, Category: "boys"}); err != nil {
		t.Fatalf("TrackBehavior() error = %v", err)
	}

	prev := math.MaxFloat64
	for i := 0; i < 50; i++ {
		p, err := svc.TrackBehavior(ctx, "u1", core.BehaviorEvent{Action: core.ActionView, Category: "girls"})
		if err != nil {
			t.Fatalf("TrackBehavior() error = %v", err)
		}
		w := p.Interests["category_boys"]
		if w > prev {
			t.Fatalf("weight increased without new events: %v -> %v", prev, w)
		}
		prev = w
	}
	if prev > 0.01 {
		t.Errorf("after 50 decays weight = %v, want close to 0", prev)
	}
}

func TestTrackBehavior_EventLogTrimmed(t *testing.T) {
	orders := &fakeOrderStore{orders: map[string][]*core.Order{}}
	svc, cache := newTestService(orders)
	defer cache.Close()

	ctx := context.Background()
	var p *core.InterestProfile
	var err error
	for i := 0; i < core.MaxBehaviorEvents+5; i++ {
		p, err = svc.TrackBehavior(ctx, "u1", core.BehaviorEvent{Action: core.ActionView, Category: "boys"})
		if err != nil {
			t.Fatalf("TrackBehavior() error = %v", err)
		}
	}
	if len(p.Events) != core.MaxBehaviorEvents {
		t.Errorf("events = %d, want %d", len(p.Events), core.MaxBehaviorEvents)
	}
}

// staleCache serves a captured stale snapshot for one Get to simulate two
// near-simultaneous TrackBehavior calls racing on the cached profile.
type staleCache struct {
	*store.MemoryCache
	staleKey  string
	staleData []byte
	armed     bool
}

func (c *staleCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.armed && key == c.staleKey {
		c.armed = false
		return c.staleData, nil
	}
	return c.MemoryCache.Get(ctx, key)
}

// Concurrent TrackBehavior calls for the same user are not mutually
// exclusive: the last writer wins and one decay application is lost. This
// is the accepted inconsistency for read-mostly personalization.
func TestTrackBehavior_LastWriterWinsOnRace(t *testing.T) {
	orders := &fakeOrderStore{orders: map[string][]*core.Order{}}
	mem := store.NewMemoryCache()
	defer mem.Close()
	cache := &staleCache{MemoryCache: mem}
	svc := NewService(orders, cache, core.DefaultConfig())

	ctx := context.Background()
	p1, err := svc.TrackBehavior(ctx, "u1", core.BehaviorEvent{Action: core.ActionLike, Category: "boys"})
	if err != nil {
		t.Fatalf("TrackBehavior() error = %v", err)
	}

	// Capture the current snapshot, then let a write land.
	snap, err := cache.MemoryCache.Get(ctx, CacheKeyPrefix+"u1")
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	if _, err := svc.TrackBehavior(ctx, "u1", core.BehaviorEvent{Action: core.ActionView, Category: "girls"}); err != nil {
		t.Fatalf("TrackBehavior() error = %v", err)
	}

	// The racing call reads the stale snapshot and overwrites the newer state.
	cache.staleKey = CacheKeyPrefix + "u1"
	cache.staleData = snap
	cache.armed = true

	p3, err := svc.TrackBehavior(ctx, "u1", core.BehaviorEvent{Action: core.ActionView, Category: "shoes"})
	if err != nil {
		t.Fatalf("TrackBehavior() error = %v", err)
	}

	// The intermediate girls view is lost entirely: last writer wins.
	if _, ok := p3.Interests["category_girls"]; ok {
		t.Errorf("expected the racing write to drop the girls interest, got %v", p3.Interests)
	}
	if len(p3.Events) != len(p1.Events)+1 {
		t.Errorf("events = %d, want %d (intermediate event lost)", len(p3.Events), len(p1.Events)+1)
	}
}
