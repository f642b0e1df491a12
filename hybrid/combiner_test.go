package hybrid

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
	"github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"
)

type stubSource struct {
	name  string
	items map[string]float64 // productID -> score
	err   error
}

func (s *stubSource) Name() string { return "recall." + s.name }

func (s *stubSource) Recall(_ context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*core.Item
	for id, score := range s.items {
		it := core.NewItem(id)
		it.Score = score
		it.PutLabel(core.LabelAlgorithm, utils.Label{Value: s.name, Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

func TestCombiner_WeightedSum(t *testing.T) {
	c := &Combiner{Sources: []WeightedSource{
		{Source: &stubSource{name: "collaborative", items: map[string]float64{"p1": 1}}, Weight: 0.30},
		{Source: &stubSource{name: "content", items: map[string]float64{"p1": 1, "p2": 1}}, Weight: 0.25},
		{Source: &stubSource{name: "popularity", items: map[string]float64{"p2": 0.5}}, Weight: 0.20},
	}}

	items, err := c.Process(context.Background(), core.NewRecommendContext("u1"), nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 after dedup", len(items))
	}

	// p1: 0.30*1 + 0.25*1 = 0.55; p2: 0.25*1 + 0.20*0.5 = 0.35.
	if items[0].ID != "p1" || math.Abs(items[0].Score-0.55) > 1e-9 {
		t.Errorf("top = %s/%v, want p1/0.55", items[0].ID, items[0].Score)
	}
	if items[1].ID != "p2" || math.Abs(items[1].Score-0.35) > 1e-9 {
		t.Errorf("second = %s/%v, want p2/0.35", items[1].ID, items[1].Score)
	}

	// Both contributing algorithms must be recorded in order of contribution.
	if want := []string{"collaborative", "content"}; !reflect.DeepEqual(items[0].Algorithms(), want) {
		t.Errorf("p1 algorithms = %v, want %v", items[0].Algorithms(), want)
	}
}

func TestCombiner_SourceFailureIsIsolated(t *testing.T) {
	c := &Combiner{Sources: []WeightedSource{
		{Source: &stubSource{name: "collaborative", err: errors.New("store down")}, Weight: 0.30},
		{Source: &stubSource{name: "popularity", items: map[string]float64{"p1": 1}}, Weight: 0.20},
	}}

	items, err := c.Process(context.Background(), core.NewRecommendContext("u1"), nil)
	if err != nil {
		t.Fatalf("Process() must swallow source errors, got %v", err)
	}
	if len(items) != 1 || items[0].ID != "p1" {
		t.Fatalf("items = %v, want the surviving source's result", items)
	}
}

type panicSource struct{ name string }

func (s *panicSource) Name() string { return "recall." + s.name }

func (s *panicSource) Recall(_ context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	panic("order store exploded")
}

// A panicking source must not take down the process: errgroup does not
// recover goroutine panics, the combiner has to contain them itself.
func TestCombiner_SourcePanicIsIsolated(t *testing.T) {
	c := &Combiner{Sources: []WeightedSource{
		{Source: &panicSource{name: "collaborative"}, Weight: 0.30},
		{Source: &stubSource{name: "popularity", items: map[string]float64{"p1": 1}}, Weight: 0.20},
	}}

	items, err := c.Process(context.Background(), core.NewRecommendContext("u1"), nil)
	if err != nil {
		t.Fatalf("Process() must swallow source panics, got %v", err)
	}
	if len(items) != 1 || items[0].ID != "p1" {
		t.Fatalf("items = %v, want the surviving source's result", items)
	}
	if math.Abs(items[0].Score-0.20) > 1e-9 {
		t.Errorf("score = %v, want 0.20 (panicking source contributes nothing)", items[0].Score)
	}
}

func TestCombiner_EmptySources(t *testing.T) {
	c := &Combiner{}
	items, err := c.Process(context.Background(), core.NewRecommendContext("u1"), nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %v, want empty", items)
	}
}

func TestDefaultHybridWeightsSumToOne(t *testing.T) {
	w := core.DefaultConfig().Hybrid
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		t.Errorf("hybrid weights sum = %v, want 1.0", w.Sum())
	}
}
