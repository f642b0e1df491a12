package rerank

import (
	"context"
	"testing"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

func TestTopNNode(t *testing.T) {
	items := []*core.Item{core.NewItem("a"), core.NewItem("b"), core.NewItem("c")}

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"truncates to n", 2, 2},
		{"n zero keeps all", 0, 3},
		{"n beyond length keeps all", 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &TopNNode{N: tt.n}
			out, err := node.Process(context.Background(), core.NewRecommendContext("u1"), items)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if len(out) != tt.want {
				t.Errorf("len = %d, want %d", len(out), tt.want)
			}
		})
	}
}

func TestDiversity_CapsPerCategory(t *testing.T) {
	mk := func(id, category string) *core.Item {
		return core.NewProductItem(&core.Product{ID: id, Category: category})
	}
	items := []*core.Item{
		mk("a", "boys"), mk("b", "boys"), mk("c", "boys"),
		mk("d", "girls"), mk("e", "boys"),
	}

	node := &Diversity{MaxPerCategory: 2}
	out, err := node.Process(context.Background(), core.NewRecommendContext("u1"), items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	// Order preserved: the first two boys, then the girls item.
	if out[0].ID != "a" || out[1].ID != "b" || out[2].ID != "d" {
		t.Errorf("order = %s,%s,%s, want a,b,d", out[0].ID, out[1].ID, out[2].ID)
	}
}
