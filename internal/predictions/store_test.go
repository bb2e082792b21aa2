package predictions

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/mlinsightlab/mlil/pkg/types"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func key(v string) types.ModelKey {
	return types.ModelKey{Name: "churn", Flavor: "pyfunc", Version: v}
}

func TestRecordAndFetch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.Record(ctx, key("3"), json.RawMessage(`{"inputs":[1]}`), json.RawMessage(`{"outputs":[0.9]}`)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, key("3"), json.RawMessage(`{"inputs":[2]}`), json.RawMessage(`{"outputs":[0.1]}`)); err != nil {
		t.Fatalf("record: %v", err)
	}
	out, err := s.ForModel(ctx, key("3"))
	if err != nil {
		t.Fatalf("for model: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(out))
	}
	// oldest first
	if string(out[0].Request) != `{"inputs":[1]}` {
		t.Fatalf("unexpected order: %s", out[0].Request)
	}
	if out[0].RecordedUnix == 0 {
		t.Fatalf("expected recorded timestamp")
	}
}

func TestForModelEmpty(t *testing.T) {
	s := newStore(t)
	out, err := s.ForModel(context.Background(), key("9"))
	if err != nil {
		t.Fatalf("for model: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no predictions, got %d", len(out))
	}
}

func TestModelsDistinct(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, v := range []string{"1", "1", "2"} {
		if err := s.Record(ctx, key(v), json.RawMessage(`{}`), json.RawMessage(`{}`)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	models, err := s.Models(ctx)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 distinct keys, got %+v", models)
	}
	if models[0].Version != "1" || models[1].Version != "2" {
		t.Fatalf("unexpected ordering: %+v", models)
	}
}
