package cache

import (
	"context"
	"testing"
	"time"
)

type payload struct {
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

func TestMemory_ServedBeforeTTLMissAfter(t *testing.T) {
	m := NewMemory()
	t0 := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return t0 }
	ctx := context.Background()

	if err := m.Set(ctx, "k", payload{Name: "La Riua", Rating: 4.3}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	// 59 minutes in: still served.
	m.now = func() time.Time { return t0.Add(59 * time.Minute) }
	var got payload
	ok, err := m.Get(ctx, "k", &got)
	if err != nil || !ok {
		t.Fatalf("get at +59m: ok=%v err=%v", ok, err)
	}
	if got.Name != "La Riua" || got.Rating != 4.3 {
		t.Fatalf("unexpected payload: %+v", got)
	}

	// 61 minutes in: expired, evicted on lookup.
	m.now = func() time.Time { return t0.Add(61 * time.Minute) }
	ok, err = m.Get(ctx, "k", &got)
	if err != nil || ok {
		t.Fatalf("get at +61m: ok=%v err=%v, want miss", ok, err)
	}
	if _, still := m.entries["k"]; still {
		t.Fatalf("expired entry not evicted")
	}
}

func TestMemory_ZeroTTLStoresNothing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "k", payload{Name: "x"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if ok, _ := m.Get(ctx, "k", &got); ok {
		t.Fatalf("zero-TTL entry should not be stored")
	}
}

func TestMemory_Del(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "k", payload{Name: "x"}, time.Hour)
	if err := m.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	var got payload
	if ok, _ := m.Get(ctx, "k", &got); ok {
		t.Fatalf("deleted entry still served")
	}
}
