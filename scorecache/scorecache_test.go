package scorecache

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestEncodeDecodeRoundTrips(t *testing.T) {
	value := decimal.NewFromFloat(0.123456789)
	encoded := Encode(value)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.Equal(decimal.NewFromFloat(0.123456789)) {
		t.Fatalf("round trip mismatch: got %s", decoded)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatal("expected decode error on garbage input")
	}
}

func TestRowScoreComputesOnceOnMiss(t *testing.T) {
	c := New(NewMemBackend())
	calls := 0
	compute := func() (decimal.Decimal, error) {
		calls++
		return decimal.NewFromInt(42), nil
	}

	v1, err := c.RowScore(context.Background(), "compactness", "row-1", compute)
	if err != nil {
		t.Fatalf("RowScore: %v", err)
	}
	v2, err := c.RowScore(context.Background(), "compactness", "row-1", compute)
	if err != nil {
		t.Fatalf("RowScore: %v", err)
	}
	if !v1.Equal(v2) || !v1.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("expected consistent cached value, got %s and %s", v1, v2)
	}
	if calls != 1 {
		t.Fatalf("expected compute called once, got %d", calls)
	}
}

func TestRowScoreRecomputesOnDecodeFailure(t *testing.T) {
	backend := NewMemBackend()
	c := New(backend)
	backend.Set(context.Background(), rowKey("compactness", "row-1"), []byte{0xff})

	calls := 0
	compute := func() (decimal.Decimal, error) {
		calls++
		return decimal.NewFromInt(7), nil
	}
	v, err := c.RowScore(context.Background(), "compactness", "row-1", compute)
	if err != nil {
		t.Fatalf("RowScore: %v", err)
	}
	if !v.Equal(decimal.NewFromInt(7)) || calls != 1 {
		t.Fatalf("expected recompute-and-overwrite, got value=%s calls=%d", v, calls)
	}
}

func TestPlanScoreIsKeyedByVersion(t *testing.T) {
	c := New(NewMemBackend())
	ctx := context.Background()

	v1, err := c.PlanScore(ctx, "avg_compactness", "plan-1", 1, func() (decimal.Decimal, error) {
		return decimal.NewFromInt(10), nil
	})
	if err != nil {
		t.Fatalf("PlanScore v1: %v", err)
	}
	v2, err := c.PlanScore(ctx, "avg_compactness", "plan-1", 2, func() (decimal.Decimal, error) {
		return decimal.NewFromInt(20), nil
	})
	if err != nil {
		t.Fatalf("PlanScore v2: %v", err)
	}
	if v1.Equal(v2) {
		t.Fatalf("expected distinct cache entries per version, got %s and %s", v1, v2)
	}
}

func TestEvictRowsRemovesEntries(t *testing.T) {
	c := New(NewMemBackend())
	ctx := context.Background()
	compute := func() (decimal.Decimal, error) { return decimal.NewFromInt(1), nil }

	if _, err := c.RowScore(ctx, "compactness", "row-1", compute); err != nil {
		t.Fatalf("RowScore: %v", err)
	}
	if err := c.EvictRows(ctx, []string{"compactness"}, []string{"row-1"}); err != nil {
		t.Fatalf("EvictRows: %v", err)
	}

	calls := 0
	if _, err := c.RowScore(ctx, "compactness", "row-1", func() (decimal.Decimal, error) {
		calls++
		return decimal.NewFromInt(99), nil
	}); err != nil {
		t.Fatalf("RowScore: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected eviction to force recomputation, got %d calls", calls)
	}
}
