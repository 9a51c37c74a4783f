package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func lot(item string, qty, price int64, daysAgo int, asOf time.Time) purchaseLot {
	return purchaseLot{
		ItemName:  item,
		Quantity:  d(qty),
		PriceKwd:  d(price),
		OrderDate: asOf.AddDate(0, 0, -daysAgo),
	}
}

func TestComputeFifoAging_ConsumesOldestLotsFirst(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lots := []purchaseLot{
		lot("iPhone 15", 10, 100, 95, asOf), // oldest lot
		lot("iPhone 15", 5, 120, 45, asOf),
		lot("iPhone 15", 8, 130, 10, asOf),
	}
	// 12 consumed: wipes the 10-unit lot and 2 of the middle lot.
	consumed := map[string]decimal.Decimal{"iPhone 15": d(12)}

	rows := computeFifoAging(lots, consumed, asOf)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]

	if !r.QtyOver90.IsZero() {
		t.Errorf("oldest lot should be fully consumed, got over-90 qty %s", r.QtyOver90)
	}
	if !r.Qty31To60.Equal(d(3)) {
		t.Errorf("expected 3 left in middle lot, got %s", r.Qty31To60)
	}
	if !r.Qty0To30.Equal(d(8)) {
		t.Errorf("expected newest lot untouched at 8, got %s", r.Qty0To30)
	}
	if !r.TotalQty.Equal(d(11)) {
		t.Errorf("expected total 11, got %s", r.TotalQty)
	}
	// 3*120 + 8*130
	if !r.TotalValueKwd.Equal(d(1400)) {
		t.Errorf("expected total value 1400, got %s", r.TotalValueKwd)
	}
}

func TestComputeFifoAging_BucketValuesSumToTotal(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lots := []purchaseLot{
		lot("A", 4, 7, 120, asOf),
		lot("A", 6, 9, 75, asOf),
		lot("A", 3, 11, 40, asOf),
		lot("A", 2, 13, 5, asOf),
		lot("B", 9, 21, 61, asOf),
	}
	consumed := map[string]decimal.Decimal{"A": d(5), "B": d(2)}

	for _, r := range computeFifoAging(lots, consumed, asOf) {
		qtySum := r.Qty0To30.Add(r.Qty31To60).Add(r.Qty61To90).Add(r.QtyOver90)
		valueSum := r.Value0To30.Add(r.Value31To60).Add(r.Value61To90).Add(r.ValueOver90)
		if !qtySum.Equal(r.TotalQty) {
			t.Errorf("%s: bucket qty sum %s != total %s", r.ItemName, qtySum, r.TotalQty)
		}
		if !valueSum.Equal(r.TotalValueKwd) {
			t.Errorf("%s: bucket value sum %s != total %s", r.ItemName, valueSum, r.TotalValueKwd)
		}
	}
}

func TestComputeFifoAging_FullyConsumedItemDropped(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lots := []purchaseLot{
		lot("Gone", 5, 10, 50, asOf),
		lot("Here", 5, 10, 50, asOf),
	}
	consumed := map[string]decimal.Decimal{"Gone": d(5)}

	rows := computeFifoAging(lots, consumed, asOf)
	if len(rows) != 1 || rows[0].ItemName != "Here" {
		t.Fatalf("expected only the unconsumed item, got %+v", rows)
	}
}

func TestComputeFifoAging_SaleReturnsReduceConsumption(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lots := []purchaseLot{lot("X", 10, 50, 20, asOf)}
	// sold 4, 1 came back as a sale return: net consumption 3
	consumed := map[string]decimal.Decimal{"X": d(4).Sub(d(1))}

	rows := computeFifoAging(lots, consumed, asOf)
	if len(rows) != 1 || !rows[0].TotalQty.Equal(d(7)) {
		t.Fatalf("expected 7 remaining, got %+v", rows)
	}
}

func TestComputeFifoAging_OverconsumptionClampsToZero(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lots := []purchaseLot{lot("Oversold", 3, 10, 10, asOf)}
	consumed := map[string]decimal.Decimal{"Oversold": d(8)}

	if rows := computeFifoAging(lots, consumed, asOf); len(rows) != 0 {
		t.Fatalf("oversold item must not report negative lots, got %+v", rows)
	}
}

func TestComputeFifoAging_ZeroAndNegativeLotsIgnored(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lots := []purchaseLot{
		lot("Y", 0, 10, 10, asOf),
		lot("Y", -2, 10, 10, asOf),
		lot("Y", 5, 10, 10, asOf),
	}

	rows := computeFifoAging(lots, nil, asOf)
	if len(rows) != 1 || !rows[0].TotalQty.Equal(d(5)) {
		t.Fatalf("zero/negative lots must contribute nothing, got %+v", rows)
	}
}

func TestComputeFifoAging_BucketBoundaries(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lots := []purchaseLot{
		lot("B30", 1, 10, 30, asOf),
		lot("B31", 1, 10, 31, asOf),
		lot("B90", 1, 10, 90, asOf),
		lot("B91", 1, 10, 91, asOf),
	}

	byName := map[string]*StockAgingRow{}
	for _, r := range computeFifoAging(lots, nil, asOf) {
		byName[r.ItemName] = r
	}
	if !byName["B30"].Qty0To30.Equal(d(1)) {
		t.Error("30 days old belongs in the 0-30 bucket")
	}
	if !byName["B31"].Qty31To60.Equal(d(1)) {
		t.Error("31 days old belongs in the 31-60 bucket")
	}
	if !byName["B90"].Qty61To90.Equal(d(1)) {
		t.Error("90 days old belongs in the 61-90 bucket")
	}
	if !byName["B91"].QtyOver90.Equal(d(1)) {
		t.Error("91 days old belongs in the over-90 bucket")
	}
}
