package models_test

import (
	"testing"

	"github.com/kwtradetech/trading_backend/models"
	"github.com/shopspring/decimal"
)

func intPtr(v int) *int { return &v }

func TestPayableLanes_MapsColumnsToCounterparties(t *testing.T) {
	voucher := models.LandedCostVoucher{
		HkToDxbKwd:            decimal.NewFromInt(100),
		DxbToKwiKwd:           decimal.NewFromInt(50),
		TotalPartnerProfitKwd: decimal.NewFromInt(200),
		PackingChargesKwd:     decimal.NewFromInt(25),
		PartyId:               intPtr(1),
		DxbKwiPartyId:         intPtr(2),
		PartnerPartyId:        intPtr(3),
		PackingPartyId:        intPtr(4),
		PayableStatus:         models.PayableStatusPaid,
		DxbKwiPayableStatus:   models.PayableStatusPending,
		PartnerPayableStatus:  models.PayableStatusPending,
		PackingPayableStatus:  models.PayableStatusPending,
	}

	lanes := voucher.PayableLanes()
	if len(lanes) != 4 {
		t.Fatalf("expected 4 lanes, got %d", len(lanes))
	}

	expect := []struct {
		lane       models.PayableLaneType
		settlement models.SettlementLane
		partyId    int
		amount     int64
		status     models.PayableStatus
	}{
		{models.LaneHkDxbFreight, models.SettlementLaneLogistic, 1, 100, models.PayableStatusPaid},
		{models.LaneDxbKwiFreight, models.SettlementLaneLogistic, 2, 50, models.PayableStatusPending},
		{models.LanePartnerProfit, models.SettlementLanePartner, 3, 200, models.PayableStatusPending},
		{models.LanePacking, models.SettlementLanePacking, 4, 25, models.PayableStatusPending},
	}
	for i, e := range expect {
		l := lanes[i]
		if l.Lane != e.lane || l.SettlementLane != e.settlement {
			t.Errorf("lane %d: got %s/%s, want %s/%s", i, l.Lane, l.SettlementLane, e.lane, e.settlement)
		}
		if l.PartyId == nil || *l.PartyId != e.partyId {
			t.Errorf("lane %s: wrong party", e.lane)
		}
		if !l.AmountKwd.Equal(decimal.NewFromInt(e.amount)) {
			t.Errorf("lane %s: amount %s, want %d", e.lane, l.AmountKwd, e.amount)
		}
		if l.Status != e.status {
			t.Errorf("lane %s: status %s, want %s", e.lane, l.Status, e.status)
		}
	}
}

// One logistic party holding both freight legs of the same voucher must get
// one voucher entry with both leg amounts summed.
func TestGroupPendingPayablesByParty_DualLegSameCarrier(t *testing.T) {
	payables := []*models.PendingPayable{
		{VoucherId: 7, Lane: models.LaneHkDxbFreight, SettlementLane: models.SettlementLaneLogistic, PartyId: 9, AmountKwd: decimal.NewFromInt(100)},
		{VoucherId: 7, Lane: models.LaneDxbKwiFreight, SettlementLane: models.SettlementLaneLogistic, PartyId: 9, AmountKwd: decimal.NewFromInt(40)},
		{VoucherId: 8, Lane: models.LaneHkDxbFreight, SettlementLane: models.SettlementLaneLogistic, PartyId: 9, AmountKwd: decimal.NewFromInt(60)},
	}

	groups := models.GroupPendingPayablesByParty(payables)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.VoucherCount != 2 {
		t.Errorf("voucher 7 was counted twice: count %d", g.VoucherCount)
	}
	if len(g.VoucherIds) != 2 || g.VoucherIds[0] != 7 || g.VoucherIds[1] != 8 {
		t.Errorf("unexpected voucher ids %v", g.VoucherIds)
	}
	if !g.TotalAmountKwd.Equal(decimal.NewFromInt(200)) {
		t.Errorf("both legs must be summed: got %s, want 200", g.TotalAmountKwd)
	}
}

func TestGroupPendingPayablesByParty_SplitsByParty(t *testing.T) {
	payables := []*models.PendingPayable{
		{VoucherId: 1, SettlementLane: models.SettlementLaneLogistic, PartyId: 5, AmountKwd: decimal.NewFromInt(10)},
		{VoucherId: 1, SettlementLane: models.SettlementLaneLogistic, PartyId: 6, AmountKwd: decimal.NewFromInt(20)},
	}

	groups := models.GroupPendingPayablesByParty(payables)
	if len(groups) != 2 {
		t.Fatalf("two carriers on one voucher must form two groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.VoucherCount != 1 {
			t.Errorf("party %d: voucher count %d, want 1", g.PartyId, g.VoucherCount)
		}
	}
}

func TestImeiEventType_StatusAfter(t *testing.T) {
	cases := map[models.ImeiEventType]models.ImeiStatus{
		models.ImeiEventPurchased:        models.ImeiStatusInStock,
		models.ImeiEventSold:             models.ImeiStatusSold,
		models.ImeiEventSaleReturned:     models.ImeiStatusReturned,
		models.ImeiEventPurchaseReturned: models.ImeiStatusReturned,
	}
	for event, want := range cases {
		if got := event.StatusAfter(); got != want {
			t.Errorf("%s: got %s, want %s", event, got, want)
		}
	}
}

func TestSettlementLane_ExpenseCategory(t *testing.T) {
	cases := map[models.SettlementLane]models.ExpenseCategory{
		models.SettlementLanePartner:  models.ExpenseCategoryPartnerProfit,
		models.SettlementLanePacking:  models.ExpenseCategoryPackingCharges,
		models.SettlementLaneLogistic: models.ExpenseCategoryFreightCharges,
	}
	for lane, want := range cases {
		if got := lane.ExpenseCategory(); got != want {
			t.Errorf("%s: got %s, want %s", lane, got, want)
		}
	}
}
