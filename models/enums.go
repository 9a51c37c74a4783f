package models

// PartyType classifies counterparties the business settles with.
type PartyType string

const (
	PartyTypeSupplier PartyType = "supplier"
	PartyTypeCustomer PartyType = "customer"
	PartyTypePartner  PartyType = "partner"
	PartyTypePacking  PartyType = "packing"
	PartyTypeLogistic PartyType = "logistic"
)

// ImeiStatus is the head of a unit's event history.
type ImeiStatus string

const (
	ImeiStatusInStock  ImeiStatus = "in_stock"
	ImeiStatusSold     ImeiStatus = "sold"
	ImeiStatusReturned ImeiStatus = "returned"
)

// ImeiEventType is one lifecycle transition in the append-only unit ledger.
type ImeiEventType string

const (
	ImeiEventPurchased        ImeiEventType = "purchased"
	ImeiEventSold             ImeiEventType = "sold"
	ImeiEventSaleReturned     ImeiEventType = "sale_returned"
	ImeiEventPurchaseReturned ImeiEventType = "purchase_returned"
)

// StatusAfter returns the projection status implied by the event type.
func (t ImeiEventType) StatusAfter() ImeiStatus {
	switch t {
	case ImeiEventPurchased:
		return ImeiStatusInStock
	case ImeiEventSold:
		return ImeiStatusSold
	case ImeiEventSaleReturned, ImeiEventPurchaseReturned:
		return ImeiStatusReturned
	}
	return ""
}

// ReturnType distinguishes the two return documents.
type ReturnType string

const (
	ReturnTypeSale     ReturnType = "sale"
	ReturnTypePurchase ReturnType = "purchase"
)

// PayableStatus is the state of one payable lane or one settlement batch.
type PayableStatus string

const (
	PayableStatusPending PayableStatus = "pending"
	PayableStatusPaid    PayableStatus = "paid"
)

// PayableLaneType identifies one of the four independent payable lanes of a
// landed cost voucher. The two freight legs share the logistic settlement
// lane but keep distinct lane types because a voucher can owe them to two
// different counterparties.
type PayableLaneType string

const (
	LaneHkDxbFreight  PayableLaneType = "hk_dxb_freight"
	LaneDxbKwiFreight PayableLaneType = "dxb_kwi_freight"
	LanePartnerProfit PayableLaneType = "partner_profit"
	LanePacking       PayableLaneType = "packing"
)

// SettlementLane is the grouping lane used for monthly party settlements.
type SettlementLane string

const (
	SettlementLanePartner  SettlementLane = "partner"
	SettlementLanePacking  SettlementLane = "packing"
	SettlementLaneLogistic SettlementLane = "logistic"
)

// ExpenseCategory returns the expense bucket a finalized settlement posts to.
func (l SettlementLane) ExpenseCategory() ExpenseCategory {
	switch l {
	case SettlementLanePartner:
		return ExpenseCategoryPartnerProfit
	case SettlementLanePacking:
		return ExpenseCategoryPackingCharges
	case SettlementLaneLogistic:
		return ExpenseCategoryFreightCharges
	}
	return ExpenseCategoryOther
}

type ExpenseCategory string

const (
	ExpenseCategoryPartnerProfit  ExpenseCategory = "Partner Profit"
	ExpenseCategoryPackingCharges ExpenseCategory = "Packing Charges"
	ExpenseCategoryFreightCharges ExpenseCategory = "Freight Charges"
	ExpenseCategoryOther          ExpenseCategory = "Other"
)

// PaymentDirection tells whether money left or entered the business.
type PaymentDirection string

const (
	PaymentDirectionIn  PaymentDirection = "in"
	PaymentDirectionOut PaymentDirection = "out"
)

// DocumentStatus is shared by the source documents the ledgers hang off.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "Draft"
	DocumentStatusConfirmed DocumentStatus = "Confirmed"
	DocumentStatusCancelled DocumentStatus = "Cancelled"
)
