package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LandedCostVoucher bundles one or more purchase orders under a single
// landed-cost allocation. The voucher carries four independent payable lanes,
// one per cost component, each owed to its own counterparty and settled on
// its own schedule. Lane columns stay flat for storage; PayableLanes() gives
// the uniform view the settlement logic iterates.
type LandedCostVoucher struct {
	ID            int       `gorm:"primary_key" json:"id"`
	VoucherNumber string    `gorm:"size:20;uniqueIndex;not null" json:"voucher_number"`
	VoucherDate   time.Time `gorm:"index;not null" json:"voucher_date"`
	// legacy single-order pointer, superseded by the Orders junction
	PurchaseOrderId *int `gorm:"index" json:"purchase_order_id"`

	HkToDxbKwd            decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"hk_to_dxb_kwd"`
	DxbToKwiKwd           decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"dxb_to_kwi_kwd"`
	TotalPartnerProfitKwd decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"total_partner_profit_kwd"`
	PackingChargesKwd     decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"packing_charges_kwd"`

	PartyId        *int `gorm:"index" json:"party_id"` // HK→DXB freight counterparty
	DxbKwiPartyId  *int `gorm:"index" json:"dxb_kwi_party_id"`
	PartnerPartyId *int `gorm:"index" json:"partner_party_id"`
	PackingPartyId *int `gorm:"index" json:"packing_party_id"`

	PayableStatus        PayableStatus `gorm:"type:enum('pending','paid');default:'pending'" json:"payable_status"`
	DxbKwiPayableStatus  PayableStatus `gorm:"type:enum('pending','paid');default:'pending'" json:"dxb_kwi_payable_status"`
	PartnerPayableStatus PayableStatus `gorm:"type:enum('pending','paid');default:'pending'" json:"partner_payable_status"`
	PackingPayableStatus PayableStatus `gorm:"type:enum('pending','paid');default:'pending'" json:"packing_payable_status"`

	PaymentId        *int `json:"payment_id"`
	DxbKwiPaymentId  *int `json:"dxb_kwi_payment_id"`
	PartnerPaymentId *int `json:"partner_payment_id"`
	PackingPaymentId *int `json:"packing_payment_id"`

	Notes     string                   `gorm:"type:text" json:"notes"`
	Orders    []LandedCostVoucherOrder `gorm:"foreignKey:VoucherId" json:"orders"`
	LineItems []LandedCostLineItem     `gorm:"foreignKey:VoucherId" json:"line_items"`
	CreatedAt time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time                `gorm:"autoUpdateTime" json:"updated_at"`
}

// LandedCostVoucherOrder links a voucher to one of its purchase orders,
// preserving the order the caller bundled them in.
type LandedCostVoucherOrder struct {
	ID              int       `gorm:"primary_key" json:"id"`
	VoucherId       int       `gorm:"index;not null" json:"voucher_id"`
	PurchaseOrderId int       `gorm:"index;not null" json:"purchase_order_id"`
	SortOrder       int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// LandedCostLineItem is the per-item allocation result. A non-nil
// LandedCostPerUnitKwd is written back into the item master.
type LandedCostLineItem struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	VoucherId            int              `gorm:"index;not null" json:"voucher_id"`
	ItemName             string           `gorm:"size:255;index;not null" json:"item_name"`
	Quantity             decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"quantity"`
	PurchasePriceKwd     decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"purchase_price_kwd"`
	FreightShareKwd      decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"freight_share_kwd"`
	PartnerShareKwd      decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"partner_share_kwd"`
	PackingShareKwd      decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"packing_share_kwd"`
	LandedCostPerUnitKwd *decimal.Decimal `gorm:"type:decimal(20,3)" json:"landed_cost_per_unit_kwd"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// PayableLane is the uniform view over one of the voucher's four payable
// state machines.
type PayableLane struct {
	Lane           PayableLaneType `json:"lane"`
	SettlementLane SettlementLane  `json:"settlement_lane"`
	PartyId        *int            `json:"party_id"`
	AmountKwd      decimal.Decimal `json:"amount_kwd"`
	Status         PayableStatus   `json:"status"`
	PaymentId      *int            `json:"payment_id"`

	// column names for conditional updates
	statusColumn  string
	paymentColumn string
}

// PayableLanes returns the four lanes in a fixed order so "iterate pending
// lanes for a party" is written once instead of four times.
func (v *LandedCostVoucher) PayableLanes() []PayableLane {
	return []PayableLane{
		{
			Lane: LaneHkDxbFreight, SettlementLane: SettlementLaneLogistic,
			PartyId: v.PartyId, AmountKwd: v.HkToDxbKwd,
			Status: v.PayableStatus, PaymentId: v.PaymentId,
			statusColumn: "payable_status", paymentColumn: "payment_id",
		},
		{
			Lane: LaneDxbKwiFreight, SettlementLane: SettlementLaneLogistic,
			PartyId: v.DxbKwiPartyId, AmountKwd: v.DxbToKwiKwd,
			Status: v.DxbKwiPayableStatus, PaymentId: v.DxbKwiPaymentId,
			statusColumn: "dxb_kwi_payable_status", paymentColumn: "dxb_kwi_payment_id",
		},
		{
			Lane: LanePartnerProfit, SettlementLane: SettlementLanePartner,
			PartyId: v.PartnerPartyId, AmountKwd: v.TotalPartnerProfitKwd,
			Status: v.PartnerPayableStatus, PaymentId: v.PartnerPaymentId,
			statusColumn: "partner_payable_status", paymentColumn: "partner_payment_id",
		},
		{
			Lane: LanePacking, SettlementLane: SettlementLanePacking,
			PartyId: v.PackingPartyId, AmountKwd: v.PackingChargesKwd,
			Status: v.PackingPayableStatus, PaymentId: v.PackingPaymentId,
			statusColumn: "packing_payable_status", paymentColumn: "packing_payment_id",
		},
	}
}

type NewLandedCostVoucher struct {
	VoucherDate      time.Time `json:"voucher_date" binding:"required"`
	PurchaseOrderIds []int     `json:"purchase_order_ids"`
	// legacy single-order field, used when PurchaseOrderIds is empty
	PurchaseOrderId *int `json:"purchase_order_id"`

	HkToDxbKwd            decimal.Decimal `json:"hk_to_dxb_kwd"`
	DxbToKwiKwd           decimal.Decimal `json:"dxb_to_kwi_kwd"`
	TotalPartnerProfitKwd decimal.Decimal `json:"total_partner_profit_kwd"`
	PackingChargesKwd     decimal.Decimal `json:"packing_charges_kwd"`

	PartyId        *int `json:"party_id"`
	DxbKwiPartyId  *int `json:"dxb_kwi_party_id"`
	PartnerPartyId *int `json:"partner_party_id"`
	PackingPartyId *int `json:"packing_party_id"`

	Notes     string                  `json:"notes"`
	LineItems []NewLandedCostLineItem `json:"line_items"`
}

type NewLandedCostLineItem struct {
	ItemName             string           `json:"item_name" binding:"required"`
	Quantity             decimal.Decimal  `json:"quantity"`
	PurchasePriceKwd     decimal.Decimal  `json:"purchase_price_kwd"`
	FreightShareKwd      decimal.Decimal  `json:"freight_share_kwd"`
	PartnerShareKwd      decimal.Decimal  `json:"partner_share_kwd"`
	PackingShareKwd      decimal.Decimal  `json:"packing_share_kwd"`
	LandedCostPerUnitKwd *decimal.Decimal `json:"landed_cost_per_unit_kwd"`
}

func (input *NewLandedCostVoucher) orderIds() []int {
	if len(input.PurchaseOrderIds) > 0 {
		return utils.UniqueSlice(input.PurchaseOrderIds)
	}
	if input.PurchaseOrderId != nil && *input.PurchaseOrderId > 0 {
		return []int{*input.PurchaseOrderId}
	}
	return nil
}

// validate rejects a lane that owes money without a counterparty to owe it
// to, before anything is written.
func (input *NewLandedCostVoucher) validate(ctx context.Context) error {
	if len(input.orderIds()) == 0 {
		return errors.New("at least one purchase order is required")
	}
	if err := utils.ValidateResourcesId[PurchaseOrder](ctx, input.orderIds()); err != nil {
		return errors.New("purchase order not found")
	}
	if input.HkToDxbKwd.IsPositive() && input.PartyId == nil {
		return errors.New("hk-dxb freight party is required")
	}
	if input.DxbToKwiKwd.IsPositive() && input.DxbKwiPartyId == nil {
		return errors.New("dxb-kwi freight party is required")
	}
	if input.TotalPartnerProfitKwd.IsPositive() && input.PartnerPartyId == nil {
		return errors.New("partner party is required")
	}
	if input.PackingChargesKwd.IsPositive() && input.PackingPartyId == nil {
		return errors.New("packing party is required")
	}
	for _, partyId := range []*int{input.PartyId, input.DxbKwiPartyId, input.PartnerPartyId, input.PackingPartyId} {
		if partyId == nil {
			continue
		}
		if err := utils.ValidateResourceId[Party](ctx, *partyId); err != nil {
			return errors.New("party not found")
		}
	}
	return nil
}

// nextVoucherNumber scans the current maximum LCV number under a row lock so
// concurrent creators serialize instead of racing to the same number.
func nextVoucherNumber(tx *gorm.DB) (string, error) {
	var maxSeq int
	err := tx.Raw(`
		SELECT COALESCE(MAX(CAST(SUBSTRING(voucher_number, 5) AS UNSIGNED)), 0)
		FROM landed_cost_vouchers
		FOR UPDATE
	`).Scan(&maxSeq).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("LCV-%04d", maxSeq+1), nil
}

func mapLandedCostLineItems(input []NewLandedCostLineItem) []LandedCostLineItem {
	lineItems := make([]LandedCostLineItem, 0, len(input))
	for _, li := range input {
		lineItems = append(lineItems, LandedCostLineItem{
			ItemName:             li.ItemName,
			Quantity:             li.Quantity,
			PurchasePriceKwd:     li.PurchasePriceKwd,
			FreightShareKwd:      li.FreightShareKwd,
			PartnerShareKwd:      li.PartnerShareKwd,
			PackingShareKwd:      li.PackingShareKwd,
			LandedCostPerUnitKwd: li.LandedCostPerUnitKwd,
		})
	}
	return lineItems
}

// writeBackLandedCosts propagates allocated per-unit landed cost into the
// item master, matched by item name.
func writeBackLandedCosts(tx *gorm.DB, lineItems []LandedCostLineItem) error {
	for _, li := range lineItems {
		if li.LandedCostPerUnitKwd == nil {
			continue
		}
		if err := tx.Model(&Item{}).Where("name = ?", li.ItemName).
			Update("landed_cost_kwd", *li.LandedCostPerUnitKwd).Error; err != nil {
			return err
		}
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// CreateLandedCostVoucher allocates landed cost in one atomic transaction:
// locked number generation, voucher insert, order links, line items and item
// write-backs all commit together or not at all.
func CreateLandedCostVoucher(ctx context.Context, input *NewLandedCostVoucher) (*LandedCostVoucher, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	voucher, err := createVoucherOnce(ctx, input)
	if err != nil && isDuplicateKeyErr(err) {
		// on an empty table the number scan has no row to lock, so two
		// first writers can both pick LCV-0001; one retry resolves it
		voucher, err = createVoucherOnce(ctx, input)
	}
	return voucher, err
}

func createVoucherOnce(ctx context.Context, input *NewLandedCostVoucher) (*LandedCostVoucher, error) {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	voucherNumber, err := nextVoucherNumber(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	voucher := LandedCostVoucher{
		VoucherNumber:         voucherNumber,
		VoucherDate:           input.VoucherDate,
		PurchaseOrderId:       input.PurchaseOrderId,
		HkToDxbKwd:            input.HkToDxbKwd,
		DxbToKwiKwd:           input.DxbToKwiKwd,
		TotalPartnerProfitKwd: input.TotalPartnerProfitKwd,
		PackingChargesKwd:     input.PackingChargesKwd,
		PartyId:               input.PartyId,
		DxbKwiPartyId:         input.DxbKwiPartyId,
		PartnerPartyId:        input.PartnerPartyId,
		PackingPartyId:        input.PackingPartyId,
		PayableStatus:         PayableStatusPending,
		DxbKwiPayableStatus:   PayableStatusPending,
		PartnerPayableStatus:  PayableStatusPending,
		PackingPayableStatus:  PayableStatusPending,
		Notes:                 input.Notes,
	}
	if err := tx.Create(&voucher).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for i, orderId := range input.orderIds() {
		link := LandedCostVoucherOrder{
			VoucherId:       voucher.ID,
			PurchaseOrderId: orderId,
			SortOrder:       i,
		}
		if err := tx.Create(&link).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		voucher.Orders = append(voucher.Orders, link)
	}

	lineItems := mapLandedCostLineItems(input.LineItems)
	for i := range lineItems {
		lineItems[i].VoucherId = voucher.ID
		if err := tx.Create(&lineItems[i]).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	voucher.LineItems = lineItems

	if err := writeBackLandedCosts(tx, lineItems); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

// UpdateLandedCostVoucher rewrites the voucher under the same atomicity
// contract as create. Order links and line items are replaced, not merged,
// and landed-cost write-backs re-propagated.
func UpdateLandedCostVoucher(ctx context.Context, id int, input *NewLandedCostVoucher) (*LandedCostVoucher, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	voucher, err := utils.FetchModel[LandedCostVoucher](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if err := tx.Model(voucher).Updates(map[string]interface{}{
		"voucher_date":             input.VoucherDate,
		"purchase_order_id":        input.PurchaseOrderId,
		"hk_to_dxb_kwd":            input.HkToDxbKwd,
		"dxb_to_kwi_kwd":           input.DxbToKwiKwd,
		"total_partner_profit_kwd": input.TotalPartnerProfitKwd,
		"packing_charges_kwd":      input.PackingChargesKwd,
		"party_id":                 input.PartyId,
		"dxb_kwi_party_id":         input.DxbKwiPartyId,
		"partner_party_id":         input.PartnerPartyId,
		"packing_party_id":         input.PackingPartyId,
		"notes":                    input.Notes,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Where("voucher_id = ?", voucher.ID).Delete(&LandedCostVoucherOrder{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	voucher.Orders = nil
	for i, orderId := range input.orderIds() {
		link := LandedCostVoucherOrder{
			VoucherId:       voucher.ID,
			PurchaseOrderId: orderId,
			SortOrder:       i,
		}
		if err := tx.Create(&link).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		voucher.Orders = append(voucher.Orders, link)
	}

	if err := tx.Where("voucher_id = ?", voucher.ID).Delete(&LandedCostLineItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	lineItems := mapLandedCostLineItems(input.LineItems)
	for i := range lineItems {
		lineItems[i].VoucherId = voucher.ID
		if err := tx.Create(&lineItems[i]).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	voucher.LineItems = lineItems

	if err := writeBackLandedCosts(tx, lineItems); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return voucher, nil
}

func DeleteLandedCostVoucher(ctx context.Context, id int) (*LandedCostVoucher, error) {
	voucher, err := utils.FetchModel[LandedCostVoucher](ctx, id, "Orders", "LineItems")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("voucher_id = ?", voucher.ID).Delete(&LandedCostVoucherOrder{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("voucher_id = ?", voucher.ID).Delete(&LandedCostLineItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(voucher).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return voucher, nil
}

func GetLandedCostVoucher(ctx context.Context, id int) (*LandedCostVoucher, error) {
	return utils.FetchModel[LandedCostVoucher](ctx, id, "Orders", "LineItems")
}

// markLanePaid is the single conditional write behind all four Mark*Paid
// operations. Flipping an already-paid lane affects zero rows and is a
// successful no-op, which is what makes caller retries safe.
func markLanePaid(ctx context.Context, db *gorm.DB, voucherId int, paymentId int, statusColumn, paymentColumn string) error {
	return db.WithContext(ctx).Model(&LandedCostVoucher{}).
		Where("id = ? AND "+statusColumn+" = ?", voucherId, PayableStatusPending).
		Updates(map[string]interface{}{
			statusColumn:  PayableStatusPaid,
			paymentColumn: paymentId,
		}).Error
}

// MarkLandedCostPaid settles the HK→DXB freight leg.
func MarkLandedCostPaid(ctx context.Context, voucherId int, paymentId int) error {
	return markLanePaid(ctx, config.GetDB(), voucherId, paymentId, "payable_status", "payment_id")
}

// MarkDxbKwiPaid settles the DXB→KWI freight leg.
func MarkDxbKwiPaid(ctx context.Context, voucherId int, paymentId int) error {
	return markLanePaid(ctx, config.GetDB(), voucherId, paymentId, "dxb_kwi_payable_status", "dxb_kwi_payment_id")
}

func MarkPartnerProfitPaid(ctx context.Context, voucherId int, paymentId int) error {
	return markLanePaid(ctx, config.GetDB(), voucherId, paymentId, "partner_payable_status", "partner_payment_id")
}

func MarkPackingPaid(ctx context.Context, voucherId int, paymentId int) error {
	return markLanePaid(ctx, config.GetDB(), voucherId, paymentId, "packing_payable_status", "packing_payment_id")
}

// FlipPendingLanesPaid conditionally marks paid every pending lane of the
// voucher that belongs to the settlement lane and is owed to partyId. For the
// logistic lane this flips only the freight leg(s) whose counterparty matches:
// a voucher may owe its two legs to two different carriers. Runs in the
// caller's transaction.
func FlipPendingLanesPaid(tx *gorm.DB, voucherId int, lane SettlementLane, partyId int, paymentId int) error {
	var voucher LandedCostVoucher
	if err := tx.First(&voucher, voucherId).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	for _, l := range voucher.PayableLanes() {
		if l.SettlementLane != lane || l.Status != PayableStatusPending {
			continue
		}
		if l.PartyId == nil || *l.PartyId != partyId {
			continue
		}
		if err := tx.Model(&LandedCostVoucher{}).
			Where("id = ? AND "+l.statusColumn+" = ?", voucherId, PayableStatusPending).
			Updates(map[string]interface{}{
				l.statusColumn:  PayableStatusPaid,
				l.paymentColumn: paymentId,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// PendingPayable is one pending lane of one voucher.
type PendingPayable struct {
	VoucherId      int             `json:"voucher_id"`
	VoucherNumber  string          `json:"voucher_number"`
	VoucherDate    time.Time       `json:"voucher_date"`
	Lane           PayableLaneType `json:"lane"`
	SettlementLane SettlementLane  `json:"settlement_lane"`
	PartyId        int             `json:"party_id"`
	AmountKwd      decimal.Decimal `json:"amount_kwd"`
}

// GetPendingLandedCostPayables flattens every voucher's pending lanes into
// one list.
func GetPendingLandedCostPayables(ctx context.Context) ([]*PendingPayable, error) {
	db := config.GetDB()
	var vouchers []*LandedCostVoucher
	if err := db.WithContext(ctx).
		Where("payable_status = 'pending' OR dxb_kwi_payable_status = 'pending' OR partner_payable_status = 'pending' OR packing_payable_status = 'pending'").
		Order("voucher_date, id").
		Find(&vouchers).Error; err != nil {
		return nil, err
	}

	payables := make([]*PendingPayable, 0)
	for _, v := range vouchers {
		for _, lane := range v.PayableLanes() {
			if lane.Status != PayableStatusPending || lane.PartyId == nil || !lane.AmountKwd.IsPositive() {
				continue
			}
			payables = append(payables, &PendingPayable{
				VoucherId:      v.ID,
				VoucherNumber:  v.VoucherNumber,
				VoucherDate:    v.VoucherDate,
				Lane:           lane.Lane,
				SettlementLane: lane.SettlementLane,
				PartyId:        *lane.PartyId,
				AmountKwd:      lane.AmountKwd,
			})
		}
	}
	return payables, nil
}

// PartyPendingSettlement is one counterparty's pending payables rolled up
// for a settlement batch.
type PartyPendingSettlement struct {
	PartyId        int             `json:"party_id"`
	PartyName      string          `json:"party_name"`
	VoucherIds     []int           `json:"voucher_ids"`
	VoucherCount   int             `json:"voucher_count"`
	TotalAmountKwd decimal.Decimal `json:"total_amount_kwd"`
}

// GroupPendingPayablesByParty rolls pending lanes up per counterparty. Both
// freight legs of one voucher owed to the same logistic party collapse into
// one voucher entry with both leg amounts summed; the voucher is never
// counted twice.
func GroupPendingPayablesByParty(payables []*PendingPayable) []*PartyPendingSettlement {
	groupIndex := map[int]*PartyPendingSettlement{}
	seenVoucher := map[[2]int]bool{} // (partyId, voucherId)
	order := make([]int, 0)

	for _, p := range payables {
		group, ok := groupIndex[p.PartyId]
		if !ok {
			group = &PartyPendingSettlement{PartyId: p.PartyId}
			groupIndex[p.PartyId] = group
			order = append(order, p.PartyId)
		}
		group.TotalAmountKwd = group.TotalAmountKwd.Add(p.AmountKwd)

		key := [2]int{p.PartyId, p.VoucherId}
		if !seenVoucher[key] {
			seenVoucher[key] = true
			group.VoucherIds = append(group.VoucherIds, p.VoucherId)
			group.VoucherCount++
		}
	}

	groups := make([]*PartyPendingSettlement, 0, len(order))
	for _, partyId := range order {
		groups = append(groups, groupIndex[partyId])
	}
	return groups
}

// GetPendingSettlementsByParty groups pending payables of one settlement
// lane (partner, packing or logistic) by counterparty.
func GetPendingSettlementsByParty(ctx context.Context, lane SettlementLane) ([]*PartyPendingSettlement, error) {
	switch lane {
	case SettlementLanePartner, SettlementLanePacking, SettlementLaneLogistic:
	default:
		return nil, errors.New("invalid settlement lane")
	}

	payables, err := GetPendingLandedCostPayables(ctx)
	if err != nil {
		return nil, err
	}
	lanePayables := make([]*PendingPayable, 0, len(payables))
	for _, p := range payables {
		if p.SettlementLane == lane {
			lanePayables = append(lanePayables, p)
		}
	}

	groups := GroupPendingPayablesByParty(lanePayables)

	db := config.GetDB()
	for _, g := range groups {
		var name string
		if err := db.WithContext(ctx).Model(&Party{}).
			Where("id = ?", g.PartyId).Select("name").Scan(&name).Error; err == nil {
			g.PartyName = name
		}
	}
	return groups, nil
}
