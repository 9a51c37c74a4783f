package models

import (
	"context"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ImeiUnit is the materialized current state of one serialized unit. It is a
// cache over the unit's event history: every transition rewrites this row AND
// appends an ImeiEvent in the same transaction. When the two diverge the
// event log is authoritative (see workflow.ReconcileImeiProjections).
type ImeiUnit struct {
	ID               int             `gorm:"primary_key" json:"id"`
	Imei             string          `gorm:"size:15;uniqueIndex;not null" json:"imei"`
	ItemId           int             `gorm:"index" json:"item_id"`
	ItemName         string          `gorm:"size:255;index;not null" json:"item_name"`
	Status           ImeiStatus      `gorm:"type:enum('in_stock','sold','returned');default:'in_stock';index" json:"status"`
	CurrentBranchId  *int            `gorm:"index" json:"current_branch_id"`
	PurchaseOrderId  *int            `gorm:"index" json:"purchase_order_id"`
	SupplierPartyId  *int            `json:"supplier_party_id"`
	SaleOrderId      *int            `gorm:"index" json:"sale_order_id"`
	CustomerPartyId  *int            `json:"customer_party_id"`
	ReturnOrderId    *int            `json:"return_order_id"`
	PurchasePriceKwd decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"purchase_price_kwd"`
	SalePriceKwd     decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"sale_price_kwd"`
	Events           []ImeiEvent     `gorm:"foreignKey:ImeiUnitId" json:"events,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ImeiEvent is one row of the append-only per-unit ledger. Rows are never
// updated or deleted once written.
type ImeiEvent struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ImeiUnitId    int             `gorm:"index;not null" json:"imei_unit_id"`
	EventType     ImeiEventType   `gorm:"type:enum('purchased','sold','sale_returned','purchase_returned');not null" json:"event_type"`
	EventDate     time.Time       `gorm:"index;not null" json:"event_date"`
	FromBranchId  *int            `json:"from_branch_id"`
	ToBranchId    *int            `json:"to_branch_id"`
	PartyId       *int            `json:"party_id"`
	PriceKwd      decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"price_kwd"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CorrelationId string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// appendImeiEvent writes the unit's next ledger row. Events are appended in
// document order; a backdated document keeps the ledger monotonic in
// event_date by clamping to the latest recorded event.
func appendImeiEvent(tx *gorm.DB, event *ImeiEvent) error {
	var latest *time.Time
	if err := tx.Model(&ImeiEvent{}).
		Where("imei_unit_id = ?", event.ImeiUnitId).
		Select("MAX(event_date)").Scan(&latest).Error; err != nil {
		return err
	}
	if latest != nil && event.EventDate.Before(*latest) {
		event.EventDate = *latest
	}
	return tx.Create(event).Error
}

type ImeiPurchaseInput struct {
	Imeis           []string
	ItemId          int
	ItemName        string
	PurchaseOrderId int
	SupplierPartyId *int
	Date            time.Time
	PriceKwd        decimal.Decimal
	BranchId        int
	CorrelationId   string
}

// ProcessImeisFromPurchase registers purchased units inside the caller's
// transaction. IMEIs that already exist are left untouched: re-importing the
// same purchase line must not duplicate units or events.
func ProcessImeisFromPurchase(tx *gorm.DB, input ImeiPurchaseInput) error {
	for _, imei := range input.Imeis {
		var count int64
		if err := tx.Model(&ImeiUnit{}).Where("imei = ?", imei).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		branchId := input.BranchId
		unit := ImeiUnit{
			Imei:             imei,
			ItemId:           input.ItemId,
			ItemName:         input.ItemName,
			Status:           ImeiStatusInStock,
			CurrentBranchId:  &branchId,
			PurchaseOrderId:  &input.PurchaseOrderId,
			SupplierPartyId:  input.SupplierPartyId,
			PurchasePriceKwd: input.PriceKwd,
		}
		if err := tx.Create(&unit).Error; err != nil {
			return err
		}

		event := ImeiEvent{
			ImeiUnitId:    unit.ID,
			EventType:     ImeiEventPurchased,
			EventDate:     input.Date,
			ToBranchId:    &branchId,
			PartyId:       input.SupplierPartyId,
			PriceKwd:      input.PriceKwd,
			CorrelationId: input.CorrelationId,
		}
		if err := appendImeiEvent(tx, &event); err != nil {
			return err
		}
	}
	return nil
}

type ImeiSaleInput struct {
	Imeis           []string
	ItemId          int
	ItemName        string
	SaleOrderId     int
	CustomerPartyId *int
	Date            time.Time
	PriceKwd        decimal.Decimal
	BranchId        int
	CorrelationId   string
}

// ProcessImeisFromSale marks units sold. A unit that was never purchased
// through the system (legacy data) is created directly as sold instead of
// failing the sale.
func ProcessImeisFromSale(tx *gorm.DB, input ImeiSaleInput) error {
	for _, imei := range input.Imeis {
		var unit ImeiUnit
		err := tx.Where("imei = ?", imei).First(&unit).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}

		branchId := input.BranchId
		if err == gorm.ErrRecordNotFound {
			unit = ImeiUnit{
				Imei:            imei,
				ItemId:          input.ItemId,
				ItemName:        input.ItemName,
				Status:          ImeiStatusSold,
				SaleOrderId:     &input.SaleOrderId,
				CustomerPartyId: input.CustomerPartyId,
				SalePriceKwd:    input.PriceKwd,
			}
			if err := tx.Create(&unit).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&unit).Updates(map[string]interface{}{
				"status":            ImeiStatusSold,
				"sale_order_id":     input.SaleOrderId,
				"customer_party_id": input.CustomerPartyId,
				"sale_price_kwd":    input.PriceKwd,
				"current_branch_id": nil,
			}).Error; err != nil {
				return err
			}
		}

		event := ImeiEvent{
			ImeiUnitId:    unit.ID,
			EventType:     ImeiEventSold,
			EventDate:     input.Date,
			FromBranchId:  &branchId,
			PartyId:       input.CustomerPartyId,
			PriceKwd:      input.PriceKwd,
			CorrelationId: input.CorrelationId,
		}
		if err := appendImeiEvent(tx, &event); err != nil {
			return err
		}
	}
	return nil
}

type ImeiReturnInput struct {
	Imeis         []string
	ReturnType    ReturnType
	ReturnOrderId int
	PartyId       *int
	Date          time.Time
	BranchId      int
	CorrelationId string
	Notes         string
}

// ProcessImeisFromReturn flips units to returned. A sale return puts the unit
// back into the branch's stock; a purchase return clears the branch because
// the unit left the business entirely.
func ProcessImeisFromReturn(tx *gorm.DB, input ImeiReturnInput) error {
	for _, imei := range input.Imeis {
		var unit ImeiUnit
		if err := tx.Where("imei = ?", imei).First(&unit).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				// unit unknown to the ledger; nothing to flip
				continue
			}
			return err
		}

		branchId := input.BranchId
		updates := map[string]interface{}{
			"status":          ImeiStatusReturned,
			"return_order_id": input.ReturnOrderId,
		}
		event := ImeiEvent{
			ImeiUnitId:    unit.ID,
			EventType:     ImeiEventSaleReturned,
			EventDate:     input.Date,
			PartyId:       input.PartyId,
			Notes:         input.Notes,
			CorrelationId: input.CorrelationId,
		}
		if input.ReturnType == ReturnTypeSale {
			updates["current_branch_id"] = branchId
			event.ToBranchId = &branchId
		} else {
			updates["current_branch_id"] = nil
			event.EventType = ImeiEventPurchaseReturned
			event.FromBranchId = unit.CurrentBranchId
		}

		if err := tx.Model(&unit).Updates(updates).Error; err != nil {
			return err
		}
		if err := appendImeiEvent(tx, &event); err != nil {
			return err
		}
	}
	return nil
}

// ImeiDetail is an ImeiUnit enriched with master-data names for display.
type ImeiDetail struct {
	ImeiUnit
	BranchName   *string `json:"branch_name"`
	SupplierName *string `json:"supplier_name"`
	CustomerName *string `json:"customer_name"`
}

const imeiDetailSql = `
SELECT
	iu.*,
	b.name AS branch_name,
	sp.name AS supplier_name,
	cp.name AS customer_name
FROM
	imei_units iu
	LEFT JOIN branches b ON b.id = iu.current_branch_id
	LEFT JOIN parties sp ON sp.id = iu.supplier_party_id
	LEFT JOIN parties cp ON cp.id = iu.customer_party_id
`

// SearchImeis matches on IMEI prefix or item name substring.
func SearchImeis(ctx context.Context, query string) ([]*ImeiDetail, error) {
	db := config.GetDB()
	var results []*ImeiDetail
	sql := imeiDetailSql + `
WHERE iu.imei LIKE ? OR iu.item_name LIKE ?
ORDER BY iu.updated_at DESC
LIMIT ?`
	if err := db.WithContext(ctx).Raw(sql, query+"%", "%"+query+"%", config.SearchLimit).
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetImeiByNumber is a probe: absent IMEIs return (nil, nil), not an error.
func GetImeiByNumber(ctx context.Context, imei string) (*ImeiDetail, error) {
	db := config.GetDB()
	var results []*ImeiDetail
	sql := imeiDetailSql + `
WHERE iu.imei = ?`
	if err := db.WithContext(ctx).Raw(sql, imei).Scan(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// ImeiEventDetail is an ImeiEvent enriched with names for timeline display.
type ImeiEventDetail struct {
	ImeiEvent
	FromBranchName *string `json:"from_branch_name"`
	ToBranchName   *string `json:"to_branch_name"`
	PartyName      *string `json:"party_name"`
}

// GetImeiHistory returns the unit's events ascending by event date, the order
// the timeline is rendered in.
func GetImeiHistory(ctx context.Context, unitId int) ([]*ImeiEventDetail, error) {
	db := config.GetDB()
	var results []*ImeiEventDetail
	sql := `
SELECT
	ev.*,
	fb.name AS from_branch_name,
	tb.name AS to_branch_name,
	p.name AS party_name
FROM
	imei_events ev
	LEFT JOIN branches fb ON fb.id = ev.from_branch_id
	LEFT JOIN branches tb ON tb.id = ev.to_branch_id
	LEFT JOIN parties p ON p.id = ev.party_id
WHERE ev.imei_unit_id = ?
ORDER BY ev.event_date ASC, ev.id ASC`
	if err := db.WithContext(ctx).Raw(sql, unitId).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
