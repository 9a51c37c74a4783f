package models

import (
	"context"
	"errors"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/shopspring/decimal"
)

// PurchaseOrder owns the purchase ledger: each detail line contributes
// +quantity to its item's stock balance and forms one FIFO lot.
type PurchaseOrder struct {
	ID              int                   `gorm:"primary_key" json:"id"`
	OrderNumber     string                `gorm:"size:100;index" json:"order_number"`
	SupplierPartyId int                   `gorm:"index;not null" json:"supplier_party_id" binding:"required"`
	BranchId        int                   `gorm:"index;not null" json:"branch_id" binding:"required"`
	OrderDate       time.Time             `gorm:"index;not null" json:"order_date" binding:"required"`
	CurrentStatus   DocumentStatus        `gorm:"type:enum('Draft','Confirmed','Cancelled');default:'Confirmed'" json:"current_status"`
	TotalAmountKwd  decimal.Decimal       `gorm:"type:decimal(20,3);default:0" json:"total_amount_kwd"`
	Notes           string                `gorm:"type:text" json:"notes"`
	Details         []PurchaseOrderDetail `gorm:"foreignKey:PurchaseOrderId" json:"details"`
	CreatedAt       time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderDetail struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	ItemName        string          `gorm:"size:255;index;not null" json:"item_name"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"quantity"`
	PriceKwd        decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"price_kwd"`
	ImeiNumbers     StringList      `gorm:"type:json" json:"imei_numbers"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPurchaseOrder struct {
	OrderNumber     string                   `json:"order_number"`
	SupplierPartyId int                      `json:"supplier_party_id" binding:"required"`
	BranchId        int                      `json:"branch_id" binding:"required"`
	OrderDate       time.Time                `json:"order_date" binding:"required"`
	Notes           string                   `json:"notes"`
	Details         []NewPurchaseOrderDetail `json:"details" binding:"required"`
}

type NewPurchaseOrderDetail struct {
	ItemName    string          `json:"item_name" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	PriceKwd    decimal.Decimal `json:"price_kwd"`
	ImeiNumbers []string        `json:"imei_numbers"`
}

func (input *NewPurchaseOrder) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[Party](ctx, input.SupplierPartyId); err != nil {
		return errors.New("supplier not found")
	}
	if err := utils.ValidateResourceId[Branch](ctx, input.BranchId); err != nil {
		return errors.New("branch not found")
	}
	if len(input.Details) == 0 {
		return errors.New("purchase order needs at least one line")
	}
	for _, d := range input.Details {
		for _, imei := range d.ImeiNumbers {
			if !utils.IsValidImei(imei) {
				return errors.New("invalid imei number: " + imei)
			}
		}
	}
	return nil
}

// CreatePurchaseOrder stores the order, its ledger lines and registers every
// IMEI in one transaction.
func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	details := make([]PurchaseOrderDetail, 0, len(input.Details))
	total := decimal.Zero
	for _, d := range input.Details {
		details = append(details, PurchaseOrderDetail{
			ItemName:    d.ItemName,
			Quantity:    d.Quantity,
			PriceKwd:    d.PriceKwd,
			ImeiNumbers: StringList(d.ImeiNumbers),
		})
		total = total.Add(d.Quantity.Mul(d.PriceKwd))
	}

	order := PurchaseOrder{
		OrderNumber:     input.OrderNumber,
		SupplierPartyId: input.SupplierPartyId,
		BranchId:        input.BranchId,
		OrderDate:       input.OrderDate,
		CurrentStatus:   DocumentStatusConfirmed,
		TotalAmountKwd:  total,
		Notes:           input.Notes,
		Details:         details,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	for _, d := range order.Details {
		if len(d.ImeiNumbers) == 0 {
			continue
		}
		itemId := 0
		if item, err := GetItemByName(ctx, d.ItemName); err == nil {
			itemId = item.ID
		}
		supplierId := order.SupplierPartyId
		if err := ProcessImeisFromPurchase(tx, ImeiPurchaseInput{
			Imeis:           d.ImeiNumbers,
			ItemId:          itemId,
			ItemName:        d.ItemName,
			PurchaseOrderId: order.ID,
			SupplierPartyId: &supplierId,
			Date:            order.OrderDate,
			PriceKwd:        d.PriceKwd,
			BranchId:        order.BranchId,
			CorrelationId:   correlationId,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	return utils.FetchModel[PurchaseOrder](ctx, id, "Details")
}

// DeletePurchaseOrder removes the order and its ledger lines. The item's
// balance drops accordingly on the next aggregation; IMEI events are kept as
// audit trail.
func DeletePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	order, err := utils.FetchModel[PurchaseOrder](ctx, id, "Details")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Select("Details").Delete(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}
