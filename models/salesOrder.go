package models

import (
	"context"
	"errors"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/shopspring/decimal"
)

// SaleOrder owns the sales ledger: each detail line contributes −quantity to
// its item's stock balance.
type SaleOrder struct {
	ID              int               `gorm:"primary_key" json:"id"`
	OrderNumber     string            `gorm:"size:100;index" json:"order_number"`
	CustomerPartyId int               `gorm:"index;not null" json:"customer_party_id" binding:"required"`
	BranchId        int               `gorm:"index;not null" json:"branch_id" binding:"required"`
	OrderDate       time.Time         `gorm:"index;not null" json:"order_date" binding:"required"`
	CurrentStatus   DocumentStatus    `gorm:"type:enum('Draft','Confirmed','Cancelled');default:'Confirmed'" json:"current_status"`
	TotalAmountKwd  decimal.Decimal   `gorm:"type:decimal(20,3);default:0" json:"total_amount_kwd"`
	Notes           string            `gorm:"type:text" json:"notes"`
	Details         []SaleOrderDetail `gorm:"foreignKey:SaleOrderId" json:"details"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type SaleOrderDetail struct {
	ID          int             `gorm:"primary_key" json:"id"`
	SaleOrderId int             `gorm:"index;not null" json:"sale_order_id"`
	ItemName    string          `gorm:"size:255;index;not null" json:"item_name"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"quantity"`
	PriceKwd    decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"price_kwd"`
	ImeiNumbers StringList      `gorm:"type:json" json:"imei_numbers"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSaleOrder struct {
	OrderNumber     string               `json:"order_number"`
	CustomerPartyId int                  `json:"customer_party_id" binding:"required"`
	BranchId        int                  `json:"branch_id" binding:"required"`
	OrderDate       time.Time            `json:"order_date" binding:"required"`
	Notes           string               `json:"notes"`
	Details         []NewSaleOrderDetail `json:"details" binding:"required"`
}

type NewSaleOrderDetail struct {
	ItemName    string          `json:"item_name" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	PriceKwd    decimal.Decimal `json:"price_kwd"`
	ImeiNumbers []string        `json:"imei_numbers"`
}

func (input *NewSaleOrder) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[Party](ctx, input.CustomerPartyId); err != nil {
		return errors.New("customer not found")
	}
	if err := utils.ValidateResourceId[Branch](ctx, input.BranchId); err != nil {
		return errors.New("branch not found")
	}
	if len(input.Details) == 0 {
		return errors.New("sale order needs at least one line")
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

// CreateSaleOrder stores the order, its ledger lines and flips every listed
// IMEI to sold in one transaction. An oversold balance is not rejected here;
// downstream approval owns that call.
func CreateSaleOrder(ctx context.Context, input *NewSaleOrder) (*SaleOrder, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	details := make([]SaleOrderDetail, 0, len(input.Details))
	total := decimal.Zero
	for _, d := range input.Details {
		details = append(details, SaleOrderDetail{
			ItemName:    d.ItemName,
			Quantity:    d.Quantity,
			PriceKwd:    d.PriceKwd,
			ImeiNumbers: StringList(d.ImeiNumbers),
		})
		total = total.Add(d.Quantity.Mul(d.PriceKwd))
	}

	order := SaleOrder{
		OrderNumber:     input.OrderNumber,
		CustomerPartyId: input.CustomerPartyId,
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
		customerId := order.CustomerPartyId
		if err := ProcessImeisFromSale(tx, ImeiSaleInput{
			Imeis:           d.ImeiNumbers,
			ItemId:          itemId,
			ItemName:        d.ItemName,
			SaleOrderId:     order.ID,
			CustomerPartyId: &customerId,
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

func GetSaleOrder(ctx context.Context, id int) (*SaleOrder, error) {
	return utils.FetchModel[SaleOrder](ctx, id, "Details")
}

func DeleteSaleOrder(ctx context.Context, id int) (*SaleOrder, error) {
	order, err := utils.FetchModel[SaleOrder](ctx, id, "Details")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Select("Details").Delete(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}
