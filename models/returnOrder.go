package models

import (
	"context"
	"errors"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/shopspring/decimal"
)

// ReturnOrder owns the returns ledger. A sale return adds quantity back to
// stock; a purchase return removes it.
type ReturnOrder struct {
	ID             int                 `gorm:"primary_key" json:"id"`
	ReturnType     ReturnType          `gorm:"type:enum('sale','purchase');not null" json:"return_type" binding:"required"`
	PartyId        int                 `gorm:"index;not null" json:"party_id" binding:"required"`
	BranchId       int                 `gorm:"index;not null" json:"branch_id" binding:"required"`
	ReturnDate     time.Time           `gorm:"index;not null" json:"return_date" binding:"required"`
	TotalAmountKwd decimal.Decimal     `gorm:"type:decimal(20,3);default:0" json:"total_amount_kwd"`
	Notes          string              `gorm:"type:text" json:"notes"`
	Details        []ReturnOrderDetail `gorm:"foreignKey:ReturnOrderId" json:"details"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type ReturnOrderDetail struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ReturnOrderId int             `gorm:"index;not null" json:"return_order_id"`
	ItemName      string          `gorm:"size:255;index;not null" json:"item_name"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"quantity"`
	PriceKwd      decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"price_kwd"`
	ImeiNumbers   StringList      `gorm:"type:json" json:"imei_numbers"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewReturnOrder struct {
	ReturnType ReturnType             `json:"return_type" binding:"required"`
	PartyId    int                    `json:"party_id" binding:"required"`
	BranchId   int                    `json:"branch_id" binding:"required"`
	ReturnDate time.Time              `json:"return_date" binding:"required"`
	Notes      string                 `json:"notes"`
	Details    []NewReturnOrderDetail `json:"details" binding:"required"`
}

type NewReturnOrderDetail struct {
	ItemName    string          `json:"item_name" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	PriceKwd    decimal.Decimal `json:"price_kwd"`
	ImeiNumbers []string        `json:"imei_numbers"`
}

func (input *NewReturnOrder) validate(ctx context.Context) error {
	if input.ReturnType != ReturnTypeSale && input.ReturnType != ReturnTypePurchase {
		return errors.New("invalid return type")
	}
	if err := utils.ValidateResourceId[Party](ctx, input.PartyId); err != nil {
		return errors.New("party not found")
	}
	if err := utils.ValidateResourceId[Branch](ctx, input.BranchId); err != nil {
		return errors.New("branch not found")
	}
	if len(input.Details) == 0 {
		return errors.New("return needs at least one line")
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

// CreateReturnOrder stores the return, its ledger lines and flips every
// listed IMEI to returned in one transaction.
func CreateReturnOrder(ctx context.Context, input *NewReturnOrder) (*ReturnOrder, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	details := make([]ReturnOrderDetail, 0, len(input.Details))
	total := decimal.Zero
	for _, d := range input.Details {
		details = append(details, ReturnOrderDetail{
			ItemName:    d.ItemName,
			Quantity:    d.Quantity,
			PriceKwd:    d.PriceKwd,
			ImeiNumbers: StringList(d.ImeiNumbers),
		})
		total = total.Add(d.Quantity.Mul(d.PriceKwd))
	}

	order := ReturnOrder{
		ReturnType:     input.ReturnType,
		PartyId:        input.PartyId,
		BranchId:       input.BranchId,
		ReturnDate:     input.ReturnDate,
		TotalAmountKwd: total,
		Notes:          input.Notes,
		Details:        details,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	partyId := order.PartyId
	for _, d := range order.Details {
		if len(d.ImeiNumbers) == 0 {
			continue
		}
		if err := ProcessImeisFromReturn(tx, ImeiReturnInput{
			Imeis:         d.ImeiNumbers,
			ReturnType:    order.ReturnType,
			ReturnOrderId: order.ID,
			PartyId:       &partyId,
			Date:          order.ReturnDate,
			BranchId:      order.BranchId,
			CorrelationId: correlationId,
			Notes:         order.Notes,
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

func GetReturnOrder(ctx context.Context, id int) (*ReturnOrder, error) {
	return utils.FetchModel[ReturnOrder](ctx, id, "Details")
}

func DeleteReturnOrder(ctx context.Context, id int) (*ReturnOrder, error) {
	order, err := utils.FetchModel[ReturnOrder](ctx, id, "Details")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Select("Details").Delete(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}
