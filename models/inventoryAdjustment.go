package models

import (
	"context"
	"errors"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/shopspring/decimal"
)

// InventoryAdjustment is one opening-stock or manual adjustment entry in the
// fourth ledger. Quantity is signed: positive adds stock, negative removes.
type InventoryAdjustment struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ItemId         int             `gorm:"index" json:"item_id"`
	ItemName       string          `gorm:"size:255;index;not null" json:"item_name" binding:"required"`
	BranchId       int             `gorm:"index" json:"branch_id"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"quantity"`
	UnitCostKwd    decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"unit_cost_kwd"`
	AdjustmentDate time.Time       `gorm:"index;not null" json:"adjustment_date" binding:"required"`
	Reason         string          `gorm:"size:255" json:"reason"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInventoryAdjustment struct {
	ItemName       string          `json:"item_name" binding:"required"`
	BranchId       int             `json:"branch_id"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	UnitCostKwd    decimal.Decimal `json:"unit_cost_kwd"`
	AdjustmentDate time.Time       `json:"adjustment_date" binding:"required"`
	Reason         string          `json:"reason"`
}

func CreateInventoryAdjustment(ctx context.Context, input *NewInventoryAdjustment) (*InventoryAdjustment, error) {
	if input.ItemName == "" {
		return nil, errors.New("item name is required")
	}

	itemId := 0
	if item, err := GetItemByName(ctx, input.ItemName); err == nil {
		itemId = item.ID
	}

	branchId := input.BranchId
	if branchId == 0 {
		// fall back to the caller's branch when the entry doesn't name one
		if ctxBranch, ok := utils.GetBranchIdFromContext(ctx); ok {
			branchId = ctxBranch
		}
	}

	adjustment := InventoryAdjustment{
		ItemId:         itemId,
		ItemName:       input.ItemName,
		BranchId:       branchId,
		Quantity:       input.Quantity,
		UnitCostKwd:    input.UnitCostKwd,
		AdjustmentDate: input.AdjustmentDate,
		Reason:         input.Reason,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&adjustment).Error; err != nil {
		return nil, err
	}
	return &adjustment, nil
}

func GetInventoryAdjustment(ctx context.Context, id int) (*InventoryAdjustment, error) {
	return utils.FetchModel[InventoryAdjustment](ctx, id)
}

func DeleteInventoryAdjustment(ctx context.Context, id int) (*InventoryAdjustment, error) {
	adjustment, err := utils.FetchModel[InventoryAdjustment](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(adjustment).Error; err != nil {
		return nil, err
	}
	return adjustment, nil
}
