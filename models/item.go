package models

import (
	"context"
	"errors"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/shopspring/decimal"
)

// Item is the master record for one sellable article. Identity is the unique
// name; the four transactional ledgers key on it. Pricing/category fields are
// owned by the master-data module; the engine only writes landed_cost_kwd.
type Item struct {
	ID               int             `gorm:"primary_key" json:"id"`
	Name             string          `gorm:"size:255;uniqueIndex;not null" json:"name" binding:"required"`
	Code             string          `gorm:"size:100" json:"code"`
	Category         string          `gorm:"size:100" json:"category"`
	MinStockLevel    decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"min_stock_level"`
	PurchasePriceKwd decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"purchase_price_kwd"`
	SalesPriceKwd    decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"sales_price_kwd"`
	LandedCostKwd    decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"landed_cost_kwd"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Name             string          `json:"name" binding:"required"`
	Code             string          `json:"code"`
	Category         string          `json:"category"`
	MinStockLevel    decimal.Decimal `json:"min_stock_level"`
	PurchasePriceKwd decimal.Decimal `json:"purchase_price_kwd"`
	SalesPriceKwd    decimal.Decimal `json:"sales_price_kwd"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewItem) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[Item](ctx, "name", input.Name, id); err != nil {
		return errors.New("item name already exists")
	}
	return nil
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	item := Item{
		Name:             input.Name,
		Code:             input.Code,
		Category:         input.Category,
		MinStockLevel:    input.MinStockLevel,
		PurchasePriceKwd: input.PurchasePriceKwd,
		SalesPriceKwd:    input.SalesPriceKwd,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	return utils.FetchModel[Item](ctx, id)
}

func GetItemByName(ctx context.Context, name string) (*Item, error) {
	db := config.GetDB()
	var item Item
	err := db.WithContext(ctx).Where("name = ?", name).First(&item).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &item, nil
}

func GetItems(ctx context.Context, name *string) ([]*Item, error) {
	db := config.GetDB()
	var items []*Item
	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
