package models

import (
	"context"
	"errors"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/utils"
)

// Party is a counterparty the business trades with or owes money to:
// suppliers, customers, logistics carriers, profit partners and packers.
// Master-data CRUD beyond what the settlement engine needs lives elsewhere.
type Party struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Type      PartyType `gorm:"type:enum('supplier','customer','partner','packing','logistic');not null" json:"type" binding:"required"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewParty struct {
	Name  string    `json:"name" binding:"required"`
	Type  PartyType `json:"type" binding:"required"`
	Phone string    `json:"phone"`
	Notes string    `json:"notes"`
}

// defaultPhoneRegion resolves national-format phone numbers; numbers with a
// + prefix carry their own country code.
const defaultPhoneRegion = "KW"

func (input *NewParty) validate(ctx context.Context, id int) error {
	switch input.Type {
	case PartyTypeSupplier, PartyTypeCustomer, PartyTypePartner, PartyTypePacking, PartyTypeLogistic:
	default:
		return errors.New("invalid party type")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, defaultPhoneRegion); err != nil {
			return errors.New("invalid phone number")
		}
	}
	return nil
}

func CreateParty(ctx context.Context, input *NewParty) (*Party, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	party := Party{
		Name:  input.Name,
		Type:  input.Type,
		Phone: input.Phone,
		Notes: input.Notes,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&party).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

func GetParty(ctx context.Context, id int) (*Party, error) {
	return utils.FetchModel[Party](ctx, id)
}

func GetParties(ctx context.Context, partyType *PartyType) ([]*Party, error) {
	db := config.GetDB()
	var parties []*Party
	dbCtx := db.WithContext(ctx)
	if partyType != nil && *partyType != "" {
		dbCtx = dbCtx.Where("type = ?", *partyType)
	}
	if err := dbCtx.Order("name").Find(&parties).Error; err != nil {
		return nil, err
	}
	return parties, nil
}
