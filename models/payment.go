package models

import (
	"context"
	"time"

	"github.com/kwtradetech/trading_backend/utils"
	"github.com/shopspring/decimal"
)

// Payment is an accounting-module row. The settlement finalizer creates OUT
// payments and links them to the settlement and its voucher lanes; everything
// else about payments is owned elsewhere.
type Payment struct {
	ID             int              `gorm:"primary_key" json:"id"`
	PartyId        int              `gorm:"index;not null" json:"party_id"`
	Direction      PaymentDirection `gorm:"type:enum('in','out');not null" json:"direction"`
	AmountKwd      decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"amount_kwd"`
	PaymentDate    time.Time        `gorm:"index;not null" json:"payment_date"`
	MoneyAccountId int              `gorm:"index" json:"money_account_id"`
	ReferenceType  string           `gorm:"size:50;index" json:"reference_type"`
	ReferenceId    int              `gorm:"index" json:"reference_id"`
	Notes          string           `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	return utils.FetchModel[Payment](ctx, id)
}
