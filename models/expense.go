package models

import (
	"context"
	"time"

	"github.com/kwtradetech/trading_backend/utils"
	"github.com/shopspring/decimal"
)

// Expense is an accounting-module row. The settlement finalizer creates one
// per finalized settlement, categorized by the settlement lane.
type Expense struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Category    ExpenseCategory `gorm:"size:50;index;not null" json:"category"`
	PartyId     int             `gorm:"index" json:"party_id"`
	AmountKwd   decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"amount_kwd"`
	ExpenseDate time.Time       `gorm:"index;not null" json:"expense_date"`
	PaymentId   *int            `gorm:"index" json:"payment_id"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetExpense(ctx context.Context, id int) (*Expense, error) {
	return utils.FetchModel[Expense](ctx, id)
}
