package workflow

import (
	"context"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/models"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinalizeResult reports what one finalize call did. AlreadyPaid means the
// settlement had been finalized before this call; that is a successful no-op,
// not an error, so a client retry after a timed-out request cannot double-pay.
type FinalizeResult struct {
	Settlement  *models.PartySettlement `json:"settlement"`
	AlreadyPaid bool                    `json:"already_paid"`
}

// AtomicFinalizeSettlement converts one pending settlement into a paid one
// inside a single transaction: one OUT payment, one categorized expense, the
// settlement flip and the conditional lane flips on every snapshotted
// voucher. Any failure rolls the whole thing back; a partially finalized
// settlement cannot exist.
func AtomicFinalizeSettlement(ctx context.Context, logger *logrus.Logger, settlementId int, moneyAccountId int, notes string) (*FinalizeResult, error) {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	var settlement models.PartySettlement
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&settlement, settlementId).Error
	if err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			// probe semantics: absent settlement is an empty result
			return nil, nil
		}
		config.LogError(logger, "settlementWorkflow.go", "AtomicFinalizeSettlement", "fetch settlement", settlementId, err)
		return nil, err
	}

	if settlement.Status == models.PayableStatusPaid {
		tx.Rollback()
		return &FinalizeResult{Settlement: &settlement, AlreadyPaid: true}, nil
	}

	// record who pushed the button when the session middleware told us
	if userName, ok := utils.GetUserNameFromContext(ctx); ok && userName != "" {
		if notes != "" {
			notes += " "
		}
		notes += "(finalized by " + userName + ")"
	}

	now := time.Now().UTC()
	payment := models.Payment{
		PartyId:        settlement.PartyId,
		Direction:      models.PaymentDirectionOut,
		AmountKwd:      settlement.TotalAmountKwd,
		PaymentDate:    now,
		MoneyAccountId: moneyAccountId,
		ReferenceType:  "party_settlements",
		ReferenceId:    settlement.ID,
		Notes:          notes,
	}
	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "settlementWorkflow.go", "AtomicFinalizeSettlement", "create payment", settlement, err)
		return nil, err
	}

	expense := models.Expense{
		Category:    settlement.Lane.ExpenseCategory(),
		PartyId:     settlement.PartyId,
		AmountKwd:   settlement.TotalAmountKwd,
		ExpenseDate: now,
		PaymentId:   &payment.ID,
		Notes:       notes,
	}
	if err := tx.Create(&expense).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "settlementWorkflow.go", "AtomicFinalizeSettlement", "create expense", settlement, err)
		return nil, err
	}

	// Guarded flip: a concurrent finalize that got here first leaves zero
	// rows for us, in which case we roll our payment/expense back and
	// report the settlement as already paid.
	result := tx.Model(&models.PartySettlement{}).
		Where("id = ? AND status = ?", settlement.ID, models.PayableStatusPending).
		Updates(map[string]interface{}{
			"status":     models.PayableStatusPaid,
			"payment_id": payment.ID,
			"expense_id": expense.ID,
		})
	if result.Error != nil {
		tx.Rollback()
		config.LogError(logger, "settlementWorkflow.go", "AtomicFinalizeSettlement", "flip settlement", settlement, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		refetched, err := models.GetPartySettlement(ctx, settlement.ID)
		if err != nil {
			return nil, err
		}
		return &FinalizeResult{Settlement: refetched, AlreadyPaid: true}, nil
	}

	for _, voucherId := range settlement.VoucherIds {
		if err := models.FlipPendingLanesPaid(tx, voucherId, settlement.Lane, settlement.PartyId, payment.ID); err != nil {
			tx.Rollback()
			config.LogError(logger, "settlementWorkflow.go", "AtomicFinalizeSettlement", "flip voucher lanes", voucherId, err)
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	settlement.Status = models.PayableStatusPaid
	settlement.PaymentId = &payment.ID
	settlement.ExpenseId = &expense.ID
	return &FinalizeResult{Settlement: &settlement}, nil
}
