package models

import (
	"context"
	"errors"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartySettlement is a periodic batch receipt paying one counterparty for
// its pending payables in one lane. The voucher id list and the total are
// snapshotted at creation and stay authoritative even if the underlying
// vouchers change afterwards. pending → paid is terminal.
type PartySettlement struct {
	ID             int             `gorm:"primary_key" json:"id"`
	PartyId        int             `gorm:"index;not null" json:"party_id" binding:"required"`
	Lane           SettlementLane  `gorm:"type:enum('partner','packing','logistic');not null" json:"lane" binding:"required"`
	PeriodLabel    string          `gorm:"size:50" json:"period_label"`
	VoucherIds     IntList         `gorm:"type:json" json:"voucher_ids"`
	TotalAmountKwd decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"total_amount_kwd"`
	Status         PayableStatus   `gorm:"type:enum('pending','paid');default:'pending';index" json:"status"`
	PaymentId      *int            `json:"payment_id"`
	ExpenseId      *int            `json:"expense_id"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPartySettlement struct {
	PartyId        int             `json:"party_id" binding:"required"`
	Lane           SettlementLane  `json:"lane" binding:"required"`
	PeriodLabel    string          `json:"period_label"`
	VoucherIds     []int           `json:"voucher_ids" binding:"required"`
	TotalAmountKwd decimal.Decimal `json:"total_amount_kwd"`
	Notes          string          `json:"notes"`
}

func (input *NewPartySettlement) validate(ctx context.Context) error {
	switch input.Lane {
	case SettlementLanePartner, SettlementLanePacking, SettlementLaneLogistic:
	default:
		return errors.New("invalid settlement lane")
	}
	if err := utils.ValidateResourceId[Party](ctx, input.PartyId); err != nil {
		return errors.New("party not found")
	}
	if len(input.VoucherIds) == 0 {
		return errors.New("settlement needs at least one voucher")
	}
	if err := utils.ValidateResourcesId[LandedCostVoucher](ctx, input.VoucherIds); err != nil {
		return errors.New("voucher not found")
	}
	// one open batch per party and lane; finalize or delete it first
	count, err := utils.ResourceCountWhere[PartySettlement](ctx,
		"party_id = ? AND lane = ? AND status = ?", input.PartyId, input.Lane, PayableStatusPending)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("a pending settlement already exists for this party and lane")
	}
	return nil
}

// CreatePartySettlement snapshots the batch. When the caller does not supply
// a total, it is computed from the party's pending lanes on the listed
// vouchers at this moment.
func CreatePartySettlement(ctx context.Context, input *NewPartySettlement) (*PartySettlement, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	voucherIds := utils.UniqueSlice(input.VoucherIds)
	total := input.TotalAmountKwd
	if total.IsZero() {
		db := config.GetDB()
		var vouchers []*LandedCostVoucher
		if err := db.WithContext(ctx).Where("id IN ?", voucherIds).Find(&vouchers).Error; err != nil {
			return nil, err
		}
		for _, v := range vouchers {
			for _, lane := range v.PayableLanes() {
				if lane.SettlementLane != input.Lane || lane.Status != PayableStatusPending {
					continue
				}
				if lane.PartyId == nil || *lane.PartyId != input.PartyId {
					continue
				}
				total = total.Add(lane.AmountKwd)
			}
		}
	}

	settlement := PartySettlement{
		PartyId:        input.PartyId,
		Lane:           input.Lane,
		PeriodLabel:    input.PeriodLabel,
		VoucherIds:     IntList(voucherIds),
		TotalAmountKwd: total,
		Status:         PayableStatusPending,
		Notes:          input.Notes,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&settlement).Error; err != nil {
		return nil, err
	}
	return &settlement, nil
}

// GetPartySettlement is a probe: an absent id returns (nil, nil).
func GetPartySettlement(ctx context.Context, id int) (*PartySettlement, error) {
	db := config.GetDB()
	var settlement PartySettlement
	err := db.WithContext(ctx).First(&settlement, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &settlement, nil
}

func GetPartySettlements(ctx context.Context, status *PayableStatus) ([]*PartySettlement, error) {
	db := config.GetDB()
	var settlements []*PartySettlement
	dbCtx := db.WithContext(ctx)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if err := dbCtx.Order("created_at DESC").Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}
