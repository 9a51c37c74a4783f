package workflow

import (
	"context"
	"fmt"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/models"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ImeiDivergence is one unit whose projection disagrees with its event log.
type ImeiDivergence struct {
	ImeiUnitId      int               `json:"imei_unit_id"`
	Imei            string            `json:"imei"`
	ProjectedState  models.ImeiStatus `json:"projected_state"`
	ExpectedState   models.ImeiStatus `json:"expected_state"`
	ProjectedBranch *int              `json:"projected_branch"`
	ExpectedBranch  *int              `json:"expected_branch"`
	EventCount      int               `json:"event_count"`
	Repaired        bool              `json:"repaired"`
	Reason          string            `json:"reason"`
}

// ReconcileResult summarizes one reconciliation run.
type ReconcileResult struct {
	UnitsChecked int               `json:"units_checked"`
	Divergences  []*ImeiDivergence `json:"divergences"`
	Repaired     int               `json:"repaired"`
}

// ReconcileImeiProjections replays every unit's event log and compares the
// derived state with the stored projection. The event log is authoritative:
// with repair enabled the projection is rewritten to match it, never the
// other way round. Units with no events at all are reported but left alone,
// there is no history to rebuild them from.
func ReconcileImeiProjections(ctx context.Context, logger *logrus.Logger, repair bool) (*ReconcileResult, error) {
	db := config.GetDB()

	var units []models.ImeiUnit
	if err := db.WithContext(ctx).
		Preload("Events", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("event_date ASC, id ASC")
		}).
		Find(&units).Error; err != nil {
		config.LogError(logger, "imeiReconcile.go", "ReconcileImeiProjections", "loading units", nil, err)
		return nil, err
	}

	result := &ReconcileResult{UnitsChecked: len(units)}

	for i := range units {
		unit := &units[i]

		if len(unit.Events) == 0 {
			result.Divergences = append(result.Divergences, &ImeiDivergence{
				ImeiUnitId:      unit.ID,
				Imei:            unit.Imei,
				ProjectedState:  unit.Status,
				ProjectedBranch: unit.CurrentBranchId,
				Reason:          "no events recorded for unit",
			})
			continue
		}

		expectedStatus, expectedBranch := replayEvents(unit.Events)
		if unit.Status == expectedStatus && intPtrEqual(unit.CurrentBranchId, expectedBranch) {
			continue
		}

		div := &ImeiDivergence{
			ImeiUnitId:      unit.ID,
			Imei:            unit.Imei,
			ProjectedState:  unit.Status,
			ExpectedState:   expectedStatus,
			ProjectedBranch: unit.CurrentBranchId,
			ExpectedBranch:  expectedBranch,
			EventCount:      len(unit.Events),
			Reason:          fmt.Sprintf("projection %s disagrees with event log %s", unit.Status, expectedStatus),
		}

		if repair {
			err := db.WithContext(ctx).Model(&models.ImeiUnit{}).
				Where("id = ?", unit.ID).
				Updates(map[string]interface{}{
					"status":            expectedStatus,
					"current_branch_id": expectedBranch,
				}).Error
			if err != nil {
				config.LogError(logger, "imeiReconcile.go", "ReconcileImeiProjections", "repairing unit", unit.Imei, err)
				return nil, err
			}
			div.Repaired = true
			result.Repaired++
		}

		result.Divergences = append(result.Divergences, div)
	}

	if len(result.Divergences) > 0 {
		userId, _ := utils.GetUserIdFromContext(ctx)
		logger.WithFields(logrus.Fields{
			"units_checked": result.UnitsChecked,
			"divergences":   len(result.Divergences),
			"repaired":      result.Repaired,
			"run_by":        userId,
		}).Warn("imei projections diverged from event log")
	}
	return result, nil
}

// replayEvents folds the ordered event log into the unit state it implies.
func replayEvents(events []models.ImeiEvent) (models.ImeiStatus, *int) {
	var status models.ImeiStatus
	var branch *int
	for _, ev := range events {
		status = ev.EventType.StatusAfter()
		switch ev.EventType {
		case models.ImeiEventPurchased, models.ImeiEventSaleReturned:
			branch = ev.ToBranchId
		case models.ImeiEventSold, models.ImeiEventPurchaseReturned:
			branch = nil
		}
	}
	return status, branch
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
