package crusher

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"p9e.in/crusher/models"
	"p9e.in/crusher/utils"
)

type NewRun struct {
	MaterialID    uuid.UUID        `json:"materialId" validate:"required"`
	MachineID     string           `json:"machineId" validate:"required,max=50"`
	InputQty      decimal.Decimal  `json:"inputQty" validate:"gt=0,qty"`
	ProducedQty   decimal.Decimal  `json:"producedQty" validate:"gt=0,qty"`
	DispatchedQty *decimal.Decimal `json:"dispatchedQty,omitempty" validate:"omitempty,gte=0,qty"`
	RunDate       models.JSONTime  `json:"runDate" validate:"required"`
	Status        models.RunStatus `json:"status,omitempty" validate:"omitempty,oneof=PENDING COMPLETED"`
}

// RunPatch is a partial update. Nil fields are left alone.
type RunPatch struct {
	MaterialID    *uuid.UUID        `json:"materialId,omitempty"`
	MachineID     *string           `json:"machineId,omitempty" validate:"omitempty,max=50"`
	InputQty      *decimal.Decimal  `json:"inputQty,omitempty" validate:"omitempty,gt=0,qty"`
	ProducedQty   *decimal.Decimal  `json:"producedQty,omitempty" validate:"omitempty,gt=0,qty"`
	DispatchedQty *decimal.Decimal  `json:"dispatchedQty,omitempty" validate:"omitempty,qty"`
	RunDate       *models.JSONTime  `json:"runDate,omitempty"`
	Status        *models.RunStatus `json:"status,omitempty" validate:"omitempty,oneof=PENDING COMPLETED"`
}

type RunFilter struct {
	MaterialID    uuid.UUID
	MachineID     string
	From          *time.Time
	To            *time.Time
	AvailableOnly bool
}

// ReconcileResult reports what Reconcile found and wrote.
type ReconcileResult struct {
	Run           *models.ProductionRun `json:"run"`
	Before        decimal.Decimal       `json:"before"`
	After         decimal.Decimal       `json:"after"`
	DispatchCount int                   `json:"dispatchCount"`
	Changed       bool                  `json:"changed"`
}

type RunService struct {
	ledger
}

func NewRunService(db *gorm.DB, logger *logrus.Logger, opts Options) *RunService {
	return &RunService{ledger: newLedger(db, logger, opts)}
}

func (s *RunService) CreateRun(ctx context.Context, in NewRun) (*models.ProductionRun, error) {
	in.MachineID = strings.TrimSpace(in.MachineID)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	dispatched := decimal.Zero
	if in.DispatchedQty != nil {
		dispatched = *in.DispatchedQty
	}
	if dispatched.GreaterThan(in.ProducedQty) {
		return nil, utils.ValidationError("dispatched quantity cannot exceed produced quantity",
			map[string]string{"dispatchedQty": "must not exceed producedQty"})
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Material{}).Where("id = ?", in.MaterialID).Count(&count).Error; err != nil {
		return nil, utils.Internal("check material", err)
	}
	if count == 0 {
		return nil, utils.NotFound("material")
	}

	run := models.ProductionRun{
		MaterialID:      in.MaterialID,
		MachineID:       in.MachineID,
		InputQty:        in.InputQty,
		ProducedQty:     in.ProducedQty,
		DispatchedQty:   dispatched,
		RunDate:         in.RunDate,
		ProductionState: in.Status,
	}
	if err := db.Create(&run).Error; err != nil {
		return nil, utils.Internal("create production run", err)
	}

	s.logger.WithFields(logrus.Fields{
		"runId":       run.ID,
		"machineId":   run.MachineID,
		"producedQty": run.ProducedQty.String(),
	}).Info("production run created")
	return s.GetRun(ctx, run.ID)
}

func (s *RunService) UpdateRun(ctx context.Context, id uuid.UUID, patch RunPatch) (*models.ProductionRun, error) {
	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}
	if patch.MachineID != nil {
		trimmed := strings.TrimSpace(*patch.MachineID)
		if trimmed == "" {
			return nil, utils.ValidationError("validation failed", map[string]string{"machineId": "is required"})
		}
		patch.MachineID = &trimmed
	}
	if patch.RunDate != nil && patch.RunDate.IsZero() {
		return nil, utils.ValidationError("validation failed", map[string]string{"runDate": "is required"})
	}

	release, err := s.lockRuns(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.transact(ctx, "update run", func(tx *gorm.DB) error {
		run, err := loadRun(tx, id)
		if err != nil {
			return err
		}

		if patch.DispatchedQty != nil && !patch.DispatchedQty.Equal(run.DispatchedQty) {
			return utils.ValidationError("dispatched quantity is maintained by dispatches; reconcile the run instead",
				map[string]string{"dispatchedQty": "cannot be set directly"})
		}

		updates := map[string]interface{}{}
		if patch.MaterialID != nil && *patch.MaterialID != run.MaterialID {
			if err := s.checkMaterialChange(tx, run.ID, *patch.MaterialID); err != nil {
				return err
			}
			updates["material_id"] = *patch.MaterialID
		}
		if patch.MachineID != nil {
			updates["machine_id"] = *patch.MachineID
		}
		if patch.InputQty != nil {
			updates["input_qty"] = *patch.InputQty
		}
		if patch.ProducedQty != nil {
			if patch.ProducedQty.LessThan(run.DispatchedQty) {
				return utils.ValidationError(
					"produced quantity cannot be lower than the dispatched quantity ("+run.DispatchedQty.String()+")",
					map[string]string{"producedQty": "must be at least " + run.DispatchedQty.String()})
			}
			updates["produced_qty"] = *patch.ProducedQty
		}
		if patch.RunDate != nil {
			updates["run_date"] = *patch.RunDate
		}
		if patch.Status != nil {
			updates["production_state"] = *patch.Status
		}
		if len(updates) == 0 {
			return nil
		}
		return casRun(tx, run, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRun(ctx, id)
}

func (s *RunService) checkMaterialChange(tx *gorm.DB, runID, materialID uuid.UUID) error {
	var dispatches int64
	if err := tx.Model(&models.Dispatch{}).Where("crusher_run_id = ?", runID).Count(&dispatches).Error; err != nil {
		return utils.Internal("count run dispatches", err)
	}
	if dispatches > 0 {
		return utils.ValidationError("material cannot change once the run has dispatches",
			map[string]string{"materialId": "run already has dispatches"})
	}

	var materials int64
	if err := tx.Model(&models.Material{}).Where("id = ?", materialID).Count(&materials).Error; err != nil {
		return utils.Internal("check material", err)
	}
	if materials == 0 {
		return utils.NotFound("material")
	}
	return nil
}

func (s *RunService) GetRun(ctx context.Context, id uuid.UUID) (*models.ProductionRun, error) {
	var run models.ProductionRun
	err := s.db.WithContext(ctx).Preload("Material").First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("production run")
	} else if err != nil {
		return nil, utils.Internal("get production run", err)
	}
	return &run, nil
}

func (s *RunService) ListRuns(ctx context.Context, f RunFilter) ([]models.ProductionRun, error) {
	q := s.db.WithContext(ctx).Preload("Material")
	if f.MaterialID != uuid.Nil {
		q = q.Where("material_id = ?", f.MaterialID)
	}
	if f.MachineID != "" {
		q = q.Where("machine_id = ?", f.MachineID)
	}
	if f.From != nil {
		q = q.Where("run_date >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("run_date < ?", f.To.UTC())
	}
	if f.AvailableOnly {
		q = q.Where("produced_qty > dispatched_qty")
	}

	var runs []models.ProductionRun
	if err := q.Order("run_date DESC, created_at DESC").Find(&runs).Error; err != nil {
		return nil, utils.Internal("list production runs", err)
	}
	return runs, nil
}

// AvailableQuantity is producedQty - dispatchedQty for the run.
func (s *RunService) AvailableQuantity(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return run.Available(), nil
}

// Reconcile recomputes dispatchedQty from the run's live dispatches. A sum
// above producedQty leaves the run untouched and reports a conflict.
func (s *RunService) Reconcile(ctx context.Context, id uuid.UUID) (*ReconcileResult, error) {
	release, err := s.lockRuns(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &ReconcileResult{}
	err = s.transact(ctx, "reconcile run", func(tx *gorm.DB) error {
		run, err := loadRun(tx, id)
		if err != nil {
			return err
		}

		var dispatches []models.Dispatch
		if err := tx.Select("quantity").
			Where("crusher_run_id = ? AND cancelled_at IS NULL", id).
			Find(&dispatches).Error; err != nil {
			return utils.Internal("load run dispatches", err)
		}
		sum := decimal.Zero
		for _, d := range dispatches {
			sum = sum.Add(d.Quantity)
		}

		result.Before = run.DispatchedQty
		result.After = sum
		result.DispatchCount = len(dispatches)
		result.Changed = !sum.Equal(run.DispatchedQty)

		if sum.GreaterThan(run.ProducedQty) {
			return utils.Conflict("live dispatches (" + sum.String() + ") exceed produced quantity (" +
				run.ProducedQty.String() + "); correct the dispatches first")
		}
		if !result.Changed {
			return nil
		}
		return casRun(tx, run, map[string]interface{}{"dispatched_qty": sum})
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.logger.WithFields(logrus.Fields{
			"runId":  id,
			"before": result.Before.String(),
			"after":  result.After.String(),
		}).Info("run reconciled")
	}
	result.Run, err = s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return result, nil
}
