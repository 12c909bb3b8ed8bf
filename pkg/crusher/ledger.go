// Package crusher keeps the production run ledger and the dispatch ledger
// that draws it down. Every change to a run's dispatched quantity happens
// in the same transaction as the dispatch write that causes it, guarded by
// the run's version column.
package crusher

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"p9e.in/crusher/models"
	"p9e.in/crusher/pkg/locks"
	"p9e.in/crusher/utils"
)

// errStaleRun means the run changed between our read and our write.
var errStaleRun = errors.New("production run version changed")

// runLoaded, when set, sees every run loadRun returns. Tests use it to
// stand in for a writer that commits between our read and our write.
var runLoaded func(run *models.ProductionRun)

// Options tune the ledger. Zero values select the defaults.
type Options struct {
	// Retries bounds how often a transaction is replayed after losing a
	// version race before the caller gets a conflict.
	Retries int
	// Locker serializes writers of the same run across instances.
	Locker locks.Locker
}

type ledger struct {
	db      *gorm.DB
	logger  *logrus.Logger
	locker  locks.Locker
	retries int
}

func newLedger(db *gorm.DB, logger *logrus.Logger, opts Options) ledger {
	if opts.Retries <= 0 {
		opts.Retries = 5
	}
	if opts.Locker == nil {
		opts.Locker = locks.Noop{}
	}
	return ledger{db: db, logger: logger, locker: opts.Locker, retries: opts.Retries}
}

// transact runs fn in a transaction and replays it while it fails with
// errStaleRun, up to l.retries attempts.
func (l ledger) transact(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	for attempt := 1; ; attempt++ {
		err := l.db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, errStaleRun) {
			return err
		}

		fields := logrus.Fields{"op": op, "attempt": attempt, "maxAttempts": l.retries}
		if attempt >= l.retries {
			l.logger.WithFields(fields).Warn("optimistic lock retries exhausted")
			return utils.Conflict("production run was modified concurrently, please retry")
		}
		l.logger.WithFields(fields).Warn("optimistic lock conflict, retrying")

		select {
		case <-ctx.Done():
			return utils.Internal("request cancelled", ctx.Err())
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
}

// lockRuns takes the distributed lock of every run id in a stable order.
// A lock backend failure degrades to running without it.
func (l ledger) lockRuns(ctx context.Context, ids ...uuid.UUID) (func(), error) {
	keys := make([]string, 0, len(ids))
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, "run:"+id.String())
	}
	sort.Strings(keys)

	var releases []func()
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range keys {
		release, err := l.locker.Obtain(ctx, key)
		if errors.Is(err, locks.ErrBusy) {
			releaseAll()
			return nil, utils.Conflict("production run is busy, please retry")
		} else if err != nil {
			l.logger.WithFields(logrus.Fields{"key": key, "error": err.Error()}).
				Warn("could not obtain run lock; proceeding without it")
			continue
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// forUpdate adds a row lock where the dialect has one. sqlite serializes
// writers on its single connection instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func loadRun(tx *gorm.DB, id uuid.UUID) (*models.ProductionRun, error) {
	var run models.ProductionRun
	err := forUpdate(tx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("production run")
	} else if err != nil {
		return nil, utils.Internal("load production run", err)
	}
	if runLoaded != nil {
		runLoaded(&run)
	}
	return &run, nil
}

// loadRunsOrdered loads distinct runs in id order so concurrent writers
// touching the same pair never wait on each other in opposite orders.
func loadRunsOrdered(tx *gorm.DB, ids ...uuid.UUID) (map[uuid.UUID]*models.ProductionRun, error) {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	runs := make(map[uuid.UUID]*models.ProductionRun, len(sorted))
	for _, id := range sorted {
		if _, ok := runs[id]; ok {
			continue
		}
		run, err := loadRun(tx, id)
		if err != nil {
			return nil, err
		}
		runs[id] = run
	}
	return runs, nil
}

// CapacityError is the validation failure for drawing more than a run has.
func CapacityError(available decimal.Decimal) *utils.AppError {
	return utils.ValidationError(
		"Cannot dispatch more than available quantity ("+available.String()+")",
		map[string]string{"quantity": "must not exceed " + available.String()},
	)
}

// reserve moves run.DispatchedQty by qty - released, where released is what
// the caller is giving back (an existing dispatch being resized, moved or
// cancelled). qty may use up to available + released.
func reserve(tx *gorm.DB, run *models.ProductionRun, qty, released decimal.Decimal) error {
	capacity := run.Available().Add(released)
	if qty.GreaterThan(capacity) {
		return CapacityError(capacity)
	}

	next := run.DispatchedQty.Sub(released).Add(qty)
	if next.IsNegative() {
		return utils.Conflict("production run dispatched quantity is out of balance, reconcile the run")
	}
	if next.Equal(run.DispatchedQty) {
		return nil
	}
	return casRun(tx, run, map[string]interface{}{"dispatched_qty": next})
}

// casRun writes updates only if the run still has the version we read.
// On success run reflects the new state.
func casRun(tx *gorm.DB, run *models.ProductionRun, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	res := tx.Model(&models.ProductionRun{}).
		Where("id = ? AND version = ?", run.ID, run.Version).
		Updates(updates)
	if res.Error != nil {
		return utils.Internal("update production run", res.Error)
	}
	if res.RowsAffected == 0 {
		return errStaleRun
	}

	if v, ok := updates["dispatched_qty"].(decimal.Decimal); ok {
		run.DispatchedQty = v
	}
	run.Version++
	run.Refresh()
	return nil
}
