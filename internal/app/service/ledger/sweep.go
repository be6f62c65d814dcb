package ledger

import (
	"context"
	"fmt"

	"github.com/fatflowers/staypay/internal/models"
	"github.com/fatflowers/staypay/pkg/logctx"
)

const defaultSweepBatch = 50

type SweepResult struct {
	Scanned  int `json:"scanned"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

// Sweep appends the ledger rows of pending repair markers, oldest first.
// A marker is resolved only after its row is in the ledger.
func (s *Service) Sweep(ctx context.Context, batch int) (*SweepResult, error) {
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	var pending []*models.LedgerRepair
	err := s.db.WithContext(ctx).
		Where("status = ?", models.LedgerRepairStatusPending).
		Order("created_at ASC").
		Limit(batch).
		Find(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("load pending ledger repairs: %w", err)
	}

	res := &SweepResult{Scanned: len(pending)}
	log := logctx.FromCtx(ctx, s.log)
	for _, r := range pending {
		if err := s.repairOne(ctx, r); err != nil {
			res.Failed++
			log.Warnw("ledger_repair_failed", "repair_id", r.ID, "event_id", r.EventID, "err", err)
			continue
		}
		res.Resolved++
	}
	if res.Scanned > 0 {
		log.Infow("ledger_sweep_done", "scanned", res.Scanned, "resolved", res.Resolved, "failed", res.Failed)
	}
	return res, nil
}

func (s *Service) repairOne(ctx context.Context, r *models.LedgerRepair) error {
	tx := r.Transaction.Data()
	if tx == nil {
		return s.bumpRepair(ctx, r, fmt.Errorf("%w: empty snapshot", ErrInvalidTransaction))
	}
	// fresh id: an ambiguous first insert may have landed under the old one
	tx.ID = ""
	if err := s.Append(ctx, tx); err != nil {
		return s.bumpRepair(ctx, r, err)
	}
	now := s.db.NowFunc()
	err := s.db.WithContext(ctx).Model(&models.LedgerRepair{}).
		Where("id = ? AND status = ?", r.ID, models.LedgerRepairStatusPending).
		Updates(map[string]interface{}{
			"status":      models.LedgerRepairStatusResolved,
			"attempts":    r.Attempts + 1,
			"resolved_at": now,
			"updated_at":  now,
		}).Error
	if err != nil {
		return fmt.Errorf("resolve ledger repair %s: %w", r.ID, err)
	}
	return nil
}

func (s *Service) bumpRepair(ctx context.Context, r *models.LedgerRepair, cause error) error {
	msg := cause.Error()
	err := s.db.WithContext(ctx).Model(&models.LedgerRepair{}).
		Where("id = ?", r.ID).
		Updates(map[string]interface{}{
			"attempts":   r.Attempts + 1,
			"last_error": msg,
			"updated_at": s.db.NowFunc(),
		}).Error
	if err != nil {
		return fmt.Errorf("%v; record repair attempt: %w", cause, err)
	}
	return cause
}
