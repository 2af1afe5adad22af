package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/projenitor/projenitor-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// descendantsCTE collects every member reachable from @root through father_id or
// mother_id. UNION (not UNION ALL) drops rows already produced, so a member
// reachable along two lines appears once and a corrupted, cyclic tree still
// terminates. The root itself is never part of the result.
const descendantsCTE = `WITH RECURSIVE descendants(id) AS (
	SELECT id FROM members
	WHERE (father_id = @root OR mother_id = @root) AND id <> @root
	UNION
	SELECT m.id FROM members m
	JOIN descendants d ON m.father_id = d.id OR m.mother_id = d.id
	WHERE m.id <> @root
)
`

// CascadeService performs recursive mutations over the member graph and the
// location chain. Every public mutation runs in a single transaction.
type CascadeService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCascadeService creates a new cascade service
func NewCascadeService(db *gorm.DB) *CascadeService {
	return &CascadeService{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CascadeResult summarises one cascading mutation
type CascadeResult struct {
	BatchID  string           `json:"batch_id"`
	Action   string           `json:"action"`
	Table    string           `json:"table"`
	TargetID uint             `json:"target_id"`
	Affected map[string]int64 `json:"affected"`
}

// RestoreResult carries the restored row alongside the cascade summary
type RestoreResult struct {
	CascadeResult
	Row interface{} `json:"row"`
}

// FindDescendants returns the ids of every transitive child of memberID
func (s *CascadeService) FindDescendants(ctx context.Context, memberID uint) ([]uint, error) {
	tx := s.db.WithContext(ctx)
	if err := memberExists(tx, memberID, true); err != nil {
		return nil, err
	}
	return findDescendants(tx, memberID)
}

func findDescendants(tx *gorm.DB, memberID uint) ([]uint, error) {
	ids := []uint{}
	err := tx.Raw(descendantsCTE+"SELECT id FROM descendants ORDER BY id", map[string]interface{}{
		"root": memberID,
	}).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find descendants of member %d: %w", memberID, err)
	}
	return ids, nil
}

// ShiftLevels adds delta to the level of memberID and of all its descendants
// that carry a level, as one set-based UPDATE.
func (s *CascadeService) ShiftLevels(ctx context.Context, memberID uint, delta int) (*CascadeResult, error) {
	return s.run(ctx, model.CascadeActionShiftLevels, func(tx *gorm.DB) (*CascadeResult, error) {
		return s.shiftLevels(tx, memberID, delta)
	})
}

func (s *CascadeService) shiftLevels(tx *gorm.DB, memberID uint, delta int) (*CascadeResult, error) {
	var member model.Member
	if err := tx.First(&member, memberID).Error; err != nil {
		return nil, classifyWriteError(err, "member %d", memberID)
	}
	if member.Level != nil && *member.Level+delta < 1 {
		return nil, fmt.Errorf("%w: level of member %d would drop below 1", ErrInvalidInput, memberID)
	}

	result := newCascadeResult(model.CascadeActionShiftLevels, string(model.TableMembers), memberID)
	if delta == 0 {
		return result, nil
	}

	update := tx.Exec(descendantsCTE+`UPDATE members SET level = level + @delta, updated_at = @now
		WHERE level IS NOT NULL AND (id = @root OR id IN (SELECT id FROM descendants))`,
		map[string]interface{}{"root": memberID, "delta": delta, "now": s.now()})
	if update.Error != nil {
		return nil, fmt.Errorf("failed to shift levels under member %d: %w", memberID, update.Error)
	}
	result.Affected[string(model.TableMembers)] = update.RowsAffected

	return result, s.record(tx, result)
}

// SoftDeleteMemberSubtree marks memberID and every active descendant deleted
// under one delete batch.
func (s *CascadeService) SoftDeleteMemberSubtree(ctx context.Context, memberID uint) (*CascadeResult, error) {
	return s.run(ctx, model.CascadeActionSoftDelete, func(tx *gorm.DB) (*CascadeResult, error) {
		if err := memberExists(tx, memberID, false); err != nil {
			return nil, err
		}

		result := newCascadeResult(model.CascadeActionSoftDelete, string(model.TableMembers), memberID)
		update := tx.Exec(descendantsCTE+`UPDATE members SET deleted_at = @now, delete_batch = @batch
			WHERE deleted_at IS NULL AND (id = @root OR id IN (SELECT id FROM descendants))`,
			map[string]interface{}{"root": memberID, "now": s.now(), "batch": result.BatchID})
		if update.Error != nil {
			return nil, fmt.Errorf("failed to delete member subtree %d: %w", memberID, update.Error)
		}
		result.Affected[string(model.TableMembers)] = update.RowsAffected

		return result, s.record(tx, result)
	})
}

// SoftDeleteLocation marks a location node, every active node under it and
// every active member attached anywhere in that subtree deleted.
func (s *CascadeService) SoftDeleteLocation(ctx context.Context, level model.LocationLevel, id uint) (*CascadeResult, error) {
	if !level.Valid() {
		return nil, ErrInvalidLevel
	}

	return s.run(ctx, model.CascadeActionSoftDelete, func(tx *gorm.DB) (*CascadeResult, error) {
		if _, err := loadNode(tx, level, id, false); err != nil {
			return nil, err
		}

		result := newCascadeResult(model.CascadeActionSoftDelete, level.Table(), id)
		now := s.now()

		for _, target := range append([]model.LocationLevel{level}, level.Below()...) {
			filter, args := subtreeFilter(level, id, target)
			query := fmt.Sprintf("UPDATE %s SET deleted_at = ?, delete_batch = ? WHERE deleted_at IS NULL AND %s", target.Table(), filter)
			update := tx.Exec(query, append([]interface{}{now, result.BatchID}, args...)...)
			if update.Error != nil {
				return nil, fmt.Errorf("failed to delete %s under %s %d: %w", target.Table(), level, id, update.Error)
			}
			result.Affected[target.Table()] = update.RowsAffected
		}

		filter, args := memberSubtreeFilter(level, id)
		update := tx.Exec("UPDATE members SET deleted_at = ?, delete_batch = ? WHERE deleted_at IS NULL AND "+filter,
			append([]interface{}{now, result.BatchID}, args...)...)
		if update.Error != nil {
			return nil, fmt.Errorf("failed to delete members under %s %d: %w", level, id, update.Error)
		}
		result.Affected[string(model.TableMembers)] = update.RowsAffected

		return result, s.record(tx, result)
	})
}

type deletionState struct {
	DeletedAt   *time.Time
	DeleteBatch *string
}

// Restore clears deleted_at on the row identified by (table, id) and on the rows
// below it that were deleted by the same cascade. Rows that were deleted
// independently keep their own batch and stay in the recycle bin. A member
// brings back its descendants only when it was deleted as a member subtree.
func (s *CascadeService) Restore(ctx context.Context, rawTable string, id uint) (*RestoreResult, error) {
	table, err := parseTable(rawTable)
	if err != nil {
		return nil, err
	}

	var row interface{}
	result, err := s.run(ctx, model.CascadeActionRestore, func(tx *gorm.DB) (*CascadeResult, error) {
		var states []deletionState
		if err := tx.Raw(fmt.Sprintf("SELECT deleted_at, delete_batch FROM %s WHERE id = ?", table), id).Scan(&states).Error; err != nil {
			return nil, fmt.Errorf("failed to load %s %d: %w", table, id, err)
		}
		if len(states) == 0 || states[0].DeletedAt == nil {
			return nil, fmt.Errorf("%w: no deleted row %d in %s", ErrNotFound, id, table)
		}
		batch := states[0].DeleteBatch

		result := newCascadeResult(model.CascadeActionRestore, string(table), id)
		if batch != nil {
			result.BatchID = *batch
		}

		var err error
		level, isLocation := table.Level()
		if isLocation {
			err = s.restoreLocation(tx, level, id, batch, result.Affected)
		} else {
			err = s.restoreMember(tx, id, batch, result.Affected)
		}
		if err != nil {
			return nil, err
		}

		if isLocation {
			row, err = loadNode(tx, level, id, false)
		} else {
			var member model.Member
			err = tx.First(&member, id).Error
			row = &member
		}
		if err != nil {
			return nil, classifyWriteError(err, "restored %s %d", table, id)
		}

		return result, s.record(tx, result)
	})
	if err != nil {
		return nil, err
	}
	return &RestoreResult{CascadeResult: *result, Row: row}, nil
}

func (s *CascadeService) restoreMember(tx *gorm.DB, id uint, batch *string, affected map[string]int64) error {
	update := tx.Exec("UPDATE members SET deleted_at = NULL, delete_batch = NULL WHERE id = ?", id)
	if update.Error != nil {
		return fmt.Errorf("failed to restore member %d: %w", id, update.Error)
	}
	affected[string(model.TableMembers)] = update.RowsAffected

	if batch == nil {
		return nil
	}

	// Descendants share the cause only when the batch came from a member
	// subtree delete. A location delete stamps every resident with its batch,
	// and those rows return through the location, not through a relative.
	var origin []string
	err := tx.Model(&model.CascadeLog{}).
		Where("batch_id = ? AND action = ?", *batch, model.CascadeActionSoftDelete).
		Limit(1).
		Pluck("target_table", &origin).Error
	if err != nil {
		return fmt.Errorf("failed to look up delete batch %s: %w", *batch, err)
	}
	if len(origin) == 0 || origin[0] != string(model.TableMembers) {
		return nil
	}

	update = tx.Exec(descendantsCTE+`UPDATE members SET deleted_at = NULL, delete_batch = NULL
		WHERE delete_batch = @batch AND id IN (SELECT id FROM descendants)`,
		map[string]interface{}{"root": id, "batch": *batch})
	if update.Error != nil {
		return fmt.Errorf("failed to restore descendants of member %d: %w", id, update.Error)
	}
	affected[string(model.TableMembers)] += update.RowsAffected
	return nil
}

func (s *CascadeService) restoreLocation(tx *gorm.DB, level model.LocationLevel, id uint, batch *string, affected map[string]int64) error {
	update := tx.Exec(fmt.Sprintf("UPDATE %s SET deleted_at = NULL, delete_batch = NULL WHERE id = ?", level.Table()), id)
	if update.Error != nil {
		return fmt.Errorf("failed to restore %s %d: %w", level, id, update.Error)
	}
	affected[level.Table()] = update.RowsAffected

	if batch == nil {
		return nil
	}

	for _, target := range level.Below() {
		filter, args := subtreeFilter(level, id, target)
		query := fmt.Sprintf("UPDATE %s SET deleted_at = NULL, delete_batch = NULL WHERE delete_batch = ? AND %s", target.Table(), filter)
		update := tx.Exec(query, append([]interface{}{*batch}, args...)...)
		if update.Error != nil {
			return fmt.Errorf("failed to restore %s under %s %d: %w", target.Table(), level, id, update.Error)
		}
		affected[target.Table()] = update.RowsAffected
	}

	filter, args := memberSubtreeFilter(level, id)
	update = tx.Exec("UPDATE members SET deleted_at = NULL, delete_batch = NULL WHERE delete_batch = ? AND "+filter,
		append([]interface{}{*batch}, args...)...)
	if update.Error != nil {
		return fmt.Errorf("failed to restore members under %s %d: %w", level, id, update.Error)
	}
	affected[string(model.TableMembers)] = update.RowsAffected
	return nil
}

// Purge hard-deletes rows soft-deleted before the cutoff. Member references to
// purged rows are nulled first; a location row that still has children left
// after its lower level was purged is kept.
func (s *CascadeService) Purge(ctx context.Context, before time.Time) (*CascadeResult, error) {
	return s.run(ctx, model.CascadeActionPurge, func(tx *gorm.DB) (*CascadeResult, error) {
		result := newCascadeResult(model.CascadeActionPurge, "", 0)
		cutoff := before.UTC()

		doomedMembers := "SELECT id FROM members WHERE deleted_at IS NOT NULL AND deleted_at < ?"
		for _, column := range []string{"father_id", "mother_id", "spouse_id"} {
			query := fmt.Sprintf("UPDATE members SET %[1]s = NULL WHERE %[1]s IN (%[2]s)", column, doomedMembers)
			if err := tx.Exec(query, cutoff).Error; err != nil {
				return nil, fmt.Errorf("failed to detach purged members from %s: %w", column, err)
			}
		}
		purged := tx.Exec("DELETE FROM members WHERE deleted_at IS NOT NULL AND deleted_at < ?", cutoff)
		if purged.Error != nil {
			return nil, fmt.Errorf("failed to purge members: %w", purged.Error)
		}
		result.Affected[string(model.TableMembers)] = purged.RowsAffected

		for i := len(model.LocationLevels) - 1; i >= 0; i-- {
			level := model.LocationLevels[i]
			condition := fmt.Sprintf("%s.deleted_at IS NOT NULL AND %s.deleted_at < ?", level.Table(), level.Table())
			if child, ok := level.Child(); ok {
				condition += fmt.Sprintf(" AND NOT EXISTS (SELECT 1 FROM %s c WHERE c.%s = %s.id)", child.Table(), child.ParentColumn(), level.Table())
			}

			detach := fmt.Sprintf("UPDATE members SET %[1]s = NULL WHERE %[1]s IN (SELECT id FROM %[2]s WHERE %[3]s)", level.MemberColumn(), level.Table(), condition)
			if err := tx.Exec(detach, cutoff).Error; err != nil {
				return nil, fmt.Errorf("failed to detach members from purged %s: %w", level.Table(), err)
			}

			purged := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s", level.Table(), condition), cutoff)
			if purged.Error != nil {
				return nil, fmt.Errorf("failed to purge %s: %w", level.Table(), purged.Error)
			}
			result.Affected[level.Table()] = purged.RowsAffected
		}

		return result, s.record(tx, result)
	})
}

// run wraps fn in a transaction and reports duration, errors and touched rows.
func (s *CascadeService) run(ctx context.Context, action string, fn func(tx *gorm.DB) (*CascadeResult, error)) (*CascadeResult, error) {
	start := time.Now()
	var result *CascadeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = fn(tx)
		return err
	})
	cascadeDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())

	if err != nil {
		cascadeErrors.WithLabelValues(action).Inc()
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidInput) {
			log.Errorf("cascade %s rolled back: %v", action, err)
		}
		return nil, err
	}

	observeCascade(action, result.Affected)
	return result, nil
}

func (s *CascadeService) record(tx *gorm.DB, result *CascadeResult) error {
	affected, err := json.Marshal(result.Affected)
	if err != nil {
		return err
	}

	entry := model.CascadeLog{
		BatchID:     result.BatchID,
		Action:      result.Action,
		TargetTable: result.Table,
		TargetID:    result.TargetID,
		Affected:    datatypes.JSON(affected),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record cascade log: %w", err)
	}
	return nil
}

func newCascadeResult(action, table string, id uint) *CascadeResult {
	return &CascadeResult{
		BatchID:  uuid.NewString(),
		Action:   action,
		Table:    table,
		TargetID: id,
		Affected: map[string]int64{},
	}
}

func memberExists(tx *gorm.DB, id uint, includeDeleted bool) error {
	q := tx.Model(&model.Member{})
	if includeDeleted {
		q = q.Unscoped()
	}

	var count int64
	if err := q.Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up member %d: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: member %d", ErrNotFound, id)
	}
	return nil
}
