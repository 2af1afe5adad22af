package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/projenitor/projenitor-api/model"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// RecycleBin groups soft-deleted rows by table. A row is listed only when it
// is the root cause of its deletion.
type RecycleBin struct {
	Members   []model.Member       `json:"members"`
	Countries []model.LocationNode `json:"countries"`
	Divisions []model.LocationNode `json:"divisions"`
	Districts []model.LocationNode `json:"districts"`
	Upazilas  []model.LocationNode `json:"upazilas"`
	Villages  []model.LocationNode `json:"villages"`
	Homes     []model.LocationNode `json:"homes"`
}

func (b *RecycleBin) nodes(level model.LocationLevel) *[]model.LocationNode {
	switch level {
	case model.LevelCountry:
		return &b.Countries
	case model.LevelDivision:
		return &b.Divisions
	case model.LevelDistrict:
		return &b.Districts
	case model.LevelUpazila:
		return &b.Upazilas
	case model.LevelVillage:
		return &b.Villages
	default:
		return &b.Homes
	}
}

// RecycleBinService lists and restores soft-deleted rows
type RecycleBinService struct {
	db        *gorm.DB
	cascade   *CascadeService
	locations *LocationService
}

// NewRecycleBinService creates a new recycle bin service
func NewRecycleBinService(db *gorm.DB, cascade *CascadeService, locations *LocationService) *RecycleBinService {
	return &RecycleBinService{
		db:        db,
		cascade:   cascade,
		locations: locations,
	}
}

// ListDeleted runs the seven listings concurrently
func (s *RecycleBinService) ListDeleted(ctx context.Context) (*RecycleBin, error) {
	bin := &RecycleBin{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		members, err := s.deletedMembers(s.db.WithContext(gctx))
		if err != nil {
			return err
		}
		bin.Members = members
		return nil
	})

	for _, level := range model.LocationLevels {
		level := level
		g.Go(func() error {
			nodes, err := s.deletedNodes(s.db.WithContext(gctx), level)
			if err != nil {
				return err
			}
			*bin.nodes(level) = nodes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bin, nil
}

// deletedMembers skips members whose location is deleted and members taken down
// by a parent in the same batch.
func (s *RecycleBinService) deletedMembers(tx *gorm.DB) ([]model.Member, error) {
	conditions := []string{"m.deleted_at IS NOT NULL"}
	for _, level := range model.LocationLevels {
		conditions = append(conditions, fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM %s x WHERE x.id = m.%s AND x.deleted_at IS NOT NULL)",
			level.Table(), level.MemberColumn()))
	}
	conditions = append(conditions, `NOT EXISTS (SELECT 1 FROM members p
		WHERE (p.id = m.father_id OR p.id = m.mother_id)
		AND p.deleted_at IS NOT NULL AND p.delete_batch = m.delete_batch)`)

	query := "SELECT m.* FROM members m WHERE " + strings.Join(conditions, " AND ") + " ORDER BY m.deleted_at DESC, m.id"

	members := []model.Member{}
	if err := tx.Raw(query).Scan(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list deleted members: %w", err)
	}
	return members, nil
}

// deletedNodes skips nodes whose immediate parent is deleted too
func (s *RecycleBinService) deletedNodes(tx *gorm.DB, level model.LocationLevel) ([]model.LocationNode, error) {
	query := fmt.Sprintf("SELECT %s FROM %s t WHERE t.deleted_at IS NOT NULL", nodeColumns(level, "t"), level.Table())
	if parent, ok := level.Parent(); ok {
		query += fmt.Sprintf(" AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.id = t.%s AND p.deleted_at IS NOT NULL)",
			parent.Table(), level.ParentColumn())
	}
	query += " ORDER BY t.deleted_at DESC, t.id"

	nodes := []model.LocationNode{}
	if err := tx.Raw(query).Scan(&nodes).Error; err != nil {
		return nil, fmt.Errorf("failed to list deleted %s: %w", level.Table(), err)
	}
	for i := range nodes {
		nodes[i].Level = level
	}
	return nodes, nil
}

// Restore brings a row back from the bin, see CascadeService.Restore
func (s *RecycleBinService) Restore(ctx context.Context, table string, id uint) (*RestoreResult, error) {
	result, err := s.cascade.Restore(ctx, table, id)
	if err != nil {
		return nil, err
	}
	if _, isLocation := model.Table(result.Table).Level(); isLocation && s.locations != nil {
		s.locations.InvalidateHierarchy(ctx)
	}
	return result, nil
}
