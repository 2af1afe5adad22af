package services

import (
	"context"
	"fmt"

	"github.com/projenitor/projenitor-api/model"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// StatsService handles dashboard reporting
type StatsService struct {
	db *gorm.DB
}

// NewStatsService creates a new stats service
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{
		db: db,
	}
}

// DashboardStats represents overall family tree statistics
type DashboardStats struct {
	TotalMembers     int64            `json:"total_members"`
	LivingMembers    int64            `json:"living_members"`
	RootMembers      int64            `json:"root_members"`
	Generations      int64            `json:"generations"`
	Locations        map[string]int64 `json:"locations"`
	DeletedMembers   int64            `json:"deleted_members"`
	DeletedLocations int64            `json:"deleted_locations"`
}

// GetDashboardStats runs the independent counts concurrently
func (s *StatsService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	locationCounts := make([]int64, len(model.LocationLevels))
	deletedCounts := make([]int64, len(model.LocationLevels))

	g, gctx := errgroup.WithContext(ctx)
	db := func() *gorm.DB { return s.db.WithContext(gctx) }

	// Total members
	g.Go(func() error {
		if err := db().Model(&model.Member{}).Count(&stats.TotalMembers).Error; err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := db().Model(&model.Member{}).Where("is_alive = ?", true).Count(&stats.LivingMembers).Error; err != nil {
			return fmt.Errorf("failed to count living members: %w", err)
		}
		return nil
	})

	// Roots have neither parent recorded
	g.Go(func() error {
		if err := db().Model(&model.Member{}).
			Where("father_id IS NULL AND mother_id IS NULL").
			Count(&stats.RootMembers).Error; err != nil {
			return fmt.Errorf("failed to count root members: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var result struct {
			Max int64
		}
		if err := db().Model(&model.Member{}).
			Select("COALESCE(MAX(level), 0) AS max").
			Scan(&result).Error; err != nil {
			return fmt.Errorf("failed to find deepest generation: %w", err)
		}
		stats.Generations = result.Max
		return nil
	})

	g.Go(func() error {
		if err := db().Unscoped().Model(&model.Member{}).
			Where("deleted_at IS NOT NULL").
			Count(&stats.DeletedMembers).Error; err != nil {
			return fmt.Errorf("failed to count deleted members: %w", err)
		}
		return nil
	})

	for i, level := range model.LocationLevels {
		i, level := i, level
		g.Go(func() error {
			query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL", level.Table())
			if err := db().Raw(query).Scan(&locationCounts[i]).Error; err != nil {
				return fmt.Errorf("failed to count %s: %w", level.Table(), err)
			}
			query = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted_at IS NOT NULL", level.Table())
			if err := db().Raw(query).Scan(&deletedCounts[i]).Error; err != nil {
				return fmt.Errorf("failed to count deleted %s: %w", level.Table(), err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Locations = make(map[string]int64, len(model.LocationLevels))
	for i, level := range model.LocationLevels {
		stats.Locations[level.Table()] = locationCounts[i]
		stats.DeletedLocations += deletedCounts[i]
	}
	return stats, nil
}
