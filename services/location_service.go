package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/projenitor/projenitor-api/model"
	"gorm.io/gorm"
)

const hierarchyKeyPrefix = "hierarchy:"

// HierarchyCache stores hierarchy listings; satisfied by cache.RedisCache
type HierarchyCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

// LocationService resolves, creates and renames nodes of the six-level
// location hierarchy. Deletes and restores are delegated to the cascade engine.
type LocationService struct {
	db       *gorm.DB
	cascade  *CascadeService
	cache    HierarchyCache
	cacheTTL time.Duration
}

// NewLocationService creates a new location service
func NewLocationService(db *gorm.DB, cascade *CascadeService) *LocationService {
	return &LocationService{
		db:      db,
		cascade: cascade,
	}
}

// WithCache enables caching of hierarchy listings
func (s *LocationService) WithCache(cache HierarchyCache, ttl time.Duration) *LocationService {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// DefaultDivisionName is the synthetic division that holds districts added
// directly under a country.
func DefaultDivisionName(countryName string) string {
	return "Default Division - " + countryName
}

// Resolve returns the id of the active node called name at level, scoped to
// parentID when one is given. Calling it twice with the same arguments yields
// the same id.
func (s *LocationService) Resolve(ctx context.Context, level model.LocationLevel, name string, parentID *uint) (uint, error) {
	if !level.Valid() {
		return 0, ErrInvalidLevel
	}
	return resolveLocation(s.db.WithContext(ctx), level, name, parentID)
}

// ResolveDistrictInCountry finds a district under any division of the country
func (s *LocationService) ResolveDistrictInCountry(ctx context.Context, name string, countryID uint) (uint, error) {
	districtID, _, err := resolveDistrictInCountry(s.db.WithContext(ctx), name, countryID)
	return districtID, err
}

// ResolveOrCreateDefaultDivision returns the synthetic division of a country,
// creating it on first use.
func (s *LocationService) ResolveOrCreateDefaultDivision(ctx context.Context, countryID uint, countryName string) (uint, error) {
	var divisionID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		divisionID, err = resolveOrCreateDefaultDivision(tx, countryID, countryName)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.InvalidateHierarchy(ctx)
	return divisionID, nil
}

func resolveLocation(tx *gorm.DB, level model.LocationLevel, name string, parentID *uint) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: empty %s name", ErrNotFound, level)
	}

	query := fmt.Sprintf("SELECT id FROM %s WHERE name = ? AND deleted_at IS NULL", level.Table())
	args := []interface{}{name}
	if parentID != nil && level.ParentColumn() != "" {
		query += fmt.Sprintf(" AND %s = ?", level.ParentColumn())
		args = append(args, *parentID)
	}
	query += " ORDER BY id LIMIT 1"

	var ids []uint
	if err := tx.Raw(query, args...).Scan(&ids).Error; err != nil {
		return 0, fmt.Errorf("failed to resolve %s %q: %w", level, name, err)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrNotFound, level, name)
	}
	return ids[0], nil
}

func resolveDistrictInCountry(tx *gorm.DB, name string, countryID uint) (districtID, divisionID uint, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, 0, fmt.Errorf("%w: empty district name", ErrNotFound)
	}

	var rows []struct {
		ID         uint
		DivisionID uint
	}
	err = tx.Raw(`SELECT d.id, d.division_id FROM districts d
		JOIN divisions v ON v.id = d.division_id
		WHERE d.name = ? AND v.country_id = ? AND d.deleted_at IS NULL AND v.deleted_at IS NULL
		ORDER BY d.id LIMIT 1`, name, countryID).Scan(&rows).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to resolve district %q in country %d: %w", name, countryID, err)
	}
	if len(rows) == 0 {
		return 0, 0, fmt.Errorf("%w: district %q in country %d", ErrNotFound, name, countryID)
	}
	return rows[0].ID, rows[0].DivisionID, nil
}

func resolveOrCreateDefaultDivision(tx *gorm.DB, countryID uint, countryName string) (uint, error) {
	name := DefaultDivisionName(strings.TrimSpace(countryName))

	id, err := resolveLocation(tx, model.LevelDivision, name, &countryID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	// A soft-deleted synthetic division still holds its name; bring it back
	// instead of colliding with it.
	var deleted model.Division
	err = tx.Unscoped().
		Where("country_id = ? AND name = ? AND deleted_at IS NOT NULL", countryID, name).
		First(&deleted).Error
	if err == nil {
		revive := tx.Exec("UPDATE divisions SET deleted_at = NULL, delete_batch = NULL WHERE id = ?", deleted.ID)
		if revive.Error != nil {
			return 0, fmt.Errorf("failed to restore %q: %w", name, revive.Error)
		}
		log.Infof("restored synthetic division %q for country %d", name, countryID)
		return deleted.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to look up deleted %q: %w", name, err)
	}

	division := model.Division{CountryID: countryID, Name: name}
	if err := tx.Create(&division).Error; err != nil {
		return 0, classifyWriteError(err, "create %q", name)
	}
	log.Infof("created synthetic division %q for country %d", name, countryID)
	return division.ID, nil
}

// AddLocation inserts a node named name under the node called parentName one
// level up. Districts are added under a country and land in its synthetic
// division.
func (s *LocationService) AddLocation(ctx context.Context, rawLevel, name, parentName string) (*model.LocationNode, error) {
	level, err := parseLevel(rawLevel)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	parentName = strings.TrimSpace(parentName)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if level != model.LevelCountry && parentName == "" {
		return nil, fmt.Errorf("%w: parentName is required for %s", ErrInvalidInput, level)
	}

	var node *model.LocationNode
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parentID uint
		switch level {
		case model.LevelCountry:
		case model.LevelDistrict:
			countryID, err := resolveLocation(tx, model.LevelCountry, parentName, nil)
			if err != nil {
				return err
			}
			if parentID, err = resolveOrCreateDefaultDivision(tx, countryID, parentName); err != nil {
				return err
			}
		default:
			parent, _ := level.Parent()
			var err error
			if parentID, err = resolveLocation(tx, parent, parentName, nil); err != nil {
				return err
			}
		}

		id, err := createNode(tx, level, name, parentID)
		if err != nil {
			return err
		}
		node, err = loadNode(tx, level, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateHierarchy(ctx)
	return node, nil
}

func createNode(tx *gorm.DB, level model.LocationLevel, name string, parentID uint) (uint, error) {
	var (
		row interface{}
		id  func() uint
	)
	switch level {
	case model.LevelCountry:
		r := &model.Country{Name: name}
		row, id = r, func() uint { return r.ID }
	case model.LevelDivision:
		r := &model.Division{CountryID: parentID, Name: name}
		row, id = r, func() uint { return r.ID }
	case model.LevelDistrict:
		r := &model.District{DivisionID: parentID, Name: name}
		row, id = r, func() uint { return r.ID }
	case model.LevelUpazila:
		r := &model.Upazila{DistrictID: parentID, Name: name}
		row, id = r, func() uint { return r.ID }
	case model.LevelVillage:
		r := &model.Village{UpazilaID: parentID, Name: name}
		row, id = r, func() uint { return r.ID }
	case model.LevelHome:
		r := &model.Home{VillageID: parentID, Name: name}
		row, id = r, func() uint { return r.ID }
	default:
		return 0, ErrInvalidLevel
	}

	if err := tx.Create(row).Error; err != nil {
		return 0, classifyWriteError(err, "%s %q already exists under this parent", level, name)
	}
	return id(), nil
}

// RenameLocation renames the active node oldName at level. The update is scoped
// to parentName; districts are scoped through their division's country. An
// empty parentName renames every match across the tree.
func (s *LocationService) RenameLocation(ctx context.Context, rawLevel, oldName, newName, parentName string) (*model.LocationNode, error) {
	level, err := parseLevel(rawLevel)
	if err != nil {
		return nil, err
	}
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	parentName = strings.TrimSpace(parentName)
	if oldName == "" || newName == "" {
		return nil, fmt.Errorf("%w: oldName and newName are required", ErrInvalidInput)
	}

	var node *model.LocationNode
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		where := "name = ? AND deleted_at IS NULL"
		args := []interface{}{oldName}

		switch {
		case level == model.LevelCountry:
		case parentName == "":
			log.Warnf("renaming every %s named %q: no parent scope given", level, oldName)
		case level == model.LevelDistrict:
			countryID, err := resolveLocation(tx, model.LevelCountry, parentName, nil)
			if err != nil {
				return err
			}
			where += " AND division_id IN (SELECT id FROM divisions WHERE country_id = ?)"
			args = append(args, countryID)
		default:
			parent, _ := level.Parent()
			parentID, err := resolveLocation(tx, parent, parentName, nil)
			if err != nil {
				return err
			}
			where += fmt.Sprintf(" AND %s = ?", level.ParentColumn())
			args = append(args, parentID)
		}

		var ids []uint
		query := fmt.Sprintf("SELECT id FROM %s WHERE %s ORDER BY id", level.Table(), where)
		if err := tx.Raw(query, args...).Scan(&ids).Error; err != nil {
			return fmt.Errorf("failed to find %s %q: %w", level, oldName, err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("%w: %s %q", ErrNotFound, level, oldName)
		}

		now := time.Now().UTC()
		update := fmt.Sprintf("UPDATE %s SET name = ?, updated_at = ? WHERE id IN ?", level.Table())
		if err := tx.Exec(update, newName, now, ids).Error; err != nil {
			return classifyWriteError(err, "%s %q already exists under this parent", level, newName)
		}

		// the synthetic division follows its country's name
		if level == model.LevelCountry {
			err := tx.Exec("UPDATE divisions SET name = ?, updated_at = ? WHERE country_id IN ? AND name = ?",
				DefaultDivisionName(newName), now, ids, DefaultDivisionName(oldName)).Error
			if err != nil {
				return classifyWriteError(err, "%q already exists", DefaultDivisionName(newName))
			}
		}

		var err error
		node, err = loadNode(tx, level, ids[0], false)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateHierarchy(ctx)
	return node, nil
}

// ListChildren returns the names at level under parentName in ascending order.
// Countries ignore parentName. An unresolvable parent yields an empty list.
func (s *LocationService) ListChildren(ctx context.Context, rawLevel, parentName string) ([]string, error) {
	level, err := parseLevel(rawLevel)
	if err != nil {
		return nil, err
	}
	parentName = strings.TrimSpace(parentName)
	if level == model.LevelCountry {
		parentName = ""
	}

	key := hierarchyKeyPrefix + string(level) + ":" + parentName
	if s.cache != nil {
		var cached []string
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			hierarchyCacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		}
		hierarchyCacheLookups.WithLabelValues("miss").Inc()
	}

	names, err := s.listChildren(s.db.WithContext(ctx), level, parentName)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, names, s.cacheTTL); err != nil {
			log.Warnf("failed to cache %s: %v", key, err)
		}
	}
	return names, nil
}

func (s *LocationService) listChildren(tx *gorm.DB, level model.LocationLevel, parentName string) ([]string, error) {
	names := []string{}

	var (
		query string
		args  []interface{}
	)
	switch level {
	case model.LevelCountry:
		query = "SELECT name FROM countries WHERE deleted_at IS NULL ORDER BY name"
	case model.LevelDistrict:
		countryID, err := resolveLocation(tx, model.LevelCountry, parentName, nil)
		if errors.Is(err, ErrNotFound) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		query = `SELECT DISTINCT d.name FROM districts d
			JOIN divisions v ON v.id = d.division_id
			WHERE v.country_id = ? AND d.deleted_at IS NULL AND v.deleted_at IS NULL
			ORDER BY d.name`
		args = []interface{}{countryID}
	default:
		parent, _ := level.Parent()
		parentID, err := resolveLocation(tx, parent, parentName, nil)
		if errors.Is(err, ErrNotFound) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		query = fmt.Sprintf("SELECT name FROM %s WHERE %s = ? AND deleted_at IS NULL ORDER BY name", level.Table(), level.ParentColumn())
		args = []interface{}{parentID}
	}

	if err := tx.Raw(query, args...).Scan(&names).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s under %q: %w", level.Table(), parentName, err)
	}
	return names, nil
}

// GetLocation returns an active node
func (s *LocationService) GetLocation(ctx context.Context, rawLevel string, id uint) (*model.LocationNode, error) {
	level, err := parseLevel(rawLevel)
	if err != nil {
		return nil, err
	}
	return loadNode(s.db.WithContext(ctx), level, id, false)
}

// SoftDelete removes a node and everything under it, members included
func (s *LocationService) SoftDelete(ctx context.Context, rawLevel string, id uint) (*CascadeResult, error) {
	level, err := parseLevel(rawLevel)
	if err != nil {
		return nil, err
	}

	result, err := s.cascade.SoftDeleteLocation(ctx, level, id)
	if err != nil {
		return nil, err
	}
	s.InvalidateHierarchy(ctx)
	return result, nil
}

// Restore brings a deleted node back together with the rows its deletion took down
func (s *LocationService) Restore(ctx context.Context, rawLevel string, id uint) (*RestoreResult, error) {
	level, err := parseLevel(rawLevel)
	if err != nil {
		return nil, err
	}

	result, err := s.cascade.Restore(ctx, level.Table(), id)
	if err != nil {
		return nil, err
	}
	s.InvalidateHierarchy(ctx)
	return result, nil
}

// InvalidateHierarchy drops every cached listing
func (s *LocationService) InvalidateHierarchy(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.DeletePattern(ctx, hierarchyKeyPrefix+"*"); err != nil {
		log.Warnf("failed to invalidate hierarchy cache: %v", err)
	}
}
