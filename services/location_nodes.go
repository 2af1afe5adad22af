package services

import (
	"fmt"
	"strings"

	"github.com/projenitor/projenitor-api/model"
	"gorm.io/gorm"
)

// nodeColumns selects a location row in LocationNode shape, aliasing the
// level's parent column to parent_id (NULL for countries).
func nodeColumns(level model.LocationLevel, alias string) string {
	parent := "NULL"
	if pc := level.ParentColumn(); pc != "" {
		parent = alias + "." + pc
	}
	return fmt.Sprintf("%[1]s.id, %[1]s.name, %[2]s AS parent_id, %[1]s.created_at, %[1]s.updated_at, %[1]s.deleted_at", alias, parent)
}

func loadNode(tx *gorm.DB, level model.LocationLevel, id uint, includeDeleted bool) (*model.LocationNode, error) {
	query := fmt.Sprintf("SELECT %s FROM %s t WHERE t.id = ?", nodeColumns(level, "t"), level.Table())
	if !includeDeleted {
		query += " AND t.deleted_at IS NULL"
	}

	var nodes []model.LocationNode
	if err := tx.Raw(query, id).Scan(&nodes).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s %d: %w", level, id, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, level, id)
	}

	node := nodes[0]
	node.Level = level
	return &node, nil
}

// subtreeFilter returns a WHERE condition selecting the rows of target that sit
// under rootID at root. target must be root or a level below it. The traversal
// ignores deleted_at so rows under an already deleted intermediate are reached.
func subtreeFilter(root model.LocationLevel, rootID uint, target model.LocationLevel) (string, []interface{}) {
	if target == root {
		return "id = ?", []interface{}{rootID}
	}

	parent, _ := target.Parent()
	if parent == root {
		return target.ParentColumn() + " = ?", []interface{}{rootID}
	}

	inner, args := subtreeFilter(root, rootID, parent)
	return fmt.Sprintf("%s IN (SELECT id FROM %s WHERE %s)", target.ParentColumn(), parent.Table(), inner), args
}

// memberSubtreeFilter selects members attached at root or anywhere below it
func memberSubtreeFilter(root model.LocationLevel, rootID uint) (string, []interface{}) {
	levels := append([]model.LocationLevel{root}, root.Below()...)

	conditions := make([]string, 0, len(levels))
	var args []interface{}
	for _, level := range levels {
		if level == root {
			conditions = append(conditions, level.MemberColumn()+" = ?")
			args = append(args, rootID)
			continue
		}
		inner, innerArgs := subtreeFilter(root, rootID, level)
		conditions = append(conditions, fmt.Sprintf("%s IN (SELECT id FROM %s WHERE %s)", level.MemberColumn(), level.Table(), inner))
		args = append(args, innerArgs...)
	}

	return "(" + strings.Join(conditions, " OR ") + ")", args
}
