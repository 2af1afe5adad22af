package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/projenitor/projenitor-api/model"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means the target row does not exist (or, for restore, is not deleted)
	ErrNotFound = errors.New("not found")
	// ErrConflict means a unique constraint rejected the write
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput covers malformed requests, unknown levels and unknown tables
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidLevel = fmt.Errorf("%w: unrecognized location level", ErrInvalidInput)
	ErrInvalidTable = fmt.Errorf("%w: table is not restorable", ErrInvalidInput)
)

const uniqueViolationCode = "23505"

func parseLevel(raw string) (model.LocationLevel, error) {
	level, err := model.ParseLocationLevel(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, raw)
	}
	return level, nil
}

func parseTable(raw string) (model.Table, error) {
	table, err := model.ParseTable(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTable, raw)
	}
	return table, nil
}

// isUniqueViolation recognises duplicate-key errors from every driver the store runs on
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
		return true
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// classifyWriteError turns store errors into the service error taxonomy
func classifyWriteError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
