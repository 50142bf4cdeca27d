package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrMappingNotFound signals that the requested mapping does not exist for the caller.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrDuplicateShortCode signals a unique index violation on mappings.short_code.
	ErrDuplicateShortCode = errors.New("short code already exists")
	// ErrStoreUnavailable marks timeouts and connection failures; callers may retry with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")
)

const pgUniqueViolation = "23505"

// DefaultTimeout bounds a single store operation when no timeout is configured.
const DefaultTimeout = 5 * time.Second

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrMappingNotFound
	case isDuplicate(err):
		return fmt.Errorf("%w: %v", ErrDuplicateShortCode, err)
	case isTransient(err):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
