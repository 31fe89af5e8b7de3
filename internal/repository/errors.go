// Package repository implements the data access layer on top of
// MySQL.  Every repository translates database failures into the
// shared fault sentinels before returning them, so the service layer
// never inspects driver errors: sql.ErrNoRows becomes
// fault.ErrNotFound and any other failure is wrapped as
// fault.ErrStoreUnavailable.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/hall-pass/internal/fault"
)

// storeErr maps a database error onto the fault taxonomy.  A nil
// error passes through untouched.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fault.ErrNotFound
	}
	return fmt.Errorf("%w: %v", fault.ErrStoreUnavailable, err)
}
