package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/hall-pass/internal/model"
)

// LocationRepo provides CRUD operations for the `locations` table.
// Locations are owned by a school; the lifecycle manager only ever
// reads them, while administrators manage them through the admin
// endpoints.
type LocationRepo struct{ db *sql.DB }

// NewLocationRepo returns a new LocationRepo bound to the given database.
func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

const locationColumns = `id, school_id, name, room_number, default_duration, requires_approval,
    is_active, is_early_release_only, is_summons_only, created_at, updated_at`

func scanLocation(scan func(dest ...any) error) (*model.Location, error) {
	var l model.Location
	var room sql.NullString
	err := scan(&l.ID, &l.SchoolID, &l.Name, &room, &l.DefaultDuration, &l.RequiresApproval,
		&l.IsActive, &l.IsEarlyReleaseOnly, &l.IsSummonsOnly, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if room.Valid {
		v := room.String
		l.RoomNumber = &v
	}
	return &l, nil
}

// GetByID returns a location by id.  Missing rows map to
// fault.ErrNotFound; school scoping is the service layer's concern so
// that it can decide between validation and forbidden responses.
func (r *LocationRepo) GetByID(ctx context.Context, id uint64) (*model.Location, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	l, err := scanLocation(row.Scan)
	if err != nil {
		return nil, storeErr(err)
	}
	return l, nil
}

// ListBySchool returns the school's locations ordered by name.  When
// activeOnly is true, deactivated locations are filtered out.
func (r *LocationRepo) ListBySchool(ctx context.Context, schoolID uint64, activeOnly bool) ([]model.Location, error) {
	q := `SELECT ` + locationColumns + ` FROM locations WHERE school_id = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, schoolID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	out := make([]model.Location, 0)
	for rows.Next() {
		l, err := scanLocation(rows.Scan)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// Create inserts a location and returns the stored row.
func (r *LocationRepo) Create(ctx context.Context, l *model.Location) (*model.Location, error) {
	name := strings.TrimSpace(l.Name)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO locations
            (school_id, name, room_number, default_duration, requires_approval,
             is_active, is_early_release_only, is_summons_only)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.SchoolID, name, l.RoomNumber, l.DefaultDuration, l.RequiresApproval,
		l.IsActive, l.IsEarlyReleaseOnly, l.IsSummonsOnly)
	if err != nil {
		return nil, storeErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storeErr(err)
	}
	return r.GetByID(ctx, uint64(id))
}

// LocationUpdate carries admin-editable location fields.  Nil fields
// are left unchanged.
type LocationUpdate struct {
	Name               *string
	RoomNumber         *string
	DefaultDuration    *int
	RequiresApproval   *bool
	IsActive           *bool
	IsEarlyReleaseOnly *bool
	IsSummonsOnly      *bool
}

// UpdateForSchool applies the non-nil fields of upd to a location,
// restricted to the given school.  When the location exists in another
// school the caller sees fault.ErrNotFound rather than a hint that the
// id is taken elsewhere.
func (r *LocationRepo) UpdateForSchool(ctx context.Context, id, schoolID uint64, upd LocationUpdate) (*model.Location, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE locations SET
            name = COALESCE(?, name),
            room_number = COALESCE(?, room_number),
            default_duration = COALESCE(?, default_duration),
            requires_approval = COALESCE(?, requires_approval),
            is_active = COALESCE(?, is_active),
            is_early_release_only = COALESCE(?, is_early_release_only),
            is_summons_only = COALESCE(?, is_summons_only)
         WHERE id = ? AND school_id = ?`,
		upd.Name, upd.RoomNumber, upd.DefaultDuration, upd.RequiresApproval,
		upd.IsActive, upd.IsEarlyReleaseOnly, upd.IsSummonsOnly, id, schoolID)
	if err != nil {
		return nil, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, storeErr(err)
	}
	if n == 0 {
		// Either absent or out of school; both read as not found.
		if _, err := r.getForSchool(ctx, id, schoolID); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *LocationRepo) getForSchool(ctx context.Context, id, schoolID uint64) (*model.Location, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = ? AND school_id = ?`, id, schoolID)
	l, err := scanLocation(row.Scan)
	if err != nil {
		return nil, storeErr(err)
	}
	return l, nil
}

// Deactivate marks a location inactive within the given school.
// Locations are never deleted because historical passes reference
// them; deactivation just stops new passes.
func (r *LocationRepo) Deactivate(ctx context.Context, id, schoolID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE locations SET is_active = 0 WHERE id = ? AND school_id = ?`, id, schoolID)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		if _, err := r.getForSchool(ctx, id, schoolID); err != nil {
			return err
		}
	}
	return nil
}
