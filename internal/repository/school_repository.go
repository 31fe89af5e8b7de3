package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hall-pass/internal/model"
)

// SchoolRepo provides read access and settings updates for the
// `schools` table.  Schools are created out of band (seeding or a
// future provisioning flow); the API only ever reads them or adjusts
// their settings.
type SchoolRepo struct{ db *sql.DB }

// NewSchoolRepo returns a new SchoolRepo bound to the given database.
func NewSchoolRepo(db *sql.DB) *SchoolRepo { return &SchoolRepo{db: db} }

const schoolColumns = `id, name, default_pass_duration, grace_period_minutes, timezone, created_at, updated_at`

// GetByID returns a school by id.  Missing rows map to fault.ErrNotFound.
func (r *SchoolRepo) GetByID(ctx context.Context, id uint64) (*model.School, error) {
	var s model.School
	err := r.db.QueryRowContext(ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.DefaultPassDuration, &s.GracePeriodMinutes, &s.Timezone, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, storeErr(err)
	}
	return &s, nil
}

// SchoolSettingsUpdate carries the admin-editable school settings.
// Nil fields are left unchanged.
type SchoolSettingsUpdate struct {
	Name                *string
	DefaultPassDuration *int
	GracePeriodMinutes  *int
	Timezone            *string
}

// UpdateSettings applies the non-nil fields of upd to the school and
// returns the updated row.
func (r *SchoolRepo) UpdateSettings(ctx context.Context, id uint64, upd SchoolSettingsUpdate) (*model.School, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE schools SET
            name = COALESCE(?, name),
            default_pass_duration = COALESCE(?, default_pass_duration),
            grace_period_minutes = COALESCE(?, grace_period_minutes),
            timezone = COALESCE(?, timezone)
         WHERE id = ?`,
		upd.Name, upd.DefaultPassDuration, upd.GracePeriodMinutes, upd.Timezone, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return r.GetByID(ctx, id)
}
