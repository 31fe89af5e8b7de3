package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hall-pass/internal/fault"
	"github.com/iliyamo/hall-pass/internal/model"
)

// ProfileRepo reads and writes directory records in the `profiles`
// table.  The profile is the authoritative role/school binding for a
// user and is re-fetched on every authenticated request.
type ProfileRepo struct{ db *sql.DB }

// NewProfileRepo returns a new ProfileRepo bound to the given database.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileColumns = `user_id, school_id, role, first_name, last_name, created_at, updated_at`

func scanProfile(row *sql.Row) (*model.Profile, error) {
	var p model.Profile
	var role string
	err := row.Scan(&p.UserID, &p.SchoolID, &role, &p.FirstName, &p.LastName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r, ok := model.ParseRole(role)
	if !ok {
		// A row with an unknown role is as good as no profile at all.
		return nil, fault.ErrProfileNotFound
	}
	p.Role = r
	return &p, nil
}

// GetByUserID returns the profile for a verified identity.  A missing
// row yields fault.ErrProfileNotFound so callers can distinguish "no
// role/school record" from authentication and authorization failures.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fault.ErrProfileNotFound
		}
		if errors.Is(err, fault.ErrProfileNotFound) {
			return nil, err
		}
		return nil, storeErr(err)
	}
	return p, nil
}

// GetStudent returns the profile for the given user id only when it
// exists and carries the student role.  It is used by IssuePass to
// validate the target of a staff-issued pass; a row with a non-student
// role yields fault.ErrValidation, a missing row fault.ErrNotFound.
func (r *ProfileRepo) GetStudent(ctx context.Context, userID uint64) (*model.Profile, error) {
	p, err := r.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, fault.ErrProfileNotFound) {
			return nil, fault.ErrNotFound
		}
		return nil, err
	}
	if p.Role != model.RoleStudent {
		return nil, fault.ErrValidation
	}
	return p, nil
}

// CreateTx inserts a profile row inside an existing transaction.  It
// is called together with the user insert during registration so the
// credential and directory records appear atomically.
func (r *ProfileRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Profile) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, school_id, role, first_name, last_name) VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.SchoolID, string(p.Role), p.FirstName, p.LastName)
	return storeErr(err)
}
