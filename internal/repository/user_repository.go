package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hall-pass/internal/fault"
	"github.com/iliyamo/hall-pass/internal/model"
	"github.com/iliyamo/hall-pass/internal/utils"
)

// UserRepo persists credential records in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = `id, email, password_hash, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateWithProfile inserts the credential row and its directory
// profile in one transaction so a user never exists without a role
// and school binding.  Returns the new user id.
func (r *UserRepo) CreateWithProfile(ctx context.Context, email, password string, cost int, profile *model.Profile) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES (?,?)",
		email, hash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, storeErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr(err)
	}
	profile.UserID = uint64(id)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO profiles (user_id, school_id, role, first_name, last_name) VALUES (?,?,?,?,?)",
		profile.UserID, profile.SchoolID, string(profile.Role), profile.FirstName, profile.LastName); err != nil {
		return 0, storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr(err)
	}
	committed = true
	return profile.UserID, nil
}

// GetByEmail fetches a user by normalized email.  A missing row maps
// to fault.ErrAuthenticationFailed so login handlers never leak which
// part of the credential pair was wrong.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fault.ErrAuthenticationFailed
		}
		return nil, storeErr(err)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
	if err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}
