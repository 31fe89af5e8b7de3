package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/hall-pass/internal/fault"
	"github.com/iliyamo/hall-pass/internal/model"
)

// PassRepo provides persistence for the `passes` table.  Status
// transitions are written as conditional updates (UPDATE ... WHERE
// status = <expected>): zero affected rows means the pass was not in
// the expected state, which the service layer reports as an invalid
// transition.  This keeps the state machine race-safe without
// long-lived locks; two concurrent approvals of the same pass cannot
// both succeed.
type PassRepo struct{ db *sql.DB }

// NewPassRepo returns a new PassRepo bound to the given database.
func NewPassRepo(db *sql.DB) *PassRepo { return &PassRepo{db: db} }

const passColumns = `id, school_id, student_id, location_id, status, created_at,
    requested_start_time, requested_end_time, actual_start_time, actual_end_time,
    duration_minutes, approver_id, approved_at, approval_notes,
    student_reason, admin_notes, is_summons, is_early_release, verification_code`

func scanPass(scan func(dest ...any) error) (*model.Pass, error) {
	var p model.Pass
	var status string
	var reqStart, reqEnd, actStart, actEnd, approvedAt sql.NullTime
	var duration sql.NullInt64
	var approver sql.NullInt64
	var apprNotes, reason, adminNotes, code sql.NullString
	err := scan(&p.ID, &p.SchoolID, &p.StudentID, &p.LocationID, &status, &p.CreatedAt,
		&reqStart, &reqEnd, &actStart, &actEnd,
		&duration, &approver, &approvedAt, &apprNotes,
		&reason, &adminNotes, &p.IsSummons, &p.IsEarlyRelease, &code)
	if err != nil {
		return nil, err
	}
	p.Status = model.PassStatus(status)
	p.RequestedStartTime = nullTime(reqStart)
	p.RequestedEndTime = nullTime(reqEnd)
	p.ActualStartTime = nullTime(actStart)
	p.ActualEndTime = nullTime(actEnd)
	if duration.Valid {
		d := int(duration.Int64)
		p.DurationMinutes = &d
	}
	if approver.Valid {
		a := uint64(approver.Int64)
		p.ApproverID = &a
	}
	p.ApprovedAt = nullTime(approvedAt)
	p.ApprovalNotes = nullStr(apprNotes)
	p.StudentReason = nullStr(reason)
	p.AdminNotes = nullStr(adminNotes)
	p.VerificationCode = nullStr(code)
	return &p, nil
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// CreateExclusive inserts a new pass while enforcing the
// one-active-pass rule.  Inside a transaction it locks the student's
// open passes (pending/approved/active) and refuses the insert with
// fault.ErrConflict when one exists.  The lock serializes concurrent
// requests for the same student so at most one insert wins; the table
// additionally carries a unique index over (student_id, open_flag) as
// a backstop.  On success the generated id and created_at are written
// back into p.
func (r *PassRepo) CreateExclusive(ctx context.Context, p *model.Pass) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var existing uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM passes
         WHERE student_id = ? AND status IN ('pending','approved','active')
         LIMIT 1 FOR UPDATE`, p.StudentID).Scan(&existing)
	switch {
	case err == nil:
		return fault.ErrConflict
	case err != sql.ErrNoRows:
		return storeErr(err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO passes
            (school_id, student_id, location_id, status,
             requested_start_time, requested_end_time, duration_minutes,
             approver_id, approved_at, approval_notes,
             student_reason, admin_notes, is_summons, is_early_release)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SchoolID, p.StudentID, p.LocationID, string(p.Status),
		p.RequestedStartTime, p.RequestedEndTime, p.DurationMinutes,
		p.ApproverID, p.ApprovedAt, p.ApprovalNotes,
		p.StudentReason, p.AdminNotes, p.IsSummons, p.IsEarlyRelease)
	if err != nil {
		return storeErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr(err)
	}
	p.ID = uint64(id)
	if err := tx.QueryRowContext(ctx,
		`SELECT created_at FROM passes WHERE id = ?`, p.ID).Scan(&p.CreatedAt); err != nil {
		return storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(err)
	}
	committed = true
	return nil
}

// GetByID returns a pass by id.  Missing rows map to fault.ErrNotFound.
func (r *PassRepo) GetByID(ctx context.Context, id uint64) (*model.Pass, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+passColumns+` FROM passes WHERE id = ?`, id)
	p, err := scanPass(row.Scan)
	if err != nil {
		return nil, storeErr(err)
	}
	return p, nil
}

// transition runs a conditional update and maps zero affected rows to
// fault.ErrInvalidTransition.  The service layer has already verified
// the precondition on a fresh read; a zero here means the pass moved
// concurrently.
func (r *PassRepo) transition(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fault.ErrInvalidTransition
	}
	return nil
}

// Approve moves a pending pass to approved, recording the approver and
// timestamp together.
func (r *PassRepo) Approve(ctx context.Context, id, approverID uint64, at time.Time, notes *string) error {
	return r.transition(ctx,
		`UPDATE passes
         SET status = 'approved', approver_id = ?, approved_at = ?, approval_notes = ?
         WHERE id = ? AND status = 'pending'`,
		approverID, at, notes, id)
}

// Deny moves a pending pass to the terminal denied state.
func (r *PassRepo) Deny(ctx context.Context, id, approverID uint64, at time.Time, notes *string) error {
	return r.transition(ctx,
		`UPDATE passes
         SET status = 'denied', approver_id = ?, approved_at = ?, approval_notes = ?
         WHERE id = ? AND status = 'pending'`,
		approverID, at, notes, id)
}

// Activate moves an approved pass to active, stamping the actual start
// time and the verification code.  The code column is unique, so a
// generated collision surfaces as an error instead of a reused code.
func (r *PassRepo) Activate(ctx context.Context, id uint64, at time.Time, code string) error {
	return r.transition(ctx,
		`UPDATE passes
         SET status = 'active', actual_start_time = ?, verification_code = ?
         WHERE id = ? AND status = 'approved'`,
		at, code, id)
}

// Complete moves an active pass to completed.  The stored duration is
// recomputed from the observed start/end pair when the start is
// present; otherwise the originally requested duration stands.
func (r *PassRepo) Complete(ctx context.Context, id uint64, at time.Time) error {
	return r.transition(ctx,
		`UPDATE passes
         SET status = 'completed',
             actual_end_time = ?,
             duration_minutes = CASE
                 WHEN actual_start_time IS NOT NULL
                 THEN GREATEST(TIMESTAMPDIFF(MINUTE, actual_start_time, ?), 0)
                 ELSE duration_minutes
             END
         WHERE id = ? AND status = 'active'`,
		at, at, id)
}

// Expire moves an approved or active pass to the terminal expired
// state.  It is driven by the sweeper, never by users.
func (r *PassRepo) Expire(ctx context.Context, id uint64) error {
	return r.transition(ctx,
		`UPDATE passes
         SET status = 'expired'
         WHERE id = ? AND status IN ('approved','active')`,
		id)
}

// ListOverdueIDs returns the ids of approved/active passes whose end
// time plus the owning school's grace period lies before now.  Passes
// without a requested end time never expire automatically.
func (r *PassRepo) ListOverdueIDs(ctx context.Context, now time.Time) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id
         FROM passes p
         JOIN schools s ON s.id = p.school_id
         WHERE p.status IN ('approved','active')
           AND p.requested_end_time IS NOT NULL
           AND DATE_ADD(p.requested_end_time, INTERVAL s.grace_period_minutes MINUTE) < ?`,
		now)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return ids, nil
}

// PassDetail is a pass joined with the display names the API returns:
// the student's name, the location's name and (when set) the
// approver's name.
type PassDetail struct {
	model.Pass
	StudentName  string
	LocationName string
	ApproverName *string
}

const passDetailQuery = `
    SELECT p.id, p.school_id, p.student_id, p.location_id, p.status, p.created_at,
           p.requested_start_time, p.requested_end_time, p.actual_start_time, p.actual_end_time,
           p.duration_minutes, p.approver_id, p.approved_at, p.approval_notes,
           p.student_reason, p.admin_notes, p.is_summons, p.is_early_release, p.verification_code,
           CONCAT(st.first_name, ' ', st.last_name),
           l.name,
           CONCAT(ap.first_name, ' ', ap.last_name)
    FROM passes p
    JOIN profiles st ON st.user_id = p.student_id
    JOIN locations l ON l.id = p.location_id
    LEFT JOIN profiles ap ON ap.user_id = p.approver_id`

func scanPassDetail(scan func(dest ...any) error) (*PassDetail, error) {
	var d PassDetail
	var status string
	var reqStart, reqEnd, actStart, actEnd, approvedAt sql.NullTime
	var duration sql.NullInt64
	var approver sql.NullInt64
	var apprNotes, reason, adminNotes, code, approverName sql.NullString
	err := scan(&d.ID, &d.SchoolID, &d.StudentID, &d.LocationID, &status, &d.CreatedAt,
		&reqStart, &reqEnd, &actStart, &actEnd,
		&duration, &approver, &approvedAt, &apprNotes,
		&reason, &adminNotes, &d.IsSummons, &d.IsEarlyRelease, &code,
		&d.StudentName, &d.LocationName, &approverName)
	if err != nil {
		return nil, err
	}
	d.Status = model.PassStatus(status)
	d.RequestedStartTime = nullTime(reqStart)
	d.RequestedEndTime = nullTime(reqEnd)
	d.ActualStartTime = nullTime(actStart)
	d.ActualEndTime = nullTime(actEnd)
	if duration.Valid {
		v := int(duration.Int64)
		d.DurationMinutes = &v
	}
	if approver.Valid {
		a := uint64(approver.Int64)
		d.ApproverID = &a
	}
	d.ApprovedAt = nullTime(approvedAt)
	d.ApprovalNotes = nullStr(apprNotes)
	d.StudentReason = nullStr(reason)
	d.AdminNotes = nullStr(adminNotes)
	d.VerificationCode = nullStr(code)
	d.ApproverName = nullStr(approverName)
	return &d, nil
}

// GetDetail returns one pass with its display names joined in.
func (r *PassRepo) GetDetail(ctx context.Context, id uint64) (*PassDetail, error) {
	row := r.db.QueryRowContext(ctx, passDetailQuery+` WHERE p.id = ?`, id)
	d, err := scanPassDetail(row.Scan)
	if err != nil {
		return nil, storeErr(err)
	}
	return d, nil
}

func (r *PassRepo) listDetails(ctx context.Context, query string, args ...any) ([]PassDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	out := make([]PassDetail, 0)
	for rows.Next() {
		d, err := scanPassDetail(rows.Scan)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// ListByStudent returns a student's passes, newest first, optionally
// filtered by status.
func (r *PassRepo) ListByStudent(ctx context.Context, studentID uint64, status *model.PassStatus) ([]PassDetail, error) {
	q := passDetailQuery + ` WHERE p.student_id = ?`
	args := []any{studentID}
	if status != nil {
		q += ` AND p.status = ?`
		args = append(args, string(*status))
	}
	q += ` ORDER BY p.created_at DESC`
	return r.listDetails(ctx, q, args...)
}

// ListBySchool returns a school's passes, newest first, optionally
// filtered by status and by a case-insensitive student name fragment.
func (r *PassRepo) ListBySchool(ctx context.Context, schoolID uint64, status *model.PassStatus, studentName string) ([]PassDetail, error) {
	q := passDetailQuery + ` WHERE p.school_id = ?`
	args := []any{schoolID}
	if status != nil {
		q += ` AND p.status = ?`
		args = append(args, string(*status))
	}
	if name := strings.TrimSpace(studentName); name != "" {
		q += ` AND LOWER(CONCAT(st.first_name, ' ', st.last_name)) LIKE ?`
		args = append(args, "%"+strings.ToLower(name)+"%")
	}
	q += ` ORDER BY p.created_at DESC`
	return r.listDetails(ctx, q, args...)
}

// ListPendingBySchool returns the school's pending requests, oldest
// first, so approval queues drain in arrival order.
func (r *PassRepo) ListPendingBySchool(ctx context.Context, schoolID uint64) ([]PassDetail, error) {
	return r.listDetails(ctx,
		passDetailQuery+` WHERE p.school_id = ? AND p.status = 'pending' ORDER BY p.created_at`,
		schoolID)
}

// ActiveForStudent returns the student's active pass, or
// fault.ErrNotFound when none exists.
func (r *PassRepo) ActiveForStudent(ctx context.Context, studentID uint64) (*PassDetail, error) {
	row := r.db.QueryRowContext(ctx,
		passDetailQuery+` WHERE p.student_id = ? AND p.status = 'active' LIMIT 1`, studentID)
	d, err := scanPassDetail(row.Scan)
	if err != nil {
		return nil, storeErr(err)
	}
	return d, nil
}

// PassStatRow is the slim projection the analytics aggregator works
// on.  Fetching rows and computing windows in Go mirrors the read-only,
// eventually-consistent contract: no locks, no coordination.
type PassStatRow struct {
	CreatedAt       time.Time
	DurationMinutes *int
	ActualStartTime *time.Time
	ActualEndTime   *time.Time
	ApproverID      *uint64
}

const statColumns = `created_at, duration_minutes, actual_start_time, actual_end_time, approver_id`

func (r *PassRepo) listStats(ctx context.Context, query string, args ...any) ([]PassStatRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	out := make([]PassStatRow, 0)
	for rows.Next() {
		var s PassStatRow
		var duration sql.NullInt64
		var actStart, actEnd sql.NullTime
		var approver sql.NullInt64
		if err := rows.Scan(&s.CreatedAt, &duration, &actStart, &actEnd, &approver); err != nil {
			return nil, storeErr(err)
		}
		if duration.Valid {
			d := int(duration.Int64)
			s.DurationMinutes = &d
		}
		s.ActualStartTime = nullTime(actStart)
		s.ActualEndTime = nullTime(actEnd)
		if approver.Valid {
			a := uint64(approver.Int64)
			s.ApproverID = &a
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// StatsCreatedSince returns stat rows for all of a school's passes
// created at or after the given instant.
func (r *PassRepo) StatsCreatedSince(ctx context.Context, schoolID uint64, since time.Time) ([]PassStatRow, error) {
	return r.listStats(ctx,
		`SELECT `+statColumns+` FROM passes WHERE school_id = ? AND created_at >= ?`,
		schoolID, since)
}

// StatsByApprover returns stat rows for every pass the given staff
// member has approved or issued.
func (r *PassRepo) StatsByApprover(ctx context.Context, approverID uint64) ([]PassStatRow, error) {
	return r.listStats(ctx,
		`SELECT `+statColumns+` FROM passes WHERE approver_id = ?`,
		approverID)
}

// StatsApprovedBySchool returns stat rows for every pass in the school
// that carries an approver, across all time.  The aggregator derives
// the distinct-teacher divisor from these rows.
func (r *PassRepo) StatsApprovedBySchool(ctx context.Context, schoolID uint64) ([]PassStatRow, error) {
	return r.listStats(ctx,
		`SELECT `+statColumns+` FROM passes WHERE school_id = ? AND approver_id IS NOT NULL`,
		schoolID)
}
