package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/hall-pass/internal/repository"
)

// StatStore is the read surface the aggregator needs.  All three
// queries are plain unlocked reads; the metrics are eventually
// consistent by contract and may trail in-flight writes.
type StatStore interface {
	StatsCreatedSince(ctx context.Context, schoolID uint64, since time.Time) ([]repository.PassStatRow, error)
	StatsByApprover(ctx context.Context, approverID uint64) ([]repository.PassStatRow, error)
	StatsApprovedBySchool(ctx context.Context, schoolID uint64) ([]repository.PassStatRow, error)
}

// AnalyticsService computes the time-windowed dashboard metrics.
// Numeric fields are pointers: nil means the window held no eligible
// passes, which is a different statement than zero activity and is
// flagged by DataAvailable on the payload.
type AnalyticsService struct {
	stats   StatStore
	schools SchoolStore

	Now func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(stats StatStore, schools SchoolStore) *AnalyticsService {
	if stats == nil || schools == nil {
		panic("nil store passed to NewAnalyticsService")
	}
	return &AnalyticsService{
		stats:   stats,
		schools: schools,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// PeakHour is one entry of the peak-hours ranking: an hour of the
// school's local day, its clock label, and how many passes were
// created in that hour over the trailing 30 days.
type PeakHour struct {
	Hour  int    `json:"hour"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AdminMetrics is the school-wide dashboard payload.
type AdminMetrics struct {
	TodayCount         *int       `json:"today_count"`
	WeekCount          *int       `json:"week_count"`
	MonthCount         *int       `json:"month_count"`
	AvgDurationMinutes *float64   `json:"avg_duration_minutes"`
	PeakHours          []PeakHour `json:"peak_hours"`
	DataAvailable      bool       `json:"data_available"`
}

// TeacherMetrics is the per-teacher dashboard payload, combining the
// teacher's own counts with school-wide per-teacher comparisons.
type TeacherMetrics struct {
	TeacherWeekCount         *int     `json:"teacher_week_count"`
	TeacherMonthCount        *int     `json:"teacher_month_count"`
	TeacherAvgDuration       *float64 `json:"teacher_avg_duration"`
	SchoolAvgWeekPerTeacher  *float64 `json:"school_avg_week_per_teacher"`
	SchoolAvgMonthPerTeacher *float64 `json:"school_avg_month_per_teacher"`
	SchoolAvgDuration        *float64 `json:"school_avg_duration"`
	DataAvailable            bool     `json:"data_available"`
}

// windows derives the three reporting cutoffs from now: start of the
// UTC day, and rolling 7- and 30-day horizons.  Week and month are
// deliberately not calendar-aligned.
func windows(now time.Time) (dayStart, weekStart, monthStart time.Time) {
	now = now.UTC()
	dayStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart = now.Add(-7 * 24 * time.Hour)
	monthStart = now.Add(-30 * 24 * time.Hour)
	return
}

// observedMinutes returns the duration a pass contributes to
// averages: the observed actual interval when both endpoints exist,
// else the stored requested duration, else nothing.
func observedMinutes(row repository.PassStatRow) (float64, bool) {
	if row.ActualStartTime != nil && row.ActualEndTime != nil {
		m := row.ActualEndTime.Sub(*row.ActualStartTime).Minutes()
		if m < 0 {
			m = 0
		}
		return m, true
	}
	if row.DurationMinutes != nil {
		return float64(*row.DurationMinutes), true
	}
	return 0, false
}

// avgDuration averages the eligible rows, returning nil when none
// carry a usable duration.  Counts elsewhere still include the
// ineligible rows.
func avgDuration(rows []repository.PassStatRow) *float64 {
	var sum float64
	n := 0
	for _, row := range rows {
		if m, ok := observedMinutes(row); ok {
			sum += m
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// hourLabel formats an hour-of-day as a 12-hour clock label.
func hourLabel(hour int) string {
	suffix := "AM"
	h := hour
	switch {
	case hour == 0:
		h = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		h = hour - 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:00 %s", h, suffix)
}

const peakHourLimit = 5

// peakHours buckets the rows by local creation hour and returns the
// top buckets by count, ties broken by the earlier hour.
func peakHours(rows []repository.PassStatRow, loc *time.Location) []PeakHour {
	var counts [24]int
	for _, row := range rows {
		counts[row.CreatedAt.In(loc).Hour()]++
	}
	out := make([]PeakHour, 0, 24)
	for hour, count := range counts {
		if count == 0 {
			continue
		}
		out = append(out, PeakHour{Hour: hour, Label: hourLabel(hour), Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Hour < out[j].Hour
	})
	if len(out) > peakHourLimit {
		out = out[:peakHourLimit]
	}
	return out
}

// schoolLocation loads the school's IANA timezone for hour bucketing,
// falling back to UTC when the zone is missing or unknown.
func (s *AnalyticsService) schoolLocation(ctx context.Context, schoolID uint64) *time.Location {
	school, err := s.schools.GetByID(ctx, schoolID)
	if err != nil || school.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(school.Timezone)
	if err != nil {
		log.Printf("analytics: unknown timezone %q for school %d, using UTC", school.Timezone, schoolID)
		return time.UTC
	}
	return loc
}

// ComputeAdminMetrics builds the school-wide dashboard numbers over
// the trailing 30 days.  An empty window yields DataAvailable=false
// with every numeric field nil; a window with passes but no usable
// durations still reports counts, with a nil average.
func (s *AnalyticsService) ComputeAdminMetrics(ctx context.Context, schoolID uint64) (*AdminMetrics, error) {
	now := s.Now()
	dayStart, weekStart, monthStart := windows(now)

	rows, err := s.stats.StatsCreatedSince(ctx, schoolID, monthStart)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &AdminMetrics{DataAvailable: false}, nil
	}

	today, week, month := 0, 0, 0
	for _, row := range rows {
		month++
		if !row.CreatedAt.Before(weekStart) {
			week++
		}
		if !row.CreatedAt.Before(dayStart) {
			today++
		}
	}

	return &AdminMetrics{
		TodayCount:         &today,
		WeekCount:          &week,
		MonthCount:         &month,
		AvgDurationMinutes: avgDuration(rows),
		PeakHours:          peakHours(rows, s.schoolLocation(ctx, schoolID)),
		DataAvailable:      true,
	}, nil
}

// ComputeTeacherMetrics builds the per-teacher dashboard numbers: the
// teacher's own rolling counts and duration average, next to the
// school-wide averages divided across every teacher who has ever
// approved a pass.  A school with zero approvals on record yields
// DataAvailable=false.
func (s *AnalyticsService) ComputeTeacherMetrics(ctx context.Context, teacherID, schoolID uint64) (*TeacherMetrics, error) {
	now := s.Now()
	_, weekStart, monthStart := windows(now)

	schoolRows, err := s.stats.StatsApprovedBySchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if len(schoolRows) == 0 {
		return &TeacherMetrics{DataAvailable: false}, nil
	}

	approvers := make(map[uint64]struct{})
	schoolWeek, schoolMonth := 0, 0
	for _, row := range schoolRows {
		if row.ApproverID != nil {
			approvers[*row.ApproverID] = struct{}{}
		}
		if !row.CreatedAt.Before(monthStart) {
			schoolMonth++
			if !row.CreatedAt.Before(weekStart) {
				schoolWeek++
			}
		}
	}
	divisor := float64(len(approvers))
	if divisor < 1 {
		divisor = 1
	}
	avgWeek := float64(schoolWeek) / divisor
	avgMonth := float64(schoolMonth) / divisor

	mineAll, err := s.stats.StatsByApprover(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	mineWeek, mineMonth := 0, 0
	mineWindow := make([]repository.PassStatRow, 0, len(mineAll))
	for _, row := range mineAll {
		if row.CreatedAt.Before(monthStart) {
			continue
		}
		mineWindow = append(mineWindow, row)
		mineMonth++
		if !row.CreatedAt.Before(weekStart) {
			mineWeek++
		}
	}

	return &TeacherMetrics{
		TeacherWeekCount:         &mineWeek,
		TeacherMonthCount:        &mineMonth,
		TeacherAvgDuration:       avgDuration(mineWindow),
		SchoolAvgWeekPerTeacher:  &avgWeek,
		SchoolAvgMonthPerTeacher: &avgMonth,
		SchoolAvgDuration:        avgDuration(schoolRows),
		DataAvailable:            true,
	}, nil
}
