// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// PassCompletedEvent is published when a hall pass reaches the
// completed state.  It carries enough information for downstream
// consumers to log, notify, or feed analytics without querying the
// primary database.
type PassCompletedEvent struct {
	PassID          uint64 `json:"pass_id"`
	SchoolID        uint64 `json:"school_id"`
	StudentID       uint64 `json:"student_id"`
	StudentName     string `json:"student_name"`
	LocationID      uint64 `json:"location_id"`
	LocationName    string `json:"location_name"`
	DurationMinutes int    `json:"duration_minutes"`
	IsSummons       bool   `json:"is_summons"`
	IsEarlyRelease  bool   `json:"is_early_release"`
	CompletedAt     string `json:"completed_at"`
}
