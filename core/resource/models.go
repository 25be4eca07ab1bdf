package resource

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

// Kind identifies one of the managed entity types.
type Kind string

const (
	KindStaff   Kind = "staff"
	KindTeacher Kind = "teacher"
	KindStudent Kind = "student"
	KindGroup   Kind = "group"
	KindCourse  Kind = "course"
)

var AllKinds = []Kind{KindStaff, KindTeacher, KindStudent, KindGroup, KindCourse}

func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsPerson reports whether records of this kind represent a person
// with an employment/enrollment timeline.
func (k Kind) IsPerson() bool {
	return k == KindStaff || k == KindTeacher || k == KindStudent
}

// State is the lifecycle state of a record. It is always derived from the
// record's stored fields (see Record.StateAt), never stored on its own.
type State string

const (
	StateActive     State = "active"
	StateOnLeave    State = "on_leave"
	StateTerminated State = "terminated"
	StateDeleted    State = "deleted"
	StateFrozen     State = "frozen" // group/course only; "unfrozen" is a synonym for active
)

// LeaveEntry is one interval in a record's leave history. The history is
// append-only: returning early stamps ReturnedAt, Start/End keep their
// original values.
type LeaveEntry struct {
	Start      time.Time `json:"start"`
	End        null.Time `json:"end"`
	Reason     string    `json:"reason"`
	ReturnedAt null.Time `json:"returned_at"`
}

// Open reports whether the entry covers `now` and has not been returned from.
func (le LeaveEntry) Open(now time.Time) bool {
	if le.ReturnedAt.Valid {
		return false
	}
	if now.Before(le.Start) {
		return false
	}
	return !le.End.Valid || le.End.Time.After(now)
}

// Record is one instance of a managed entity.
type Record struct {
	ID            string       `db:"id" json:"id"`
	Kind          Kind         `db:"kind" json:"kind"`
	Name          string       `db:"name" json:"name"`
	Email         string       `db:"email" json:"email,omitempty"` // person kinds only
	Role          string       `db:"role" json:"role,omitempty"`   // person kinds only
	WorkStartedAt null.Time    `db:"work_started_at" json:"work_started_at"`
	WorkEndedAt   null.Time    `db:"work_ended_at" json:"work_ended_at"`
	FrozenAt      null.Time    `db:"frozen_at" json:"frozen_at"` // group/course only
	LeaveHistory  []LeaveEntry `db:"-" json:"leave_history,omitempty"`
	SoftDeleted   bool         `db:"soft_deleted" json:"soft_deleted"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"` // UTC, server-assigned
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"` // UTC, server-assigned
}

// State derives the lifecycle state as of now.
func (r Record) State() State {
	return r.StateAt(NowFunc().UTC())
}

// StateAt derives the lifecycle state from the stored fields; precedence is
// deleted > frozen > terminated > on_leave > active.
func (r Record) StateAt(now time.Time) State {
	if r.SoftDeleted {
		return StateDeleted
	}
	if r.FrozenAt.Valid {
		return StateFrozen
	}
	if r.WorkEndedAt.Valid {
		return StateTerminated
	}
	if r.openLeave(now) != nil {
		return StateOnLeave
	}
	return StateActive
}

func (r *Record) openLeave(now time.Time) *LeaveEntry {
	for i := range r.LeaveHistory {
		if r.LeaveHistory[i].Open(now) {
			return &r.LeaveHistory[i]
		}
	}
	return nil
}
