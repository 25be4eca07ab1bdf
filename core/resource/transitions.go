package resource

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/elimucloud/dawati/core"
)

// Transition is a named, guarded operation moving a record between
// lifecycle states.
type Transition string

const (
	TransitionCreate       Transition = "create"
	TransitionEdit         Transition = "edit"
	TransitionRequestLeave Transition = "request-leave"
	TransitionReturnEarly  Transition = "return-early"
	TransitionTerminate    Transition = "terminate"
	TransitionReinstate    Transition = "reinstate"
	TransitionSoftDelete   Transition = "soft-delete"
	TransitionFreeze       Transition = "freeze"
	TransitionUnfreeze     Transition = "unfreeze"
)

type transitionRule struct {
	from       []State // valid source states; empty means any non-deleted state
	personOnly bool
	groupOnly  bool // group/course kinds
}

// transitionTable is the single source of truth for guard checks, on the
// client before any network call and on the devserver as defense in depth.
var transitionTable = map[Transition]transitionRule{
	TransitionEdit:         {},
	TransitionRequestLeave: {from: []State{StateActive}, personOnly: true},
	TransitionReturnEarly:  {from: []State{StateOnLeave}, personOnly: true},
	TransitionTerminate:    {from: []State{StateActive, StateOnLeave}, personOnly: true},
	TransitionReinstate:    {from: []State{StateTerminated}, personOnly: true},
	TransitionSoftDelete:   {},
	TransitionFreeze:       {from: []State{StateActive}, groupOnly: true},
	TransitionUnfreeze:     {from: []State{StateFrozen}, groupOnly: true},
}

func ValidTransition(tr Transition) bool {
	if tr == TransitionCreate {
		return true
	}
	_, ok := transitionTable[tr]
	return ok
}

// Mutating reports whether the transition mutates a record (as opposed to a read).
// Every named transition plus create/edit mutates.
func Mutating(tr Transition) bool { return ValidTransition(tr) }

func invalidTransition(tr Transition, format string, args ...interface{}) error {
	return &core.Failure{
		Kind:    core.FailureInvalidTransition,
		Message: fmt.Sprintf("%s: ", tr) + fmt.Sprintf(format, args...),
	}
}

// ValidateTransition checks tr against the record's current state and kind.
// It is local and synchronous; a failed guard must fail fast before any
// network call is made.
func ValidateTransition(rec *Record, tr Transition) error {
	return ValidateTransitionAt(rec, tr, NowFunc().UTC())
}

func ValidateTransitionAt(rec *Record, tr Transition, now time.Time) error {
	if tr == TransitionCreate {
		if rec != nil {
			return invalidTransition(tr, "record already exists")
		}
		return nil
	}
	rule, ok := transitionTable[tr]
	if !ok {
		return invalidTransition(tr, "unknown transition")
	}
	if rec == nil {
		return invalidTransition(tr, "no target record")
	}
	if rule.personOnly && !rec.Kind.IsPerson() {
		return invalidTransition(tr, "not allowed for kind %q", rec.Kind)
	}
	if rule.groupOnly && rec.Kind.IsPerson() {
		return invalidTransition(tr, "not allowed for kind %q", rec.Kind)
	}

	state := rec.StateAt(now)
	if state == StateDeleted {
		// soft-delete is irreversible from the client's perspective
		return invalidTransition(tr, "record is deleted")
	}
	if len(rule.from) == 0 {
		return nil
	}
	for _, from := range rule.from {
		if state == from {
			return nil
		}
	}
	return invalidTransition(tr, "not allowed from state %q", state)
}

// LeaveRequest is the payload of a request-leave transition.
type LeaveRequest struct {
	Reason string `json:"reason" validate:"required"`
	Days   int    `json:"days" validate:"required,min=1,max=365"`
}

func (lr LeaveRequest) Validate() error {
	return core.TranslateValidationErrors(core.Validate.Struct(lr))
}

// Apply mutates rec according to tr. It assumes the transition was already
// validated; the server applies it, the client only ever receives the result
// (no optimistic application).
func Apply(rec *Record, tr Transition, payload interface{}, now time.Time) error {
	switch tr {
	case TransitionRequestLeave:
		lr, ok := payload.(LeaveRequest)
		if !ok {
			return core.NewFailure(core.FailureValidation, "request-leave: missing leave payload")
		}
		rec.LeaveHistory = append(rec.LeaveHistory, LeaveEntry{
			Start:  now,
			End:    null.TimeFrom(now.AddDate(0, 0, lr.Days)),
			Reason: lr.Reason,
		})
	case TransitionReturnEarly:
		open := rec.openLeave(now)
		if open == nil {
			return invalidTransition(tr, "no open leave entry")
		}
		open.ReturnedAt = null.TimeFrom(now)
	case TransitionTerminate:
		rec.WorkEndedAt = null.TimeFrom(now)
	case TransitionReinstate:
		rec.WorkEndedAt = null.Time{}
	case TransitionSoftDelete:
		rec.SoftDeleted = true
	case TransitionFreeze:
		rec.FrozenAt = null.TimeFrom(now)
	case TransitionUnfreeze:
		rec.FrozenAt = null.Time{}
	default:
		return invalidTransition(tr, "not applicable")
	}
	rec.UpdatedAt = now
	return nil
}
