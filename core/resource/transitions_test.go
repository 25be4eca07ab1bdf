package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/elimucloud/dawati/core"
)

func Test_ValidateTransitionAt(t *testing.T) {
	active := activeStaff()

	onLeave := activeStaff()
	onLeave.LeaveHistory = []LeaveEntry{{Start: now.AddDate(0, 0, -1), End: null.TimeFrom(now.AddDate(0, 0, 5)), Reason: "sick"}}

	terminated := activeStaff()
	terminated.WorkEndedAt = null.TimeFrom(now.AddDate(0, 0, -1))

	deleted := activeStaff()
	deleted.SoftDeleted = true

	group := Record{ID: "g1", Kind: KindGroup, Name: "Grade 6"}
	frozen := group
	frozen.FrozenAt = null.TimeFrom(now.AddDate(0, 0, -1))

	tests := []struct {
		name    string
		rec     *Record
		tr      Transition
		wantErr bool
	}{
		{"create with no target", nil, TransitionCreate, false},
		{"create on existing record", &active, TransitionCreate, true},
		{"unknown transition", &active, Transition("lol"), true},
		{"no target record", nil, TransitionTerminate, true},

		{"edit active", &active, TransitionEdit, false},
		{"edit terminated", &terminated, TransitionEdit, false},
		{"edit deleted", &deleted, TransitionEdit, true},

		{"request-leave from active", &active, TransitionRequestLeave, false},
		{"request-leave while on leave", &onLeave, TransitionRequestLeave, true},
		{"request-leave on group", &group, TransitionRequestLeave, true},

		{"return-early on leave", &onLeave, TransitionReturnEarly, false},
		{"return-early from active", &active, TransitionReturnEarly, true},

		{"terminate active", &active, TransitionTerminate, false},
		{"terminate on leave", &onLeave, TransitionTerminate, false},
		{"terminate twice", &terminated, TransitionTerminate, true},
		{"terminate group", &group, TransitionTerminate, true},

		{"reinstate terminated", &terminated, TransitionReinstate, false},
		{"reinstate active", &active, TransitionReinstate, true},

		{"soft-delete active", &active, TransitionSoftDelete, false},
		{"soft-delete terminated", &terminated, TransitionSoftDelete, false},
		{"soft-delete twice", &deleted, TransitionSoftDelete, true},

		{"freeze group", &group, TransitionFreeze, false},
		{"freeze frozen group", &frozen, TransitionFreeze, true},
		{"freeze person", &active, TransitionFreeze, true},
		{"unfreeze frozen", &frozen, TransitionUnfreeze, false},
		{"unfreeze active group", &group, TransitionUnfreeze, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransitionAt(tt.rec, tt.tr, now)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsInvalidTransition(err), "want invalid_transition failure, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_Apply_leaveRoundTrip(t *testing.T) {
	rec := activeStaff()

	require.NoError(t, Apply(&rec, TransitionRequestLeave, LeaveRequest{Reason: "sick", Days: 10}, now))
	require.Len(t, rec.LeaveHistory, 1)
	le := rec.LeaveHistory[0]
	assert.Equal(t, now, le.Start)
	assert.Equal(t, now.AddDate(0, 0, 10), le.End.Time)
	assert.Equal(t, StateOnLeave, rec.StateAt(now))

	// returning early stamps ReturnedAt, the entry keeps its original dates
	later := now.AddDate(0, 0, 3)
	require.NoError(t, Apply(&rec, TransitionReturnEarly, nil, later))
	require.Len(t, rec.LeaveHistory, 1)
	le = rec.LeaveHistory[0]
	assert.Equal(t, now, le.Start)
	assert.Equal(t, now.AddDate(0, 0, 10), le.End.Time)
	assert.Equal(t, later, le.ReturnedAt.Time)
	assert.Equal(t, StateActive, rec.StateAt(later))
}

func Test_Apply(t *testing.T) {
	t.Run("terminate and reinstate", func(t *testing.T) {
		rec := activeStaff()
		require.NoError(t, Apply(&rec, TransitionTerminate, nil, now))
		assert.Equal(t, now, rec.WorkEndedAt.Time)
		assert.Equal(t, StateTerminated, rec.StateAt(now))

		require.NoError(t, Apply(&rec, TransitionReinstate, nil, now))
		assert.False(t, rec.WorkEndedAt.Valid)
		assert.Equal(t, StateActive, rec.StateAt(now))
	})

	t.Run("soft-delete", func(t *testing.T) {
		rec := activeStaff()
		require.NoError(t, Apply(&rec, TransitionSoftDelete, nil, now))
		assert.True(t, rec.SoftDeleted)
		assert.Equal(t, StateDeleted, rec.StateAt(now))
	})

	t.Run("freeze and unfreeze", func(t *testing.T) {
		rec := Record{ID: "g1", Kind: KindGroup, Name: "Grade 6"}
		require.NoError(t, Apply(&rec, TransitionFreeze, nil, now))
		assert.Equal(t, StateFrozen, rec.StateAt(now))

		require.NoError(t, Apply(&rec, TransitionUnfreeze, nil, now))
		assert.Equal(t, StateActive, rec.StateAt(now))
	})

	t.Run("request-leave without payload", func(t *testing.T) {
		rec := activeStaff()
		err := Apply(&rec, TransitionRequestLeave, nil, now)
		assert.True(t, core.IsValidationFailed(err), "want validation failure, got %v", err)
	})

	t.Run("return-early without open leave", func(t *testing.T) {
		rec := activeStaff()
		err := Apply(&rec, TransitionReturnEarly, nil, now)
		assert.True(t, core.IsInvalidTransition(err), "want invalid_transition failure, got %v", err)
	})

	t.Run("updates UpdatedAt", func(t *testing.T) {
		rec := activeStaff()
		require.NoError(t, Apply(&rec, TransitionTerminate, nil, now))
		assert.Equal(t, now, rec.UpdatedAt)
	})
}

func Test_LeaveRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		lr      LeaveRequest
		wantErr bool
	}{
		{"valid", LeaveRequest{Reason: "sick", Days: 5}, false},
		{"no reason", LeaveRequest{Days: 5}, true},
		{"no days", LeaveRequest{Reason: "sick"}, true},
		{"too long", LeaveRequest{Reason: "sabbatical", Days: 366}, true},
		{"max days", LeaveRequest{Reason: "sabbatical", Days: 365}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lr.Validate()
			if tt.wantErr {
				assert.True(t, core.IsValidationFailed(err), "want validation failure, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_NewRecord_Validate(t *testing.T) {
	tests := []struct {
		name      string
		nr        NewRecord
		wantField string
	}{
		{"valid person", NewRecord{Kind: "staff", Name: "Awa", Email: "awa@test.cd", Role: RoleTeacher}, ""},
		{"valid group", NewRecord{Kind: "group", Name: "Grade 6"}, ""},
		{"bad kind", NewRecord{Kind: "lol", Name: "Awa"}, "kind"},
		{"missing name", NewRecord{Kind: "staff"}, "name"},
		{"bad email", NewRecord{Kind: "staff", Name: "Awa", Email: "lol"}, "email"},
		{"bad role", NewRecord{Kind: "staff", Name: "Awa", Role: "lol"}, "role"},
		{"role on group", NewRecord{Kind: "group", Name: "Grade 6", Role: RoleTeacher}, "role"},
		{"bad start date", NewRecord{Kind: "staff", Name: "Awa", WorkStartedAt: "lol"}, "work_started_at"},
		{"valid start date", NewRecord{Kind: "staff", Name: "Awa", WorkStartedAt: "2026-01-15"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nr.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			f, ok := core.FailureOf(err)
			require.True(t, ok, "want *core.Failure, got %v", err)
			require.Equal(t, core.FailureValidation, f.Kind)
			fields := make([]string, 0, len(f.Fields))
			for _, fe := range f.Fields {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func Test_roles(t *testing.T) {
	assert.True(t, HasPrivilege([]string{RoleAdminOwner}))
	assert.True(t, HasPrivilege([]string{RoleAdminPrincipal}))
	assert.True(t, HasPrivilege([]string{RoleAdmin}))
	assert.True(t, HasPrivilege([]string{RoleManager}))
	assert.True(t, HasPrivilege([]string{RoleStudent, RoleManager}))
	assert.False(t, HasPrivilege([]string{RoleTeacher}))
	assert.False(t, HasPrivilege([]string{RoleStudent}))
	assert.False(t, HasPrivilege(nil))

	assert.Greater(t, RolePriority(RoleAdminOwner), RolePriority(RoleAdminPrincipal))
	assert.Greater(t, RolePriority(RoleAdminPrincipal), RolePriority(RoleAdmin))
	assert.Greater(t, RolePriority(RoleAdmin), RolePriority(RoleManager))
	assert.Greater(t, RolePriority(RoleManager), RolePriority(RoleTeacher))
	assert.Greater(t, RolePriority(RoleTeacher), RolePriority(RoleStudent))
}

func Test_Mutating(t *testing.T) {
	for _, tr := range []Transition{
		TransitionCreate, TransitionEdit, TransitionRequestLeave, TransitionReturnEarly,
		TransitionTerminate, TransitionReinstate, TransitionSoftDelete, TransitionFreeze, TransitionUnfreeze,
	} {
		assert.True(t, Mutating(tr), "%s", tr)
	}
	assert.False(t, Mutating(Transition("lol")))
}

// guard against accidental drift of the leave arithmetic
func Test_Apply_leaveEndDate(t *testing.T) {
	rec := activeStaff()
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	require.NoError(t, Apply(&rec, TransitionRequestLeave, LeaveRequest{Reason: "trip", Days: 3}, start))
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), rec.LeaveHistory[0].End.Time)
}
