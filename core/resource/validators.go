package resource

import (
	"github.com/go-playground/validator/v10"

	"github.com/elimucloud/dawati/core"
)

var (
	validKindTag  = "kind"
	validKindText = "invalid resource kind"

	validRoleTag  = "role"
	validRoleText = "invalid role"

	roleForPersonTag  = "role_person"
	roleForPersonText = "role only applies to staff, teacher or student records"
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(validKindTag, kindValidation)
	core.RegisterCustomTranslation(validKindTag, validKindText)

	_ = core.Validate.RegisterValidation(validRoleTag, roleValidation)
	core.RegisterCustomTranslation(validRoleTag, validRoleText)

	core.Validate.RegisterStructValidation(recordStructValidation, NewRecord{})
	core.RegisterCustomTranslation(roleForPersonTag, roleForPersonText)
}

// kindValidation checks that the provided kind is one of AllKinds.
func kindValidation(fl validator.FieldLevel) bool {
	return Kind(fl.Field().String()).Valid()
}

func roleValidation(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	return role == "" || ValidRole(role)
}

// recordStructValidation rejects a role on non-person kinds.
func recordStructValidation(sl validator.StructLevel) {
	if rec, ok := sl.Current().Interface().(NewRecord); ok {
		if rec.Role != "" && !Kind(rec.Kind).IsPerson() {
			sl.ReportError(rec.Role, "role", "Role", roleForPersonTag, "")
		}
	}
}

// NewRecord is the payload of a create mutation.
type NewRecord struct {
	Kind          string `json:"kind" validate:"required,kind"`
	Name          string `json:"name" validate:"required,alphanum_"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Role          string `json:"role,omitempty" validate:"omitempty,role"`
	WorkStartedAt string `json:"work_started_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (nr NewRecord) Validate() error {
	return core.TranslateValidationErrors(core.Validate.Struct(nr))
}

// EditRecord is the payload of an edit mutation; only mutable fields appear
// (role is immutable after creation, changing it is a separate operation).
type EditRecord struct {
	ID    string `json:"id" validate:"required"`
	Kind  string `json:"kind" validate:"required,kind"`
	Name  string `json:"name" validate:"required,alphanum_"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

func (er EditRecord) Validate() error {
	return core.TranslateValidationErrors(core.Validate.Struct(er))
}
