package devapi

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/resource"
)

// Service applies mutations against the authoritative record store. The
// transition guards run here too: the client checks them before calling,
// the server re-checks as defense in depth.
type Service struct {
	repo   resource.Repository
	mail   core.EmailService
	logger core.Logger
}

func NewService(repo resource.Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, mail: mailSvc, logger: logger}
}

func (svc *Service) List(ctx context.Context, filter resource.QueryFilter) ([]resource.Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *Service) Get(ctx context.Context, kind resource.Kind, id string) (resource.Record, error) {
	return svc.repo.GetRecord(ctx, kind, id)
}

func (svc *Service) Create(ctx context.Context, nr resource.NewRecord) (resource.Record, error) {
	now := time.Now().UTC()
	rec := resource.Record{
		Kind:      resource.Kind(nr.Kind),
		Name:      core.CleanString(nr.Name),
		Email:     core.CleanString(nr.Email, true /* lower */),
		Role:      nr.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nr.WorkStartedAt != "" {
		started, err := time.Parse("2006-01-02", nr.WorkStartedAt)
		if err != nil {
			return resource.Record{}, core.NewValidationError(err, core.FieldError{Field: "work_started_at", Error: "invalid date"})
		}
		rec.WorkStartedAt.SetValid(started)
	} else {
		rec.WorkStartedAt.SetValid(now)
	}
	return svc.repo.CreateRecord(ctx, rec)
}

func (svc *Service) Edit(ctx context.Context, er resource.EditRecord) (resource.Record, error) {
	rec, err := svc.repo.GetRecord(ctx, resource.Kind(er.Kind), er.ID)
	if err != nil {
		return resource.Record{}, err
	}
	if err := resource.ValidateTransition(&rec, resource.TransitionEdit); err != nil {
		return resource.Record{}, err
	}

	rec.Name = core.CleanString(er.Name)
	if er.Email != "" {
		rec.Email = core.CleanString(er.Email, true /* lower */)
	}
	rec.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRecord(ctx, rec)
}

// Transition validates and applies tr, persists the result and reports
// whether the response to the client is a bare acknowledgement (deletes and
// freeze/unfreeze) or the full updated record.
func (svc *Service) Transition(ctx context.Context, kind resource.Kind, id string, tr resource.Transition, payload interface{}) (resource.Record, bool, error) {
	rec, err := svc.repo.GetRecord(ctx, kind, id)
	if err != nil {
		return resource.Record{}, false, err
	}

	now := time.Now().UTC()
	if err := resource.ValidateTransitionAt(&rec, tr, now); err != nil {
		return resource.Record{}, false, err
	}
	if err := resource.Apply(&rec, tr, payload, now); err != nil {
		return resource.Record{}, false, err
	}

	rec, err = svc.repo.UpdateRecord(ctx, rec)
	if err != nil {
		return resource.Record{}, false, err
	}
	svc.notify(rec, tr, payload)

	ack := tr == resource.TransitionSoftDelete || tr == resource.TransitionFreeze || tr == resource.TransitionUnfreeze
	return rec, ack, nil
}

// notify mails the affected person about employment-state changes.
func (svc *Service) notify(rec resource.Record, tr resource.Transition, payload interface{}) {
	if !rec.Kind.IsPerson() || rec.Email == "" {
		return
	}

	var subject, body string
	switch tr {
	case resource.TransitionTerminate:
		subject = "Employment ended"
		body = fmt.Sprintf("Hi %s,\n\nYour record was marked as terminated on %s.", rec.Name, rec.WorkEndedAt.Time.Format("2006-01-02"))
	case resource.TransitionReinstate:
		subject = "Welcome back"
		body = fmt.Sprintf("Hi %s,\n\nYour record was reinstated; welcome back.", rec.Name)
	case resource.TransitionRequestLeave:
		lr, ok := payload.(resource.LeaveRequest)
		if !ok {
			return
		}
		subject = "Leave recorded"
		body = fmt.Sprintf("Hi %s,\n\nYour leave (%s, %d days) was recorded.", rec.Name, lr.Reason, lr.Days)
	default:
		return
	}

	svc.mail.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: rec.Name, Address: rec.Email}},
		Subject:     subject,
		TextContent: body,
	})
}
