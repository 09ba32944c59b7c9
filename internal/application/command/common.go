// Package command contains write operations (CQRS - Commands).
//
// Every command validates its input with struct tags, runs its store work in
// a single transaction and publishes a domain event only after the
// transaction has committed.
package command

import (
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/pkg/timeutil"
	"github.com/classroll/classroll/pkg/validation"
)

// Deps are the collaborators shared by every command handler.
type Deps struct {
	// Events receives domain events after commit. Optional.
	Events shared.EventPublisher

	// Clock supplies "now" and the school's current date. Defaults to a UTC
	// wall clock.
	Clock *timeutil.Clock
}

func (d Deps) clock() *timeutil.Clock {
	if d.Clock == nil {
		return timeutil.NewClock(nil)
	}
	return d.Clock
}

func (d Deps) publish(event shared.Event) {
	if d.Events == nil {
		return
	}
	_ = d.Events.Publish(event)
}

// validate runs the struct tag rules of cmd and reports failures as a
// validation DomainError.
func validate(domain, op string, cmd any) error {
	if err := validation.Struct(cmd); err != nil {
		return shared.WrapError(domain, op, shared.ErrValidation, err.Error(), err)
	}
	return nil
}
