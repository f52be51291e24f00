package delivery

import (
	"errors"
	"fmt"
)

// Kind classifies a dispatch pipeline failure.
type Kind string

// The closed set of failure kinds.
const (
	KindNoRecipients     Kind = "no_recipients"
	KindTemplateNotFound Kind = "template_not_found"
	KindTemplateInvalid  Kind = "template_invalid"
	KindProviderError    Kind = "provider_error"
	KindStoreError       Kind = "store_error"
	KindUnauthorized     Kind = "unauthorized"
)

// Error is a classified failure carrying the schedule it happened on and the
// underlying cause. Its Error() text is what gets persisted on a failed schedule.
type Error struct {
	Kind       Kind
	ScheduleID string
	TemplateID string
	Err        error
}

// Error renders the human-readable message.
func (e *Error) Error() string {
	switch e.Kind {
	case KindNoRecipients:
		return "No recipients specified"
	case KindTemplateNotFound:
		return "Template not found: " + e.TemplateID
	case KindTemplateInvalid:
		return fmt.Sprintf("Template invalid: %s: %v", e.TemplateID, e.Err)
	case KindUnauthorized:
		return "Unauthorized"
	case KindProviderError:
		return fmt.Sprintf("provider error: %v", e.Err)
	case KindStoreError:
		return fmt.Sprintf("store error: %v", e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NoRecipients returns a KindNoRecipients error.
func NoRecipients() *Error {
	return &Error{Kind: KindNoRecipients}
}

// TemplateNotFound returns a KindTemplateNotFound error for templateID.
func TemplateNotFound(templateID string, cause error) *Error {
	return &Error{Kind: KindTemplateNotFound, TemplateID: templateID, Err: cause}
}

// TemplateInvalid reports a stored template that cannot be dispatched, such
// as one with a blank subject or markdown that fails to render.
func TemplateInvalid(templateID string, cause error) *Error {
	return &Error{Kind: KindTemplateInvalid, TemplateID: templateID, Err: cause}
}

// Provider wraps a delivery provider failure.
func Provider(cause error) *Error {
	return &Error{Kind: KindProviderError, Err: cause}
}

// Store wraps a persistence failure.
func Store(cause error) *Error {
	return &Error{Kind: KindStoreError, Err: cause}
}

// Unauthorized returns a KindUnauthorized error.
func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized}
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// WithSchedule attaches a schedule id to a classified error. Unclassified
// errors are wrapped as store errors since they come from persistence.
func WithSchedule(err error, scheduleID string) *Error {
	var de *Error
	if !errors.As(err, &de) {
		de = Store(err)
	}
	out := *de
	out.ScheduleID = scheduleID
	return &out
}
