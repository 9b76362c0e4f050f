// Package createflow is the inline "create a related record" state machine:
// optionally choose a record type, fill the form, submit.
package createflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pthm/hxlookup/lib/schema"
)

// StencilDuration is the minimum time the loading placeholder stays up after
// the form appears.
const StencilDuration = time.Second

var (
	ErrInvalidTransition = errors.New("createflow: invalid transition")
	ErrUnknownRecordType = errors.New("createflow: unknown record type")
)

// SubmissionError wraps a failed form submission. The form input is kept so
// the user can retry.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("createflow: submit record: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// State is the step the flow is in.
type State int

const (
	Closed State = iota
	ChoosingRecordType
	FillingForm
	Submitting
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case ChoosingRecordType:
		return "choosing-record-type"
	case FillingForm:
		return "filling-form"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Submission is the payload handed to a Submitter.
type Submission struct {
	EntityType   string
	RecordTypeID string
	Fields       map[string]string
}

// Submitter creates the record and returns its identifier.
type Submitter interface {
	SubmitRecordForm(ctx context.Context, sub Submission) (string, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, sub Submission) (string, error)

func (f SubmitterFunc) SubmitRecordForm(ctx context.Context, sub Submission) (string, error) {
	return f(ctx, sub)
}

// Flow tracks one create-record interaction. It is not safe for concurrent
// use.
type Flow struct {
	entityType string
	now        func() time.Time

	state        State
	options      []schema.RecordTypeVariant
	recordTypeID string
	fields       map[string]string
	failed       bool
	err          error
	shownAt      time.Time
}

// New returns a closed flow for entityType. A nil clock uses time.Now.
func New(entityType string, now func() time.Time) *Flow {
	if now == nil {
		now = time.Now
	}
	return &Flow{entityType: entityType, now: now}
}

func (f *Flow) State() State { return f.state }
func (f *Flow) Options() []schema.RecordTypeVariant { return f.options }
func (f *Flow) RecordTypeID() string { return f.recordTypeID }
func (f *Flow) Failed() bool { return f.failed }
func (f *Flow) Err() error { return f.err }

// Fields returns a copy of the form input kept by the flow.
func (f *Flow) Fields() map[string]string {
	if f.fields == nil {
		return nil
	}
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return out
}

// Open starts the flow. With more than one option the user picks a record
// type first; otherwise the form opens with defaultID.
func (f *Flow) Open(options []schema.RecordTypeVariant, defaultID string) error {
	if f.state != Closed {
		return fmt.Errorf("%w: open from %s", ErrInvalidTransition, f.state)
	}
	if len(options) > 1 {
		f.options = slices.Clone(options)
		f.recordTypeID = ""
		f.state = ChoosingRecordType
		return nil
	}
	f.recordTypeID = defaultID
	f.showForm()
	return nil
}

// ChooseRecordType records the variant picked in the chooser.
func (f *Flow) ChooseRecordType(id string) error {
	if f.state != ChoosingRecordType {
		return fmt.Errorf("%w: choose record type from %s", ErrInvalidTransition, f.state)
	}
	if !slices.ContainsFunc(f.options, func(v schema.RecordTypeVariant) bool { return v.ID == id }) {
		return fmt.Errorf("%w: %q", ErrUnknownRecordType, id)
	}
	f.recordTypeID = id
	return nil
}

// Continue moves from the chooser to the form.
func (f *Flow) Continue() error {
	if f.state != ChoosingRecordType {
		return fmt.Errorf("%w: continue from %s", ErrInvalidTransition, f.state)
	}
	if f.recordTypeID == "" {
		return fmt.Errorf("%w: none chosen", ErrUnknownRecordType)
	}
	f.showForm()
	return nil
}

// Begin snapshots the form input and enters Submitting. It is allowed from
// the form and from a failed submission.
func (f *Flow) Begin(fields map[string]string) (Submission, error) {
	switch {
	case f.state == FillingForm:
	case f.state == Submitting && f.failed:
	default:
		return Submission{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, f.state)
	}
	kept := make(map[string]string, len(fields))
	for k, v := range fields {
		kept[k] = v
	}
	f.fields = kept
	f.failed = false
	f.err = nil
	f.state = Submitting
	return Submission{
		EntityType:   f.entityType,
		RecordTypeID: f.recordTypeID,
		Fields:       f.Fields(),
	}, nil
}

// Succeed closes the flow after the record was created.
func (f *Flow) Succeed() error {
	if f.state != Submitting || f.failed {
		return fmt.Errorf("%w: succeed from %s", ErrInvalidTransition, f.state)
	}
	f.reset()
	return nil
}

// Fail keeps the flow in Submitting with the input preserved.
func (f *Flow) Fail(err error) error {
	if f.state != Submitting || f.failed {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, f.state)
	}
	f.failed = true
	f.err = &SubmissionError{Err: err}
	return nil
}

// Acknowledge dismisses a failed submission and closes the flow.
func (f *Flow) Acknowledge() error {
	if f.state != Submitting || !f.failed {
		return fmt.Errorf("%w: acknowledge from %s", ErrInvalidTransition, f.state)
	}
	f.reset()
	return nil
}

// Cancel abandons the flow and its input. A submission in flight cannot be
// cancelled.
func (f *Flow) Cancel() error {
	if f.state == Submitting && !f.failed {
		return fmt.Errorf("%w: cancel while submitting", ErrInvalidTransition)
	}
	f.reset()
	return nil
}

// StencilVisible reports whether the loading placeholder still covers the
// form.
func (f *Flow) StencilVisible() bool {
	if f.state != FillingForm && f.state != Submitting {
		return false
	}
	return f.now().Before(f.shownAt.Add(StencilDuration))
}

func (f *Flow) showForm() {
	f.state = FillingForm
	f.shownAt = f.now()
}

func (f *Flow) reset() {
	f.state = Closed
	f.options = nil
	f.recordTypeID = ""
	f.fields = nil
	f.failed = false
	f.err = nil
	f.shownAt = time.Time{}
}
