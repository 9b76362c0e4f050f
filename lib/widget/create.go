package widget

import (
	"context"
	"errors"

	"github.com/pthm/hxlookup/lib/createflow"
	"github.com/pthm/hxlookup/lib/record"
)

// OpenCreate starts the create-record flow. With more than one creatable
// record type the user is asked to choose one first.
func (w *Widget) OpenCreate() (Effects, error) {
	if !w.cfg.CreateEnabled {
		return Effects{}, ErrCreateDisabled
	}
	if err := w.requireWritable(); err != nil {
		return Effects{}, err
	}
	var eff Effects
	err := w.doErr(func() error {
		if err := w.flow.Open(w.rtOptions, w.rtDefault); err != nil {
			return err
		}
		w.changed()
		if w.cfg.LockHostOnCreate {
			w.emit(&eff, lockEvent(w.cfg, true))
		}
		return nil
	})
	return eff, err
}

// ChooseRecordType picks the record type in the chooser.
func (w *Widget) ChooseRecordType(id string) error {
	return w.doErr(func() error {
		w.changed()
		return w.flow.ChooseRecordType(id)
	})
}

// ContinueCreate leaves the chooser for the form.
func (w *Widget) ContinueCreate() error {
	return w.doErr(func() error {
		w.changed()
		return w.flow.Continue()
	})
}

// SubmitCreate sends the form. The submission runs on the caller's goroutine
// and is cancelled when ctx ends or the widget is closed. On success the new
// record becomes the selection and is announced; on failure the form input
// is kept for a retry and the returned error is a *createflow.SubmissionError.
func (w *Widget) SubmitCreate(ctx context.Context, fields map[string]string) (Effects, error) {
	if w.deps.Submitter == nil {
		return Effects{}, ErrNoSubmitter
	}
	var sub createflow.Submission
	err := w.doErr(func() error {
		var err error
		sub, err = w.flow.Begin(fields)
		if err == nil {
			w.changed()
		}
		return err
	})
	if err != nil {
		return Effects{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(w.ctx, cancel)
	defer stop()
	newID, subErr := w.deps.Submitter.SubmitRecordForm(ctx, sub)

	var eff Effects
	err = w.doErr(func() error {
		w.changed()
		if subErr != nil {
			if err := w.flow.Fail(subErr); err != nil {
				return err
			}
			w.log.Warn("record submission failed", "key", w.cfg.CorrelationKey, "error", subErr)
			eff.toast(saveFailedToast())
			return w.flow.Err()
		}
		if err := w.flow.Succeed(); err != nil {
			return err
		}
		rec := make(record.Record, len(sub.Fields)+1)
		for k, v := range sub.Fields {
			rec[k] = v
		}
		rec[record.IDField] = newID
		w.commit(rec)
		w.touched = true
		w.resolve(newID)
		w.emit(&eff, createdEvent(w.cfg, newID))
		eff.toast(savedToast(newID))
		if w.cfg.LockHostOnCreate {
			w.emit(&eff, lockEvent(w.cfg, false))
		}
		w.log.Info("record created", "id", newID, "key", w.cfg.CorrelationKey)
		return nil
	})
	return eff, err
}

// CancelCreate abandons the flow and discards its input.
func (w *Widget) CancelCreate() (Effects, error) {
	return w.closeCreate(func() error {
		if w.flow.State() == createflow.Closed {
			return errNothingOpen
		}
		return w.flow.Cancel()
	})
}

// AcknowledgeCreateError closes a flow whose submission failed.
func (w *Widget) AcknowledgeCreateError() (Effects, error) {
	return w.closeCreate(w.flow.Acknowledge)
}

var errNothingOpen = errors.New("widget: create flow not open")

func (w *Widget) closeCreate(step func() error) (Effects, error) {
	var eff Effects
	err := w.doErr(func() error {
		if err := step(); err != nil {
			return err
		}
		w.changed()
		if w.cfg.LockHostOnCreate {
			w.emit(&eff, lockEvent(w.cfg, false))
		}
		return nil
	})
	if errors.Is(err, errNothingOpen) {
		return Effects{}, nil
	}
	return eff, err
}

// doErr runs f on the loop and returns its error.
func (w *Widget) doErr(f func() error) error {
	var ferr error
	if err := w.do(func() { ferr = f() }); err != nil {
		return err
	}
	return ferr
}

// IsSubmissionError reports whether err came from the record submitter.
func IsSubmissionError(err error) bool {
	var se *createflow.SubmissionError
	return errors.As(err, &se)
}
