package hxlookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/pthm/hxlookup/lib/createflow"
	"github.com/pthm/hxlookup/lib/search"
	"github.com/pthm/hxlookup/lib/widget"
)

// DefaultSettleTimeout bounds how long a render waits for the initial
// metadata fetch and value lookup of a widget.
const DefaultSettleTimeout = 2 * time.Second

// ConfigFunc builds the configuration of a new widget from its props.
type ConfigFunc func(ctx context.Context, p Props) (widget.Config, error)

// Lookup is the HTMX component serving lookup cells. Every cell is backed by
// a live widget.Widget kept in a Pool.
type Lookup struct {
	*Component[Props]

	configure  ConfigFunc
	deps       widget.Deps
	pool       *Pool
	widgetOpts []widget.Option
	settle     time.Duration
	log        *slog.Logger
}

// LookupOption configures a Lookup.
type LookupOption func(*Lookup)

// WithPool shares an existing pool.
func WithPool(p *Pool) LookupOption {
	return func(l *Lookup) { l.pool = p }
}

// WithWidgetOptions adds options applied to every widget the lookup creates.
func WithWidgetOptions(opts ...widget.Option) LookupOption {
	return func(l *Lookup) { l.widgetOpts = append(l.widgetOpts, opts...) }
}

// WithSettleTimeout overrides DefaultSettleTimeout.
func WithSettleTimeout(d time.Duration) LookupOption {
	return func(l *Lookup) { l.settle = d }
}

// WithLookupLogger sets the logger for the component and its widgets.
func WithLookupLogger(log *slog.Logger) LookupOption {
	return func(l *Lookup) { l.log = log }
}

// NewLookup returns the lookup component. configure is called once per
// instance, when its widget is first needed.
func NewLookup(configure ConfigFunc, deps widget.Deps, opts ...LookupOption) *Lookup {
	l := &Lookup{
		Component: newComponent[Props]("lookup", 2),
		configure: configure,
		deps:      deps,
		settle:    DefaultSettleTimeout,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.pool == nil {
		l.pool = NewPool(WithPoolLogger(l.log))
	}
	l.SetParent(l)

	l.Action("focus", l.handleFocus)
	l.Action("search", l.handleSearch)
	l.Action("blur", l.handleBlur)
	l.Action("choose", l.handleChoose)
	l.Action("clear", l.handleClear)
	l.Action("create", l.handleCreate)
	l.Action("continue", l.handleContinue)
	l.Action("submit", l.handleSubmit)
	l.Action("cancel", l.handleCancel)
	l.Action("dismiss", l.handleDismiss)
	l.Action("setvalue", l.handleSetValue)
	return l
}

// Pool returns the pool holding the lookup's widgets.
func (l *Lookup) Pool() *Pool {
	return l.pool
}

// Cell renders a placeholder that loads the lookup after page load.
func (l *Lookup) Cell(props Props) templ.Component {
	return l.Defer(props, placeholder(props))
}

// Hydrate attaches the live widget for props.Instance, creating it on first
// use, and waits briefly for it to settle.
func (l *Lookup) Hydrate(ctx context.Context, p *Props) error {
	if p.Instance == "" {
		return ErrInstanceNotFound
	}
	w, err := l.pool.GetOrCreate(p.Instance, func() (*widget.Widget, error) {
		cfg, err := l.configure(ctx, *p)
		if err != nil {
			return nil, err
		}
		if cfg.ValueID == "" {
			cfg.ValueID = p.ValueID
		}
		if cfg.CorrelationKey == "" {
			cfg.CorrelationKey = p.Key
		}
		opts := append([]widget.Option{
			widget.WithID(p.Instance),
			widget.WithLogger(l.log),
		}, l.widgetOpts...)
		return widget.New(cfg, l.deps, opts...), nil
	})
	if err != nil {
		return err
	}

	settleCtx, cancel := context.WithTimeout(ctx, l.settle)
	defer cancel()
	snap, err := w.Settled(settleCtx)
	switch {
	case errors.Is(err, widget.ErrClosed):
		l.pool.Remove(p.Instance)
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, p.Instance)
	case errors.Is(err, context.DeadlineExceeded):
		l.log.Debug("rendering unsettled widget", "instance", p.Instance)
	case err != nil:
		return err
	}
	p.widget = w
	p.cfg = w.Config()
	p.snap = snap
	return nil
}

// Render draws the whole widget, or only its dropdown after focus, typing
// and blur so the input keeps focus.
func (l *Lookup) Render(_ context.Context, p Props) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if p.part == partDropdown {
			return l.renderDropdown(ctx, w, p)
		}
		return l.renderWidget(ctx, w, p)
	})
}

// refresh re-reads the widget state into p.
func (l *Lookup) refresh(p *Props) error {
	snap, err := p.widget.Snapshot()
	if err != nil {
		return l.widgetErr(err)
	}
	p.snap = snap
	return nil
}

func (l *Lookup) widgetErr(err error) error {
	switch {
	case errors.Is(err, widget.ErrReadOnly):
		return fmt.Errorf("%w: %w", ErrReadOnly, err)
	case errors.Is(err, widget.ErrClosed):
		return fmt.Errorf("%w: %w", ErrInstanceNotFound, err)
	case errors.Is(err, widget.ErrCandidateNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}

// withEffects renders p and carries the widget's events and toasts.
func withEffects(p Props, eff widget.Effects) Result[Props] {
	res := OK(p)
	for _, ev := range eff.Events {
		res = res.Trigger(ev.Name, ev.Data)
	}
	for _, t := range eff.Toasts {
		res = res.Flash(t.Variant, t.Title, t.Message)
	}
	return res
}

// whole swaps the entire widget, whichever element inside it sent the
// request.
func whole(p Props, res Result[Props]) Result[Props] {
	return res.Retarget("#" + rootID(p)).Reswap(SwapOuter)
}

func (l *Lookup) handleFocus(ctx context.Context, p Props, _ *http.Request) Result[Props] {
	tk, err := p.widget.Focus()
	if err != nil {
		return Err(p, l.widgetErr(err))
	}
	return l.awaitSearch(ctx, p, tk)
}

func (l *Lookup) handleSearch(ctx context.Context, p Props, r *http.Request) Result[Props] {
	tk, err := p.widget.Type(r.FormValue("q"))
	if err != nil {
		return Err(p, l.widgetErr(err))
	}
	return l.awaitSearch(ctx, p, tk)
}

// awaitSearch answers with the dropdown for tk, or with nothing when a newer
// query already replaced it.
func (l *Lookup) awaitSearch(ctx context.Context, p Props, tk search.Ticket) Result[Props] {
	snap, live, err := p.widget.AwaitSearch(ctx, tk)
	if err != nil {
		if ctx.Err() != nil {
			return NoContent[Props]()
		}
		return Err(p, l.widgetErr(err))
	}
	if !live {
		return NoContent[Props]()
	}
	p.snap = snap
	p.part = partDropdown
	return OK(p)
}

func (l *Lookup) handleBlur(ctx context.Context, p Props, _ *http.Request) Result[Props] {
	settled, err := p.widget.Blur()
	if err != nil {
		return Err(p, l.widgetErr(err))
	}
	select {
	case <-settled:
	case <-ctx.Done():
		return NoContent[Props]()
	}
	if err := l.refresh(&p); err != nil {
		return Err(p, err)
	}
	p.part = partDropdown
	return OK(p)
}

func (l *Lookup) handleChoose(_ context.Context, p Props, r *http.Request) Result[Props] {
	eff, err := p.widget.Choose(r.FormValue("id"))
	if err != nil {
		return Err(p, l.widgetErr(err))
	}
	if err := l.refresh(&p); err != nil {
		return Err(p, err)
	}
	return whole(p, withEffects(p, eff))
}

func (l *Lookup) handleClear(_ context.Context, p Props, _ *http.Request) Result[Props] {
	eff, err := p.widget.Clear()
	if err != nil {
		return Err(p, l.widgetErr(err))
	}
	if err := l.refresh(&p); err != nil {
		return Err(p, err)
	}
	return whole(p, withEffects(p, eff))
}

func (l *Lookup) handleCreate(_ context.Context, p Props, _ *http.Request) Result[Props] {
	eff, err := p.widget.OpenCreate()
	switch {
	case errors.Is(err, createflow.ErrInvalidTransition):
		// Already open: a double click renders the modal again.
	case errors.Is(err, widget.ErrCreateDisabled):
		return Err(p, fmt.Errorf("%w: %w", ErrNotFound, err))
	case err != nil:
		return Err(p, l.widgetErr(err))
	}
	if err := l.refresh(&p); err != nil {
		return Err(p, err)
	}
	return whole(p, withEffects(p, eff))
}

func (l *Lookup) handleContinue(_ context.Context, p Props, r *http.Request) Result[Props] {
	err := p.widget.ChooseRecordType(r.FormValue("recordType"))
	if err == nil {
		err = p.widget.ContinueCreate()
	}
	unchosen := errors.Is(err, createflow.ErrUnknownRecordType)
	if err != nil && !unchosen {
		return Err(p, l.widgetErr(err))
	}
	if err := l.refresh(&p); err != nil {
		return Err(p, err)
	}
	res := OK(p)
	if unchosen {
		res = res.Flash(FlashWarning, "Record type", "Select a record type to continue")
	}
	return res
}

func (l *Lookup) handleSubmit(ctx context.Context, p Props, r *http.Request) Result[Props] {
	if err := r.ParseForm(); err != nil {
		return Err(p, fmt.Errorf("%w: %w", ErrInvalidFormat, err))
	}
	fields := make(map[string]string, len(p.snap.Create.FormFields))
	for _, f := range p.snap.Create.FormFields {
		if vs, ok := r.PostForm[f.Name]; ok && len(vs) > 0 {
			fields[f.Name] = vs[0]
		}
	}
	eff, err := p.widget.SubmitCreate(ctx, fields)
	if err != nil && !widget.IsSubmissionError(err) {
		return Err(p, l.widgetErr(err))
	}
	// After a successful create the new record is looked up again for its
	// display fields.
	settleCtx, cancel := context.WithTimeout(ctx, l.settle)
	defer cancel()
	snap, serr := p.widget.Settled(settleCtx)
	if serr != nil && !errors.Is(serr, context.DeadlineExceeded) {
		return Err(p, l.widgetErr(serr))
	}
	p.snap = snap
	return withEffects(p, eff)
}

func (l *Lookup) handleCancel(_ context.Context, p Props, _ *http.Request) Result[Props] {
	eff, err := p.widget.CancelCreate()
	if err != nil {
		return Err(p, l.widgetErr(err))
	}
	if err := l.refresh(&p); err != nil {
		return Err(p, err)
	}
	return withEffects(p, eff)
}

func (l *Lookup) handleDismiss(_ context.Context, p Props, _ *http.Request) Result[Props] {
	eff, err := p.widget.AcknowledgeCreateError()
	if err != nil {
		return Err(p, l.widgetErr(err))
	}
	if err := l.refresh(&p); err != nil {
		return Err(p, err)
	}
	return withEffects(p, eff)
}

// handleSetValue points the widget at a new identifier, as a host does when
// the row value changes outside the lookup.
func (l *Lookup) handleSetValue(ctx context.Context, p Props, r *http.Request) Result[Props] {
	if err := p.widget.SetValueID(r.FormValue("id")); err != nil {
		return Err(p, l.widgetErr(err))
	}
	settleCtx, cancel := context.WithTimeout(ctx, l.settle)
	defer cancel()
	snap, err := p.widget.Settled(settleCtx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return Err(p, l.widgetErr(err))
	}
	p.snap = snap
	return whole(p, OK(p))
}
