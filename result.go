package hxlookup

import "net/http"

// Result[P] is returned from action handlers to control rendering and side
// effects. It is a fluent builder; the component applies it after the
// handler returns.
//
//	return hxlookup.OK(props)
//	return hxlookup.OK(props).Flash(hxlookup.FlashSuccess, "Saved", "Record saved")
//	return hxlookup.OK(props).Trigger("lookup:selected", map[string]any{"selectedId": id})
//	return hxlookup.Err(props, err)
type Result[P any] struct {
	props    P
	err      error
	flashes  []Flash
	triggers []TriggerEvent
	retarget string
	reswap   SwapMode
	status   int
}

// TriggerEvent is one event sent to the browser in the HX-Trigger header.
// A nil Data sends the event without a detail object.
type TriggerEvent struct {
	Name string
	Data map[string]any
}

// OK creates a success result that will render with the given props.
func OK[P any](props P) Result[P] {
	return Result[P]{props: props}
}

// Err creates an error result that is passed to the registry's OnError.
func Err[P any](props P, err error) Result[P] {
	return Result[P]{props: props, err: err}
}

// NoContent creates a result that answers 204 without rendering. HTMX
// leaves the page untouched.
func NoContent[P any]() Result[P] {
	return Result[P]{status: http.StatusNoContent}
}

// Flash adds a toast to the result. Toasts are rendered as out-of-band swaps
// into the #toasts container.
func (r Result[P]) Flash(level, title, message string) Result[P] {
	r.flashes = append(r.flashes, Flash{Level: level, Title: title, Message: message})
	return r
}

// Trigger adds an event to the HX-Trigger header. Triggers accumulate in
// order; data, when given, becomes the event's detail.
func (r Result[P]) Trigger(event string, data ...map[string]any) Result[P] {
	ev := TriggerEvent{Name: event}
	if len(data) > 0 {
		ev.Data = data[0]
	}
	r.triggers = append(r.triggers, ev)
	return r
}

// Retarget replaces the swap target with the element matching selector.
func (r Result[P]) Retarget(selector string) Result[P] {
	r.retarget = selector
	return r
}

// Reswap overrides the swap strategy chosen by the requesting element.
func (r Result[P]) Reswap(mode SwapMode) Result[P] {
	r.reswap = mode
	return r
}

// GetProps returns the props from the result.
func (r Result[P]) GetProps() P {
	return r.props
}

// GetErr returns the error from the result.
func (r Result[P]) GetErr() error {
	return r.err
}

// GetFlashes returns the flash messages.
func (r Result[P]) GetFlashes() []Flash {
	return r.flashes
}

// GetTriggers returns the triggered events in order.
func (r Result[P]) GetTriggers() []TriggerEvent {
	return r.triggers
}

func (r Result[P]) GetRetarget() string {
	return r.retarget
}

func (r Result[P]) GetReswap() SwapMode {
	return r.reswap
}

// GetStatus returns the HTTP status code (0 means not set, use default 200).
func (r Result[P]) GetStatus() int {
	return r.status
}
