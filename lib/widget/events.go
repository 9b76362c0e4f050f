package widget

import "fmt"

// Outward event names.
const (
	EventSelected          = "lookup:selected"
	EventCleared           = "lookup:cleared"
	EventLookupValueSelect = "lookupvalueselect"
	EventValueSelect       = "valueselect"
	EventHostLock          = "lookup:lock"
	EventHostUnlock        = "lookup:unlock"
)

// Event is a notification for the host. Data is serialised as-is; a nil
// value in Data is a JSON null.
type Event struct {
	Name string
	Data map[string]any
}

// Toast variants.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// Toast is a transient message for the user.
type Toast struct {
	Title   string
	Message string
	Variant string
}

// Effects collects the outward notifications produced by one operation.
type Effects struct {
	Events []Event
	Toasts []Toast
}

func (e *Effects) event(ev Event) {
	e.Events = append(e.Events, ev)
}

func (e *Effects) toast(t Toast) {
	e.Toasts = append(e.Toasts, t)
}

// Empty reports whether nothing needs to be delivered.
func (e Effects) Empty() bool {
	return len(e.Events) == 0 && len(e.Toasts) == 0
}

// Notifier receives every event a widget emits, in emission order. Emit is
// called from the widget's event loop and must not block for long.
type Notifier interface {
	Emit(instanceID string, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(instanceID string, ev Event)

func (f NotifierFunc) Emit(instanceID string, ev Event) { f(instanceID, ev) }

func selectedEvent(cfg Config, id string) Event {
	if cfg.Mode == ModeLegacy {
		return Event{Name: EventLookupValueSelect, Data: map[string]any{
			"selectedId":   id,
			"key":          cfg.CorrelationKey,
			"fieldApiName": cfg.FieldName,
		}}
	}
	return Event{Name: EventSelected, Data: map[string]any{
		"selectedId": id,
		"key":        cfg.CorrelationKey,
		"fieldName":  cfg.FieldName,
	}}
}

func clearedEvent(cfg Config) Event {
	if cfg.Mode == ModeLegacy {
		return Event{Name: EventValueSelect, Data: map[string]any{
			"selectedId": "",
			"key":        cfg.CorrelationKey,
		}}
	}
	return Event{Name: EventCleared, Data: map[string]any{
		"selectedId": nil,
		"key":        cfg.CorrelationKey,
		"fieldName":  cfg.FieldName,
	}}
}

func createdEvent(cfg Config, id string) Event {
	if cfg.Mode == ModeLegacy {
		return Event{Name: EventValueSelect, Data: map[string]any{
			"selectedId": id,
			"key":        cfg.CorrelationKey,
		}}
	}
	return selectedEvent(cfg, id)
}

func lockEvent(cfg Config, locked bool) Event {
	name := EventHostUnlock
	if locked {
		name = EventHostLock
	}
	return Event{Name: name, Data: map[string]any{
		"key":       cfg.CorrelationKey,
		"fieldName": cfg.FieldName,
	}}
}

func savedToast(id string) Toast {
	return Toast{
		Title:   "Success",
		Message: fmt.Sprintf("Record saved successfully with id: %s", id),
		Variant: ToastSuccess,
	}
}

func saveFailedToast() Toast {
	return Toast{
		Title:   "Error",
		Message: "Error saving the record",
		Variant: ToastError,
	}
}
