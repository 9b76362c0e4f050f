package hxlookup

import "strings"

// SwapMode is an hx-swap strategy.
type SwapMode string

const (
	SwapOuter       SwapMode = "outerHTML"
	SwapInner       SwapMode = "innerHTML"
	SwapBeforeEnd   SwapMode = "beforeend"
	SwapAfterEnd    SwapMode = "afterend"
	SwapBeforeBegin SwapMode = "beforebegin"
	SwapAfterBegin  SwapMode = "afterbegin"
	SwapDelete      SwapMode = "delete"
	// SwapNone discards the response body. Headers and out-of-band swaps
	// still apply.
	SwapNone SwapMode = "none"
)

// With appends hx-swap modifiers such as "focus-scroll:false".
func (m SwapMode) With(modifiers ...string) SwapMode {
	if len(modifiers) == 0 {
		return m
	}
	return SwapMode(string(m) + " " + strings.Join(modifiers, " "))
}
