package widget

import (
	"errors"
	"fmt"
)

var (
	ErrClosed            = errors.New("widget: closed")
	ErrReadOnly          = errors.New("widget: read only")
	ErrCreateDisabled    = errors.New("widget: record creation disabled")
	ErrCandidateNotFound = errors.New("widget: candidate not found")
	ErrNoSubmitter       = errors.New("widget: no record submitter configured")
)

// Channel names an asynchronous fetch path of a widget.
type Channel string

const (
	ChannelSearch   Channel = "search"
	ChannelLookup   Channel = "lookup"
	ChannelMetadata Channel = "metadata"
)

// RemoteFetchError is a failed search, default lookup or metadata fetch. It
// is recovered locally and shown as a notice.
type RemoteFetchError struct {
	Channel    Channel
	EntityType string
	Err        error
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("widget: %s fetch for %s: %v", e.Channel, e.EntityType, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// IsRemoteFetchError reports whether err is a RemoteFetchError.
func IsRemoteFetchError(err error) bool {
	var rf *RemoteFetchError
	return errors.As(err, &rf)
}
