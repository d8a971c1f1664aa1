// Package ports defines the interfaces the stepstream domain needs
// from its collaborators, without coupling to specific transports.
package ports

import "context"

// FragmentSource supplies text fragments from an asynchronous
// producer, such as a model streaming API.
//
// Next blocks until a fragment is available, the source is exhausted,
// or ctx is done. Exhaustion is signaled with io.EOF; any other error
// aborts the stream. Fragments must be returned in arrival order.
type FragmentSource interface {
	Next(ctx context.Context) (string, error)
}
