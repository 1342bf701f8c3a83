package server

import "context"

// Server is a long-running listener driven by the fx lifecycle.
// Start returns once the listener is bound; Stop drains in-flight requests until ctx is done.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Addr() string
}
