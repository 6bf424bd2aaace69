// Package tickerdesk provides a high-level façade over the runner and the
// store abstractions (sessions, artifacts, memory, logging) for running a
// hierarchical agent tree. Most applications:
//  1. Build an agent tree (for example stockquote.New)
//  2. Create a TickerDesk via New() with optional store/logger overrides
//  3. Run asynchronously (Run) or synchronously (RunSync)
//
// All defaults are in-memory and safe for local development and testing.
package tickerdesk

import (
	"context"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/logging"
	"github.com/tickerdesk/tickerdesk/runner"
)

// Options configures a TickerDesk instance.
type Options struct {
	// EventBufferSize sets the channel buffer size for event processing.
	EventBufferSize int

	// MaxModelCalls limits model calls per run (0 = unlimited).
	MaxModelCalls int

	// Stores default to in-memory implementations when nil.
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	MemoryStore   core.MemoryStore

	// Logger defaults to NoOp when nil.
	Logger logging.Logger
}

// TickerDesk aggregates a root agent with its runner.
type TickerDesk struct {
	opts   Options
	runner *runner.Runner
}

// New creates a TickerDesk instance running the given root agent.
func New(root core.Agent, optFns ...func(o *Options)) *TickerDesk {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   100,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(root, func(o *runner.Options) {
		o.EventBufferSize = opts.EventBufferSize
		o.MaxModelCalls = opts.MaxModelCalls
		if opts.SessionStore != nil {
			o.SessionStore = opts.SessionStore
		}
		if opts.ArtifactStore != nil {
			o.ArtifactStore = opts.ArtifactStore
		}
		if opts.MemoryStore != nil {
			o.MemoryStore = opts.MemoryStore
		}
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
	})

	return &TickerDesk{opts: opts, runner: r}
}

// Run starts an asynchronous run returning the run id plus event and error
// channels.
func (t *TickerDesk) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	return t.runner.Run(ctx, sessionID, userContent)
}

// RunSync drains the async channels, accumulates events and returns them with
// the run id once the run completes.
func (t *TickerDesk) RunSync(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, []core.Event, error) {
	runID, eventsCh, errorsCh, err := t.runner.Run(ctx, sessionID, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for {
		select {
		case <-ctx.Done():
			return runID, events, ctx.Err()

		case event, ok := <-eventsCh:
			if !ok {
				select {
				case err := <-errorsCh:
					return runID, events, err
				default:
					return runID, events, nil
				}
			}
			events = append(events, event)

		case err := <-errorsCh:
			if err != nil {
				return runID, events, err
			}
		}
	}
}

// Cancel aborts a running run by id.
func (t *TickerDesk) Cancel(runID string) error { return t.runner.Cancel(runID) }
