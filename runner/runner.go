// Package runner implements the orchestration layer: it resolves the root
// agent, creates run contexts, streams events, applies event side-effects
// (state deltas) and persists session history. Public methods are safe for
// concurrent use.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/tickerdesk/tickerdesk/artifact"
	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/internal/util"
	"github.com/tickerdesk/tickerdesk/logging"
	"github.com/tickerdesk/tickerdesk/memory"
	"github.com/tickerdesk/tickerdesk/session"
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run (0 = unlimited).
	MaxModelCalls int
	// SessionStore persists sessions; defaults to in-memory.
	SessionStore core.SessionStore
	// ArtifactStore persists artifacts; defaults to in-memory.
	ArtifactStore core.ArtifactStore
	// MemoryStore persists recall memories; defaults to in-memory.
	MemoryStore core.MemoryStore
	// Logger receives structured run logs; defaults to NoOp.
	Logger logging.Logger
}

// Runner coordinates agent execution for a single root agent.
type Runner struct {
	agent core.Agent

	eventBufferSize int
	maxModelCalls   int

	sessionStore  core.SessionStore
	artifactStore core.ArtifactStore
	memoryStore   core.MemoryStore
	logger        logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   100,
		SessionStore:    session.NewInMemoryStore(),
		ArtifactStore:   artifact.NewInMemoryStore(),
		MemoryStore:     memory.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		agent:           agent,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		sessionStore:    opts.SessionStore,
		artifactStore:   opts.ArtifactStore,
		memoryStore:     opts.MemoryStore,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// Run starts an asynchronous run of the root agent against a session. It
// returns the run id, a channel of events and a channel of errors; both
// channels close when the run finishes.
func (r *Runner) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	sess, err := r.sessionStore.Get(sessionID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	runID := util.NewID()

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)
	resumeCh := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	userEvent := core.NewUserContentEvent(runID, &userContent)
	if err := r.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		cancel()
		r.mu.Lock()
		delete(r.activeRuns, runID)
		r.mu.Unlock()
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	runCtx := core.NewRunContext(ctx, core.RunContextParams{
		SessionID:     sessionID,
		RunID:         runID,
		Agent:         core.AgentInfo{Name: r.agent.Name(), Type: "model"},
		UserContent:   userContent,
		MaxModelCalls: r.maxModelCalls,
		Emit:          agentEmit,
		Resume:        resumeCh,
		Session:       sess,
		SessionStore:  r.sessionStore,
		ArtifactStore: r.artifactStore,
		MemoryStore:   r.memoryStore,
		Logger:        r.logger,
	})

	go func() {
		defer func() {
			close(agentEmit)
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
		}()

		if err := r.runAgent(runCtx); err != nil {
			select {
			case <-runCtx.Done():
			case errorsCh <- fmt.Errorf("agent execution failed: %w", err):
			}
		}
	}()

	go func() {
		defer func() { close(eventsCh); close(errorsCh) }()
		r.processEvents(runCtx, sessionID, agentEmit, resumeCh, eventsCh, errorsCh)
	}()

	return runID, eventsCh, errorsCh, nil
}

// Cancel cancels a running run by id.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()
	return nil
}

func (r *Runner) runAgent(runCtx *core.RunContext) error {
	if err := r.agent.Start(runCtx); err != nil {
		return err
	}

	defer func() {
		if err := r.agent.Stop(runCtx); err != nil {
			r.logger.Warn("runner.agent.stop_failed", "agent", r.agent.Name(), "error", err.Error())
		}
	}()

	return r.agent.Run(runCtx)
}

// processEvents persists non-partial events, applies their actions, forwards
// them to the caller and signals the agent to resume after each persistence.
func (r *Runner) processEvents(
	runCtx *core.RunContext,
	sessionID string,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
	errorsCh chan<- error,
) {
	for {
		select {
		case <-runCtx.Done():
			return
		case ev, ok := <-agentEmit:
			if !ok {
				return
			}

			if err := r.applyEventActions(sessionID, ev); err != nil {
				select {
				case <-runCtx.Done():
				case errorsCh <- fmt.Errorf("failed to process event actions: %w", err):
				}
				return
			}

			if !ev.IsPartial() {
				if err := r.sessionStore.AppendEvent(sessionID, ev); err != nil {
					select {
					case <-runCtx.Done():
					case errorsCh <- fmt.Errorf("failed to append event to session: %w", err):
					}
					return
				}
			}

			select {
			case <-runCtx.Done():
				return
			case eventsCh <- ev:
				r.logger.Debug("runner.event.delivered", "event_id", ev.ID, "session_id", sessionID)
			}

			if !ev.IsPartial() {
				select {
				case <-runCtx.Done():
					return
				case resumeCh <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (r *Runner) applyEventActions(sessionID string, ev core.Event) error {
	if len(ev.Actions.StateDelta) > 0 {
		if err := r.sessionStore.ApplyDelta(sessionID, ev.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}
	}

	if ev.Actions.TransferToAgent != nil && *ev.Actions.TransferToAgent != "" {
		r.logger.Debug("runner.event.transfer", "target", *ev.Actions.TransferToAgent, "session_id", sessionID)
	}

	if ev.Actions.Escalate != nil && *ev.Actions.Escalate {
		r.logger.Debug("runner.event.escalate", "session_id", sessionID)
	}

	return nil
}
