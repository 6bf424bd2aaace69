package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/tickerdesk/tickerdesk/logging"
)

// RunContext carries execution state & helpers for an agent run. It
// encapsulates the mutable, per-run execution scope passed to an Agent's Run
// method:
//   - The ambient cancellation Context
//   - Identifiers (SessionID, RunID, Agent info)
//   - Input user Content
//   - Emission / resumption coordination channels
//   - Backing stores (session, artifact, memory) for persistence concerns
//   - A working Session snapshot and a pending StateDelta to commit
//
// State mutations performed via SetState accumulate in StateDelta until
// CommitStateDelta applies them.
type RunContext struct {
	Context          context.Context
	SessionID, RunID string
	Agent            AgentInfo
	UserContent      Content
	Emit             chan<- Event
	Resume           <-chan struct{}
	SessionStore     SessionStore
	ArtifactStore    ArtifactStore
	MemoryStore      MemoryStore
	Limiter          *ModelLimiter
	Session          *Session
	StateDelta       map[string]any
	Artifacts        []string
	Branch           string

	*loggerAdapter
}

// RunContextParams bundles the dependencies required to construct a RunContext.
type RunContextParams struct {
	SessionID     string
	RunID         string
	Agent         AgentInfo
	UserContent   Content
	MaxModelCalls int
	Emit          chan<- Event
	Resume        <-chan struct{}
	Session       *Session
	SessionStore  SessionStore
	ArtifactStore ArtifactStore
	MemoryStore   MemoryStore
	Logger        logging.Logger
}

// NewRunContext constructs a RunContext with empty state and artifact deltas.
func NewRunContext(ctx context.Context, p RunContextParams) *RunContext {
	return &RunContext{
		Context:       ctx,
		SessionID:     p.SessionID,
		RunID:         p.RunID,
		Agent:         p.Agent,
		UserContent:   p.UserContent,
		Emit:          p.Emit,
		Resume:        p.Resume,
		Session:       p.Session,
		SessionStore:  p.SessionStore,
		ArtifactStore: p.ArtifactStore,
		MemoryStore:   p.MemoryStore,
		Limiter:       NewModelLimiter(p.MaxModelCalls),
		StateDelta:    map[string]any{},
		Artifacts:     []string{},
		loggerAdapter: newLoggerAdapter(p.Logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted
// session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}

	if rc.Session != nil {
		return rc.Session.GetState(k)
	}

	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// ApplyStateDelta merges all pairs from d into the staged StateDelta.
func (rc *RunContext) ApplyStateDelta(d map[string]any) {
	maps.Copy(rc.StateDelta, d)
}

// StateSnapshot returns a copy of the persisted session state merged with the
// staged delta. Used by observability hooks that report agent state.
func (rc *RunContext) StateSnapshot() map[string]any {
	snap := map[string]any{}
	if rc.Session != nil {
		rc.Session.mu.RLock()
		maps.Copy(snap, rc.Session.State)
		rc.Session.mu.RUnlock()
	}
	maps.Copy(snap, rc.StateDelta)
	return snap
}

// SaveArtifact stores bytes in the ArtifactStore and stages the id for the
// next emitted event.
func (rc *RunContext) SaveArtifact(id string, data []byte) error {
	if rc.ArtifactStore == nil {
		return fmt.Errorf("artifact store not configured")
	}

	if err := rc.ArtifactStore.Save(rc.SessionID, id, data); err != nil {
		return err
	}

	rc.Artifacts = append(rc.Artifacts, id)

	return nil
}

// GetArtifact retrieves previously saved artifact bytes.
func (rc *RunContext) GetArtifact(id string) ([]byte, error) {
	if rc.ArtifactStore == nil {
		return nil, fmt.Errorf("artifact store not configured")
	}

	return rc.ArtifactStore.Get(rc.SessionID, id)
}

// SearchMemory queries the MemoryStore for relevant content.
func (rc *RunContext) SearchMemory(q string, limit int) ([]SearchResult, error) {
	if rc.MemoryStore == nil {
		return []SearchResult{}, nil
	}

	return rc.MemoryStore.Search(rc.SessionID, q, limit)
}

// StoreMemory appends content plus metadata to the MemoryStore.
func (rc *RunContext) StoreMemory(content string, md map[string]any) error {
	if rc.MemoryStore == nil {
		return fmt.Errorf("memory store not configured")
	}
	return rc.MemoryStore.Store(rc.SessionID, content, md)
}

// RefreshSession reloads the session snapshot from the SessionStore.
func (rc *RunContext) RefreshSession() error {
	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	s, err := rc.SessionStore.Get(rc.SessionID)
	if err != nil {
		return err
	}

	rc.Session = s

	return nil
}

// CommitStateDelta persists the accumulated StateDelta then clears the buffer.
func (rc *RunContext) CommitStateDelta() error {
	if len(rc.StateDelta) == 0 {
		return nil
	}

	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	if err := rc.SessionStore.ApplyDelta(rc.SessionID, rc.StateDelta); err != nil {
		return err
	}

	rc.StateDelta = map[string]any{}

	return nil
}

// GetSessionHistory returns all historical events for the session.
func (rc *RunContext) GetSessionHistory() []Event {
	if rc.Session == nil {
		return []Event{}
	}

	return rc.Session.GetEvents()
}

// GetAgentName returns the logical agent name for this run.
func (rc *RunContext) GetAgentName() string { return rc.Agent.Name }

// WithAgent returns a shallow copy of the context rebound to another agent
// identity. Used when control is handed off within the same run.
func (rc *RunContext) WithAgent(info AgentInfo) *RunContext {
	c := *rc
	c.Agent = info
	c.StateDelta = map[string]any{}
	maps.Copy(c.StateDelta, rc.StateDelta)
	return &c
}
