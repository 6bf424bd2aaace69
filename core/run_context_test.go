package core

import (
	"context"
	"testing"

	"github.com/tickerdesk/tickerdesk/logging"
)

type rcMockSessionStore struct {
	sessions map[string]*Session
	applied  map[string]map[string]any
}

func newRCMockSessionStore() *rcMockSessionStore {
	return &rcMockSessionStore{sessions: map[string]*Session{}, applied: map[string]map[string]any{}}
}

func (m *rcMockSessionStore) Create(id string) (*Session, error) {
	s := NewSession(id)
	m.sessions[id] = s
	return s, nil
}

func (m *rcMockSessionStore) Get(id string) (*Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return m.Create(id)
}

func (m *rcMockSessionStore) AppendEvent(id string, ev Event) error {
	s, _ := m.Get(id)
	s.AddEvent(ev)
	return nil
}

func (m *rcMockSessionStore) ApplyDelta(id string, delta map[string]any) error {
	if m.applied[id] == nil {
		m.applied[id] = map[string]any{}
	}
	for k, v := range delta {
		m.applied[id][k] = v
	}
	return nil
}

func newRunContextForTest() (*RunContext, *rcMockSessionStore) {
	store := newRCMockSessionStore()
	sess, _ := store.Create("sess")
	rc := NewRunContext(context.Background(), RunContextParams{
		SessionID:    "sess",
		RunID:        "run",
		Agent:        AgentInfo{Name: "root_agent", Type: "model"},
		UserContent:  NewUserText("hi"),
		Session:      sess,
		SessionStore: store,
		Logger:       logging.NoOpLogger{},
	})
	return rc, store
}

func TestRunContextStateLayering(t *testing.T) {
	rc, _ := newRunContextForTest()
	rc.Session.SetState("persisted", "old")

	if v, ok := rc.GetState("persisted"); !ok || v != "old" {
		t.Fatalf("expected persisted value, got %v", v)
	}

	rc.SetState("persisted", "staged")
	if v, _ := rc.GetState("persisted"); v != "staged" {
		t.Fatalf("staged delta must shadow persisted state, got %v", v)
	}

	snap := rc.StateSnapshot()
	if snap["persisted"] != "staged" {
		t.Fatalf("snapshot must merge delta over state, got %v", snap["persisted"])
	}

	// Snapshot is a copy.
	snap["persisted"] = "mutated"
	if v, _ := rc.GetState("persisted"); v != "staged" {
		t.Fatal("snapshot mutation leaked into the run context")
	}
}

func TestRunContextCommitStateDelta(t *testing.T) {
	rc, store := newRunContextForTest()

	rc.SetState("k1", 123)
	if err := rc.CommitStateDelta(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if store.applied["sess"]["k1"].(int) != 123 {
		t.Fatalf("delta not applied: %+v", store.applied)
	}
	if len(rc.StateDelta) != 0 {
		t.Error("StateDelta should be cleared after commit")
	}
}

func TestRunContextWithAgentIsolation(t *testing.T) {
	rc, _ := newRunContextForTest()
	rc.SetState("shared", 1)

	child := rc.WithAgent(AgentInfo{Name: "search_format_agent", Type: "model"})
	if child.GetAgentName() != "search_format_agent" {
		t.Fatalf("unexpected child agent %q", child.GetAgentName())
	}
	if rc.GetAgentName() != "root_agent" {
		t.Fatal("parent identity must be unchanged")
	}

	// Delta is copied, not shared.
	child.SetState("child_only", 2)
	if _, ok := rc.StateDelta["child_only"]; ok {
		t.Fatal("child delta leaked into parent")
	}
	if v, _ := child.GetState("shared"); v != 1 {
		t.Fatal("child must inherit staged parent state")
	}

	if child.Session != rc.Session {
		t.Fatal("session pointer should be shared across hand-offs")
	}
}

func TestToolContextAccumulatesActions(t *testing.T) {
	rc, _ := newRunContextForTest()
	tc := NewToolContext(rc, "fc-1")

	tc.SetState("quote", "173.95")
	tc.TransferToAgent("search_format_agent")

	ev := NewEvent(rc.RunID, "root_agent")
	tc.InternalApplyActions(&ev)

	if ev.Actions.StateDelta["quote"] != "173.95" {
		t.Fatalf("state delta not applied: %+v", ev.Actions)
	}
	if ev.Actions.TransferToAgent == nil || *ev.Actions.TransferToAgent != "search_format_agent" {
		t.Fatalf("transfer action not applied: %+v", ev.Actions)
	}

	// State set through the tool context is immediately visible on the run.
	if v, _ := rc.GetState("quote"); v != "173.95" {
		t.Fatal("tool state must be staged on the run context")
	}
}
