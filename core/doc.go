// Package core provides the foundational domain types and execution contexts
// shared by the TickerDesk agent runtime:
//
//   - Content parts (text, inline data, file references, function calls/results)
//   - Events (immutable communication + orchestration records)
//   - Sessions (stateful conversational containers with event history)
//   - RunContext / ToolContext (scoped execution & tool sandboxing)
//   - Pluggable stores for session state, artifacts and memory recall
//
// The package intentionally keeps implementation concerns (persistence,
// orchestration, concrete agents) out of scope, exposing small interfaces so
// custom backends can be plugged in at wiring time.
package core
