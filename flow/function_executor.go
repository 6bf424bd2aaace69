package flow

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/hook"
	"github.com/tickerdesk/tickerdesk/tool"
)

// FunctionExecutor executes a batch of function calls, possibly in parallel,
// and emits exactly one function response event per call through the emit
// callback. Implementations must respect context cancellation, recover from
// panics internally, dispatch before/after tool hooks and apply ToolContext
// accumulated actions to emitted events. Persistence synchronization is the
// emit callback's responsibility.
type FunctionExecutor interface {
	Execute(runCtx *core.RunContext, agent FlowAgent, registry map[string]tool.Tool, fnCalls []core.FunctionCall, emit func(core.Event) error)
}

// FunctionExecutorConfig configures the default executor.
type FunctionExecutorConfig struct {
	MaxParallel   int  // 0 or <1 means no explicit limit
	PreserveOrder bool // buffer results and emit in original call order
}

type functionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewFunctionExecutor constructs the default executor.
func NewFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &functionExecutor{cfg: cfg}
}

func (e *functionExecutor) Execute(
	runCtx *core.RunContext,
	agent FlowAgent,
	registry map[string]tool.Tool,
	fnCalls []core.FunctionCall,
	emit func(core.Event) error,
) {
	n := len(fnCalls)
	if n == 0 {
		return
	}

	if n == 1 {
		ev := e.executeOne(runCtx, agent, registry, fnCalls[0])
		if err := emit(ev); err != nil {
			runCtx.LogError("agent.function.emit.error", "function", fnCalls[0].Name, "error", err.Error())
		}
		return
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]core.Event, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range fnCalls {
		if runCtx.Context.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			defer func() { <-sem }()

			if runCtx.Context.Err() != nil {
				return
			}

			ev := e.executeOne(runCtx, agent, registry, fc)

			if e.cfg.PreserveOrder {
				mu.Lock()
				results[idx] = ev
				mu.Unlock()
				return
			}

			mu.Lock()
			err := emit(ev)
			mu.Unlock()
			if err != nil {
				runCtx.LogError("agent.function.emit.error", "function", fc.Name, "error", err.Error())
			}
		}(i, fnCalls[i])
	}

	wg.Wait()

	if e.cfg.PreserveOrder {
		for i := 0; i < n; i++ {
			if results[i].ID == "" {
				continue
			}
			if err := emit(results[i]); err != nil {
				runCtx.LogError("agent.function.emit.error", "function", fnCalls[i].Name, "error", err.Error())
			}
		}
	}

	runCtx.LogDebug(
		"agent.functions.batch.complete",
		"agent", agent.GetName(),
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)
}

// executeOne runs a single function call with hook dispatch and panic safety,
// returning the function response event with accumulated actions applied.
func (e *functionExecutor) executeOne(
	runCtx *core.RunContext,
	agent FlowAgent,
	registry map[string]tool.Tool,
	fc core.FunctionCall,
) core.Event {
	toolCtx := core.NewToolContext(runCtx, fc.ID)
	hctx := hook.NewContext(runCtx)
	hooks := agent.GetHooks()

	start := time.Now()
	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				runCtx.LogError("agent.function.panic", "agent", agent.GetName(), "function", fc.Name, "recover", r)
			}
		}()
		result, err = e.callTool(registry, toolCtx, hctx, hooks, fc)
	}()

	runCtx.LogInfo(
		"agent.function.executed",
		"agent", agent.GetName(),
		"function", fc.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	ev := core.NewFunctionResponseEvent(agent.GetName(), fc.ID, fc.Name, result, err)
	ev.RunID = runCtx.RunID
	toolCtx.InternalApplyActions(&ev)
	return ev
}

// callTool parses arguments, dispatches before/after tool hooks around the
// actual invocation and returns the (possibly overridden) result.
func (e *functionExecutor) callTool(
	registry map[string]tool.Tool,
	toolCtx *core.ToolContext,
	hctx *hook.Context,
	hooks hook.Hooks,
	fc core.FunctionCall,
) (any, error) {
	impl, ok := registry[fc.Name]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", fc.Name)
	}

	args := map[string]any{}
	if fc.Arguments != "" {
		if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
	}

	if override := hooks.RunBeforeTool(hctx, fc.Name, args); override != nil {
		args = override
	}

	result, err := impl.Call(toolCtx, args)
	if err != nil {
		return nil, err
	}

	if override := hooks.RunAfterTool(hctx, fc.Name, args, result); override != nil {
		result = override
	}

	return result, nil
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
