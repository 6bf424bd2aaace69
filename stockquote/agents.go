// Package stockquote assembles the two-agent stock quote system: a root
// dispatcher that delegates every stock question and a search/format agent
// that looks prices up and answers as structured JSON. Both agents carry the
// full set of lifecycle hooks; the hand-off annotation policy is selected by
// configuration.
package stockquote

import (
	"fmt"

	"github.com/tickerdesk/tickerdesk/agent"
	"github.com/tickerdesk/tickerdesk/config"
	"github.com/tickerdesk/tickerdesk/hook"
	"github.com/tickerdesk/tickerdesk/model"
	"github.com/tickerdesk/tickerdesk/tool"
)

// Agent names used across the system and its tests.
const (
	RootAgentName   = "root_agent"
	SearchAgentName = "search_format_agent"
)

// QuoteStateKey is the session state key holding the delegate's final answer.
const QuoteStateKey = "latest_quote"

const searchAgentInstruction = `You MUST use the web_search tool to find the most recent stock price for
the given stock ticker.

Once you have the information, provide the stock price along with the most
recent date in JSON format like this:
{
    "ticker": "TSLA",
    "price": "173.95",
    "date": "2024-02-23"
}`

const rootAgentInstruction = `For any stock-related query, you must use the search_format_agent sub-agent to get the information. Briefly state why you are delegating before you transfer.`

// Options configures the stock quote system.
type Options struct {
	// Model drives both agents. Required.
	Model model.Model

	// Searcher backs the web_search tool. Required.
	Searcher tool.Searcher

	// HandoffVariant selects the annotation policy: config.HandoffAlways or
	// config.HandoffIfMissing (default).
	HandoffVariant string

	// MaxHistory caps the conversation window per agent; 0 keeps the agent
	// default.
	MaxHistory int
}

// New builds the agent tree and returns the root agent.
func New(opts Options) (*agent.ModelAgent, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("stockquote: model is required")
	}
	if opts.Searcher == nil {
		return nil, fmt.Errorf("stockquote: searcher is required")
	}

	variant := opts.HandoffVariant
	if variant == "" {
		variant = config.HandoffIfMissing
	}
	switch variant {
	case config.HandoffAlways, config.HandoffIfMissing:
	default:
		return nil, fmt.Errorf("stockquote: unknown handoff variant %q", variant)
	}

	searchAgent := agent.NewModelAgent(SearchAgentName, opts.Model, func(o *agent.ModelAgentOptions) {
		o.Description = "searches the internet and formats outputs from other agents"
		o.Instruction = agent.NewInstructionFromText(searchAgentInstruction)
		o.Tools = map[string]tool.Tool{
			"web_search": tool.NewWebSearchTool(opts.Searcher),
		}
		o.Hooks = agentHooks(SearchAgentName, variant)
		o.OutputKey = QuoteStateKey
		o.DisallowTransferToParent = true
		o.DisallowTransferToPeers = true
		if opts.MaxHistory > 0 {
			o.MaxHistoryMessages = opts.MaxHistory
		}
	})

	rootAgent := agent.NewModelAgent(RootAgentName, opts.Model, func(o *agent.ModelAgentOptions) {
		o.Description = "provides realtime stock quotes using the latest search data"
		o.Instruction = agent.NewInstructionFromText(rootAgentInstruction)
		o.Hooks = agentHooks(RootAgentName, variant)
		if opts.MaxHistory > 0 {
			o.MaxHistoryMessages = opts.MaxHistory
		}
	})

	if err := rootAgent.SetSubAgents(searchAgent); err != nil {
		return nil, fmt.Errorf("stockquote: wiring sub-agents: %w", err)
	}

	return rootAgent, nil
}

// agentHooks wires the six lifecycle hooks carried by every agent. The
// tracer's after-model hook is registered ahead of the hand-off policy so
// token usage is logged even when the policy overrides the response.
func agentHooks(agentName, variant string) hook.Hooks {
	tracer := hook.NewTracer()
	reporter := hook.NewContentTypeReporter()
	toolTracer := hook.NewToolTracer()

	handoff := hook.NewAnnotateIfMissing()
	if variant == config.HandoffAlways {
		handoff = hook.NewAlwaysAnnotate(agentName)
	}

	return hook.Hooks{
		BeforeAgent: []hook.BeforeAgent{tracer.BeforeAgent},
		AfterAgent:  []hook.AfterAgent{tracer.AfterAgent},
		BeforeModel: []hook.BeforeModel{reporter.BeforeModel},
		AfterModel:  []hook.AfterModel{tracer.AfterModel, handoff},
		BeforeTool:  []hook.BeforeTool{toolTracer.BeforeTool},
		AfterTool:   []hook.AfterTool{toolTracer.AfterTool},
	}
}
