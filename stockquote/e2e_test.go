package stockquote_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerdesk/tickerdesk"
	"github.com/tickerdesk/tickerdesk/config"
	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/evaluation"
	"github.com/tickerdesk/tickerdesk/model"
	"github.com/tickerdesk/tickerdesk/session"
	"github.com/tickerdesk/tickerdesk/stockquote"
	"github.com/tickerdesk/tickerdesk/tool"
)

const finalQuoteJSON = "{\n    \"ticker\": \"TSLA\",\n    \"price\": \"173.95\",\n    \"date\": \"2024-02-23\"\n}"

// scriptedConversation replays the canonical TSLA run: the root transfers,
// the search agent calls web_search and then answers as JSON.
func scriptedConversation(rootText string) *model.ScriptedModel {
	m := model.NewScriptedModel("scripted")
	m.EnqueueFunctionCall(rootText, "call-1", core.TransferToolName,
		fmt.Sprintf(`{"%s":"%s"}`, core.TransferArgKey, stockquote.SearchAgentName),
		&model.TokenUsage{PromptTokens: 42, CompletionTokens: 11, TotalTokens: 53})
	m.EnqueueFunctionCall("Looking up the latest TSLA price.", "call-2", "web_search",
		`{"query":"TSLA stock price today"}`,
		&model.TokenUsage{PromptTokens: 87, CompletionTokens: 19, TotalTokens: 106})
	m.EnqueueText(finalQuoteJSON,
		&model.TokenUsage{PromptTokens: 131, CompletionTokens: 37, TotalTokens: 168})
	return m
}

func tslaSearcher() tool.Searcher {
	return tool.NewStaticSearcher(map[string][]tool.SearchResult{
		"tsla": {{
			Title:   "Tesla, Inc. (TSLA) Stock Price",
			URL:     "https://finance.example.com/quote/TSLA",
			Snippet: "TSLA closed at 173.95 on 2024-02-23.",
		}},
	})
}

func runStockQuote(t *testing.T, variant, rootText string) ([]core.Event, *core.Session) {
	t.Helper()

	root, err := stockquote.New(stockquote.Options{
		Model:          scriptedConversation(rootText),
		Searcher:       tslaSearcher(),
		HandoffVariant: variant,
	})
	require.NoError(t, err)

	store := session.NewInMemoryStore()
	desk := tickerdesk.New(root, func(o *tickerdesk.Options) {
		o.SessionStore = store
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runID, events, err := desk.RunSync(ctx, "sess-e2e", core.NewUserText("What is the price of TSLA?"))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	sess, err := store.Get("sess-e2e")
	require.NoError(t, err)

	return events, sess
}

func TestStockQuoteRunAnnotatesSilentHandoff(t *testing.T) {
	events, sess := runStockQuote(t, config.HandoffIfMissing, "")

	transferEv := findTransferEvent(t, events)
	require.NotEmpty(t, transferEv.Content.Parts)

	text, ok := transferEv.Content.Parts[0].(core.TextPart)
	require.True(t, ok, "explanation must precede the transfer call")
	assert.Equal(t,
		fmt.Sprintf("Handing off to `%s` to complete the request.", stockquote.SearchAgentName),
		text.Text)

	result := evaluation.NewTranscriptEvaluator().Evaluate(events)
	assert.True(t, result.OK(), "findings: %+v", result.Findings)

	require.NotNil(t, result.Quote)
	assert.Equal(t, "TSLA", result.Quote.Ticker)
	assert.Equal(t, "173.95", result.Quote.Price)
	assert.Equal(t, "2024-02-23", result.Quote.Date)

	// The search agent's final answer lands in session state via its output key.
	stored, ok := sess.GetState(stockquote.QuoteStateKey)
	require.True(t, ok)
	assert.Equal(t, finalQuoteJSON, stored)
}

func TestStockQuoteRunKeepsModelExplanation(t *testing.T) {
	events, _ := runStockQuote(t, config.HandoffIfMissing, "Delegating because the search agent has live data.")

	transferEv := findTransferEvent(t, events)
	text, ok := transferEv.Content.Parts[0].(core.TextPart)
	require.True(t, ok)
	assert.Equal(t, "Delegating because the search agent has live data.", text.Text,
		"a response that already explains itself must pass through unchanged")

	assert.True(t, evaluation.NewTranscriptEvaluator().Evaluate(events).OK())
}

func TestStockQuoteRunAlwaysAnnotates(t *testing.T) {
	events, _ := runStockQuote(t, config.HandoffAlways, "I'll check with the search agent.")

	transferEv := findTransferEvent(t, events)
	text, ok := transferEv.Content.Parts[0].(core.TextPart)
	require.True(t, ok)
	assert.Equal(t,
		fmt.Sprintf("Transferring from %s to %s.", stockquote.RootAgentName, stockquote.SearchAgentName),
		text.Text)

	// The model's own explanation is preserved behind the annotation.
	second, ok := transferEv.Content.Parts[1].(core.TextPart)
	require.True(t, ok)
	assert.Equal(t, "I'll check with the search agent.", second.Text)
}

func TestStockQuoteRunPersistsTranscript(t *testing.T) {
	events, sess := runStockQuote(t, config.HandoffIfMissing, "")

	// User event plus every non-partial agent event.
	stored := sess.GetEvents()
	assert.Equal(t, len(events)+1, len(stored))
	assert.Equal(t, "user", stored[0].Author)

	// The tool turn is visible in the transcript.
	var sawSearchResponse bool
	for _, ev := range events {
		for _, fr := range ev.GetFunctionResponses() {
			if fr.Name == "web_search" {
				sawSearchResponse = true
			}
		}
	}
	assert.True(t, sawSearchResponse, "web_search response must be part of the transcript")
}

func findTransferEvent(t *testing.T, events []core.Event) core.Event {
	t.Helper()
	for _, ev := range events {
		if len(ev.GetTransferCalls()) > 0 {
			return ev
		}
	}
	t.Fatal("no transfer event in transcript")
	return core.Event{}
}
