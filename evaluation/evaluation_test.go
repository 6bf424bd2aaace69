package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/internal/testutil"
)

func TestEvaluateExplainedHandoff(t *testing.T) {
	events := []core.Event{
		testutil.NewEventBuilder().Author("root_agent").
			AssistantText("Handing off to `search_format_agent` to complete the request.").
			FunctionCall(core.TransferToolName, `{"agent_name":"search_format_agent"}`).
			Build(),
		testutil.NewEventBuilder().Author("search_format_agent").
			AssistantText(`{"ticker":"TSLA","price":"173.95","date":"2024-02-23"}`).
			TurnComplete(true).
			Build(),
	}

	result := NewTranscriptEvaluator().Evaluate(events)

	assert.True(t, result.OK())
	assert.Equal(t, 2, result.EventCount)

	require.NotNil(t, result.Quote)
	assert.Equal(t, "TSLA", result.Quote.Ticker)
	assert.Equal(t, "173.95", result.Quote.Price)
}

func TestEvaluateFlagsSilentHandoff(t *testing.T) {
	events := []core.Event{
		testutil.NewEventBuilder().Author("root_agent").
			FunctionCall(core.TransferToolName, `{"agent_name":"search_format_agent"}`).
			Build(),
	}

	result := NewTranscriptEvaluator().Evaluate(events)

	require.Len(t, result.Findings, 1)
	assert.Contains(t, result.Findings[0].Message, "no preceding explanation")
	assert.False(t, result.OK())
}

func TestEvaluateWhitespaceDoesNotCount(t *testing.T) {
	events := []core.Event{
		testutil.NewEventBuilder().Author("root_agent").
			AssistantText("   \n").
			FunctionCall(core.TransferToolName, `{"agent_name":"search_format_agent"}`).
			Build(),
	}

	result := NewTranscriptEvaluator().Evaluate(events)
	assert.False(t, result.OK())
}

func TestEvaluateIgnoresPartialsAndNonTransferCalls(t *testing.T) {
	events := []core.Event{
		testutil.NewEventBuilder().Author("root_agent").Partial(true).
			FunctionCall(core.TransferToolName, `{"agent_name":"x"}`).
			Build(),
		testutil.NewEventBuilder().Author("search_format_agent").
			FunctionCall("web_search", `{"query":"TSLA"}`).
			Build(),
	}

	result := NewTranscriptEvaluator().Evaluate(events)
	assert.True(t, result.OK())
	assert.Nil(t, result.Quote)
}

func TestEvaluateFinalTextIsLastFinalResponse(t *testing.T) {
	events := []core.Event{
		testutil.NewEventBuilder().Author("root_agent").
			AssistantText("intermediate note").TurnComplete(true).
			Build(),
		testutil.NewEventBuilder().Author("search_format_agent").
			AssistantText("the final word").TurnComplete(true).
			Build(),
	}

	result := NewTranscriptEvaluator().Evaluate(events)
	assert.Equal(t, "the final word", result.FinalText)
}
