package ctxmgr

import (
	"testing"

	"convoctx/llm2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLlm2HistoryRoundTripsCoreBlocks(t *testing.T) {
	history := []llm2.Message{
		{Role: llm2.RoleUser, Content: []llm2.ContentBlock{{Type: llm2.ContentBlockTypeText, Text: "hi"}}},
		{Role: llm2.RoleAssistant, Content: []llm2.ContentBlock{
			{Type: llm2.ContentBlockTypeToolUse, ToolUse: &llm2.ToolUseBlock{Id: "tu1", Name: "read_file", Arguments: `{"path":"a.go"}`}},
		}},
		{Role: llm2.RoleUser, Content: []llm2.ContentBlock{
			{Type: llm2.ContentBlockTypeToolResult, ToolResult: &llm2.ToolResultBlock{ToolCallId: "tu1", Text: "contents"}},
		}},
	}

	converted := FromLlm2History(history)
	require.Len(t, converted, 3)
	assert.Equal(t, RoleUser, converted[0].Role)
	text, _ := GetText(converted[0].Content[0])
	assert.Equal(t, "hi", text)

	assert.Equal(t, "tu1", converted[1].Content[0].ToolUse.Id)

	resultText, ok := GetText(converted[2].Content[0])
	require.True(t, ok)
	assert.Equal(t, "contents", resultText)

	back := ToLlm2History(converted)
	require.Len(t, back, 3)
	assert.Equal(t, "hi", back[0].Content[0].Text)
	assert.Equal(t, "tu1", back[1].Content[0].ToolUse.Id)
	assert.Equal(t, "contents", back[2].Content[0].ToolResult.Text)
}

func TestFromLlm2HistoryDowngradesUnsupportedBlocks(t *testing.T) {
	history := []llm2.Message{
		{Role: llm2.RoleAssistant, Content: []llm2.ContentBlock{
			{Type: llm2.ContentBlockTypeReasoning, Reasoning: &llm2.ReasoningBlock{Text: "thinking..."}},
		}},
	}
	converted := FromLlm2History(history)
	text, ok := GetText(converted[0].Content[0])
	require.True(t, ok)
	assert.Equal(t, "[reasoning omitted]", text)
}
