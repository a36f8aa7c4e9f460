package ctxmgr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textMsg(role Role, text string) Message {
	return Message{Role: role, Content: []Block{{Type: BlockText, Text: text}}}
}

func TestRenderNoDeletionNoOverlay(t *testing.T) {
	history := []Message{
		textMsg(RoleUser, "hi"),
		textMsg(RoleAssistant, "hello"),
	}
	out := Render(history, NewEditLog(), Range{Start: 2, End: 1}, DefaultNotices{})
	require.Len(t, out, 2)
	text, _ := GetText(out[0].Content[0])
	assert.Equal(t, "hi", text)
}

func TestRenderAppliesOverlay(t *testing.T) {
	history := []Message{
		textMsg(RoleUser, "hi"),
		textMsg(RoleAssistant, "hello"),
		textMsg(RoleUser, "big file contents"),
		textMsg(RoleAssistant, "ok"),
	}
	log := NewEditLog()
	require.NoError(t, log.Apply(2, 0, "text", []string{"[collapsed]"}, nil, 10, EditReadFileTool))

	out := Render(history, log, Range{Start: 2, End: 1}, DefaultNotices{})
	text, _ := GetText(out[2].Content[0])
	assert.Equal(t, "[collapsed]", text)

	// The raw history is untouched.
	rawText, _ := GetText(history[2].Content[0])
	assert.Equal(t, "big file contents", rawText)
}

func TestRenderInsertsTruncationNoticeOnce(t *testing.T) {
	history := alternating(11)
	history[1] = textMsg(RoleAssistant, "second message")
	deleted := Range{Start: 2, End: 5}

	out := Render(history, NewEditLog(), deleted, DefaultNotices{})
	text, ok := GetText(out[1].Content[0])
	require.True(t, ok)
	assert.Contains(t, text, "[Note: earlier conversation history was truncated")
	assert.Equal(t, 1, strings.Count(text, "[Note: earlier conversation history was truncated"))
	assert.Contains(t, text, "second message")
}

func TestRenderDropsDeletedMessages(t *testing.T) {
	history := alternating(11)
	deleted := Range{Start: 2, End: 5}
	out := Render(history, NewEditLog(), deleted, DefaultNotices{})
	// 11 raw messages, 4 deleted (indices 2..5), 7 remain.
	assert.Len(t, out, 7)
}

func TestRenderRepairsOrphanToolResult(t *testing.T) {
	history := []Message{
		textMsg(RoleUser, "hi"),
		{Role: RoleAssistant, Content: []Block{
			{Type: BlockToolUse, ToolUse: &ToolUse{Id: "tu1", Name: "read_file"}},
		}},
		{Role: RoleUser, Content: []Block{
			{Type: BlockToolResult, ToolResult: &ToolResult{ToolUseId: "tu1", Content: []Block{{Type: BlockText, Text: "contents"}}}},
		}},
		textMsg(RoleAssistant, "thanks"),
		textMsg(RoleUser, "next turn"),
		textMsg(RoleAssistant, "final"),
	}
	// Delete [2,3]: the tool_result message and the reply after it, leaving
	// message 1's tool_use with no paired result in the rendered view.
	deleted := Range{Start: 2, End: 3}
	out := Render(history, NewEditLog(), deleted, DefaultNotices{})

	require.Len(t, out, 4) // 0, 1, 4, 5
	require.Equal(t, RoleAssistant, out[1].Role)
	require.Equal(t, RoleUser, out[2].Role)

	hasSynthetic := false
	for _, b := range out[2].Content {
		if b.Type == BlockToolResult && b.ToolResult != nil && b.ToolResult.ToolUseId == "tu1" {
			hasSynthetic = true
		}
	}
	assert.True(t, hasSynthetic, "expected a synthetic tool_result repairing tu1")
}

func TestRenderOrdersAndPrependsRepairedToolResults(t *testing.T) {
	history := []Message{
		textMsg(RoleUser, "hi"),
		{Role: RoleAssistant, Content: []Block{
			{Type: BlockToolUse, ToolUse: &ToolUse{Id: "zeta", Name: "read_file"}},
			{Type: BlockToolUse, ToolUse: &ToolUse{Id: "alpha", Name: "read_file"}},
		}},
		{Role: RoleUser, Content: []Block{
			{Type: BlockText, Text: "here you go"},
			{Type: BlockToolResult, ToolResult: &ToolResult{ToolUseId: "alpha", Content: []Block{{Type: BlockText, Text: "alpha contents"}}}},
		}},
	}
	out := Render(history, NewEditLog(), Range{Start: 2, End: 1}, DefaultNotices{})

	require.Len(t, out, 3)
	require.Len(t, out[2].Content, 3)

	// zeta's result is missing and must be synthesized; both results must
	// lead the block list in ToolUse order (zeta, then alpha), with the
	// original text block preserved after them, not ahead.
	require.Equal(t, BlockToolResult, out[2].Content[0].Type)
	assert.Equal(t, "zeta", out[2].Content[0].ToolResult.ToolUseId)
	require.Equal(t, BlockToolResult, out[2].Content[1].Type)
	assert.Equal(t, "alpha", out[2].Content[1].ToolResult.ToolUseId)
	require.Equal(t, BlockText, out[2].Content[2].Type)
	assert.Equal(t, "here you go", out[2].Content[2].Text)
}

func TestRenderDropsOrphanToolResultWhenUseWasDeleted(t *testing.T) {
	history := []Message{
		textMsg(RoleUser, "hi"),
		textMsg(RoleAssistant, "hello"),
		{Role: RoleUser, Content: []Block{
			{Type: BlockToolUse, ToolUse: &ToolUse{Id: "tu-gone", Name: "read_file"}}, // malformed but harmless
		}},
		{Role: RoleAssistant, Content: []Block{
			{Type: BlockToolUse, ToolUse: &ToolUse{Id: "tu2", Name: "read_file"}},
		}},
		{Role: RoleUser, Content: []Block{
			{Type: BlockToolResult, ToolResult: &ToolResult{ToolUseId: "tu-does-not-exist", Content: []Block{{Type: BlockText, Text: "x"}}}},
		}},
		textMsg(RoleAssistant, "done"),
	}
	// Delete [2,3]: message 4 (first kept after the gap) carries a
	// tool_result referencing a use id that isn't in the rendered history at
	// all; it must be dropped, not repaired as missing.
	deleted := Range{Start: 2, End: 3}
	out := Render(history, NewEditLog(), deleted, DefaultNotices{})

	require.Len(t, out, 4) // 0, 1, 4, 5
	assert.Empty(t, out[2].Content)
}
