package ctxmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSetText(t *testing.T) {
	t.Run("text block", func(t *testing.T) {
		b := Block{Type: BlockText, Text: "hello"}
		text, ok := GetText(b)
		assert.True(t, ok)
		assert.Equal(t, "hello", text)

		assert.True(t, SetText(&b, "world"))
		assert.Equal(t, "world", b.Text)
	})

	t.Run("tool result wrapping a text block", func(t *testing.T) {
		b := Block{
			Type: BlockToolResult,
			ToolResult: &ToolResult{
				ToolUseId: "tu1",
				Content:   []Block{{Type: BlockText, Text: "file contents"}},
			},
		}
		text, ok := GetText(b)
		assert.True(t, ok)
		assert.Equal(t, "file contents", text)

		assert.True(t, SetText(&b, "rewritten"))
		assert.Equal(t, "rewritten", b.ToolResult.Content[0].Text)
	})

	t.Run("tool use is not text-bearing", func(t *testing.T) {
		b := Block{Type: BlockToolUse, ToolUse: &ToolUse{Id: "tu1", Name: "read_file"}}
		_, ok := GetText(b)
		assert.False(t, ok)
		assert.False(t, SetText(&b, "x"))
	})

	t.Run("empty tool result is not text-bearing", func(t *testing.T) {
		b := Block{Type: BlockToolResult, ToolResult: &ToolResult{ToolUseId: "tu1"}}
		_, ok := GetText(b)
		assert.False(t, ok)
	})
}

func TestCloneMessageIsIndependent(t *testing.T) {
	original := Message{
		Role: RoleAssistant,
		Content: []Block{
			{Type: BlockToolUse, ToolUse: &ToolUse{Id: "tu1", Name: "read_file", Input: `{"path":"a.go"}`}},
		},
	}
	clone := cloneMessage(original)
	clone.Content[0].ToolUse.Input = "mutated"

	assert.Equal(t, `{"path":"a.go"}`, original.Content[0].ToolUse.Input)
	assert.Equal(t, "mutated", clone.Content[0].ToolUse.Input)
}

func TestBlockSize(t *testing.T) {
	assert.Equal(t, 5, blockSize(Block{Type: BlockText, Text: "hello"}))
	assert.Equal(t, 3, blockSize(Block{Type: BlockImage, Image: &Image{Source: "abc"}}))
	assert.Equal(t, 0, blockSize(Block{Type: BlockToolUse, ToolUse: &ToolUse{Id: "tu1"}}))
}
