package ctxmgr

import "convoctx/llm2"

// FromLlm2History converts a provider-agnostic llm2.Message history into the
// Message/Block shape the engine operates on. llm2 models strictly more
// block kinds (File, Refusal, Reasoning, McpCall) than the engine does;
// each of those is downgraded to a Text block carrying a short description
// so the turn's presence (and role alternation) survives even though its
// original structure doesn't round-trip.
func FromLlm2History(history []llm2.Message) []Message {
	out := make([]Message, len(history))
	for i, m := range history {
		out[i] = Message{
			Role:    fromLlm2Role(m.Role),
			Content: fromLlm2Blocks(m.Content),
		}
	}
	return out
}

func fromLlm2Role(r llm2.Role) Role {
	if r == llm2.RoleAssistant {
		return RoleAssistant
	}
	return RoleUser
}

func fromLlm2Blocks(blocks []llm2.ContentBlock) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = fromLlm2Block(b)
	}
	return out
}

func fromLlm2Block(b llm2.ContentBlock) Block {
	switch b.Type {
	case llm2.ContentBlockTypeText:
		return Block{Type: BlockText, Text: b.Text}
	case llm2.ContentBlockTypeImage:
		source := ""
		if b.Image != nil {
			source = b.Image.Url
		}
		return Block{Type: BlockImage, Image: &Image{Source: source}}
	case llm2.ContentBlockTypeToolUse:
		tu := &ToolUse{}
		if b.ToolUse != nil {
			tu.Id = b.ToolUse.Id
			tu.Name = b.ToolUse.Name
			tu.Input = b.ToolUse.Arguments
		}
		return Block{Type: BlockToolUse, ToolUse: tu}
	case llm2.ContentBlockTypeToolResult:
		tr := &ToolResult{}
		if b.ToolResult != nil {
			tr.ToolUseId = b.ToolResult.ToolCallId
			tr.Content = []Block{{Type: BlockText, Text: b.ToolResult.Text}}
		}
		return Block{Type: BlockToolResult, ToolResult: tr}
	default:
		// File, Refusal, Reasoning, McpCall: not modeled as first-class
		// block types; keep the turn present as inert text so pairing and
		// alternation invariants aren't affected by ingesting them.
		return Block{Type: BlockText, Text: describeUnsupportedBlock(b)}
	}
}

func describeUnsupportedBlock(b llm2.ContentBlock) string {
	switch b.Type {
	case llm2.ContentBlockTypeFile:
		if b.File != nil {
			return "[file: " + b.File.Url + "]"
		}
		return "[file]"
	case llm2.ContentBlockTypeRefusal:
		if b.Refusal != nil {
			return "[refusal: " + b.Refusal.Reason + "]"
		}
		return "[refusal]"
	case llm2.ContentBlockTypeReasoning:
		return "[reasoning omitted]"
	case llm2.ContentBlockTypeMcpCall:
		if b.McpCall != nil {
			return "[mcp call: " + b.McpCall.Server + "." + b.McpCall.Tool + "]"
		}
		return "[mcp call]"
	default:
		return "[unsupported block: " + string(b.Type) + "]"
	}
}

// ToLlm2History converts a rendered engine view back into llm2.Message form,
// for handing to a provider client that speaks the richer wire format. Text,
// ToolUse, ToolResult and Image round-trip; there is nothing to convert back
// for the downgraded kinds since the engine never produces them.
func ToLlm2History(history []Message) []llm2.Message {
	out := make([]llm2.Message, len(history))
	for i, m := range history {
		out[i] = llm2.Message{
			Role:    toLlm2Role(m.Role),
			Content: toLlm2Blocks(m.Content),
		}
	}
	return out
}

func toLlm2Role(r Role) llm2.Role {
	if r == RoleAssistant {
		return llm2.RoleAssistant
	}
	return llm2.RoleUser
}

func toLlm2Blocks(blocks []Block) []llm2.ContentBlock {
	out := make([]llm2.ContentBlock, len(blocks))
	for i, b := range blocks {
		out[i] = toLlm2Block(b)
	}
	return out
}

func toLlm2Block(b Block) llm2.ContentBlock {
	switch b.Type {
	case BlockText:
		return llm2.ContentBlock{Type: llm2.ContentBlockTypeText, Text: b.Text}
	case BlockImage:
		source := ""
		if b.Image != nil {
			source = b.Image.Source
		}
		return llm2.ContentBlock{Type: llm2.ContentBlockTypeImage, Image: &llm2.ImageRef{Url: source}}
	case BlockToolUse:
		block := llm2.ContentBlock{Type: llm2.ContentBlockTypeToolUse}
		if b.ToolUse != nil {
			block.ToolUse = &llm2.ToolUseBlock{Id: b.ToolUse.Id, Name: b.ToolUse.Name, Arguments: b.ToolUse.Input}
		}
		return block
	case BlockToolResult:
		block := llm2.ContentBlock{Type: llm2.ContentBlockTypeToolResult}
		if b.ToolResult != nil {
			text, _ := GetText(b)
			block.ToolResult = &llm2.ToolResultBlock{ToolCallId: b.ToolResult.ToolUseId, Text: text}
		}
		return block
	default:
		return llm2.ContentBlock{Type: llm2.ContentBlockTypeText}
	}
}
