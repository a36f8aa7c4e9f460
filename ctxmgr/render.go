package ctxmgr

import "strings"

// Render materializes a view over history: it applies every overlay rewrite
// recorded in log, drops the messages covered by deleted (if any), prefixes
// the truncation notice onto message 1 when a deletion is in effect, and
// repairs tool-use/tool-result pairing so the result never carries an orphan
// ToolResult (I3) or a ToolUse left dangling by a deletion. The raw history
// and log are never mutated; every returned Message is an independent copy.
func Render(history []Message, log *EditLog, deleted Range, notices Notices) []Message {
	kept := selectKept(history, deleted)

	rendered := make([]Message, 0, len(kept))
	for _, idx := range kept {
		m := cloneMessage(history[idx])
		applyOverlay(&m, log, idx)
		rendered = append(rendered, m)
	}

	if !deleted.Empty() && len(rendered) > 1 {
		insertTruncationNotice(&rendered[1], notices)
	}

	return repairToolPairing(rendered, notices)
}

// selectKept returns the raw indices retained by a render: the first two
// (I4) plus everything after the deletion window, or everything if deleted
// is empty.
func selectKept(history []Message, deleted Range) []int {
	kept := make([]int, 0, len(history))
	for i := range history {
		if i < 2 || deleted.Empty() || i > deleted.End {
			kept = append(kept, i)
		}
	}
	return kept
}

// applyOverlay rewrites m's blocks in place from the Edit Log's latest
// update for each, if any. A block the log never touched passes through
// untouched.
func applyOverlay(m *Message, log *EditLog, historyIndex int) {
	for bi := range m.Content {
		upd, ok := log.Latest(historyIndex, bi)
		if !ok {
			continue
		}
		SetText(&m.Content[bi], strings.Join(upd.Content, "\n"))
	}
}

// insertTruncationNotice prefixes the first text-bearing block of m with the
// context-truncation marker. It is a no-op if m has no text-bearing block to
// carry it.
func insertTruncationNotice(m *Message, notices Notices) {
	for i := range m.Content {
		if text, ok := GetText(m.Content[i]); ok {
			SetText(&m.Content[i], notices.ContextTruncationNotice()+"\n"+text)
			return
		}
	}
}

func toolUseIDs(blocks []Block) map[string]bool {
	ids := make(map[string]bool)
	for _, b := range blocks {
		if b.Type == BlockToolUse && b.ToolUse != nil {
			ids[b.ToolUse.Id] = true
		}
	}
	return ids
}

// filterOrphanResults drops any ToolResult block whose ToolUseId has no
// matching ToolUse among useIDs (the tool_use that produced it was deleted).
func filterOrphanResults(blocks []Block, useIDs map[string]bool) []Block {
	out := blocks[:0:0]
	for _, b := range blocks {
		if b.Type == BlockToolResult && b.ToolResult != nil && !useIDs[b.ToolResult.ToolUseId] {
			continue
		}
		out = append(out, b)
	}
	return out
}

// toolUseIDOrder returns the ToolUse ids in blocks in the order they first
// appear, deduped. ToolResult blocks paired against this order (present or
// synthesized) must appear in this same order at the head of the next
// message's block list.
func toolUseIDOrder(blocks []Block) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range blocks {
		if b.Type == BlockToolUse && b.ToolUse != nil && !seen[b.ToolUse.Id] {
			seen[b.ToolUse.Id] = true
			out = append(out, b.ToolUse.Id)
		}
	}
	return out
}

// splitToolResults partitions blocks into the ToolResult entries matching an
// id in order (keyed by id) and everything else, including ToolResult blocks
// whose id isn't in order at all (left for filterOrphanResults to drop).
func splitToolResults(blocks []Block, order []string) (map[string]Block, []Block) {
	inOrder := make(map[string]bool, len(order))
	for _, id := range order {
		inOrder[id] = true
	}
	byID := make(map[string]Block, len(order))
	other := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == BlockToolResult && b.ToolResult != nil && inOrder[b.ToolResult.ToolUseId] {
			byID[b.ToolResult.ToolUseId] = b
			continue
		}
		other = append(other, b)
	}
	return byID, other
}

// syntheticResult builds a placeholder ToolResult block for id, so a
// ToolUse that survived a deletion whose paired result did not is repaired
// rather than left dangling.
func syntheticResult(id string, notices Notices) Block {
	return Block{
		Type: BlockToolResult,
		ToolResult: &ToolResult{
			ToolUseId: id,
			Content:   []Block{{Type: BlockText, Text: "result missing"}},
		},
	}
}

// repairToolPairing walks rendered in order, removing ToolResult blocks
// orphaned by a deletion, and reorders the head of the next message's block
// list to carry one ToolResult per ToolUse id in the order the ids appeared
// (synthesizing one where the real result didn't survive), with every other
// block preserved after it. It may grow messages by inserting a new user
// message right after an assistant message carrying tool_use blocks when
// the message after it is not a user message (or there is none).
func repairToolPairing(messages []Message, notices Notices) []Message {
	i := 0
	for i < len(messages) {
		switch messages[i].Role {
		case RoleAssistant:
			order := toolUseIDOrder(messages[i].Content)
			if len(order) == 0 {
				break
			}
			hasNext := i+1 < len(messages) && messages[i+1].Role == RoleUser
			var byID map[string]Block
			var other []Block
			if hasNext {
				byID, other = splitToolResults(messages[i+1].Content, order)
			} else {
				byID = map[string]Block{}
			}
			head := make([]Block, 0, len(order))
			for _, id := range order {
				if b, ok := byID[id]; ok {
					head = append(head, b)
				} else {
					head = append(head, syntheticResult(id, notices))
				}
			}
			if hasNext {
				messages[i+1].Content = append(head, other...)
			} else {
				messages = insertMessageAt(messages, i+1, Message{Role: RoleUser, Content: head})
			}
		case RoleUser:
			var useIDs map[string]bool
			if i > 0 && messages[i-1].Role == RoleAssistant {
				useIDs = toolUseIDs(messages[i-1].Content)
			} else {
				useIDs = map[string]bool{}
			}
			messages[i].Content = filterOrphanResults(messages[i].Content, useIDs)
		}
		i++
	}
	return messages
}

func insertMessageAt(messages []Message, idx int, m Message) []Message {
	out := make([]Message, 0, len(messages)+1)
	out = append(out, messages[:idx]...)
	out = append(out, m)
	out = append(out, messages[idx:]...)
	return out
}
