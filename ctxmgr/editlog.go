package ctxmgr

import (
	"encoding/json"
	"fmt"
	"sort"
)

// EditType tags why a message's blocks were last rewritten. It lets the
// Optimizer recognize its own previous work without scanning every update,
// notably for FileMention blocks where the multi-file metadata guides
// resumption.
type EditType int

const (
	EditUndefined    EditType = 0
	EditNoFileRead   EditType = 1
	EditReadFileTool EditType = 2
	EditAlterFileTool EditType = 3
	EditFileMention  EditType = 4
)

// ContextUpdate is a single timestamped rewrite of one message block.
type ContextUpdate struct {
	Timestamp  int64
	UpdateType string // currently always "text"
	Content    []string
	Metadata   [][]string
}

type blockEntry struct {
	Updates []ContextUpdate
}

type messageEntry struct {
	EditType EditType
	Blocks   map[int]*blockEntry
}

// EditLog is the append-only, timestamped overlay of block rewrites. It
// never mutates the raw history; the Renderer applies it lazily at
// materialization time. EditLog is owned by a single task and is not safe
// for concurrent use (the engine is single-threaded cooperative per task).
type EditLog struct {
	entries map[int]*messageEntry
}

// NewEditLog returns an empty Edit Log.
func NewEditLog() *EditLog {
	return &EditLog{entries: make(map[int]*messageEntry)}
}

// Apply appends an update for (messageIndex, blockIndex). It sets the outer
// EditType for messageIndex the first time that index is touched. Timestamps
// for the same (messageIndex, blockIndex) must be non-decreasing; ties are
// allowed (the update is still appended, becoming the new "current" one).
func (l *EditLog) Apply(messageIndex, blockIndex int, updateType string, content []string, metadata [][]string, timestamp int64, editType EditType) error {
	me, ok := l.entries[messageIndex]
	if !ok {
		me = &messageEntry{EditType: editType, Blocks: make(map[int]*blockEntry)}
		l.entries[messageIndex] = me
	}
	be, ok := me.Blocks[blockIndex]
	if !ok {
		be = &blockEntry{}
		me.Blocks[blockIndex] = be
	}
	if n := len(be.Updates); n > 0 && timestamp < be.Updates[n-1].Timestamp {
		return fmt.Errorf("ctxmgr: non-monotonic timestamp %d before %d for message %d block %d", timestamp, be.Updates[n-1].Timestamp, messageIndex, blockIndex)
	}
	be.Updates = append(be.Updates, ContextUpdate{
		Timestamp:  timestamp,
		UpdateType: updateType,
		Content:    content,
		Metadata:   metadata,
	})
	return nil
}

// Latest returns the most recent ContextUpdate recorded for a block, if any.
func (l *EditLog) Latest(messageIndex, blockIndex int) (ContextUpdate, bool) {
	me, ok := l.entries[messageIndex]
	if !ok {
		return ContextUpdate{}, false
	}
	be, ok := me.Blocks[blockIndex]
	if !ok || len(be.Updates) == 0 {
		return ContextUpdate{}, false
	}
	return be.Updates[len(be.Updates)-1], true
}

// HasBlock reports whether any update was ever recorded for this block.
func (l *EditLog) HasBlock(messageIndex, blockIndex int) bool {
	me, ok := l.entries[messageIndex]
	if !ok {
		return false
	}
	be, ok := me.Blocks[blockIndex]
	return ok && len(be.Updates) > 0
}

// HasMessage reports whether messageIndex has ever been touched.
func (l *EditLog) HasMessage(messageIndex int) bool {
	_, ok := l.entries[messageIndex]
	return ok
}

// EditedBlockIndices returns the block indices touched for messageIndex, in
// ascending order.
func (l *EditLog) EditedBlockIndices(messageIndex int) []int {
	me, ok := l.entries[messageIndex]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(me.Blocks))
	for bi := range me.Blocks {
		out = append(out, bi)
	}
	sort.Ints(out)
	return out
}

// EditedMessageIndices returns every message index the log has ever touched,
// in ascending order.
func (l *EditLog) EditedMessageIndices() []int {
	out := make([]int, 0, len(l.entries))
	for mi := range l.entries {
		out = append(out, mi)
	}
	sort.Ints(out)
	return out
}

// PruneAfter drops every update recorded with a timestamp strictly greater
// than ts, for rollback to an earlier checkpoint. Now-empty inner and outer
// entries are removed. Idempotent: calling it twice with the same ts leaves
// a bytewise-equal log (P6).
func (l *EditLog) PruneAfter(ts int64) {
	for mi, me := range l.entries {
		for bi, be := range me.Blocks {
			kept := be.Updates[:0]
			for _, u := range be.Updates {
				if u.Timestamp <= ts {
					kept = append(kept, u)
				}
			}
			if len(kept) == 0 {
				delete(me.Blocks, bi)
			} else {
				be.Updates = kept
			}
		}
		if len(me.Blocks) == 0 {
			delete(l.entries, mi)
		}
	}
}

// tuple is a JSON array element used to build/parse the spec's positional
// (non-object) wire format.
type tuple = []any

// Serialize renders the Edit Log to the stable on-disk JSON form described
// in the external interfaces section: an array of
// [messageIndex, [editType, [[blockIndex, [[ts, updateType, content, metadata], ...]], ...]]]
// entries, ordered by ascending message and block index for determinism.
func (l *EditLog) Serialize() ([]byte, error) {
	outer := make([]any, 0, len(l.entries))
	for _, mi := range l.EditedMessageIndices() {
		me := l.entries[mi]
		blocks := make([]any, 0, len(me.Blocks))
		for _, bi := range l.EditedBlockIndices(mi) {
			be := me.Blocks[bi]
			updates := make([]any, 0, len(be.Updates))
			for _, u := range be.Updates {
				content := u.Content
				if content == nil {
					content = []string{}
				}
				metadata := u.Metadata
				if metadata == nil {
					metadata = [][]string{}
				}
				updates = append(updates, tuple{u.Timestamp, u.UpdateType, content, metadata})
			}
			blocks = append(blocks, tuple{bi, updates})
		}
		outer = append(outer, tuple{mi, tuple{int(me.EditType), blocks}})
	}
	return json.Marshal(outer)
}

// Deserialize parses the on-disk JSON form produced by Serialize. A missing
// file is equivalent to an empty log (callers handle that before calling
// this); here an empty or null byte slice yields an empty log. Readers
// tolerate trailing empty arrays, per the external interface contract: any
// tuple position beyond what's present is simply left at its zero value.
func Deserialize(data []byte) (*EditLog, error) {
	l := NewEditLog()
	if len(data) == 0 {
		return l, nil
	}

	var outer []json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		return nil, fmt.Errorf("ctxmgr: malformed edit log: %w", err)
	}

	for _, rawEntry := range outer {
		var entry []json.RawMessage
		if err := json.Unmarshal(rawEntry, &entry); err != nil || len(entry) < 2 {
			continue
		}
		var messageIndex int
		if err := json.Unmarshal(entry[0], &messageIndex); err != nil {
			continue
		}

		var editBlocks []json.RawMessage
		if err := json.Unmarshal(entry[1], &editBlocks); err != nil || len(editBlocks) < 2 {
			continue
		}
		var editTypeInt int
		_ = json.Unmarshal(editBlocks[0], &editTypeInt)

		var blockTuples []json.RawMessage
		_ = json.Unmarshal(editBlocks[1], &blockTuples)

		me := &messageEntry{EditType: EditType(editTypeInt), Blocks: make(map[int]*blockEntry)}
		for _, rawBlock := range blockTuples {
			var blockTuple []json.RawMessage
			if err := json.Unmarshal(rawBlock, &blockTuple); err != nil || len(blockTuple) < 2 {
				continue
			}
			var blockIndex int
			if err := json.Unmarshal(blockTuple[0], &blockIndex); err != nil {
				continue
			}
			var updateTuples []json.RawMessage
			_ = json.Unmarshal(blockTuple[1], &updateTuples)

			be := &blockEntry{}
			for _, rawUpdate := range updateTuples {
				var ut []json.RawMessage
				if err := json.Unmarshal(rawUpdate, &ut); err != nil || len(ut) < 2 {
					continue
				}
				var u ContextUpdate
				_ = json.Unmarshal(ut[0], &u.Timestamp)
				_ = json.Unmarshal(ut[1], &u.UpdateType)
				if len(ut) >= 3 {
					_ = json.Unmarshal(ut[2], &u.Content)
				}
				if len(ut) >= 4 {
					_ = json.Unmarshal(ut[3], &u.Metadata)
				}
				be.Updates = append(be.Updates, u)
			}
			me.Blocks[blockIndex] = be
		}
		l.entries[messageIndex] = me
	}

	return l, nil
}
