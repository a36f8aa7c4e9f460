package ctxmgr

// Notices supplies the fixed strings the engine substitutes for collapsed or
// truncated content. These are opaque to the engine (spec §6: "supplied by a
// collaborator") — the engine never inspects their contents, only inserts
// them verbatim.
type Notices interface {
	// ContextTruncationNotice is prefixed by Render onto the first
	// text-bearing block of message 1 in every view rendered while a
	// deletion is in effect, so the retained second message carries a
	// visible marker that earlier turns were dropped. It is not recorded in
	// the Edit Log.
	ContextTruncationNotice() string

	// DuplicateFileReadNotice replaces an older, superseded occurrence of a
	// file's full contents.
	DuplicateFileReadNotice() string

	// ProcessFirstUserMessageForTruncation rewrites the first message's text
	// for context-window compaction (e.g. to drop embedded code context
	// that's now redundant with the truncation notice). Implementations may
	// return original unchanged. No code in this module calls it: Manager
	// and Render leave message 0 as recorded.
	ProcessFirstUserMessageForTruncation(original string) string
}

// DefaultNotices is a minimal Notices implementation suitable for the CLI
// harness and as a test fixture. Real deployments are expected to supply
// their own copy carrying product-specific wording.
type DefaultNotices struct{}

func (DefaultNotices) ContextTruncationNotice() string {
	return "[Note: earlier conversation history was truncated to stay within the model's context window.]"
}

func (DefaultNotices) DuplicateFileReadNotice() string {
	return "[This file was read again above; showing only the most recent version to save space.]"
}

func (DefaultNotices) ProcessFirstUserMessageForTruncation(original string) string {
	return original
}
