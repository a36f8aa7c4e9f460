package ctxmgr

import "github.com/rs/zerolog"

// Manager ties the Budget Oracle, Optimizer, Truncator and Renderer into the
// single entry point a task loop calls once per turn. It owns the Edit Log
// and the current deletion Range for one conversation; it is not safe for
// concurrent use. It never reaches for a package-global logger: every
// decision it logs goes through the zerolog.Logger passed to NewManager, so
// a caller can route it anywhere (or discard it with zerolog.Nop()).
type Manager struct {
	policy  Policy
	notices Notices
	log     zerolog.Logger

	editLog *EditLog
	deleted Range

	// lastOptimizerScanFrom is the raw index the Optimizer should resume
	// scanning from on the next pass: either 2, or the start of the window
	// still in range after the most recent truncation.
	lastOptimizerScanFrom int
}

// NewManager returns a Manager with an empty Edit Log and no deletion yet.
func NewManager(policy Policy, notices Notices, log zerolog.Logger) *Manager {
	return &Manager{
		policy:                policy,
		notices:               notices,
		log:                   log,
		editLog:               NewEditLog(),
		deleted:               Range{Start: 2, End: 1}, // empty
		lastOptimizerScanFrom: 2,
	}
}

// PrepareNextContext is the top-level operation: given the full raw history
// and the log entries observed since the task began, it decides whether
// compaction is needed, runs the Optimizer, runs the Truncator only if the
// Optimizer alone didn't save enough, and returns the rendered view the
// caller sends to the model next. timestamp is the Edit Log timestamp to
// record for any rewrites made this call (must be >= every previously
// recorded timestamp).
func (m *Manager) PrepareNextContext(history []Message, logEntries []LogEntry, contextWindow int, timestamp int64) []Message {
	usage, found, err := LatestApiReqUsage(logEntries)
	if !found || err != nil {
		return Render(history, m.editLog, m.deleted, m.notices)
	}

	maxAllowed := MaxAllowedSize(contextWindow)
	if !ShouldCompact(usage.Total(), maxAllowed) {
		return Render(history, m.editLog, m.deleted, m.notices)
	}

	m.log.Debug().Int("total", usage.Total()).Int("maxAllowed", maxAllowed).Msg("compaction triggered")

	optResult := RunOptimizer(history, m.editLog, m.lastOptimizerScanFrom, timestamp, m.notices)
	m.lastOptimizerScanFrom = startOfRest(&m.deleted)

	if optResult.Total > 0 {
		savedRatio := float64(optResult.Saved) / float64(optResult.Total)
		if savedRatio >= m.policy.SavedRatioThreshold {
			m.log.Debug().Float64("savedRatio", savedRatio).Msg("optimizer alone cleared the saved-ratio threshold, skipping truncation")
			return Render(history, m.editLog, m.deleted, m.notices)
		}
	}

	keep := ComputeKeep(usage.Total(), maxAllowed, m.policy.KeepHalfPoint)
	next := NextTruncationRange(history, &m.deleted, keep)
	if !next.Empty() {
		m.deleted = next
		m.lastOptimizerScanFrom = startOfRest(&m.deleted)
		m.log.Debug().Int("start", next.Start).Int("end", next.End).Msg("truncation range applied")
	}

	return Render(history, m.editLog, m.deleted, m.notices)
}

// EditLog exposes the underlying log, e.g. for persistence or rollback via
// PruneAfter.
func (m *Manager) EditLog() *EditLog {
	return m.editLog
}

// DeletedRange reports the current deletion window (Empty() if none yet).
func (m *Manager) DeletedRange() Range {
	return m.deleted
}

// Restore resets the Manager to a previously persisted state, e.g. after
// loading editLog/deleted from a Store. It does not validate that editLog
// and deleted are consistent with a particular history; callers that loaded
// both from the same checkpoint get that for free.
func (m *Manager) Restore(editLog *EditLog, deleted Range) {
	if editLog == nil {
		editLog = NewEditLog()
	}
	m.editLog = editLog
	m.deleted = deleted
	m.lastOptimizerScanFrom = startOfRest(&deleted)
}
