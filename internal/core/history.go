package core

import "github.com/olyamironova/matching-engine/internal/domain"

// ReportLog is the append-only history of every notification the engine
// has produced. A late subscriber replays it from the start to rebuild
// the full book history. Process-scoped, never pruned.
type ReportLog struct {
	events []domain.Event
}

func NewReportLog() *ReportLog {
	return &ReportLog{}
}

func (l *ReportLog) Append(ev domain.Event) {
	l.events = append(l.events, ev)
}

// Snapshot returns the log from the start in production order. The
// returned slice is not written to again; appends reallocate on top of
// the caller-visible prefix only.
func (l *ReportLog) Snapshot() []domain.Event {
	return l.events[:len(l.events):len(l.events)]
}

func (l *ReportLog) Len() int { return len(l.events) }
