// Package byzantine collects peer-observed malicious-behavior reports
// and turns repeated, corroborated reports into a reputation penalty.
// It does not itself decide guilt beyond simple corroboration counting —
// the Reputation Manager (§4.A) owns the actual score mutation.
package byzantine

import (
	"tribft/message"
	"tribft/types"
)

// Tracker accumulates ReportByzantine messages per suspect and exposes
// whether a suspect has accumulated enough independent reports to be
// treated as confirmed malicious.
type Tracker struct {
	reports   map[types.NodeID]map[types.NodeID]message.ReportByzantine // suspect -> reporter -> report
	threshold int
}

// NewTracker builds a Tracker requiring threshold independent reporters
// before a suspect is confirmed (default 2: no single accuser suffices).
func NewTracker(threshold int) *Tracker {
	if threshold < 1 {
		threshold = 2
	}
	return &Tracker{
		reports:   make(map[types.NodeID]map[types.NodeID]message.ReportByzantine),
		threshold: threshold,
	}
}

// Record stores a report and returns whether the suspect just crossed
// the corroboration threshold (first time only — callers penalize once).
func (t *Tracker) Record(r message.ReportByzantine) (justConfirmed bool) {
	bySuspect, ok := t.reports[r.Suspect]
	if !ok {
		bySuspect = make(map[types.NodeID]message.ReportByzantine)
		t.reports[r.Suspect] = bySuspect
	}
	_, already := bySuspect[r.Reporter]
	bySuspect[r.Reporter] = r
	if already {
		return false
	}
	return len(bySuspect) == t.threshold
}

// ReporterCount returns how many distinct reporters have flagged suspect.
func (t *Tracker) ReporterCount(suspect types.NodeID) int {
	return len(t.reports[suspect])
}

// Forget drops all reports against suspect, e.g. after it has been
// penalized or has left the network.
func (t *Tracker) Forget(suspect types.NodeID) {
	delete(t.reports, suspect)
}
