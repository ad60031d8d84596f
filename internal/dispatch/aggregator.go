package dispatch

import (
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
)

// Aggregator accumulates per-subscriber outcomes into run-level counts.
// It is written only from the dispatcher's own goroutine at batch
// boundaries, after every send in the batch has settled, so it needs no
// locking. Skipped outcomes do not count as attempted.
type Aggregator struct {
	report domain.Report
}

func NewAggregator(runID, verseID string) *Aggregator {
	return &Aggregator{
		report: domain.Report{
			RunID:   runID,
			VerseID: verseID,
		},
	}
}

// CommitSkipped records subscribers the plan passed over.
func (a *Aggregator) CommitSkipped(outcomes []domain.Outcome) {
	for _, outcome := range outcomes {
		outcome.Skipped = true
		a.report.Skipped++
		a.report.Outcomes = append(a.report.Outcomes, outcome)
	}
}

// CommitBatch records the settled outcomes of one batch.
func (a *Aggregator) CommitBatch(outcomes []domain.Outcome) {
	for _, outcome := range outcomes {
		a.report.Attempted++
		if outcome.Success {
			a.report.Succeeded++
		} else {
			a.report.Failed++
		}
		a.report.Outcomes = append(a.report.Outcomes, outcome)
	}
}

// Report returns the aggregate so far. Interrupted runs therefore report
// a whole-batch prefix, never a partially settled batch.
func (a *Aggregator) Report() domain.Report {
	return a.report
}
