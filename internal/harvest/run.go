package harvest

import (
	"time"

	"github.com/google/uuid"
	"github.com/law-makers/pdfharvest/pkg/models"
)

// Stats counts what happened during a run
type Stats struct {
	Pages           int
	PagesFailed     int
	PagesDownloaded int
	Links           int
	Duplicates      int
	Outcomes        map[models.Outcome]int
}

// Run owns the state of one harvest: the dedup set and the ordered result set.
// It is only touched by the harvesting goroutine.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      Stats

	dedup   *Deduplicator
	records []models.LinkRecord
}

func newRun() *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Stats:     Stats{Outcomes: make(map[models.Outcome]int)},
		dedup:     NewDeduplicator(),
	}
}

// admit appends rec if its URL has not been seen in this run
func (r *Run) admit(rec models.LinkRecord) bool {
	if !r.dedup.Add(rec.URL) {
		r.Stats.Duplicates++
		return false
	}
	r.records = append(r.records, rec)
	r.Stats.Links++
	return true
}

func (r *Run) record(o models.Outcome) {
	r.Stats.Outcomes[o]++
}

// Records returns the admitted records in first-seen order
func (r *Run) Records() []models.LinkRecord {
	out := make([]models.LinkRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Duration is the wall time of the run so far
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
