package archive

import (
	"context"

	"github.com/sequor-dev/sequor/internal/estimator"
	"github.com/sequor-dev/sequor/internal/rounds"
)

// Recorder archives each completed round of a run. It implements
// rounds.Observer.
type Recorder struct {
	Archive *SQLiteArchive
	RunID   string
}

// RoundCompleted persists the round's training data and fitted model.
func (r *Recorder) RoundCompleted(ctx context.Context, rec rounds.RoundRecord, density estimator.ConditionalDensity) error {
	if err := r.Archive.AppendRound(ctx, r.RunID, rec.Round, rec.Tag, rec.Theta, rec.Obs); err != nil {
		return err
	}
	return r.Archive.SavePosterior(ctx, r.RunID, rec.Round, density)
}
