package rounds

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sequor-dev/sequor/internal/distribution"
)

// RoundRecord is one round's training data: the parameter batch, the
// matching observation batch, and the proposal they were drawn from.
type RoundRecord struct {
	Round    int
	Tag      string
	Theta    *mat.Dense
	Obs      *mat.Dense
	Proposal distribution.Distribution
}

// Rows returns the batch size of the record.
func (r RoundRecord) Rows() int {
	n, _ := r.Theta.Dims()
	return n
}

// Dataset accumulates round records across the inference loop. Records are
// never discarded; later training passes always see every round.
type Dataset struct {
	records []RoundRecord
}

// Append adds a round record.
func (d *Dataset) Append(rec RoundRecord) {
	d.records = append(d.records, rec)
}

// Records returns the accumulated records in round order.
func (d *Dataset) Records() []RoundRecord {
	return d.records
}

// Rounds returns the number of accumulated rounds.
func (d *Dataset) Rounds() int { return len(d.records) }

// Len returns the total number of (parameter, observation) pairs across
// all rounds.
func (d *Dataset) Len() int {
	var total int
	for _, rec := range d.records {
		total += rec.Rows()
	}
	return total
}
