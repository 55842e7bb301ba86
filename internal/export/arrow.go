// Package export converts accumulated inference datasets to Arrow IPC
// files so they can be inspected with standard columnar tooling.
package export

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/sequor-dev/sequor/internal/rounds"
)

// Row is one (parameter, observation) pair with its provenance.
type Row struct {
	Round int64
	Draw  int64
	Tag   string
	Theta []float64
	Obs   []float64
}

// Table is a flattened dataset ready for columnar export.
type Table struct {
	ParamDim int
	ObsDim   int
	Rows     []Row
}

// FromDataset flattens an in-memory dataset.
func FromDataset(ds *rounds.Dataset) (*Table, error) {
	records := ds.Records()
	if len(records) == 0 {
		return nil, fmt.Errorf("export: empty dataset")
	}

	_, paramDim := records[0].Theta.Dims()
	_, obsDim := records[0].Obs.Dims()
	t := &Table{ParamDim: paramDim, ObsDim: obsDim}
	for _, rec := range records {
		n := rec.Rows()
		for i := 0; i < n; i++ {
			t.Rows = append(t.Rows, Row{
				Round: int64(rec.Round),
				Draw:  int64(i),
				Tag:   rec.Tag,
				Theta: append([]float64(nil), rec.Theta.RawRowView(i)...),
				Obs:   append([]float64(nil), rec.Obs.RawRowView(i)...),
			})
		}
	}
	return t, nil
}

// FromStoredRounds flattens archived rounds.
func FromStoredRounds(stored []StoredRoundData) (*Table, error) {
	if len(stored) == 0 {
		return nil, fmt.Errorf("export: no rounds")
	}
	if len(stored[0].Theta) == 0 {
		return nil, fmt.Errorf("export: round %d is empty", stored[0].Round)
	}

	t := &Table{ParamDim: len(stored[0].Theta[0]), ObsDim: len(stored[0].Obs[0])}
	for _, sr := range stored {
		for i := range sr.Theta {
			t.Rows = append(t.Rows, Row{
				Round: int64(sr.Round),
				Draw:  int64(i),
				Tag:   sr.Tag,
				Theta: sr.Theta[i],
				Obs:   sr.Obs[i],
			})
		}
	}
	return t, nil
}

// StoredRoundData mirrors an archived round without depending on the
// archive package.
type StoredRoundData struct {
	Round int
	Tag   string
	Theta [][]float64
	Obs   [][]float64
}

func (t *Table) schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "round", Type: arrow.PrimitiveTypes.Int64},
		{Name: "draw", Type: arrow.PrimitiveTypes.Int64},
		{Name: "proposal", Type: arrow.BinaryTypes.String},
		{Name: "theta", Type: arrow.FixedSizeListOf(int32(t.ParamDim), arrow.PrimitiveTypes.Float64)},
		{Name: "observation", Type: arrow.FixedSizeListOf(int32(t.ObsDim), arrow.PrimitiveTypes.Float64)},
	}, nil)
}

// WriteFile writes the table as a single-batch Arrow IPC file.
func (t *Table) WriteFile(path string) error {
	if len(t.Rows) == 0 {
		return fmt.Errorf("export: empty table")
	}

	pool := memory.NewGoAllocator()
	schema := t.schema()
	rb := array.NewRecordBuilder(pool, schema)
	defer rb.Release()

	roundB := rb.Field(0).(*array.Int64Builder)
	drawB := rb.Field(1).(*array.Int64Builder)
	tagB := rb.Field(2).(*array.StringBuilder)
	thetaB := rb.Field(3).(*array.FixedSizeListBuilder)
	thetaVals := thetaB.ValueBuilder().(*array.Float64Builder)
	obsB := rb.Field(4).(*array.FixedSizeListBuilder)
	obsVals := obsB.ValueBuilder().(*array.Float64Builder)

	for _, row := range t.Rows {
		if len(row.Theta) != t.ParamDim || len(row.Obs) != t.ObsDim {
			return fmt.Errorf("export: row %d/%d has inconsistent dims", row.Round, row.Draw)
		}
		roundB.Append(row.Round)
		drawB.Append(row.Draw)
		tagB.Append(row.Tag)
		thetaB.Append(true)
		thetaVals.AppendValues(row.Theta, nil)
		obsB.Append(true)
		obsVals.AppendValues(row.Obs, nil)
	}

	rec := rb.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return fmt.Errorf("export: creating IPC writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("export: writing record batch: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("export: closing IPC writer: %w", err)
	}
	return nil
}

// ReadFile reads a table previously written with WriteFile.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("export: opening IPC reader: %w", err)
	}
	defer r.Close()

	var out *Table
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("export: reading record batch %d: %w", i, err)
		}

		roundC := rec.Column(0).(*array.Int64)
		drawC := rec.Column(1).(*array.Int64)
		tagC := rec.Column(2).(*array.String)
		thetaC := rec.Column(3).(*array.FixedSizeList)
		obsC := rec.Column(4).(*array.FixedSizeList)

		paramDim := int(thetaC.DataType().(*arrow.FixedSizeListType).Len())
		obsDim := int(obsC.DataType().(*arrow.FixedSizeListType).Len())
		if out == nil {
			out = &Table{ParamDim: paramDim, ObsDim: obsDim}
		}

		thetaVals := thetaC.ListValues().(*array.Float64)
		obsVals := obsC.ListValues().(*array.Float64)
		for j := 0; j < int(rec.NumRows()); j++ {
			theta := make([]float64, paramDim)
			for k := 0; k < paramDim; k++ {
				theta[k] = thetaVals.Value(j*paramDim + k)
			}
			obs := make([]float64, obsDim)
			for k := 0; k < obsDim; k++ {
				obs[k] = obsVals.Value(j*obsDim + k)
			}
			out.Rows = append(out.Rows, Row{
				Round: roundC.Value(j),
				Draw:  drawC.Value(j),
				Tag:   tagC.Value(j),
				Theta: theta,
				Obs:   obs,
			})
		}
	}
	if out == nil {
		return nil, fmt.Errorf("export: file %s has no record batches", path)
	}
	return out, nil
}
