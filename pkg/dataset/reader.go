package dataset

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/gaitflow/gaitflow/internal/model"
)

// ReadTrialsFile reads every trial from a Parquet trial table on disk.
func ReadTrialsFile(ctx context.Context, path string, batchSize int) ([]*model.Trial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTrials(ctx, f, batchSize)
}

// ReadTrials reads a Parquet trial table. Consecutive rows sharing the same
// subject, task and side form one trial; a change in any of the three starts
// the next trial. Null channel cells become NaN.
func ReadTrials(ctx context.Context, r parquet.ReaderAtSeeker, batchSize int) ([]*model.Trial, error) {
	if batchSize <= 0 {
		batchSize = 8192
	}

	pqReader, err := file.NewParquetReader(r)
	if err != nil {
		return nil, fmt.Errorf("dataset: open parquet: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{
		Parallel:  true,
		BatchSize: int64(batchSize),
	}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("dataset: create arrow reader: %w", err)
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, err
	}
	cols, err := columnLayout(schema)
	if err != nil {
		return nil, err
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("dataset: read table: %w", err)
	}
	defer table.Release()

	tableReader := array.NewTableReader(table, int64(batchSize))
	defer tableReader.Release()

	var (
		trials  []*model.Trial
		current *model.Trial
	)
	for tableReader.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record := tableReader.Record()
		subjects := record.Column(cols.subject).(*array.String)
		tasks := record.Column(cols.task).(*array.String)
		sides := record.Column(cols.side).(*array.String)
		times := record.Column(cols.time).(*array.Float64)

		channels := make(map[string]*array.Float64, len(cols.channels))
		for name, idx := range cols.channels {
			channels[name] = record.Column(idx).(*array.Float64)
		}

		for row := 0; row < int(record.NumRows()); row++ {
			subject, task, side := subjects.Value(row), tasks.Value(row), sides.Value(row)
			if current == nil || current.Subject != subject || current.Task != task || current.Side != side {
				current = &model.Trial{
					Subject:  subject,
					Task:     task,
					Side:     side,
					Channels: make(map[string][]float64, len(channels)),
				}
				trials = append(trials, current)
			}

			current.Time = append(current.Time, times.Value(row))
			for name, col := range channels {
				v := math.NaN()
				if col.IsValid(row) {
					v = col.Value(row)
				}
				current.Channels[name] = append(current.Channels[name], v)
			}
		}
	}

	return trials, nil
}

type layout struct {
	subject, task, side, time int
	channels                  map[string]int
}

// columnLayout locates the fixed columns and treats every remaining float64
// column as a signal channel.
func columnLayout(schema *arrow.Schema) (layout, error) {
	l := layout{subject: -1, task: -1, side: -1, time: -1, channels: map[string]int{}}
	for i, f := range schema.Fields() {
		switch f.Name {
		case ColSubject:
			l.subject = i
		case ColTask:
			l.task = i
		case ColSide:
			l.side = i
		case ColTime:
			l.time = i
		default:
			if f.Type.ID() == arrow.FLOAT64 {
				l.channels[f.Name] = i
			}
		}
	}
	if l.subject < 0 || l.task < 0 || l.side < 0 || l.time < 0 {
		return layout{}, fmt.Errorf("dataset: table is missing required columns (%s, %s, %s, %s)",
			ColSubject, ColTask, ColSide, ColTime)
	}
	return l, nil
}
