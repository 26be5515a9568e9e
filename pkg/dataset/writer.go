package dataset

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/gaitflow/gaitflow/internal/model"
)

// WriterConfig controls trial table writing.
type WriterConfig struct {
	// Channels fixes the channel column set and order. Trials missing a
	// channel get nulls in that column.
	Channels []string

	// Compression names the Parquet codec: snappy, gzip, zstd, lz4 or none.
	Compression string

	// BatchSize is the row-group flush threshold in rows.
	BatchSize int
}

// Writer writes trial tables to Parquet using Apache Arrow.
type Writer struct {
	cfg    WriterConfig
	schema *arrow.Schema
	writer *pqarrow.FileWriter

	subjectBuilder *array.StringBuilder
	taskBuilder    *array.StringBuilder
	sideBuilder    *array.StringBuilder
	timeBuilder    *array.Float64Builder
	channelBuilders []*array.Float64Builder

	mu        sync.Mutex
	rowCount  int
	totalRows int64
	closed    bool
}

// NewWriter creates a Parquet trial writer over output.
func NewWriter(output io.Writer, cfg WriterConfig) (*Writer, error) {
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("dataset: no channels configured")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8192
	}

	allocator := memory.NewGoAllocator()
	schema := Schema(cfg.Channels)

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(codecFor(cfg.Compression)),
		parquet.WithDictionaryDefault(true),
		parquet.WithDataPageSize(1024*1024), // 1MB
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
	)

	writer, err := pqarrow.NewFileWriter(schema, output, writerProps, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("dataset: create parquet writer: %w", err)
	}

	w := &Writer{
		cfg:            cfg,
		schema:         schema,
		writer:         writer,
		subjectBuilder: array.NewStringBuilder(allocator),
		taskBuilder:    array.NewStringBuilder(allocator),
		sideBuilder:    array.NewStringBuilder(allocator),
		timeBuilder:    array.NewFloat64Builder(allocator),
	}
	for range cfg.Channels {
		w.channelBuilders = append(w.channelBuilders, array.NewFloat64Builder(allocator))
	}

	w.subjectBuilder.Reserve(cfg.BatchSize)
	w.taskBuilder.Reserve(cfg.BatchSize)
	w.sideBuilder.Reserve(cfg.BatchSize)
	w.timeBuilder.Reserve(cfg.BatchSize)
	for _, b := range w.channelBuilders {
		b.Reserve(cfg.BatchSize)
	}

	return w, nil
}

// WriteTrial appends every sample of the trial as one row each.
func (w *Writer) WriteTrial(ctx context.Context, trial *model.Trial) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for i := 0; i < trial.Len(); i++ {
		w.appendSample(trial, i)
		w.rowCount++

		if w.rowCount >= w.cfg.BatchSize {
			if err := w.flushBatch(); err != nil {
				return err
			}
		}
	}
	return nil
}

// appendSample adds one sample row to the Arrow builders.
func (w *Writer) appendSample(trial *model.Trial, i int) {
	w.subjectBuilder.Append(trial.Subject)
	w.taskBuilder.Append(trial.Task)
	w.sideBuilder.Append(trial.Side)
	w.timeBuilder.Append(trial.Time[i])

	for c, name := range w.cfg.Channels {
		signal, ok := trial.Channels[name]
		if !ok || math.IsNaN(signal[i]) {
			w.channelBuilders[c].AppendNull()
			continue
		}
		w.channelBuilders[c].Append(signal[i])
	}
}

// flushBatch writes the current batch as one record.
func (w *Writer) flushBatch() error {
	if w.rowCount == 0 {
		return nil
	}

	arrays := make([]arrow.Array, 0, 4+len(w.channelBuilders))
	arrays = append(arrays,
		w.subjectBuilder.NewArray(),
		w.taskBuilder.NewArray(),
		w.sideBuilder.NewArray(),
		w.timeBuilder.NewArray(),
	)
	for _, b := range w.channelBuilders {
		arrays = append(arrays, b.NewArray())
	}
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	batch := array.NewRecord(w.schema, arrays, int64(w.rowCount))
	defer batch.Release()

	if err := w.writer.Write(batch); err != nil {
		return fmt.Errorf("dataset: write record batch: %w", err)
	}

	w.totalRows += int64(w.rowCount)
	w.rowCount = 0
	return nil
}

// Flush flushes any buffered rows.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushBatch()
}

// Close flushes and closes the underlying Parquet writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if err := w.flushBatch(); err != nil {
		return err
	}
	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("dataset: close parquet writer: %w", err)
	}

	w.subjectBuilder.Release()
	w.taskBuilder.Release()
	w.sideBuilder.Release()
	w.timeBuilder.Release()
	for _, b := range w.channelBuilders {
		b.Release()
	}

	w.closed = true
	return nil
}

// RowsWritten returns the total number of sample rows written.
func (w *Writer) RowsWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalRows
}
