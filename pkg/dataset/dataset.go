// Package dataset reads and writes trial signal tables in Parquet.
//
// A trial table is long-format: one row per sample, with subject, task and
// side identifying the trial, a time column in seconds, and one float64
// column per signal channel. Rows of the same trial are contiguous and
// time-ordered.
package dataset

import (
	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/parquet/compress"
)

// Fixed leading columns of every trial table.
const (
	ColSubject = "subject"
	ColTask    = "task"
	ColSide    = "side"
	ColTime    = "time_s"
)

// Schema returns the Arrow schema for a trial table with the given signal
// channels, in order.
func Schema(channels []string) *arrow.Schema {
	fields := []arrow.Field{
		{Name: ColSubject, Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: ColTask, Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: ColSide, Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: ColTime, Type: arrow.PrimitiveTypes.Float64, Nullable: false},
	}
	for _, ch := range channels {
		fields = append(fields, arrow.Field{
			Name: ch, Type: arrow.PrimitiveTypes.Float64, Nullable: true,
		})
	}
	return arrow.NewSchema(fields, nil)
}

// codecFor maps a compression name to a Parquet codec. Unknown names fall
// back to uncompressed.
func codecFor(name string) compress.Compression {
	switch name {
	case "snappy":
		return compress.Codecs.Snappy
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "lz4":
		return compress.Codecs.Lz4
	default:
		return compress.Codecs.Uncompressed
	}
}
