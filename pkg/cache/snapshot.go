package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/ethpandaops/etlaudit/pkg/observability"
	"github.com/sirupsen/logrus"
)

const (
	columnTimestamp   = "timestamp"
	columnFilename    = "filename"
	columnDestination = "destination"
	columnTable       = "table"
	columnRows        = "rows"

	maxRowGroupLength = 64 * 1024
	readBatchSize     = 8 * 1024
)

// ErrUnexpectedColumn is returned when a snapshot column has the wrong type
var ErrUnexpectedColumn = errors.New("unexpected snapshot column type")

var snapshotSchema = arrow.NewSchema([]arrow.Field{
	{Name: columnTimestamp, Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}},
	{Name: columnFilename, Type: arrow.BinaryTypes.String},
	{Name: columnDestination, Type: arrow.BinaryTypes.String},
	{Name: columnTable, Type: arrow.BinaryTypes.String},
	{Name: columnRows, Type: arrow.PrimitiveTypes.Int64},
}, nil)

// Snapshot reads and writes the record snapshot file
type Snapshot struct {
	log  logrus.FieldLogger
	path string
	pool memory.Allocator
}

// NewSnapshot creates a snapshot bound to the configured path
func NewSnapshot(log logrus.FieldLogger, cfg *Config) *Snapshot {
	return &Snapshot{
		log:  log.WithField("component", "cache"),
		path: cfg.Path,
		pool: memory.NewGoAllocator(),
	}
}

// Path returns the snapshot file location
func (s *Snapshot) Path() string {
	return s.path
}

// Exists reports whether a snapshot file is present
func (s *Snapshot) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Remove deletes the snapshot, reporting whether a file was removed
func (s *Snapshot) Remove() (bool, error) {
	err := os.Remove(s.path)

	switch {
	case err == nil:
		observability.RecordSnapshotOperation("remove", "success")
		s.log.WithField("path", s.path).Info("Removed snapshot")

		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		observability.RecordSnapshotOperation("remove", "error")
		return false, fmt.Errorf("failed to remove snapshot %s: %w", s.path, err)
	}
}

// Store writes records to a temp file next to the snapshot and renames it into place
func (s *Snapshot) Store(records []models.LoadRecord) error {
	if err := s.store(records); err != nil {
		observability.RecordSnapshotOperation("store", "error")
		return err
	}

	observability.RecordSnapshotOperation("store", "success")
	s.log.WithFields(logrus.Fields{
		"path":    s.path,
		"records": len(records),
	}).Info("Stored snapshot")

	return nil
}

func (s *Snapshot) store(records []models.LoadRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}

	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if err := s.write(tmp, records); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	return nil
}

func (s *Snapshot) write(file *os.File, records []models.LoadRecord) error {
	builder := array.NewRecordBuilder(s.pool, snapshotSchema)
	defer builder.Release()

	timestamps := builder.Field(0).(*array.TimestampBuilder)
	filenames := builder.Field(1).(*array.StringBuilder)
	destinations := builder.Field(2).(*array.StringBuilder)
	tables := builder.Field(3).(*array.StringBuilder)
	rows := builder.Field(4).(*array.Int64Builder)

	for i := range records {
		timestamps.Append(arrow.Timestamp(records[i].Timestamp.UnixMicro()))
		filenames.Append(records[i].Filename)
		destinations.Append(records[i].Destination)
		tables.Append(records[i].Table)
		rows.Append(records[i].Rows)
	}

	record := builder.NewRecord()
	defer record.Release()

	writerProps := parquet.NewWriterProperties(
		parquet.WithMaxRowGroupLength(maxRowGroupLength),
		parquet.WithCompression(compress.Codecs.Snappy),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(snapshotSchema, file, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if record.NumRows() > 0 {
		if err := writer.Write(record); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write snapshot rows: %w", err)
		}
	}

	// Close also closes the underlying file
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}

	return nil
}

// Load reads every record from the snapshot
func (s *Snapshot) Load(ctx context.Context) ([]models.LoadRecord, error) {
	records, err := s.load(ctx)

	switch {
	case errors.Is(err, models.ErrSnapshotNotFound):
		observability.RecordSnapshotOperation("load", "miss")
		return nil, err
	case err != nil:
		observability.RecordSnapshotOperation("load", "error")
		return nil, err
	}

	observability.RecordSnapshotOperation("load", "success")
	s.log.WithFields(logrus.Fields{
		"path":    s.path,
		"records": len(records),
	}).Debug("Loaded snapshot")

	return records, nil
}

func (s *Snapshot) load(ctx context.Context) ([]models.LoadRecord, error) {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrSnapshotNotFound, s.path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	table, err := pqarrow.ReadTable(ctx, file, parquet.NewReaderProperties(s.pool), pqarrow.ArrowReadProperties{}, s.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}
	defer table.Release()

	records := make([]models.LoadRecord, 0, table.NumRows())

	reader := array.NewTableReader(table, readBatchSize)
	defer reader.Release()

	for reader.Next() {
		batch, err := decodeRecord(reader.Record())
		if err != nil {
			return nil, err
		}

		records = append(records, batch...)
	}

	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot: %w", err)
	}

	return records, nil
}

func decodeRecord(record arrow.Record) ([]models.LoadRecord, error) {
	indices := make(map[string]int, len(snapshotSchema.Fields()))
	for _, field := range snapshotSchema.Fields() {
		found := record.Schema().FieldIndices(field.Name)
		if len(found) == 0 {
			return nil, fmt.Errorf("%w: missing column %s", ErrUnexpectedColumn, field.Name)
		}

		indices[field.Name] = found[0]
	}

	timestamps, ok := record.Column(indices[columnTimestamp]).(*array.Timestamp)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedColumn, columnTimestamp)
	}

	unit := arrow.Microsecond
	if tsType, ok := timestamps.DataType().(*arrow.TimestampType); ok {
		unit = tsType.Unit
	}

	texts := make(map[string]*array.String, 3)
	for _, name := range []string{columnFilename, columnDestination, columnTable} {
		column, ok := record.Column(indices[name]).(*array.String)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedColumn, name)
		}

		texts[name] = column
	}

	rows, ok := record.Column(indices[columnRows]).(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedColumn, columnRows)
	}

	out := make([]models.LoadRecord, record.NumRows())
	for i := range out {
		out[i] = models.LoadRecord{
			Timestamp:   timestamps.Value(i).ToTime(unit).UTC(),
			Filename:    texts[columnFilename].Value(i),
			Destination: texts[columnDestination].Value(i),
			Table:       texts[columnTable].Value(i),
			Rows:        rows.Value(i),
		}
	}

	return out, nil
}

// Age returns how long ago the snapshot was last written
func (s *Snapshot) Age() (time.Duration, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", models.ErrSnapshotNotFound, s.path)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	return time.Since(info.ModTime()), nil
}
