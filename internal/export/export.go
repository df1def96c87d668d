// Package export writes flight datasets out for collaborators who do not
// read netCDF: Parquet through Apache Arrow, or plain CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/eurec4a/twinotter/internal/flight"
)

// Format is an output file format.
type Format string

const (
	Parquet Format = "parquet"
	CSV     Format = "csv"
)

// TimeColumn is the name of the time index column in exported files.
const TimeColumn = "time"

// FormatFor picks a format from a file extension, falling back to def.
func FormatFor(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return Parquet
	case ".csv":
		return CSV
	}
	return def
}

// Write stores ds at path in the given format.
func Write(ds *flight.Dataset, path string, format Format) error {
	switch format {
	case Parquet:
		return WriteParquet(ds, path)
	case CSV:
		return WriteCSV(ds, path)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// Schema describes ds as an Arrow schema: the time index followed by one
// nullable float64 field per channel, carrying its units as metadata.
func Schema(ds *flight.Dataset) *arrow.Schema {
	fields := []arrow.Field{{
		Name: TimeColumn,
		Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"},
	}}
	for _, name := range ds.Names() {
		v, _ := ds.Var(name)
		fields = append(fields, arrow.Field{
			Name:     name,
			Type:     arrow.PrimitiveTypes.Float64,
			Nullable: true,
			Metadata: arrow.NewMetadata([]string{"units"}, []string{v.Units()}),
		})
	}

	a := ds.Attrs
	meta := arrow.NewMetadata(
		[]string{"source_file", "flight_number", "time_coverage_start", "time_coverage_end"},
		[]string{a.SourceFile, strconv.Itoa(a.FlightNumber), a.TimeCoverageStart, a.TimeCoverageEnd},
	)
	return arrow.NewSchema(fields, &meta)
}

// Table converts ds into an Arrow table. NaN samples become nulls.
func Table(ds *flight.Dataset, mem memory.Allocator) arrow.Table {
	schema := Schema(ds)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	tb := b.Field(0).(*array.TimestampBuilder)
	for _, t := range ds.Time {
		tb.Append(arrow.Timestamp(t.UnixMicro()))
	}

	for i, name := range ds.Names() {
		v, _ := ds.Var(name)
		valid := make([]bool, len(v.Values))
		for j, x := range v.Values {
			valid[j] = !math.IsNaN(x)
		}
		b.Field(i+1).(*array.Float64Builder).AppendValues(v.Values, valid)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec})
}

// WriteParquet stores ds as a Snappy-compressed Parquet file.
func WriteParquet(ds *flight.Dataset, path string) error {
	table := Table(ds, memory.DefaultAllocator)
	defer table.Release()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	defer file.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(table.Schema(), file, props, arrowProps)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := writer.WriteTable(table, max(table.NumRows(), 1)); err != nil {
		writer.Close()
		return fmt.Errorf("write parquet table: %w", err)
	}
	return writer.Close()
}

// WriteCSV stores ds as CSV with an RFC 3339 time column. NaN samples are
// written as empty fields.
func WriteCSV(ds *flight.Dataset, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	names := ds.Names()
	if err := w.Write(append([]string{TimeColumn}, names...)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	vars := make([]*flight.Variable, len(names))
	for i, name := range names {
		vars[i], _ = ds.Var(name)
	}
	row := make([]string, len(names)+1)
	for r, t := range ds.Time {
		row[0] = t.UTC().Format(time.RFC3339Nano)
		for i, v := range vars {
			x := v.Values[r]
			if math.IsNaN(x) {
				row[i+1] = ""
			} else {
				row[i+1] = strconv.FormatFloat(x, 'g', -1, 64)
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", r, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Close()
}
