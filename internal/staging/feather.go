package staging

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"

	series "energy-tracker/internal/series/domain"
)

var arrowFileMagic = []byte("ARROW1")

// DecodeFeather reads a Feather v2 (Arrow IPC file) or Arrow IPC stream into
// raw rows. Null cells are stored as nil.
func DecodeFeather(r io.Reader, kind series.Kind) (series.RawSeries, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return series.RawSeries{}, err
	}
	out := series.RawSeries{Kind: kind}
	mem := memory.NewGoAllocator()

	if bytes.HasPrefix(data, arrowFileMagic) {
		reader, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
		if err != nil {
			return series.RawSeries{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		defer reader.Close()
		for i := 0; i < reader.NumRecords(); i++ {
			rec, err := reader.Record(i)
			if err != nil {
				return series.RawSeries{}, err
			}
			rows, err := recordRows(rec)
			if err != nil {
				return series.RawSeries{}, err
			}
			out.Rows = append(out.Rows, rows...)
		}
		return out, nil
	}

	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	if err != nil {
		return series.RawSeries{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer reader.Release()
	for reader.Next() {
		rows, err := recordRows(reader.Record())
		if err != nil {
			return series.RawSeries{}, err
		}
		out.Rows = append(out.Rows, rows...)
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return series.RawSeries{}, err
	}
	return out, nil
}

func recordRows(rec arrow.Record) ([]series.RawRow, error) {
	rows := make([]series.RawRow, rec.NumRows())
	for i := range rows {
		rows[i] = make(series.RawRow, rec.NumCols())
	}
	for c := 0; c < int(rec.NumCols()); c++ {
		name := rec.ColumnName(c)
		col := rec.Column(c)
		for i := range rows {
			value, err := cellValue(col, i)
			if err != nil {
				return nil, fmt.Errorf("staging: column %q: %w", name, err)
			}
			rows[i][name] = value
		}
	}
	return rows, nil
}

func cellValue(col arrow.Array, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}
	switch arr := col.(type) {
	case *array.String:
		return arr.Value(i), nil
	case *array.LargeString:
		return arr.Value(i), nil
	case *array.Binary:
		return string(arr.Value(i)), nil
	case *array.Int64:
		return arr.Value(i), nil
	case *array.Int32:
		return int64(arr.Value(i)), nil
	case *array.Int16:
		return int64(arr.Value(i)), nil
	case *array.Int8:
		return int64(arr.Value(i)), nil
	case *array.Uint32:
		return int64(arr.Value(i)), nil
	case *array.Uint16:
		return int64(arr.Value(i)), nil
	case *array.Uint8:
		return int64(arr.Value(i)), nil
	case *array.Float64:
		return arr.Value(i), nil
	case *array.Float32:
		return float64(arr.Value(i)), nil
	case *array.Boolean:
		return arr.Value(i), nil
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return arr.Value(i).ToTime(unit).UTC(), nil
	case *array.Date32:
		return arr.Value(i).ToTime().UTC().Format("2006-01-02"), nil
	case *array.Date64:
		return arr.Value(i).ToTime().UTC().Format("2006-01-02"), nil
	case *array.Dictionary:
		return cellValue(arr.Dictionary(), arr.GetValueIndex(i))
	default:
		return nil, fmt.Errorf("%w: arrow type %s", ErrUnsupportedFormat, col.DataType())
	}
}

// EncodeFeather writes raw rows as a Feather v2 file. Column types are taken
// from the first non-nil value of each column: strings, integers, floats and
// times are supported.
func EncodeFeather(w io.Writer, raw series.RawSeries) error {
	schema, err := inferSchema(raw)
	if err != nil {
		return err
	}
	mem := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for _, row := range raw.Rows {
		for c, field := range schema.Fields() {
			if err := appendCell(builder.Field(c), row[field.Name]); err != nil {
				return fmt.Errorf("staging: column %q: %w", field.Name, err)
			}
		}
	}
	rec := builder.NewRecord()
	defer rec.Release()

	// The IPC file writer needs a seekable target; w may be a pipe or socket.
	var buf seekBuffer
	writer, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return err
	}
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	_, err = w.Write(buf.data)
	return err
}

// seekBuffer is an in-memory io.WriteSeeker.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = b.pos + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, errors.New("staging: invalid whence")
	}
	if next < 0 {
		return 0, errors.New("staging: negative position")
	}
	b.pos = next
	return next, nil
}

var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

func inferSchema(raw series.RawSeries) (*arrow.Schema, error) {
	types := make(map[string]arrow.DataType)
	for _, row := range raw.Rows {
		for name, value := range row {
			if known := types[name]; known != nil {
				continue
			}
			dt, err := arrowType(value)
			if err != nil {
				return nil, fmt.Errorf("staging: column %q: %w", name, err)
			}
			types[name] = dt
		}
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]arrow.Field, 0, len(names))
	for _, name := range names {
		dt := types[name]
		if dt == nil {
			dt = arrow.BinaryTypes.String
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: true})
	}
	return arrow.NewSchema(fields, nil), nil
}

func arrowType(value any) (arrow.DataType, error) {
	switch value.(type) {
	case nil:
		return nil, nil
	case string:
		return arrow.BinaryTypes.String, nil
	case int, int32, int64:
		return arrow.PrimitiveTypes.Int64, nil
	case float32, float64:
		return arrow.PrimitiveTypes.Float64, nil
	case bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case time.Time:
		return timestampType, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedFormat, value)
	}
}

func appendCell(b array.Builder, value any) error {
	if value == nil {
		b.AppendNull()
		return nil
	}
	switch builder := b.(type) {
	case *array.StringBuilder:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		builder.Append(s)
	case *array.Int64Builder:
		switch v := value.(type) {
		case int:
			builder.Append(int64(v))
		case int32:
			builder.Append(int64(v))
		case int64:
			builder.Append(v)
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float32:
			builder.Append(float64(v))
		case float64:
			builder.Append(v)
		default:
			return fmt.Errorf("expected float, got %T", value)
		}
	case *array.BooleanBuilder:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		builder.Append(v)
	case *array.TimestampBuilder:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("expected time, got %T", value)
		}
		builder.Append(arrow.Timestamp(v.UTC().UnixNano()))
	default:
		return fmt.Errorf("%w: builder %T", ErrUnsupportedFormat, b)
	}
	return nil
}
