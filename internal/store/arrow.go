package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/study"
	"github.com/nvandessel/paramstudy/internal/value"
)

const (
	// arrowTemplateKey records the set name template in schema metadata.
	arrowTemplateKey = "paramstudy.set_name_template"
	// arrowKindKey records a parameter column's value kind in field metadata.
	arrowKindKey = "paramstudy.kind"
	arrowMixed   = "mixed"
)

// ArrowFormat writes a study as an Arrow IPC file with one record batch:
// a set_name index column, one column per parameter, and set_hash.
// Single-kind columns use the native Arrow type; mixed columns hold tagged
// utf8 cells.
type ArrowFormat struct{}

func (ArrowFormat) Name() string { return "arrow" }
func (ArrowFormat) Ext() string  { return ".arrow" }

func arrowType(k value.Kind) arrow.DataType {
	switch k {
	case value.KindInt:
		return arrow.PrimitiveTypes.Int64
	case value.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case value.KindBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

func (ArrowFormat) WriteFile(path string, s *study.Study) error {
	tbl := s.Table()
	mem := memory.NewGoAllocator()

	fields := make([]arrow.Field, 0, len(tbl.Names)+2)
	fields = append(fields, arrow.Field{Name: constants.SetNameKey, Type: arrow.BinaryTypes.String})
	kinds := make([]value.Kind, len(tbl.Names))
	for j, name := range tbl.Names {
		kinds[j] = tbl.ColumnKind(j)
		tag := arrowMixed
		if kinds[j] != value.KindInvalid {
			tag = kinds[j].String()
		}
		md := arrow.NewMetadata([]string{arrowKindKey}, []string{tag})
		fields = append(fields, arrow.Field{Name: name, Type: arrowType(kinds[j]), Metadata: md})
	}
	fields = append(fields, arrow.Field{Name: constants.SetHashKey, Type: arrow.BinaryTypes.String})

	md := arrow.NewMetadata([]string{arrowTemplateKey}, []string{s.Template().String()})
	schema := arrow.NewSchema(fields, &md)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	b.Field(0).(*array.StringBuilder).AppendValues(tbl.Index, nil)
	for j, col := range tbl.Columns {
		fb := b.Field(j + 1)
		for _, v := range col {
			switch kinds[j] {
			case value.KindInt:
				fb.(*array.Int64Builder).Append(v.AsInt())
			case value.KindFloat:
				fb.(*array.Float64Builder).Append(v.AsFloat())
			case value.KindBool:
				fb.(*array.BooleanBuilder).Append(v.AsBool())
			case value.KindString:
				fb.(*array.StringBuilder).Append(v.AsString())
			default:
				fb.(*array.StringBuilder).Append(v.Tagged())
			}
		}
	}
	b.Field(len(fields) - 1).(*array.StringBuilder).AppendValues(tbl.Hashes, nil)

	rec := b.NewRecord()
	defer rec.Release()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create arrow file: %w", err)
	}
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to open arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write arrow record: %w", err)
	}
	if err := errors.Join(w.Close(), f.Close()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close arrow file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (ArrowFormat) ReadFile(path string) (*study.Study, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrNotStudy, err)
	}
	defer r.Close()

	schema := r.Schema()
	fields := schema.Fields()
	if len(fields) < 3 || fields[0].Name != constants.SetNameKey || fields[len(fields)-1].Name != constants.SetHashKey {
		return nil, fmt.Errorf("%s: missing %s/%s columns: %w", path, constants.SetNameKey, constants.SetHashKey, ErrNotStudy)
	}
	params := fields[1 : len(fields)-1]
	names := make([]string, len(params))
	mixed := make([]bool, len(params))
	for j, fld := range params {
		names[j] = fld.Name
		if i := fld.Metadata.FindKey(arrowKindKey); i >= 0 {
			mixed[j] = fld.Metadata.Values()[i] == arrowMixed
		}
	}

	var sets []study.ParameterSet
	for ri := 0; ri < r.NumRecords(); ri++ {
		rec, err := r.Record(ri)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, ri, err)
		}
		idx, ok := rec.Column(0).(*array.String)
		if !ok {
			return nil, fmt.Errorf("%s: %s column is not utf8: %w", path, constants.SetNameKey, ErrNotStudy)
		}
		hashes, ok := rec.Column(len(fields) - 1).(*array.String)
		if !ok {
			return nil, fmt.Errorf("%s: %s column is not utf8: %w", path, constants.SetHashKey, ErrNotStudy)
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make([]value.Value, len(params))
			for j := range params {
				v, err := arrowCell(rec.Column(j+1), i, mixed[j])
				if err != nil {
					return nil, fmt.Errorf("%s: set %s parameter %s: %w", path, idx.Value(i), names[j], err)
				}
				row[j] = v
			}
			sets = append(sets, study.ParameterSet{Name: idx.Value(i), Hash: hashes.Value(i), Values: row})
		}
	}

	template := study.NewSetNameTemplate("")
	md := schema.Metadata()
	if i := md.FindKey(arrowTemplateKey); i >= 0 {
		template = study.NewSetNameTemplate(md.Values()[i])
	}
	return study.FromSets(names, sets, template)
}

func arrowCell(col arrow.Array, i int, mixed bool) (value.Value, error) {
	if col.IsNull(i) {
		return value.Value{}, fmt.Errorf("null cell: %w", ErrNotStudy)
	}
	switch c := col.(type) {
	case *array.Int64:
		return value.Int(c.Value(i)), nil
	case *array.Float64:
		return value.Float(c.Value(i)), nil
	case *array.Boolean:
		return value.Bool(c.Value(i)), nil
	case *array.String:
		if mixed {
			return value.ParseTagged(c.Value(i))
		}
		return value.String(c.Value(i)), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported arrow type %s: %w", col.DataType(), ErrNotStudy)
	}
}
