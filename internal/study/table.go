package study

import "github.com/nvandessel/paramstudy/internal/value"

// Table is the columnar view of a study: the set name index, one column per
// parameter, and the hash column.
type Table struct {
	Index   []string
	Names   []string
	Columns [][]value.Value
	Hashes  []string
}

// Table returns the columnar view of s.
func (s *Study) Table() Table {
	t := Table{
		Index:   make([]string, len(s.sets)),
		Names:   s.Names(),
		Columns: make([][]value.Value, len(s.names)),
		Hashes:  make([]string, len(s.sets)),
	}
	for j := range t.Columns {
		t.Columns[j] = make([]value.Value, len(s.sets))
	}
	for i, ps := range s.sets {
		t.Index[i] = ps.Name
		t.Hashes[i] = ps.Hash
		for j, v := range ps.Values {
			t.Columns[j][i] = v
		}
	}
	return t
}

// Column returns the values of parameter name.
func (t Table) Column(name string) ([]value.Value, bool) {
	for j, n := range t.Names {
		if n == name {
			return t.Columns[j], true
		}
	}
	return nil, false
}

// ColumnKind returns the single kind shared by every cell of column j, or
// value.KindInvalid when the column mixes kinds or is empty.
func (t Table) ColumnKind(j int) value.Kind {
	col := t.Columns[j]
	if len(col) == 0 {
		return value.KindInvalid
	}
	k := col[0].Kind()
	for _, v := range col[1:] {
		if v.Kind() != k {
			return value.KindInvalid
		}
	}
	return k
}
