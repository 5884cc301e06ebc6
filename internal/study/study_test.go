package study

import (
	"errors"
	"testing"

	"github.com/nvandessel/paramstudy/internal/value"
)

func mustNew(t *testing.T, names []string, rows ...[]value.Value) *Study {
	t.Helper()
	s, err := New(names, rows, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSetNameTemplate(t *testing.T) {
	tests := []struct {
		template string
		i        int
		want     string
	}{
		{"", 0, "parameter_set0"},
		{"parameter_set{number}", 12, "parameter_set12"},
		{"run_", 3, "run_3"},
		{"out/set{number}.yaml", 1, "out/set1.yaml"},
	}
	for _, tt := range tests {
		got := SetNameTemplate(tt.template).Name(tt.i)
		if got != tt.want {
			t.Errorf("SetNameTemplate(%q).Name(%d) = %q, want %q", tt.template, tt.i, got, tt.want)
		}
		n, ok := SetNameTemplate(tt.template).Number(got)
		if !ok || n != tt.i {
			t.Errorf("Number(%q) = %d, %v, want %d", got, n, ok, tt.i)
		}
	}
	if _, ok := SetNameTemplate("").Number("other7"); ok {
		t.Error("Number(other7) matched the default template")
	}
}

func TestHash(t *testing.T) {
	tests := []struct {
		name   string
		names  []string
		values []value.Value
		want   string
	}{
		{"int", []string{"parameter_1"}, value.Row(1), "23047926229c995dbdeb251cdb3bad22"},
		{"float differs from int", []string{"parameter_1"}, value.Row(1.0), "4d2398b0f72bef860c55ab2245d066ab"},
		{"two columns", []string{"parameter_1", "parameter_2"}, value.Row(1, "a"), "582329c3cd27cb02cf3982803ba196a7"},
		{"column order ignored", []string{"parameter_2", "parameter_1"}, value.Row("a", 1), "582329c3cd27cb02cf3982803ba196a7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hash(tt.names, tt.values); got != tt.want {
				t.Errorf("Hash() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewNamesSets(t *testing.T) {
	s := mustNew(t, []string{"parameter_1"}, value.Row(1), value.Row(2))
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	for i, want := range []int64{1, 2} {
		ps := s.Sets()[i]
		if ps.Name != SetNameTemplate("").Name(i) {
			t.Errorf("set %d name = %s", i, ps.Name)
		}
		if !ps.Values[0].Equal(value.Int(want)) {
			t.Errorf("set %d value = %v, want %d", i, ps.Values[0], want)
		}
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New([]string{"a"}, [][]value.Value{value.Row(1), value.Row(1)}, ""); !errors.Is(err, ErrDuplicateSet) {
		t.Errorf("duplicate rows error = %v, want ErrDuplicateSet", err)
	}
	if _, err := New([]string{"a", "a"}, nil, ""); err == nil {
		t.Error("repeated parameter name expected error")
	}
	if _, err := New([]string{"a"}, [][]value.Value{value.Row(1, 2)}, ""); err == nil {
		t.Error("wide row expected error")
	}
	if _, err := New([]string{"a"}, [][]value.Value{{value.Value{}}}, ""); err == nil {
		t.Error("invalid cell expected error")
	}
}

func TestDedupe(t *testing.T) {
	rows := Dedupe([]string{"a"}, [][]value.Value{value.Row(1), value.Row(2), value.Row(1), value.Row(1.0)})
	if len(rows) != 3 {
		t.Fatalf("Dedupe() kept %d rows, want 3", len(rows))
	}
	if !rows[2][0].Equal(value.Float(1)) {
		t.Errorf("rows[2] = %v, want 1.0", rows[2])
	}
}

func TestTable(t *testing.T) {
	s := mustNew(t, []string{"x", "y"}, value.Row(1, "a"), value.Row(2, 0.5))
	tbl := s.Table()
	if tbl.Index[1] != "parameter_set1" {
		t.Errorf("Index = %v", tbl.Index)
	}
	col, ok := tbl.Column("y")
	if !ok || !col[1].Equal(value.Float(0.5)) {
		t.Errorf("Column(y) = %v, %v", col, ok)
	}
	if tbl.ColumnKind(0) != value.KindInt {
		t.Errorf("ColumnKind(0) = %v, want int", tbl.ColumnKind(0))
	}
	if tbl.ColumnKind(1) != value.KindInvalid {
		t.Errorf("ColumnKind(1) = %v, want mixed", tbl.ColumnKind(1))
	}
	if tbl.Hashes[0] != s.Sets()[0].Hash {
		t.Errorf("Hashes[0] = %s", tbl.Hashes[0])
	}
}

func TestMergeWithItself(t *testing.T) {
	s := mustNew(t, []string{"parameter_1"}, value.Row(1))
	merged, err := Merge(s, s)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if !merged.Equal(s) {
		t.Errorf("Merge(s, s) = %+v, want %+v", merged.Sets(), s.Sets())
	}
}

func TestMergeIdempotentContent(t *testing.T) {
	s := mustNew(t, []string{"parameter_1", "parameter_2"},
		value.Row(1, "a"), value.Row(1, "b"), value.Row(2, "a"), value.Row(2, "b"))
	merged, err := Merge(s, s)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if merged.Len() != s.Len() {
		t.Fatalf("Len() = %d, want %d", merged.Len(), s.Len())
	}
	want := map[string]bool{}
	for _, h := range s.Hashes() {
		want[h] = true
	}
	for _, h := range merged.Hashes() {
		if !want[h] {
			t.Errorf("merged hash %s not in original", h)
		}
	}
	// Ascending hash order: 161466.. (1,b), 582329.. (1,a), 839608.. (2,a), e97ad8.. (2,b).
	wantRows := [][]value.Value{value.Row(1, "b"), value.Row(1, "a"), value.Row(2, "a"), value.Row(2, "b")}
	for i, ps := range merged.Sets() {
		if ps.Name != SetNameTemplate("").Name(i) {
			t.Errorf("set %d name = %s", i, ps.Name)
		}
		for j, v := range wantRows[i] {
			if !ps.Values[j].Equal(v) {
				t.Errorf("set %d = %v, want %v", i, ps.Values, wantRows[i])
				break
			}
		}
	}
}

func TestMergeDropsStaleAndAddsNew(t *testing.T) {
	previous := mustNew(t, []string{"parameter_1"}, value.Row(1), value.Row(2))
	current := mustNew(t, []string{"parameter_1"}, value.Row(2), value.Row(3))
	merged, err := Merge(current, previous)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	// 389582.. (3) sorts before 631b89.. (2); 1 is stale.
	want := []int64{3, 2}
	if merged.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", merged.Len(), len(want))
	}
	for i, w := range want {
		ps := merged.Sets()[i]
		if !ps.Values[0].Equal(value.Int(w)) || ps.Name != SetNameTemplate("").Name(i) {
			t.Errorf("set %d = %s %v, want parameter_set%d %d", i, ps.Name, ps.Values, i, w)
		}
	}
}

func TestMergeSuperset(t *testing.T) {
	previous := mustNew(t, []string{"parameter_1"}, value.Row(1))
	current := mustNew(t, []string{"parameter_1"}, value.Row(1), value.Row(2))
	merged, err := Merge(current, previous)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if merged.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", merged.Len())
	}
	seen := map[string]bool{}
	for _, h := range merged.Hashes() {
		if seen[h] {
			t.Errorf("hash %s repeated", h)
		}
		seen[h] = true
	}
}

func TestMergeColumnOrder(t *testing.T) {
	previous := mustNew(t, []string{"b", "a"}, value.Row("x", 1))
	current := mustNew(t, []string{"a", "b"}, value.Row(1, "x"))
	merged, err := Merge(current, previous)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	ps := merged.Sets()[0]
	if !ps.Values[0].Equal(value.Int(1)) || !ps.Values[1].Equal(value.String("x")) {
		t.Errorf("merged values = %v, want [1 x]", ps.Values)
	}
}

func TestMergeErrors(t *testing.T) {
	a := mustNew(t, []string{"a"}, value.Row(1))
	b := mustNew(t, []string{"b"}, value.Row(1))
	if _, err := Merge(a, b); !errors.Is(err, ErrColumnMismatch) {
		t.Errorf("Merge() error = %v, want ErrColumnMismatch", err)
	}

	corrupt := mustNew(t, []string{"a"}, value.Row(2))
	corrupt.sets[0].Hash = "0000"
	if _, err := Merge(a, corrupt); !errors.Is(err, ErrCorruptStudy) {
		t.Errorf("Merge() error = %v, want ErrCorruptStudy", err)
	}

	merged, err := Merge(a, nil)
	if err != nil || merged != a {
		t.Errorf("Merge(a, nil) = %v, %v, want a", merged, err)
	}
}

func TestFromSets(t *testing.T) {
	names := []string{"parameter_1"}
	sets := []ParameterSet{
		{Name: "parameter_set0", Hash: "23047926229c995dbdeb251cdb3bad22", Values: value.Row(1)},
		{Name: "parameter_set1", Values: value.Row(2)},
	}
	s, err := FromSets(names, sets, "")
	if err != nil {
		t.Fatalf("FromSets() error = %v", err)
	}
	if s.Sets()[1].Hash != "631b896147ac9f9738bc2b6c4fa912a2" {
		t.Errorf("computed hash = %s", s.Sets()[1].Hash)
	}

	sets[0].Hash = "bad"
	if _, err := FromSets(names, sets, ""); !errors.Is(err, ErrCorruptStudy) {
		t.Errorf("FromSets() error = %v, want ErrCorruptStudy", err)
	}
}

func TestEqual(t *testing.T) {
	a := mustNew(t, []string{"x", "y"}, value.Row(1, "a"))
	b := mustNew(t, []string{"x", "y"}, value.Row(1, "a"))
	c := mustNew(t, []string{"x", "y"}, value.Row(1, "b"))
	if !a.Equal(b) {
		t.Error("Equal() = false for identical studies")
	}
	if a.Equal(c) {
		t.Error("Equal() = true for different studies")
	}
	if a.Equal(nil) {
		t.Error("Equal(nil) = true")
	}
}
