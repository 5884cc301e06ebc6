package value

import (
	"math"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRepr(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"int", Int(1), "1"},
		{"negative int", Int(-42), "-42"},
		{"integral float", Float(3), "3.0"},
		{"fractional float", Float(0.25), "0.25"},
		{"small float", Float(1e-7), "1e-07"},
		{"inf", Float(math.Inf(1)), "+Inf"},
		{"string", String("a"), `"a"`},
		{"string with quote", String(`a"b`), `"a\"b"`},
		{"bool", Bool(true), "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Repr(); got != tt.want {
				t.Errorf("Repr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIntAndFloatAreDistinct(t *testing.T) {
	if Int(1).Equal(Float(1)) {
		t.Error("Int(1).Equal(Float(1)) = true, want false")
	}
	if Int(1).Repr() == Float(1).Repr() {
		t.Errorf("Int(1) and Float(1) share repr %q", Int(1).Repr())
	}
}

func TestTaggedRoundTrip(t *testing.T) {
	values := []Value{Int(7), Float(2.5), Float(4), String("x:y"), String(""), Bool(false)}
	for _, v := range values {
		got, err := ParseTagged(v.Tagged())
		if err != nil {
			t.Fatalf("ParseTagged(%q) error = %v", v.Tagged(), err)
		}
		if !got.Equal(v) {
			t.Errorf("ParseTagged(%q) = %v, want %v", v.Tagged(), got, v)
		}
	}
}

func TestParseTaggedErrors(t *testing.T) {
	for _, s := range []string{"nokind", "complex:1", "int:abc", `string:unquoted`} {
		if _, err := ParseTagged(s); err == nil {
			t.Errorf("ParseTagged(%q) expected error", s)
		}
	}
}

func TestFromNative(t *testing.T) {
	tests := []struct {
		in      any
		want    Value
		wantErr bool
	}{
		{in: 3, want: Int(3)},
		{in: uint8(3), want: Int(3)},
		{in: float32(0.5), want: Float(0.5)},
		{in: "s", want: String("s")},
		{in: true, want: Bool(true)},
		{in: nil, wantErr: true},
		{in: []int{1}, wantErr: true},
		{in: uint64(math.MaxUint64), wantErr: true},
	}
	for _, tt := range tests {
		got, err := FromNative(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("FromNative(%#v) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("FromNative(%#v) error = %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("FromNative(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestYAMLNodeRoundTrip(t *testing.T) {
	values := []Value{Int(1), Float(3), Float(0.1), String("1"), String("true"), String("a"), Bool(true)}
	for _, v := range values {
		out, err := yaml.Marshal(ToNode(v))
		if err != nil {
			t.Fatalf("yaml.Marshal(%v) error = %v", v, err)
		}
		var n yaml.Node
		if err := yaml.Unmarshal(out, &n); err != nil {
			t.Fatalf("yaml.Unmarshal(%q) error = %v", out, err)
		}
		got, err := FromNode(n.Content[0])
		if err != nil {
			t.Fatalf("FromNode(%q) error = %v", out, err)
		}
		if !got.Equal(v) {
			t.Errorf("round trip of %s = %s (yaml %q)", v.Tagged(), got.Tagged(), out)
		}
	}
}

func TestToNodeFloatText(t *testing.T) {
	out, err := yaml.Marshal(ToNode(Float(3)))
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if string(out) != "3.0\n" {
		t.Errorf("yaml.Marshal(Float(3)) = %q, want %q", out, "3.0\n")
	}
}

func TestFromNodeRejectsCollections(t *testing.T) {
	var n yaml.Node
	if err := yaml.Unmarshal([]byte("[1, 2]"), &n); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if _, err := FromNode(n.Content[0]); err == nil {
		t.Error("FromNode(sequence) expected error")
	}
}
