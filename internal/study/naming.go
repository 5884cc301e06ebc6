package study

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/value"
)

// SetNameTemplate turns a set ordinal into a set name by substituting
// constants.SetNumberPlaceholder.
type SetNameTemplate string

// NewSetNameTemplate normalizes s: an empty template becomes the default and
// a template without the placeholder gets it appended.
func NewSetNameTemplate(s string) SetNameTemplate {
	if s == "" {
		return SetNameTemplate(constants.DefaultSetNameTemplate)
	}
	if !strings.Contains(s, constants.SetNumberPlaceholder) {
		s += constants.SetNumberPlaceholder
	}
	return SetNameTemplate(s)
}

// Name returns the name of set i.
func (t SetNameTemplate) Name(i int) string {
	return strings.ReplaceAll(string(NewSetNameTemplate(string(t))), constants.SetNumberPlaceholder, strconv.Itoa(i))
}

// Number recovers the ordinal from a name produced by Name.
func (t SetNameTemplate) Number(name string) (int, bool) {
	tmpl := string(NewSetNameTemplate(string(t)))
	prefix, suffix, _ := strings.Cut(tmpl, constants.SetNumberPlaceholder)
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) || len(name) < len(prefix)+len(suffix) {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(prefix) : len(name)-len(suffix)])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (t SetNameTemplate) String() string { return string(NewSetNameTemplate(string(t))) }

// Hash returns the content hash of one parameter set: hex MD5 over
// "name=repr\n" lines sorted by name. Column order does not matter.
func Hash(names []string, values []value.Value) string {
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return names[order[a]] < names[order[b]] })

	h := md5.New()
	for _, i := range order {
		h.Write([]byte(names[i] + "=" + values[i].Repr() + "\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
