package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/logging"
	"github.com/nvandessel/paramstudy/internal/pathutil"
	"github.com/nvandessel/paramstudy/internal/study"
)

// DecisionLog receives one event per write decision.
type DecisionLog interface {
	Log(event map[string]any)
}

// Writer persists a study according to its output settings. With PerSet
// each set goes to OutputDir/<set name><ext> and set files of sets no longer
// in the study are removed; otherwise the aggregate goes to OutputFile, or to
// Stdout when OutputFile is empty.
type Writer struct {
	Format     Format
	OutputFile string
	OutputDir  string
	PerSet     bool

	Overwrite            bool
	DryRun               bool
	WriteMeta            bool
	TimestampOnCollision bool

	Stdout    io.Writer
	Logger    *slog.Logger
	Decisions DecisionLog

	// Now is used for collision timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Decision is the outcome of the write policy for one target.
type Decision string

const (
	DecisionWrite     Decision = "write"
	DecisionSkip      Decision = "skip"
	DecisionTimestamp Decision = "timestamp"
	DecisionDryRun    Decision = "dryrun"
	DecisionRemove    Decision = "remove"
)

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return logging.Discard()
	}
	return w.Logger
}

func (w *Writer) stdout() io.Writer {
	if w.Stdout == nil {
		return os.Stdout
	}
	return w.Stdout
}

// SetPaths returns the per-set file paths in set order.
func (w *Writer) SetPaths(s *study.Study) []string {
	paths := make([]string, s.Len())
	for i, ps := range s.Sets() {
		paths[i] = filepath.Join(w.OutputDir, ps.Name+w.Format.Ext())
	}
	return paths
}

// Write persists s.
func (w *Writer) Write(s *study.Study) error {
	if w.Format == nil {
		return fmt.Errorf("no output format: %w", ErrUnsupportedFormat)
	}
	if w.PerSet {
		return w.writeSets(s)
	}
	if w.OutputFile == "" {
		enc, ok := w.Format.(Encoder)
		if !ok {
			return fmt.Errorf("output file type %s needs an output file", w.Format.Name())
		}
		return enc.Encode(w.stdout(), s)
	}
	_, err := w.writeTarget(w.OutputFile, aggregateTarget{w.Format, s})
	return err
}

func (w *Writer) writeSets(s *study.Study) error {
	dir := w.OutputDir
	if dir == "" {
		dir = "."
	}
	if !w.DryRun {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	names := s.Names()
	written := make([]string, 0, s.Len())
	for i, path := range w.SetPaths(s) {
		if err := pathutil.ValidateSetPath(path, dir); err != nil {
			return fmt.Errorf("set %s: %w", s.Sets()[i].Name, err)
		}
		var t target
		if sf, ok := w.Format.(SetFormat); ok {
			t = setTarget{sf, names, s.Sets()[i]}
		} else {
			one, err := study.FromSets(names, s.Sets()[i:i+1], s.Template())
			if err != nil {
				return err
			}
			t = aggregateTarget{w.Format, one}
		}
		final, err := w.writeTarget(path, t)
		if err != nil {
			return err
		}
		written = append(written, final)
	}

	if !w.DryRun {
		if err := w.pruneSets(dir, s); err != nil {
			return err
		}
	}
	if w.WriteMeta {
		return w.writeMeta(dir, written)
	}
	return nil
}

// pruneSets removes set files an earlier, larger study left in dir: files
// named by the study's template that are not among its sets. Files that do
// not read as set files of this format are left alone.
func (w *Writer) pruneSets(dir string, s *study.Study) error {
	keep := make(map[string]bool, s.Len())
	for _, ps := range s.Sets() {
		keep[ps.Name] = true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	ext := w.Format.Ext()
	tmpl := s.Template()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ext {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if _, ok := tmpl.Number(stem); !ok || keep[stem] {
			continue
		}
		path := filepath.Join(dir, name)
		if !w.isStudyFile(path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			err = fmt.Errorf("failed to remove stale parameter set: %w", err)
			w.record(path, "", err)
			return err
		}
		w.record(path, DecisionRemove, nil)
		w.logger().Debug("write decision", "path", pathutil.RedactPath(path), "decision", string(DecisionRemove))
	}
	return nil
}

func (w *Writer) isStudyFile(path string) bool {
	if sf, ok := w.Format.(SetFormat); ok {
		_, _, err := sf.ReadSetFile(path)
		return err == nil
	}
	_, err := w.Format.ReadFile(path)
	return err == nil
}

func (w *Writer) writeMeta(dir string, paths []string) error {
	var buf bytes.Buffer
	for _, p := range paths {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	metaPath := filepath.Join(dir, constants.MetaFileName)
	if w.DryRun {
		fmt.Fprintf(w.stdout(), "%s\n%s", metaPath, buf.String())
		return nil
	}
	if err := os.WriteFile(metaPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write meta file: %w", err)
	}
	return nil
}

// target is one file's worth of study content.
type target interface {
	write(path string) error
	// same reports whether path already holds this content. An error means
	// path is not a study of this format.
	same(path string) (bool, error)
	encode(w io.Writer) (bool, error)
}

type aggregateTarget struct {
	f Format
	s *study.Study
}

func (t aggregateTarget) write(path string) error { return t.f.WriteFile(path, t.s) }

func (t aggregateTarget) same(path string) (bool, error) {
	existing, err := t.f.ReadFile(path)
	if err != nil {
		return false, err
	}
	return existing.Equal(t.s), nil
}

func (t aggregateTarget) encode(w io.Writer) (bool, error) {
	enc, ok := t.f.(Encoder)
	if !ok {
		return false, nil
	}
	return true, enc.Encode(w, t.s)
}

type setTarget struct {
	f     SetFormat
	names []string
	ps    study.ParameterSet
}

func (t setTarget) write(path string) error {
	var buf bytes.Buffer
	if err := t.f.EncodeSet(&buf, t.names, t.ps.Values); err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

func (t setTarget) same(path string) (bool, error) {
	names, vals, err := t.f.ReadSetFile(path)
	if err != nil {
		return false, err
	}
	row, err := alignRow(t.names, names, vals)
	if err != nil {
		// A set file over other parameters is still a study file; it differs.
		return false, nil
	}
	return study.Hash(t.names, row) == t.ps.Hash, nil
}

func (t setTarget) encode(w io.Writer) (bool, error) {
	return true, t.f.EncodeSet(w, t.names, t.ps.Values)
}

// writeTarget applies the conditional write policy to one path and returns
// the path actually used.
func (w *Writer) writeTarget(path string, t target) (string, error) {
	decision, final, err := w.decide(path, t)
	if err != nil {
		w.record(path, "", err)
		return "", err
	}
	w.record(path, decision, nil)
	w.logger().Debug("write decision", "path", pathutil.RedactPath(final), "decision", string(decision))

	switch decision {
	case DecisionSkip:
		return final, nil
	case DecisionDryRun:
		out := w.stdout()
		fmt.Fprintln(out, final)
		if _, err := t.encode(out); err != nil {
			return "", err
		}
		return final, nil
	default:
		if dir := filepath.Dir(final); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		if err := t.write(final); err != nil {
			return "", err
		}
		return final, nil
	}
}

func (w *Writer) decide(path string, t target) (Decision, string, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) || (err == nil && w.Overwrite && !info.IsDir()):
		if w.DryRun {
			return DecisionDryRun, path, nil
		}
		return DecisionWrite, path, nil
	case err != nil:
		return "", "", fmt.Errorf("failed to stat %s: %w", pathutil.RedactPath(path), err)
	case info.IsDir():
		return "", "", fmt.Errorf("%s is a directory: %w", pathutil.RedactPath(path), ErrRefuseOverwrite)
	}

	same, err := t.same(path)
	switch {
	case err == nil && same:
		return DecisionSkip, path, nil
	case err == nil:
		if w.DryRun {
			return DecisionDryRun, path, nil
		}
		return DecisionWrite, path, nil
	case w.TimestampOnCollision:
		stamped := w.timestamped(path)
		if w.DryRun {
			return DecisionDryRun, stamped, nil
		}
		return DecisionTimestamp, stamped, nil
	default:
		return "", "", fmt.Errorf("%s exists and is not a parameter study (use overwrite): %w",
			pathutil.RedactPath(path), ErrRefuseOverwrite)
	}
}

// timestamped returns an unused <stem>.<timestamp><ext> next to path,
// adding -1, -2, ... when collisions land in the same second.
func (w *Writer) timestamped(path string) string {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext) + "." + now().Format(constants.TimestampFormat)
	candidate := base + ext
	for n := 1; ; n++ {
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
}

func (w *Writer) record(path string, d Decision, err error) {
	if w.Decisions == nil {
		return
	}
	event := map[string]any{
		"event":  "write",
		"path":   path,
		"format": w.Format.Name(),
	}
	if err != nil {
		event["error"] = err.Error()
	} else {
		event["decision"] = string(d)
	}
	w.Decisions.Log(event)
}
