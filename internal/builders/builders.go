// Package builders describes build tasks for external programs: shell action
// templates, emitters that predict the files an action produces, and a
// runner that executes the expanded commands.
package builders

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Task is one build step: the files it produces, the files it reads, and
// the variables its actions may reference. Dir, when set, is the build
// directory emitted targets go to; otherwise it is the first target's
// directory.
type Task struct {
	Targets []string
	Sources []string
	Env     map[string]string
	Dir     string
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	c := Task{
		Targets: append([]string(nil), t.Targets...),
		Sources: append([]string(nil), t.Sources...),
		Env:     make(map[string]string, len(t.Env)),
		Dir:     t.Dir,
	}
	for k, v := range t.Env {
		c.Env[k] = v
	}
	return c
}

// Emitter appends the targets an action produces beyond those the caller named.
type Emitter func(Task) Task

// Builder pairs shell action templates with an emitter.
type Builder struct {
	Name    string
	Actions []string
	Emitter Emitter
}

// Prepare returns t with emitted targets appended.
func (b Builder) Prepare(t Task) Task {
	t = t.Clone()
	if b.Emitter != nil {
		t = b.Emitter(t)
	}
	return t
}

// Commands returns the expanded actions for a prepared task.
func (b Builder) Commands(t Task) []string {
	cmds := make([]string, len(b.Actions))
	for i, a := range b.Actions {
		cmds[i] = Expand(a, t)
	}
	return cmds
}

// Build prepares t, creates its build directory, and runs every action in
// order, stopping at the first failure.
func (b Builder) Build(ctx context.Context, r Runner, t Task, logger *slog.Logger) error {
	t = b.Prepare(t)
	if dir := buildDir(t); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create build directory: %w", err)
		}
	}
	for _, cmd := range b.Commands(t) {
		if logger != nil {
			logger.Debug("running action", "builder", b.Name, "command", cmd)
		}
		if err := r.Run(ctx, t, cmd); err != nil {
			return fmt.Errorf("%s: %w", b.Name, err)
		}
	}
	return nil
}

// buildDir is t.Dir, the directory of the first target, or "." without
// either.
func buildDir(t Task) string {
	if t.Dir != "" {
		return t.Dir
	}
	if len(t.Targets) == 0 {
		return "."
	}
	return filepath.Dir(t.Targets[0])
}

// Expand substitutes ${VAR} references in template. Recognized variables:
// TARGET, TARGETS, SOURCE, SOURCES, and the TARGET/SOURCE attributes dir,
// abspath, dir.abspath, file, filebase; any other name is looked up in
// t.Env. Unknown names expand to the empty string.
func Expand(template string, t Task) string {
	return os.Expand(template, func(name string) string {
		switch name {
		case "TARGETS":
			return strings.Join(t.Targets, " ")
		case "SOURCES":
			return strings.Join(t.Sources, " ")
		}
		for _, prefix := range []string{"TARGET", "SOURCE"} {
			list := t.Targets
			if prefix == "SOURCE" {
				list = t.Sources
			}
			if name == prefix {
				return first(list)
			}
			if attr, ok := strings.CutPrefix(name, prefix+"."); ok {
				return pathAttr(first(list), attr)
			}
		}
		return t.Env[name]
	})
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

func pathAttr(path, attr string) string {
	if path == "" {
		return ""
	}
	abs := func(p string) string {
		a, err := filepath.Abs(p)
		if err != nil {
			return p
		}
		return a
	}
	switch attr {
	case "dir":
		return filepath.Dir(path)
	case "abspath":
		return abs(path)
	case "dir.abspath":
		return abs(filepath.Dir(path))
	case "file":
		return filepath.Base(path)
	case "filebase":
		base := filepath.Base(path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	default:
		return ""
	}
}
