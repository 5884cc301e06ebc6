package builders

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/study"
)

// Runner executes one expanded action for a task.
type Runner interface {
	Run(ctx context.Context, t Task, command string) error
}

// ExecRunner runs actions with "sh -c". Task Env entries are exported to
// the process environment. Output is copied to Stdout and Stderr when set.
type ExecRunner struct {
	Shell  string
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes command and returns an error carrying the tail of stderr on
// a non-zero exit.
func (r ExecRunner) Run(ctx context.Context, t Task, command string) error {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Env = os.Environ()
	keys := make([]string, 0, len(t.Env))
	for k := range t.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, k+"="+t.Env[k])
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Stderr)
	}
	cmd.Stdout = r.Stdout

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = "..." + msg[len(msg)-512:]
		}
		if msg != "" {
			return fmt.Errorf("command %q failed: %w: %s", command, err, msg)
		}
		return fmt.Errorf("command %q failed: %w", command, err)
	}
	return nil
}

// ParameterStudyTasks fans t out into one task per parameter set. Each
// task builds in a subdirectory named after the set, under t.Dir when set:
// targets move into it and every parameter value plus the set name is
// added to Env.
func ParameterStudyTasks(s *study.Study, t Task) []Task {
	names := s.Names()
	tasks := make([]Task, 0, s.Len())
	for _, ps := range s.Sets() {
		task := t.Clone()
		task.Dir = filepath.Join(t.Dir, ps.Name)
		for i, target := range task.Targets {
			task.Targets[i] = filepath.Join(task.Dir, target)
		}
		for j, name := range names {
			task.Env[name] = ps.Values[j].String()
		}
		task.Env[constants.SetNameKey] = ps.Name
		tasks = append(tasks, task)
	}
	return tasks
}
