package builders

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nvandessel/paramstudy/internal/study"
	"github.com/nvandessel/paramstudy/internal/value"
)

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEmitters(t *testing.T) {
	tests := []struct {
		name    string
		emitter Emitter
		task    Task
		want    []string
	}{
		{
			name:    "journal without targets",
			emitter: JournalEmitter,
			task:    Task{Sources: []string{"journal.py"}},
			want:    []string{"journal.jnl", "journal.stdout", "journal.abaqus_v6.env"},
		},
		{
			name:    "journal in build subdirectory",
			emitter: JournalEmitter,
			task:    Task{Targets: []string{"set1/beam.cae"}, Sources: []string{"scripts/journal.py"}},
			want: []string{"set1/beam.cae", "set1/journal.jnl", "set1/journal.stdout",
				"set1/journal.abaqus_v6.env"},
		},
		{
			name:    "solver default job name",
			emitter: SolverEmitter,
			task:    Task{Sources: []string{"root.inp"}},
			want: []string{"root.stdout", "root.abaqus_v6.env", "root.odb", "root.dat", "root.msg",
				"root.com", "root.prt"},
		},
		{
			name:    "solver explicit job name",
			emitter: SolverEmitter,
			task: Task{Targets: []string{"build/job.sta"}, Sources: []string{"root.inp"},
				Env: map[string]string{"job_name": "job"}},
			want: []string{"build/job.sta", "build/job.stdout", "build/job.abaqus_v6.env", "build/job.odb",
				"build/job.dat", "build/job.msg", "build/job.com", "build/job.prt"},
		},
		{
			name:    "python script",
			emitter: PythonScriptEmitter,
			task:    Task{Sources: []string{"post_processing.py"}},
			want:    []string{"post_processing.stdout"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.emitter(tt.task.Clone()).Targets
			for i := range tt.want {
				tt.want[i] = filepath.FromSlash(tt.want[i])
			}
			if !equalStrings(got, tt.want) {
				t.Errorf("targets = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSolverEmitterRecordsJobName(t *testing.T) {
	b := AbaqusSolver("", "")
	task := b.Prepare(Task{Sources: []string{"model.inp"}})
	if task.Env[JobNameKey] != "model" {
		t.Errorf("job_name = %q, want model", task.Env[JobNameKey])
	}
	cmds := b.Commands(task)
	if !strings.Contains(cmds[1], "-job model -input model") {
		t.Errorf("solver command = %q", cmds[1])
	}
}

func TestPrepareDoesNotMutate(t *testing.T) {
	task := Task{Targets: []string{"a/out"}, Sources: []string{"j.py"}, Env: map[string]string{}}
	_ = AbaqusJournal("").Prepare(task)
	if len(task.Targets) != 1 {
		t.Errorf("Prepare() mutated caller targets: %v", task.Targets)
	}
}

func TestExpand(t *testing.T) {
	task := Task{
		Targets: []string{"build/set0/out.txt", "build/set0/other.txt"},
		Sources: []string{"scripts/mesh.py"},
		Env:     map[string]string{"width": "2.0"},
	}
	tests := []struct {
		template string
		want     string
	}{
		{"${SOURCE.filebase}", "mesh"},
		{"${SOURCE.file}", "mesh.py"},
		{"${TARGET.dir}", filepath.FromSlash("build/set0")},
		{"${TARGETS}", "build/set0/out.txt build/set0/other.txt"},
		{"--width ${width}", "--width 2.0"},
		{"${missing}x", "x"},
	}
	for _, tt := range tests {
		if got := Expand(tt.template, task); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
	abs := Expand("${SOURCE.abspath}", task)
	if !filepath.IsAbs(abs) || !strings.HasSuffix(abs, filepath.FromSlash("scripts/mesh.py")) {
		t.Errorf("Expand(SOURCE.abspath) = %q", abs)
	}
}

func TestParameterStudyTasks(t *testing.T) {
	s, err := study.New([]string{"width", "label"}, [][]value.Value{
		value.Row(1.5, "a"),
		value.Row(2.5, "b"),
	}, "")
	if err != nil {
		t.Fatalf("study.New() error = %v", err)
	}
	tasks := ParameterStudyTasks(s, Task{Targets: []string{"mesh.cae"}, Sources: []string{"mesh.py"}})
	if len(tasks) != 2 {
		t.Fatalf("ParameterStudyTasks() = %d tasks, want 2", len(tasks))
	}
	if got := tasks[1].Targets[0]; got != filepath.Join("parameter_set1", "mesh.cae") {
		t.Errorf("target = %s", got)
	}
	if tasks[1].Env["width"] != "2.5" || tasks[1].Env["label"] != "b" || tasks[1].Env["set_name"] != "parameter_set1" {
		t.Errorf("env = %v", tasks[1].Env)
	}
	emitted := JournalEmitter(tasks[0])
	if got := emitted.Targets[1]; got != filepath.Join("parameter_set0", "mesh.jnl") {
		t.Errorf("emitted target = %s", got)
	}

	// Without named targets emitted files still land in the set directory.
	tasks = ParameterStudyTasks(s, Task{Sources: []string{"model.inp"}, Dir: "build"})
	emitted = SolverEmitter(tasks[1])
	if got := emitted.Targets[0]; got != filepath.Join("build", "parameter_set1", "model.stdout") {
		t.Errorf("emitted target = %s", got)
	}
}

type recordingRunner struct {
	commands []string
}

func (r *recordingRunner) Run(_ context.Context, _ Task, command string) error {
	r.commands = append(r.commands, command)
	return nil
}

func TestBuildRunsActionsInOrder(t *testing.T) {
	dir := t.TempDir()
	r := &recordingRunner{}
	b := PythonScript()
	task := Task{Targets: []string{filepath.Join(dir, "set0", "plot.png")}, Sources: []string{"plot.py"},
		Env: map[string]string{"script_options": "--dpi 300"}}
	if err := b.Build(context.Background(), r, task, nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(r.commands) != 1 || !strings.Contains(r.commands[0], "--dpi 300 > plot.stdout 2>&1") {
		t.Errorf("commands = %v", r.commands)
	}
	if _, err := os.Stat(filepath.Join(dir, "set0")); err != nil {
		t.Errorf("build directory not created: %v", err)
	}
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	task := Task{Targets: []string{out}, Env: map[string]string{"greeting": "hello"}}
	r := ExecRunner{}
	if err := r.Run(context.Background(), task, `printf "$greeting" > `+out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "hello" {
		t.Errorf("output = %q, %v", data, err)
	}

	err = r.Run(context.Background(), task, "echo broken >&2; exit 3")
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("Run() error = %v, want stderr tail", err)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"abaqus_journal", "abaqus_solver", "python_script"} {
		if b, ok := Lookup(name); !ok || b.Name != name {
			t.Errorf("Lookup(%q) = %v, %v", name, b.Name, ok)
		}
	}
	if _, ok := Lookup("cubit"); ok {
		t.Error("Lookup(cubit) found a builder")
	}
}
