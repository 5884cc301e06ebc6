package builders

import (
	"path/filepath"
	"strings"
)

// AbaqusEnvironmentFile is the suffix of captured solver environment reports.
const AbaqusEnvironmentFile = "abaqus_v6.env"

// JobNameKey is the Env key naming a solver job.
const JobNameKey = "job_name"

func sourceBase(t Task) (file, stem string) {
	if len(t.Sources) == 0 {
		return "", ""
	}
	file = filepath.Base(t.Sources[0])
	return file, strings.TrimSuffix(file, filepath.Ext(file))
}

// JournalEmitter appends <source>.jnl, <source>.stdout, and the environment
// report for a solver journal script to the build directory. The journal
// must be the first source.
func JournalEmitter(t Task) Task {
	_, stem := sourceBase(t)
	if stem == "" {
		return t
	}
	dir := buildDir(t)
	for _, suffix := range []string{".jnl", ".stdout", "." + AbaqusEnvironmentFile} {
		t.Targets = append(t.Targets, filepath.Join(dir, stem+suffix))
	}
	return t
}

// SolverEmitter appends the common solver outputs of job_name, which
// defaults to the first source's stem and is recorded back into Env.
func SolverEmitter(t Task) Task {
	if t.Env == nil {
		t.Env = map[string]string{}
	}
	job := t.Env[JobNameKey]
	if job == "" {
		_, job = sourceBase(t)
		if job == "" {
			return t
		}
		t.Env[JobNameKey] = job
	}
	dir := buildDir(t)
	for _, suffix := range []string{"stdout", AbaqusEnvironmentFile, "odb", "dat", "msg", "com", "prt"} {
		t.Targets = append(t.Targets, filepath.Join(dir, job+"."+suffix))
	}
	return t
}

// PythonScriptEmitter appends <source>.stdout.
func PythonScriptEmitter(t Task) Task {
	_, stem := sourceBase(t)
	if stem == "" {
		return t
	}
	t.Targets = append(t.Targets, filepath.Join(buildDir(t), stem+".stdout"))
	return t
}

// AbaqusJournal runs a CAE journal script without a GUI. Actions reference
// abaqus_options and journal_options from Env.
func AbaqusJournal(program string) Builder {
	if program == "" {
		program = "abaqus"
	}
	return Builder{
		Name: "abaqus_journal",
		Actions: []string{
			"cd ${TARGET.dir.abspath} && " + program + " -information environment > ${SOURCE.filebase}." + AbaqusEnvironmentFile,
			"cd ${TARGET.dir.abspath} && " + program + " cae -noGui ${SOURCE.abspath} ${abaqus_options} -- ${journal_options} > ${SOURCE.filebase}.stdout 2>&1",
		},
		Emitter: JournalEmitter,
	}
}

// AbaqusSolver runs a solver input file. postSimulation, when set, runs as
// a final action in the build directory.
func AbaqusSolver(program, postSimulation string) Builder {
	if program == "" {
		program = "abaqus"
	}
	actions := []string{
		"cd ${TARGET.dir.abspath} && " + program + " -information environment > ${job_name}." + AbaqusEnvironmentFile,
		"cd ${TARGET.dir.abspath} && " + program + " -job ${job_name} -input ${SOURCE.filebase} ${abaqus_options} -interactive -ask_delete no > ${job_name}.stdout 2>&1",
	}
	if postSimulation != "" {
		actions = append(actions, "cd ${TARGET.dir.abspath} && "+postSimulation)
	}
	return Builder{Name: "abaqus_solver", Actions: actions, Emitter: SolverEmitter}
}

// PythonScript runs a python script with python_options and script_options.
func PythonScript() Builder {
	return Builder{
		Name: "python_script",
		Actions: []string{
			"cd ${TARGET.dir.abspath} && python ${python_options} ${SOURCE.abspath} ${script_options} > ${SOURCE.filebase}.stdout 2>&1",
		},
		Emitter: PythonScriptEmitter,
	}
}

// Lookup returns a builder by name with default settings.
func Lookup(name string) (Builder, bool) {
	switch name {
	case "abaqus_journal":
		return AbaqusJournal(""), true
	case "abaqus_solver":
		return AbaqusSolver("", ""), true
	case "python_script":
		return PythonScript(), true
	default:
		return Builder{}, false
	}
}
