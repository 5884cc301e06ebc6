package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nvandessel/paramstudy/internal/builders"
	"github.com/nvandessel/paramstudy/internal/config"
	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/store"
	"github.com/spf13/cobra"
)

func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets BUILDER STUDY",
		Short: "Print the targets a builder produces for each parameter set",
		Long: `Fan a build task out over a parameter study and print the targets each
set produces, including those the builder's emitter predicts.

Every set builds in a subdirectory named after the set. Parameter values
and set_name are available to actions as ${name}.

Builders: abaqus_journal, abaqus_solver, python_script

Examples:
  paramstudy targets abaqus_journal study.yaml --source mesh.py --target mesh.cae
  paramstudy targets abaqus_solver study.yaml --source model.inp --env job_name=beam
  paramstudy targets python_script study.yaml --source post.py --target plot.png --run`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			sources, _ := cmd.Flags().GetStringSlice("source")
			targets, _ := cmd.Flags().GetStringSlice("target")
			env, _ := cmd.Flags().GetStringToString("env")
			postSimulation, _ := cmd.Flags().GetString("post-simulation")
			run, _ := cmd.Flags().GetBool("run")
			buildRoot, _ := cmd.Flags().GetString("build-dir")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			b, err := lookupBuilder(args[0], cfg, postSimulation)
			if err != nil {
				return err
			}
			s, err := store.ReadStudy(args[1])
			if err != nil {
				return fmt.Errorf("failed to read parameter study: %w", err)
			}
			if len(sources) == 0 {
				return fmt.Errorf("%s needs at least one --source", b.Name)
			}

			base := builders.Task{Targets: targets, Sources: sources, Env: env, Dir: buildRoot}
			tasks := builders.ParameterStudyTasks(s, base)

			if run {
				logger := newLogger(cmd, cfg)
				ctx, cancel := signalContext(cmd.Context())
				defer cancel()
				runner := builders.ExecRunner{
					Shell:  cfg.Builders.Shell,
					Stdout: cmd.OutOrStdout(),
					Stderr: cmd.ErrOrStderr(),
				}
				for _, task := range tasks {
					name := task.Env[constants.SetNameKey]
					logger.Info("building parameter set", "builder", b.Name, "set", name)
					if err := b.Build(ctx, runner, task, logger); err != nil {
						return fmt.Errorf("set %s: %w", name, err)
					}
				}
				return nil
			}

			type taskJSON struct {
				SetName  string   `json:"set_name"`
				Targets  []string `json:"targets"`
				Commands []string `json:"commands"`
			}
			out := make([]taskJSON, 0, len(tasks))
			for _, task := range tasks {
				prepared := b.Prepare(task)
				out = append(out, taskJSON{
					SetName:  task.Env[constants.SetNameKey],
					Targets:  prepared.Targets,
					Commands: b.Commands(prepared),
				})
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			for _, t := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", t.SetName)
				for _, target := range t.Targets {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", target)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSlice("source", nil, "Source file; the first source drives the emitter (repeatable)")
	cmd.Flags().StringSlice("target", nil, "Target file relative to each set's build directory (repeatable)")
	cmd.Flags().StringToString("env", nil, "Extra action variables as key=value (repeatable)")
	cmd.Flags().String("post-simulation", "", "Command run after the solver (abaqus_solver only)")
	cmd.Flags().String("build-dir", "", "Directory the per-set build directories are created in")
	cmd.Flags().Bool("run", false, "Run the actions instead of printing targets")

	return cmd
}

// lookupBuilder resolves a builder name with the configured programs.
func lookupBuilder(name string, cfg *config.Config, postSimulation string) (builders.Builder, error) {
	switch name {
	case "abaqus_journal":
		return builders.AbaqusJournal(cfg.Builders.AbaqusProgram), nil
	case "abaqus_solver":
		return builders.AbaqusSolver(cfg.Builders.AbaqusProgram, postSimulation), nil
	}
	b, ok := builders.Lookup(name)
	if !ok {
		return builders.Builder{}, fmt.Errorf("unknown builder %q (valid: %s)", name,
			strings.Join([]string{"abaqus_journal", "abaqus_solver", "python_script"}, ", "))
	}
	return b, nil
}
