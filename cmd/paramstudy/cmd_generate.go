package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/paramstudy/internal/config"
	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/generator"
	"github.com/nvandessel/paramstudy/internal/logging"
	"github.com/nvandessel/paramstudy/internal/schema"
	"github.com/spf13/cobra"
)

var generatorShort = map[schema.Kind]string{
	schema.CartesianProduct: "Generate every combination of discrete parameter values",
	schema.LatinHypercube:   "Sample parameter distributions with a Latin hypercube",
	schema.SobolSequence:    "Sample parameter distributions with a Sobol sequence",
	schema.CustomStudy:      "Generate a study from explicitly listed parameter sets",
}

func newGeneratorCmd(kind schema.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.String() + " SCHEMA_FILE",
		Short: generatorShort[kind],
		Long: generatorShort[kind] + `.

SCHEMA_FILE is YAML, or HCL when it ends in .hcl. Without an output file
or output file template the study is printed to stdout as YAML.

Examples:
  paramstudy ` + kind.String() + ` schema.yaml
  paramstudy ` + kind.String() + ` schema.yaml -f study.yaml -p study.yaml
  paramstudy ` + kind.String() + ` schema.hcl -o build/set{number} --write-meta`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerator(cmd, kind, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringP("output-file-template", "o", "", "Write one file per set; the base name is the set name template")
	flags.StringP("output-file", "f", "", "Write the whole study to one file")
	flags.StringP("output-file-type", "t", "", "Output file type: yaml, arrow, or sqlite (default from config)")
	flags.StringP("set-name-template", "s", "", "Set name template containing {number} (default from config)")
	flags.StringP("previous-parameter-study", "p", "", "Previous study to merge with; its sets keep their stored values")
	flags.Bool("overwrite", false, "Overwrite existing files even when unchanged")
	flags.Bool("dryrun", false, "Print what would be written without writing")
	flags.Bool("write-meta", false, "Write "+constants.MetaFileName+" listing per-set files")
	flags.Bool("timestamp-on-collision", false, "Write to a timestamped name instead of replacing a non-study file")
	if kind.Statistical() {
		flags.Uint64("seed", 0, "Random seed for the sampler (default from config)")
	}
	if kind == schema.SobolSequence {
		flags.Bool("scramble", false, "Apply a seeded digital shift to the sequence")
	}
	cmd.MarkFlagsMutuallyExclusive("output-file-template", "output-file")

	return cmd
}

// generatorOptions starts from config and applies every flag the user set.
func generatorOptions(cmd *cobra.Command, cfg *config.Config) generator.Options {
	opts := generator.DefaultOptions()
	opts.OutputFileType = cfg.Output.FileType
	opts.SetNameTemplate = cfg.Output.SetNameTemplate
	opts.Overwrite = cfg.Output.Overwrite
	opts.WriteMeta = cfg.Output.WriteMeta
	opts.TimestampOnCollision = cfg.Output.TimestampOnCollision
	opts.Seed = cfg.Sampling.Seed
	opts.Scramble = cfg.Sampling.Scramble

	flags := cmd.Flags()
	opts.OutputFileTemplate, _ = flags.GetString("output-file-template")
	opts.OutputFile, _ = flags.GetString("output-file")
	opts.PreviousParameterStudy, _ = flags.GetString("previous-parameter-study")
	opts.DryRun, _ = flags.GetBool("dryrun")
	if flags.Changed("output-file-type") {
		opts.OutputFileType, _ = flags.GetString("output-file-type")
	}
	if flags.Changed("set-name-template") {
		opts.SetNameTemplate, _ = flags.GetString("set-name-template")
	}
	if flags.Changed("overwrite") {
		opts.Overwrite, _ = flags.GetBool("overwrite")
	}
	if flags.Changed("write-meta") {
		opts.WriteMeta, _ = flags.GetBool("write-meta")
	}
	if flags.Changed("timestamp-on-collision") {
		opts.TimestampOnCollision, _ = flags.GetBool("timestamp-on-collision")
	}
	if flags.Changed("seed") {
		opts.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("scramble") {
		opts.Scramble, _ = flags.GetBool("scramble")
	}
	return opts
}

func runGenerator(cmd *cobra.Command, kind schema.Kind, schemaFile string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := generatorOptions(cmd, cfg)
	if err := config.ValidateSetNameTemplate(opts.SetNameTemplate); err != nil {
		return err
	}

	s, err := schema.LoadFile(schemaFile, kind)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	opts.Logger = logger
	opts.Stdout = cmd.OutOrStdout()

	output := opts.OutputFile
	if output == "" {
		output = opts.OutputFileTemplate
	}
	if output != "" {
		if dl := logging.NewDecisionLogger(logging.DecisionDir(output), cfg.Logging.Level); dl != nil {
			defer dl.Close()
			opts.Decisions = dl
			logger.Debug("decision logging enabled", "path", dl.Path())
		}
	}

	g, err := generator.New(kind, s, opts)
	if err != nil {
		return err
	}
	if err := g.Write(); err != nil {
		return err
	}

	// Stdout already carries the study itself.
	if output == "" || opts.DryRun {
		return nil
	}

	st := g.ParameterStudy()
	logger.Debug("parameter study written", "kind", kind.String(), "sets", st.Len(), "output", output)
	if jsonOut {
		summary := map[string]any{
			"kind":   kind.String(),
			"sets":   st.Len(),
			"output": output,
		}
		if sp, ok := g.(interface{ SetPaths() []string }); ok {
			if paths := sp.SetPaths(); paths != nil {
				summary["set_paths"] = paths
			}
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(summary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d parameter sets to %s\n", st.Len(), output)
	return nil
}
