package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nvandessel/paramstudy/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage paramstudy configuration",
		Long: `View and modify paramstudy configuration settings.

Configuration is stored in ~/.paramstudy/config.yaml. Command line flags
override every setting.

Examples:
  paramstudy config list                              # Show all settings
  paramstudy config get output.file_type              # Get a specific setting
  paramstudy config set output.file_type sqlite       # Set a setting
  paramstudy config set sampling.seed 42`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintln(out, "Configuration (~/.paramstudy/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Output Settings:")
			fmt.Fprintf(out, "  output.file_type:               %s\n", cfg.Output.FileType)
			fmt.Fprintf(out, "  output.set_name_template:       %s\n", cfg.Output.SetNameTemplate)
			fmt.Fprintf(out, "  output.overwrite:               %v\n", cfg.Output.Overwrite)
			fmt.Fprintf(out, "  output.write_meta:              %v\n", cfg.Output.WriteMeta)
			fmt.Fprintf(out, "  output.timestamp_on_collision:  %v\n", cfg.Output.TimestampOnCollision)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sampling Settings:")
			fmt.Fprintf(out, "  sampling.seed:                  %d\n", cfg.Sampling.Seed)
			fmt.Fprintf(out, "  sampling.scramble:              %v\n", cfg.Sampling.Scramble)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Builder Settings:")
			fmt.Fprintf(out, "  builders.abaqus_program:        %s\n", cfg.Builders.AbaqusProgram)
			fmt.Fprintf(out, "  builders.shell:                 %s\n", cfg.Builders.Shell)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging Settings:")
			fmt.Fprintf(out, "  logging.level:                  %s\n", valueOrDefault(cfg.Logging.Level, "(default)"))

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			path, err := config.Path()
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (any, bool) {
	switch key {
	case "output.file_type":
		return cfg.Output.FileType, true
	case "output.set_name_template":
		return cfg.Output.SetNameTemplate, true
	case "output.overwrite":
		return cfg.Output.Overwrite, true
	case "output.write_meta":
		return cfg.Output.WriteMeta, true
	case "output.timestamp_on_collision":
		return cfg.Output.TimestampOnCollision, true
	case "sampling.seed":
		return cfg.Sampling.Seed, true
	case "sampling.scramble":
		return cfg.Sampling.Scramble, true
	case "builders.abaqus_program":
		return cfg.Builders.AbaqusProgram, true
	case "builders.shell":
		return cfg.Builders.Shell, true
	case "logging.level":
		return cfg.Logging.Level, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "output.file_type":
		cfg.Output.FileType = value
	case "output.set_name_template":
		cfg.Output.SetNameTemplate = value
	case "output.overwrite":
		cfg.Output.Overwrite = value == "true" || value == "1"
	case "output.write_meta":
		cfg.Output.WriteMeta = value == "true" || value == "1"
	case "output.timestamp_on_collision":
		cfg.Output.TimestampOnCollision = value == "true" || value == "1"
	case "sampling.seed":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %s (must be a non-negative integer)", value)
		}
		cfg.Sampling.Seed = n
	case "sampling.scramble":
		cfg.Sampling.Scramble = value == "true" || value == "1"
	case "builders.abaqus_program":
		cfg.Builders.AbaqusProgram = value
	case "builders.shell":
		cfg.Builders.Shell = value
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
