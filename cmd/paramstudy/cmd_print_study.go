package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/store"
	"github.com/nvandessel/paramstudy/internal/study"
	"github.com/spf13/cobra"
)

func newPrintStudyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print_study PATH",
		Short: "Print a parameter study as a table",
		Long: `Print a parameter study file (YAML, Arrow, or SQLite) or a directory of
per-set YAML files as a table, one row per parameter set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			noHash, _ := cmd.Flags().GetBool("no-hash")

			s, err := store.ReadStudy(args[0])
			if err != nil {
				return fmt.Errorf("failed to read parameter study: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(studyJSON(s))
			}
			return printStudyTable(cmd.OutOrStdout(), s, !noHash)
		},
	}
	cmd.Flags().Bool("no-hash", false, "Omit the set hash column")
	return cmd
}

type setJSON struct {
	SetName    string         `json:"set_name"`
	SetHash    string         `json:"set_hash"`
	Parameters map[string]any `json:"parameters"`
}

func studyJSON(s *study.Study) []setJSON {
	names := s.Names()
	out := make([]setJSON, 0, s.Len())
	for _, ps := range s.Sets() {
		params := make(map[string]any, len(names))
		for j, name := range names {
			params[name] = ps.Values[j].Native()
		}
		out = append(out, setJSON{SetName: ps.Name, SetHash: ps.Hash, Parameters: params})
	}
	return out
}

func printStudyTable(w io.Writer, s *study.Study, withHash bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := append([]string{constants.SetNameKey}, s.Names()...)
	if withHash {
		header = append(header, constants.SetHashKey)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, ps := range s.Sets() {
		row := make([]string, 0, len(header))
		row = append(row, ps.Name)
		for _, v := range ps.Values {
			row = append(row, v.Repr())
		}
		if withHash {
			row = append(row, ps.Hash)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
