package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/agents"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/crosscheck"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/evaluate"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/extract"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/sections"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/tables"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/verify"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSectionsCmd() *cobra.Command {
	var spans bool
	cmd := &cobra.Command{
		Use:   "sections <paper>",
		Short: "Print the section map of a paper as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := extract.Parse(args[0], data)
			if err != nil {
				return err
			}
			if spans {
				return writeJSON(cmd.OutOrStdout(), sections.Spans(doc.FullText()))
			}
			return writeJSON(cmd.OutOrStdout(), sections.SegmentDocument(doc))
		},
	}
	cmd.Flags().BoolVar(&spans, "spans", false, "Print heading spans instead of section text")
	return cmd
}

func newTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "table <tables.json>",
		Short: "Normalize the mechanical property table of a tables dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := extract.LoadTables(args[0])
			if err != nil {
				return err
			}
			t, ok := tables.Find(raw, tables.MechanicalSchema)
			if !ok {
				return fmt.Errorf("%s: %w: no table has the %s header", args[0], tables.ErrTableShape, tables.MechanicalSchema.Name)
			}
			res, err := tables.Normalize(t, tables.MechanicalSchema)
			if err != nil {
				return err
			}
			if res.Records == nil {
				res.Records = []tables.Record{}
			}
			return writeJSON(cmd.OutOrStdout(), res.Records)
		},
	}
}

func newValidateCmd() *cobra.Command {
	var (
		kind        string
		routesPath  string
		units       []string
		strictUnits bool
	)
	cmd := &cobra.Command{
		Use:   "validate <records.json>",
		Short: "Verify candidate records against their evidence and print the evaluated records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := record.ParseKind(kind)
			if !ok {
				return fmt.Errorf("unknown record kind %q", kind)
			}
			recs, err := agents.LoadFile(args[0], k)
			if err != nil {
				return err
			}
			if routesPath != "" && k != record.Microstructure {
				return fmt.Errorf("--routes only applies to %s records, not %s", record.Microstructure, k)
			}
			var routes []record.Record
			if routesPath != "" {
				if routes, err = agents.LoadFile(routesPath, record.Processing); err != nil {
					return err
				}
			}
			v := verify.NewWith(units, !strictUnits)
			var evs []evaluate.Evaluated
			// Microstructure records are always cross-checked; some rules
			// need no routes at all.
			if k == record.Microstructure {
				evs, err = evaluate.Evaluate(v, crosscheck.New(), recs, routes)
			} else {
				evs, err = evaluate.EvaluateAll(v, recs)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), evs)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&kind, "kind", "k", string(record.Microstructure), "Record kind of the input")
	f.StringVar(&routesPath, "routes", "", "Processing routes JSON to cross-check against")
	f.StringSliceVar(&units, "units", nil, "Unit tokens a number must carry to verify (default μm,MPa,%)")
	f.BoolVar(&strictUnits, "strict-units", false, "Do not accept '± x' between a number and its unit")
	return cmd
}
