package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/app"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/store"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/verify"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var (
		dbPath string
		limit  int
		kind   string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs and their confidence totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = g.file.DB
			}
			if dbPath == "" {
				dbPath = os.Getenv("MATEXTRACT_DB")
			}
			if dbPath == "" {
				return errors.New("no database: pass --db, set db in the config file or MATEXTRACT_DB")
			}
			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tPAPER\tSTARTED\tSECTIONS\tTABLE RECORDS\tEVALUATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", r.ID, r.Paper, r.StartedAt.Local().Format(time.DateTime), r.Sections, r.Records, r.Evaluations)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			counts, err := db.ConfidenceCounts(cmd.Context(), kind)
			if err != nil {
				return fmt.Errorf("confidence counts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nfinal confidence: high %d, medium %d, low %d\n",
				counts[verify.High], counts[verify.Medium], counts[verify.Low])
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dbPath, "db", "", "SQLite run history database")
	f.IntVarP(&limit, "limit", "n", 20, "Runs to list (0 lists all)")
	f.StringVar(&kind, "kind", "", "Restrict confidence totals to one record kind")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			b := app.CurrentBuild()
			fmt.Fprintf(cmd.OutOrStdout(), "matextract %s (commit %s, built %s)\n", b.Version, b.Commit, b.Date)
		},
	}
}
