package main

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("matextract failed")
		// Exit code 2 when only some papers of a batch failed.
		var be *app.BatchError
		if errors.As(err, &be) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	verbose    bool
	file       app.FileConfig
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "matextract",
		Short:         "Segment materials-science papers and validate extracted records against their evidence",
		Version:       app.CurrentBuild().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.LoadEnvFiles(".env"); err != nil {
				log.Warn().Err(err).Msg("dotenv load failed")
			}
			if g.configPath != "" {
				fc, err := app.LoadConfigFile(g.configPath)
				if err != nil {
					return err
				}
				g.file = fc
				if fc.Verbose {
					g.verbose = true
				}
			}
			if g.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(
		newRunCmd(g),
		newSectionsCmd(),
		newTableCmd(),
		newValidateCmd(),
		newHistoryCmd(g),
		newVersionCmd(),
	)
	return root
}
