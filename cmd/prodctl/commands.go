package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/mmdatafocus/production_backend/plansync"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}
			if err := models.MigrateTable(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return printResult(cmd.OutOrStdout(), opts, map[string]bool{"migrated": true}, "schema up to date")
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default catalog into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}
			seeded, err := models.SeedDefaultData(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			msg := "users already present, nothing seeded"
			if seeded {
				msg = "default catalog loaded"
			}
			return printResult(cmd.OutOrStdout(), opts, map[string]bool{"seeded": seeded}, msg)
		},
	}
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var testOnly bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one order reconciliation against the planning API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}
			if err := config.ConnectRedis(); err != nil {
				config.GetLogger().WithError(err).Warn("redis unavailable; sync guard is local to this process")
			}
			defer config.CloseRedis()
			engine := plansync.DefaultEngine()

			if testOnly {
				resp, err := engine.TestConnection(cmd.Context())
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), opts, resp, resp.Message)
			}
			result, err := engine.Run(cmd.Context(), "cli")
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts, result, result.Message)
		},
	}
	cmd.Flags().BoolVar(&testOnly, "test", false, "only exchange credentials and report the token expiry")
	return cmd
}

func newLogsCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List recent sync runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}
			entries, err := models.ListSyncLogs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return writeJSON(out, entries)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EXECUTED\tOUTCOME\tPROCESSED\tCREATED\tUPDATED\tERRORS\tMESSAGE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					e.ExecutedAt.Format("2006-01-02 15:04:05"), e.Outcome,
					e.Processed, e.Created, e.Updated, e.Errors, e.Message)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", models.DefaultSyncLogLimit, "number of entries")
	return cmd
}

func printResult(w io.Writer, opts *rootOptions, v any, text string) error {
	if opts.Format == "json" {
		return writeJSON(w, v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
