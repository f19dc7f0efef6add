package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"txledger/internal/application"
	"txledger/internal/bootstrap"
	"txledger/internal/config"
	"txledger/internal/domain"
	"txledger/internal/infrastructure/csvsource"
	"txledger/internal/infrastructure/logging"
	"txledger/internal/interfaces/render"

	"github.com/spf13/cobra"
)

var errResultFailed = errors.New("command failed")

type loadFunc func() (config.Config, error)

// cli holds the services shared by every subcommand, built lazily so that
// --help works without any configuration.
type cli struct {
	load     loadFunc
	services *bootstrap.Services
}

func newRootCommand(load loadFunc) *cobra.Command {
	c := &cli{load: load}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect TRON transactions and manage the transaction ledger",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.services == nil {
				return nil
			}
			err := c.services.Close()
			c.services = nil
			return err
		},
	}
	root.AddCommand(
		c.analyzeCommand("get", "Show the full analysis of a transaction", application.CommandGet),
		c.analyzeCommand("status", "Show a short status summary of a transaction", application.CommandStatus),
		c.logCommand(),
		c.statsCommand(),
		c.importCommand(),
		c.checkCommand(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) (*bootstrap.Services, error) {
	if c.services != nil {
		return c.services, nil
	}
	cfg, err := c.load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logCfg := logging.ConfigFrom(cfg)
	logCfg.Output = cmd.ErrOrStderr()
	if _, err := logging.Init(logCfg); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	svc, err := bootstrap.Build(cmd.Context(), cfg, nil)
	if err != nil {
		return nil, err
	}
	c.services = svc
	return svc, nil
}

func parseHashArg(raw string) (domain.TransactionHash, error) {
	hash, err := domain.ParseHash(raw)
	if err != nil {
		return "", fmt.Errorf("invalid transaction hash %q: must be 64 hexadecimal characters", raw)
	}
	return hash, nil
}

func printResult(w io.Writer, svc *bootstrap.Services, result application.Result) error {
	if text := svc.Renderer.Text(result); text != "" {
		fmt.Fprintln(w, text)
	}
	if result.Failed() {
		return errResultFailed
	}
	return nil
}

func (c *cli) analyzeCommand(use, short string, command application.Command) *cobra.Command {
	var table bool
	cmd := &cobra.Command{
		Use:   use + " <hash>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := parseHashArg(args[0])
			if err != nil {
				return err
			}
			svc, err := c.setup(cmd)
			if err != nil {
				return err
			}
			result := svc.Pipeline.Analyze(cmd.Context(), command, hash)
			if table && result.Record != nil {
				render.DisplayRecord(cmd.OutOrStdout(), *result.Record)
				return nil
			}
			return printResult(cmd.OutOrStdout(), svc, result)
		},
	}
	cmd.Flags().BoolVar(&table, "table", false, "print the record as a ledger-column table")
	return cmd
}

func (c *cli) logCommand() *cobra.Command {
	var caller string
	cmd := &cobra.Command{
		Use:   "log <hash>",
		Short: "Append a transaction to the ledger unless it is already there",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := parseHashArg(args[0])
			if err != nil {
				return err
			}
			svc, err := c.setup(cmd)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), svc, svc.Pipeline.Log(cmd.Context(), hash, caller))
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "CLI", "caller id written to the Logged By column")
	return cmd
}

func (c *cli) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.setup(cmd)
			if err != nil {
				return err
			}
			stats, ok := svc.Store.Stats(cmd.Context())
			if !ok {
				return fmt.Errorf("ledger stats unavailable: %v", svc.Store.LastError())
			}
			render.DisplayStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func (c *cli) importCommand() *cobra.Command {
	var (
		delay  time.Duration
		caller string
	)
	cmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Log every hash in the first column of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashes, invalid, err := csvsource.NewParser().ParseFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, row := range invalid {
				fmt.Fprintf(out, "skipping line %d: invalid hash %q\n", row.Line, row.Value)
			}
			if len(hashes) == 0 {
				return errors.New("no valid hashes found")
			}

			svc, err := c.setup(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("delay") {
				delay = svc.Config.ImportDelay
			}
			if !cmd.Flags().Changed("caller") {
				caller = svc.Config.ImportCallerID
			}
			importer, err := application.NewImporter(svc.Pipeline, application.ImportConfig{
				Delay:    delay,
				CallerID: caller,
				Retry:    application.DefaultRetryPolicy(),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "importing %d transactions into %s\n", len(hashes), svc.Store.Title())
			summary, err := importer.Run(cmd.Context(), hashes, func(index, total int, hash domain.TransactionHash, outcome application.ImportOutcome, detail string) {
				line := fmt.Sprintf("[%d/%d] %s %s", index, total, hash.Short(), outcome)
				if detail != "" {
					line += ": " + detail
				}
				fmt.Fprintln(out, line)
			})
			if err != nil {
				return err
			}
			render.DisplayImportSummary(out, summary)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d transactions failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "pause between transactions (default from IMPORT_DELAY)")
	cmd.Flags().StringVar(&caller, "caller", "BULK_IMPORT", "caller id for imported rows (default from IMPORT_CALLER_ID)")
	return cmd
}

func (c *cli) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to the indexing service, the price service and the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.setup(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			failed := 0
			report := func(name string, err error, ok string) {
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %-10s %v\n", name, err)
					return
				}
				fmt.Fprintf(out, "OK   %-10s %s\n", name, ok)
			}

			report("tronscan", svc.Fetcher.Ping(ctx), svc.Config.TronscanURL)

			price, err := svc.Prices.UnitPriceUSD(ctx)
			report("price", err, fmt.Sprintf("%s = %s USD", svc.Prices.CoinID(), price.String()))

			var ledgerErr error
			if !svc.Store.IsConnected() {
				ledgerErr = svc.Store.LastError()
				if ledgerErr == nil {
					ledgerErr = application.ErrStoreNotConnected
				}
			}
			report("ledger", ledgerErr, fmt.Sprintf("%s / %s (%s)", svc.Store.Title(), svc.Config.Worksheet, svc.Config.LedgerBackend))

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}
