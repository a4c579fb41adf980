package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"syntego/internal/budget"
	"syntego/internal/config"
	"syntego/internal/core"
	apphttp "syntego/internal/http"
	"syntego/internal/log"
	"syntego/internal/services"
)

const shutdownTimeout = 30 * time.Second

// rootCmd carries the state shared by the subcommands. withApp builds the
// app before a command runs and closes it afterwards.
type rootCmd struct {
	app *App
}

// NewRootCmd returns the syntego command tree.
func NewRootCmd() *cobra.Command {
	rc := &rootCmd{}
	cmd := &cobra.Command{
		Use:           "syntego",
		Short:         "Personal finance tracker with budget alerts and advice",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		rc.newServeCmd(),
		rc.newListCmd(),
		rc.newAddCmd(),
		rc.newDeleteCmd(),
		rc.newOverviewCmd(),
		rc.newAlertsCmd(),
		rc.newAskCmd(),
	)
	return cmd
}

func (rc *rootCmd) setup(ctx context.Context) error {
	cfg, err := LoadAndValidateConfig((*config.Config).Validate)
	if err != nil {
		return err
	}
	logger, err := SetupLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	rc.app = app
	return nil
}

func (rc *rootCmd) teardown() error {
	if rc.app == nil {
		return nil
	}
	err := rc.app.Close()
	rc.app = nil
	return err
}

func (rc *rootCmd) withApp(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := rc.setup(cmd.Context()); err != nil {
			return err
		}
		defer func() {
			if cerr := rc.teardown(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

func (rc *rootCmd) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard and JSON API",
		Args:  cobra.NoArgs,
		RunE: rc.withApp(func(cmd *cobra.Command, _ []string) error {
			app := rc.app
			ctx, cancel := SignalContext(cmd.Context(), app.Logger)
			defer cancel()

			srv, err := apphttp.NewServer(":"+app.Config.Port, app.Ledger, app.Insights, apphttp.Options{
				RequestsPerMinute: app.Config.RateLimitPerMinute,
				TrustProxy:        app.Config.TrustProxy,
			}, app.Logger)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			app.Caches.StartCleanup(ctx, time.Minute)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			app.Logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			app.Logger.Info("Server stopped gracefully")
			return <-errCh
		}),
	}
}

func (rc *rootCmd) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the ledger",
		Args:  cobra.NoArgs,
		RunE: rc.withApp(func(cmd *cobra.Command, _ []string) error {
			l, err := rc.app.Ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if l.IsEmpty() {
				fmt.Fprintln(out, "No transactions recorded yet.")
				return nil
			}
			return writeLedger(out, l)
		}),
	}
}

func writeLedger(out io.Writer, l core.Ledger) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for i, t := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i, t.Date, t.Type, t.Category, core.FormatDollars(t.Amount), t.Description)
	}
	return tw.Flush()
}

type addCmd struct {
	req services.AddRequest
}

func (rc *rootCmd) newAddCmd() *cobra.Command {
	ac := &addCmd{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: rc.withApp(func(cmd *cobra.Command, _ []string) error {
			tx, _, err := rc.app.Ledger.Add(cmd.Context(), ac.req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), services.AddedMessage(tx))
			return nil
		}),
	}
	cmd.Flags().StringVar(&ac.req.Type, "type", "Expense", "Income or Expense")
	cmd.Flags().StringVar(&ac.req.Category, "category", "", "Category (Food, Transport, Bills, Salary, Other or any name)")
	cmd.Flags().StringVar(&ac.req.Amount, "amount", "", "Amount in dollars, e.g. 12.50")
	cmd.Flags().StringVar(&ac.req.Description, "description", "", "What the transaction was for")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func (rc *rootCmd) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete INDEX...",
		Short: "Delete transactions by the index shown by list",
		Args:  cobra.MinimumNArgs(1),
		RunE: rc.withApp(func(cmd *cobra.Command, args []string) error {
			indices := make([]int, 0, len(args))
			for _, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("invalid index %q: %w", a, err)
				}
				indices = append(indices, n)
			}
			removed, err := rc.app.Ledger.Delete(cmd.Context(), indices)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", services.DeletedMessage, removed)
			return nil
		}),
	}
}

func (rc *rootCmd) newOverviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show totals and the per category breakdown",
		Args:  cobra.NoArgs,
		RunE: rc.withApp(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			o, err := rc.app.Insights.Overview(ctx)
			if err != nil {
				return err
			}
			rows, err := rc.app.Insights.Breakdown(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total Income:   %s\nTotal Expenses: %s\nNet:            %s\nTransactions:   %d\n\n",
				core.FormatDollars(o.TotalIncome), core.FormatDollars(o.TotalExpense), core.FormatDollars(o.Net), o.Count)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tEXPENSES\tINCOME")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Category, core.FormatDollars(r.Expense), core.FormatDollars(r.Income))
			}
			return tw.Flush()
		}),
	}
}

func (rc *rootCmd) newAlertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Evaluate the budget rules and send their notifications",
		Args:  cobra.NoArgs,
		RunE: rc.withApp(func(cmd *cobra.Command, _ []string) error {
			alerts, sent, err := rc.app.Insights.CheckBudget(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.Join(budget.RenderAll(budget.TextRenderer{}, alerts), "\n\n"))
			fmt.Fprintf(out, "\nSent %d budget notification(s)\n", sent)
			return nil
		}),
	}
}

func (rc *rootCmd) newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask for advice about the ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE: rc.withApp(func(cmd *cobra.Command, args []string) error {
			answer, err := rc.app.Insights.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
			return nil
		}),
	}
}
