// Package cli implements ledgerctl. Failures are printed with pterm and
// turned into the process exit code of their error kind.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger/internal/app"
	"ledger/internal/config"
	"ledger/internal/errors"
	"ledger/internal/service"
)

// AppFactory opens the ledger for one command run.
type AppFactory func(ctx context.Context, configPath string) (*app.App, func(), error)

// DefaultAppFactory loads configuration with viper and logs to stderr.
func DefaultAppFactory(ctx context.Context, configPath string) (*app.App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, errors.Internal("failed to load configuration", err)
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	return app.NewApp(ctx, cfg, logger)
}

type runner struct {
	cfgFile string
	factory AppFactory
	out     io.Writer

	app     *app.App
	cleanup func()
}

func (r *runner) ledger() *service.LedgerService {
	return r.app.Service
}

func newRootCmd(r *runner) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "ledgerctl operates a ledger of accounts and balance movements",
		Long:          `ledgerctl operates a ledger of accounts and balance movements.

The default storage driver is memory, which does not persist between runs:
every invocation starts from an empty ledger. To work on a lasting ledger set
storage.driver to postgres in the config file, or export
LEDGER_STORAGE_DRIVER=postgres together with the LEDGER_DATABASE_* settings.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := r.factory(cmd.Context(), r.cfgFile)
			if err != nil {
				return err
			}
			r.app, r.cleanup = application, cleanup
			return nil
		},
	}
	rootCmd.SetOut(r.out)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.ErrInvalidInput.WithDetails(err.Error())
	})

	rootCmd.PersistentFlags().StringVarP(&r.cfgFile, "config", "c", "", "set the config file path")

	rootCmd.AddCommand(newAccountCmd(r))
	rootCmd.AddCommand(newDepositCmd(r))
	rootCmd.AddCommand(newWithdrawCmd(r))
	rootCmd.AddCommand(newTransferCmd(r))
	rootCmd.AddCommand(newHistoryCmd(r))
	rootCmd.AddCommand(newErrorsCmd(r))
	rootCmd.AddCommand(newExportCmd(r))
	rootCmd.AddCommand(newImportCmd(r))

	return rootCmd
}

func (r *runner) close() {
	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
}

// Execute runs ledgerctl with args and returns the exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer, factory AppFactory) int {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	r := &runner{factory: factory, out: out}
	defer r.close()

	rootCmd := newRootCmd(r)
	rootCmd.SetArgs(args)
	rootCmd.SetErr(errOut)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		appErr := errors.As(err)
		pterm.Error.WithWriter(errOut).Println(appErr.Error())
		return appErr.ExitCode()
	}
	return 0
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return errors.ErrInvalidInput.WithDetails(fmt.Sprintf("%s expects %d argument(s), got %d", cmd.CommandPath(), n, len(args)))
		}
		return nil
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ErrInvalidAccountID.WithDetails(s)
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(s)
	}
	return amount, nil
}
