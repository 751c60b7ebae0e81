package cli

import (
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"ledger/internal/errors"
	"ledger/internal/export"
)

func newExportCmd(r *runner) *cobra.Command {
	var output string

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a table as CSV",
	}
	exportCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")

	table := func(use, short string, write func(cmd *cobra.Command, w io.Writer) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				if output == "" {
					return write(cmd, r.out)
				}

				f, err := os.Create(output)
				if err != nil {
					return errors.Internal("failed to create export file", err)
				}
				if err := write(cmd, f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return errors.Internal("failed to close export file", err)
				}
				pterm.Success.WithWriter(cmd.ErrOrStderr()).Printfln("Exported %s to %s", use, output)
				return nil
			},
		}
	}

	exportCmd.AddCommand(table("accounts", "Export accounts", func(cmd *cobra.Command, w io.Writer) error {
		accounts, err := r.ledger().ListAccounts(cmd.Context())
		if err != nil {
			return err
		}
		return export.WriteAccounts(w, accounts)
	}))
	exportCmd.AddCommand(table("transactions", "Export the transaction log", func(cmd *cobra.Command, w io.Writer) error {
		records, err := r.ledger().AllTransactions(cmd.Context())
		if err != nil {
			return err
		}
		return export.WriteTransactions(w, records)
	}))
	exportCmd.AddCommand(table("error-logs", "Export the error journal", func(cmd *cobra.Command, w io.Writer) error {
		entries, err := r.ledger().ErrorLogs(cmd.Context())
		if err != nil {
			return err
		}
		return export.WriteErrorLogs(w, entries)
	}))

	return exportCmd
}

func newImportCmd(r *runner) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load a CSV export into an empty ledger",
	}

	importCmd.AddCommand(&cobra.Command{
		Use:   "accounts <file>",
		Short: "Import accounts keeping their ids",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.ErrInvalidInput.WithDetails(err.Error())
			}
			defer f.Close()

			accounts, err := export.ReadAccounts(f)
			if err != nil {
				return err
			}
			if err := r.ledger().RestoreAccounts(cmd.Context(), accounts); err != nil {
				return err
			}
			pterm.Success.WithWriter(r.out).Printfln("Imported %d accounts", len(accounts))
			return nil
		},
	})

	return importCmd
}
