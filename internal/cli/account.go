package cli

import (
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger/internal/domain"
)

type createFlags struct {
	Name    string
	Balance string
}

func newAccountCmd(r *runner) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Create, show and list accounts",
	}

	accountCmd.AddCommand(newAccountCreateCmd(r))
	accountCmd.AddCommand(newAccountGetCmd(r))
	accountCmd.AddCommand(newAccountListCmd(r))
	return accountCmd
}

func newAccountCreateCmd(r *runner) *cobra.Command {
	flags := &createFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open an account with an optional initial balance",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance := decimal.Zero
			if flags.Balance != "" {
				var err error
				if balance, err = parseAmount(flags.Balance); err != nil {
					return err
				}
			}

			acc, err := r.ledger().CreateAccount(cmd.Context(), flags.Name, balance)
			if err != nil {
				return err
			}
			pterm.Success.WithWriter(r.out).Printfln("Account %d created for %s with balance %s",
				acc.ID, acc.Name, acc.Balance.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.Name, "name", "n", "", "account holder name")
	cmd.Flags().StringVarP(&flags.Balance, "balance", "b", "", "initial balance")
	return cmd
}

func newAccountGetCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "get <account-id>",
		Short: "Show one account",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			acc, err := r.ledger().GetAccount(cmd.Context(), id)
			if err != nil {
				return err
			}
			return renderAccounts(r, []*domain.Account{acc})
		},
	}
}

func newAccountListCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts with their balances",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := r.ledger().ListAccounts(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderAccounts(r, accounts); err != nil {
				return err
			}
			pterm.Info.WithWriter(r.out).Printfln("Total: %d accounts", len(accounts))
			return nil
		},
	}
}

func renderAccounts(r *runner, accounts []*domain.Account) error {
	tableData := pterm.TableData{{"ID", "Name", "Balance", "Created"}}
	for _, acc := range accounts {
		tableData = append(tableData, []string{
			pterm.Sprint(acc.ID),
			acc.Name,
			acc.Balance.StringFixed(2),
			acc.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(r.out).WithData(tableData).Render()
}
