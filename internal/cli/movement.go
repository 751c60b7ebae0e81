package cli

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"ledger/internal/domain"
)

func newDepositCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <account-id> <amount>",
		Short: "Credit an account",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			record, err := r.ledger().Deposit(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			pterm.Success.WithWriter(r.out).Printfln("Deposited %s into account %d (transaction %d)",
				record.Amount.StringFixed(2), id, record.ID)
			return nil
		},
	}
}

func newWithdrawCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <account-id> <amount>",
		Short: "Debit an account if its balance covers the amount",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			record, err := r.ledger().Withdraw(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			pterm.Success.WithWriter(r.out).Printfln("Withdrew %s from account %d (transaction %d)",
				record.Amount.StringFixed(2), id, record.ID)
			return nil
		},
	}
}

func newTransferCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <from-account-id> <to-account-id> <amount>",
		Short: "Move money between two accounts",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseID(args[0])
			if err != nil {
				return err
			}
			to, err := parseID(args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			record, err := r.ledger().Transfer(cmd.Context(), from, to, amount)
			if err != nil {
				return err
			}
			pterm.Success.WithWriter(r.out).Printfln("Transferred %s from account %d to account %d (transaction %d)",
				record.Amount.StringFixed(2), from, to, record.ID)
			return nil
		},
	}
}

func newHistoryCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "history <account-id>",
		Short: "List the transactions of an account, oldest first",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			records, err := r.ledger().History(cmd.Context(), id)
			if err != nil {
				return err
			}
			return renderTransactions(r, records)
		},
	}
}

func newErrorsCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "errors",
		Short: "List the error journal",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := r.ledger().ErrorLogs(cmd.Context())
			if err != nil {
				return err
			}

			tableData := pterm.TableData{{"ID", "Time", "Procedure", "Message"}}
			for _, e := range entries {
				tableData = append(tableData, []string{
					pterm.Sprint(e.ID),
					e.Timestamp.Format("2006-01-02 15:04:05"),
					e.ProcedureName,
					e.Message,
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(r.out).WithData(tableData).Render()
		},
	}
}

func renderTransactions(r *runner, records []*domain.TransactionRecord) error {
	tableData := pterm.TableData{{"ID", "Type", "Account", "Target", "Amount", "Time"}}
	for _, rec := range records {
		target := ""
		if rec.TargetAccountID != nil {
			target = pterm.Sprint(*rec.TargetAccountID)
		}
		tableData = append(tableData, []string{
			pterm.Sprint(rec.ID),
			string(rec.Type),
			pterm.Sprint(rec.AccountID),
			target,
			rec.Amount.StringFixed(2),
			rec.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(r.out).WithData(tableData).Render()
}
