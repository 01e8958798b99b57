package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obcms/workledger/internal/domain"
)

func newLedgerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Record allotments, obligations and disbursements",
	}

	cmd.AddCommand(
		newLedgerAllotCmd(app),
		newLedgerObligateCmd(app),
		newLedgerDisburseCmd(app),
		newLedgerCancelCmd(app),
		newLedgerReverseCmd(app),
		newLedgerCloseCmd(app),
		newLedgerBalanceCmd(app),
		newLedgerUtilizationCmd(app),
	)

	return cmd
}

func newLedgerAllotCmd(app *App) *cobra.Command {
	var envelopeID, period, amountStr string

	cmd := &cobra.Command{
		Use:   "allot",
		Short: "Release an allotment against an envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := domain.ParseMoney(amountStr)
			if err != nil {
				return err
			}
			a, err := app.Ledger.ReleaseAllotment(context.Background(), envelopeID, period, amount, app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("Released %s for %s (allotment %s)\n", a.Amount, a.Period, a.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&envelopeID, "envelope", "", "Envelope ID")
	cmd.Flags().StringVar(&period, "period", "", "Period tag, e.g. Q1")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Amount in pesos")
	_ = cmd.MarkFlagRequired("envelope")
	_ = cmd.MarkFlagRequired("period")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newLedgerObligateCmd(app *App) *cobra.Command {
	var allotmentID, workItemID, payee, amountStr string

	cmd := &cobra.Command{
		Use:   "obligate",
		Short: "Commit allotted funds to a work item",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := domain.ParseMoney(amountStr)
			if err != nil {
				return err
			}
			o, err := app.Ledger.RecordObligation(context.Background(), allotmentID, workItemID, amount, payee, app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("Obligated %s to %s (obligation %s)\n", o.Amount, o.Payee, o.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&allotmentID, "allotment", "", "Allotment ID")
	cmd.Flags().StringVar(&workItemID, "work-item", "", "Funded work item ID")
	cmd.Flags().StringVar(&payee, "payee", "", "Payee name")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Amount in pesos")
	_ = cmd.MarkFlagRequired("allotment")
	_ = cmd.MarkFlagRequired("work-item")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newLedgerDisburseCmd(app *App) *cobra.Command {
	var obligationID, method, amountStr string

	cmd := &cobra.Command{
		Use:   "disburse",
		Short: "Record a payment against an obligation",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := domain.ParseMoney(amountStr)
			if err != nil {
				return err
			}
			d, err := app.Ledger.RecordDisbursement(context.Background(), obligationID, amount, domain.PaymentMethod(method), app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("Disbursed %s via %s (disbursement %s)\n", d.Amount, d.PaymentMethod, d.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&obligationID, "obligation", "", "Obligation ID")
	cmd.Flags().StringVar(&method, "method", "bank_transfer", "Payment method (check|bank_transfer|cash|other)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Amount in pesos")
	_ = cmd.MarkFlagRequired("obligation")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newLedgerCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <obligation-id>",
		Short: "Cancel an obligation and return its capacity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Ledger.CancelObligation(context.Background(), args[0], app.Actor); err != nil {
				return err
			}
			fmt.Println("Cancelled.")
			return nil
		},
	}
}

func newLedgerReverseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <disbursement-id>",
		Short: "Reverse a disbursement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Ledger.ReverseDisbursement(context.Background(), args[0], app.Actor); err != nil {
				return err
			}
			fmt.Println("Reversed.")
			return nil
		},
	}
}

func newLedgerCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close <allotment-id>",
		Short: "Close an allotment's period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Ledger.CloseAllotment(context.Background(), args[0], app.Actor); err != nil {
				return err
			}
			fmt.Println("Closed.")
			return nil
		},
	}
}

func newLedgerBalanceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <allotment-id>",
		Short: "Show an allotment's remaining capacity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := app.Ledger.AllotmentBalance(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Remaining: %s\n", balance)
			return nil
		},
	}
}

func newLedgerUtilizationCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "utilization <allotment-id>",
		Short: "Show an allotment's obligation utilization rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := app.Ledger.UtilizationRate(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Utilization: %.1f%%\n", rate)
			return nil
		},
	}
}
