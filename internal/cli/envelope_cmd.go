package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obcms/workledger/internal/cli/formatter"
	"github.com/obcms/workledger/internal/domain"
)

func newEnvelopeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envelope",
		Short: "Manage budget envelopes",
	}

	cmd.AddCommand(
		newEnvelopeAddCmd(app),
		newEnvelopeListCmd(app),
		newEnvelopeBalanceCmd(app),
	)

	return cmd
}

func newEnvelopeAddCmd(app *App) *cobra.Command {
	var title, amountStr string
	var fiscalYear int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a budget envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := domain.ParseMoney(amountStr)
			if err != nil {
				return err
			}
			env, err := app.Ledger.CreateEnvelope(context.Background(), title, fiscalYear, amount, app.Actor, app.Tenant)
			if err != nil {
				return err
			}
			fmt.Printf("Created envelope %s (%s, FY%d, %s)\n", env.ID, env.Title, env.FiscalYear, env.ApprovedAmount)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Envelope title")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Approved amount in pesos, e.g. 45000000.00")
	cmd.Flags().IntVar(&fiscalYear, "year", 0, "Fiscal year")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newEnvelopeListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budget envelopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelopes, err := app.Ledger.ListEnvelopes(context.Background())
			if err != nil {
				return err
			}
			if len(envelopes) == 0 {
				fmt.Println(formatter.Dim("No envelopes."))
				return nil
			}
			fmt.Println(formatter.Header("Budget Envelopes"))
			for _, e := range envelopes {
				fmt.Printf("%s  FY%d  %s  %s\n",
					e.ID, e.FiscalYear, formatter.Bold(e.Title), e.ApprovedAmount)
			}
			return nil
		},
	}
}

func newEnvelopeBalanceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <envelope-id>",
		Short: "Show the unreleased balance of an envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := app.Ledger.EnvelopeBalance(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Unreleased balance: %s\n", balance)
			return nil
		},
	}
}
