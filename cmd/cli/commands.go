package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	baseURL string
	userID  string
	token   string
	timeout time.Duration
	output  string
}

func (o *options) client() *apiClient {
	return newAPIClient(o.baseURL, o.userID, o.token, o.timeout)
}

type page[T any] struct {
	Items  []T `json:"items"  yaml:"items"`
	Limit  int `json:"limit"  yaml:"limit"`
	Offset int `json:"offset" yaml:"offset"`
}

type wallet struct {
	ID               string `json:"id"                yaml:"id"`
	Name             string `json:"name"              yaml:"name"`
	Type             string `json:"type"              yaml:"type"`
	CurrencyID       string `json:"currency_id"       yaml:"currency_id"`
	RealBalance      string `json:"real_balance"      yaml:"real_balance"`
	ProjectedBalance string `json:"projected_balance" yaml:"projected_balance"`
}

type envelopeView struct {
	ID             string `json:"id"              yaml:"id"`
	Name           string `json:"name"            yaml:"name"`
	Type           string `json:"type"            yaml:"type"`
	CurrencyID     string `json:"currency_id"     yaml:"currency_id"`
	BudgetAssigned string `json:"budget_assigned" yaml:"budget_assigned"`
	Spent          string `json:"spent"           yaml:"spent"`
	Available      string `json:"available"       yaml:"available"`
}

type transaction struct {
	ID          string    `json:"id"                    yaml:"id"`
	Type        string    `json:"type"                  yaml:"type"`
	Direction   string    `json:"direction,omitempty"   yaml:"direction,omitempty"`
	Amount      string    `json:"amount"                yaml:"amount"`
	CurrencyID  string    `json:"currency_id"           yaml:"currency_id"`
	WalletID    string    `json:"wallet_id"             yaml:"wallet_id"`
	Description string    `json:"description"           yaml:"description"`
	Date        time.Time `json:"date"                  yaml:"date"`
	EnvelopeID  *string   `json:"envelope_id,omitempty" yaml:"envelope_id,omitempty"`
}

type transferResult struct {
	SourceWalletID      string       `json:"source_wallet_id"      yaml:"source_wallet_id"`
	DestinationWalletID string       `json:"destination_wallet_id" yaml:"destination_wallet_id"`
	Amount              string       `json:"amount"                yaml:"amount"`
	CurrencyID          string       `json:"currency_id"           yaml:"currency_id"`
	Debit               *transaction `json:"debit,omitempty"       yaml:"debit,omitempty"`
	Credit              *transaction `json:"credit,omitempty"      yaml:"credit,omitempty"`
}

type discrepancy struct {
	ResourceType string `json:"resource_type" yaml:"resource_type"`
	ResourceID   string `json:"resource_id"   yaml:"resource_id"`
	Field        string `json:"field"         yaml:"field"`
	Recorded     string `json:"recorded"      yaml:"recorded"`
	Calculated   string `json:"calculated"    yaml:"calculated"`
	Difference   string `json:"difference"    yaml:"difference"`
}

type reconciliation struct {
	Consistent       bool          `json:"consistent"        yaml:"consistent"`
	WalletsChecked   int           `json:"wallets_checked"   yaml:"wallets_checked"`
	EnvelopesChecked int           `json:"envelopes_checked" yaml:"envelopes_checked"`
	Discrepancies    []discrepancy `json:"discrepancies"     yaml:"discrepancies"`
}

var errInconsistent = errors.New("ledger is inconsistent")

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "budgetledger-cli",
		Short:         "budgetledger CLI tool",
		Long:          `A command line interface for interacting with the budgetledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validFormat(opts.output)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the budgetledger API")
	flags.StringVar(&opts.userID, "user", "", "Caller id sent as X-User-ID when no token is given")
	flags.StringVar(&opts.token, "token", "", "Bearer token for APIs with auth enabled")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.StringVarP(&opts.output, "output", "o", formatTable, "Output format: table, json or yaml")

	rootCmd.AddCommand(
		walletsCmd(opts),
		envelopesCmd(opts),
		transactionsCmd(opts),
		transferCmd(opts),
		reconcileCmd(opts),
		ledgerCmd(opts),
	)

	return rootCmd
}

func walletsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "wallets", Short: "Wallet operations"}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			query.Set("offset", strconv.Itoa(offset))

			var result page[wallet]
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/wallets", query, nil, &result); err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), opts.output, result, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCURRENCY\tREAL\tPROJECTED")
				for _, w := range result.Items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						w.ID, truncate(w.Name, 24), w.Type, w.CurrencyID, w.RealBalance, w.ProjectedBalance)
				}
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	cmd.AddCommand(list)
	return cmd
}

func envelopesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "envelopes", Short: "Envelope operations"}

	printEnvelopes := func(cmd *cobra.Command, v any, items []envelopeView) error {
		return render(cmd.OutOrStdout(), opts.output, v, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCURRENCY\tBUDGET\tSPENT\tAVAILABLE")
			for _, e := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, truncate(e.Name, 24), e.Type, e.CurrencyID, e.BudgetAssigned, e.Spent, e.Available)
			}
		})
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List envelopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result page[envelopeView]
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/envelopes", nil, nil, &result); err != nil {
				return err
			}
			return printEnvelopes(cmd, result, result.Items)
		},
	}

	recompute := &cobra.Command{
		Use:   "recompute ENVELOPE_ID",
		Short: "Recompute an envelope's spent amount from its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result envelopeView
			path := "/api/v1/envelopes/" + url.PathEscape(args[0]) + "/recompute"
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, nil, nil, &result); err != nil {
				return err
			}
			return printEnvelopes(cmd, result, []envelopeView{result})
		},
	}

	cmd.AddCommand(list, recompute)
	return cmd
}

func transactionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "transactions", Short: "Transaction operations"}

	var walletID, envelopeID, txType, from, to string
	var limit, offset int

	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			for key, value := range map[string]string{
				"wallet_id":   walletID,
				"envelope_id": envelopeID,
				"type":        txType,
				"from":        from,
				"to":          to,
			} {
				if value != "" {
					query.Set(key, value)
				}
			}
			query.Set("limit", strconv.Itoa(limit))
			query.Set("offset", strconv.Itoa(offset))

			var result page[transaction]
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/transactions", query, nil, &result); err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), opts.output, result, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tWALLET\tDESCRIPTION")
				for _, t := range result.Items {
					kind := t.Type
					if t.Direction != "" {
						kind += "/" + t.Direction
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\n",
						t.ID, t.Date.Format(time.DateOnly), kind, t.Amount, t.CurrencyID, t.WalletID, truncate(t.Description, 32))
				}
			})
		},
	}
	list.Flags().StringVar(&walletID, "wallet", "", "Filter by wallet id")
	list.Flags().StringVar(&envelopeID, "envelope", "", "Filter by envelope id")
	list.Flags().StringVar(&txType, "type", "", "Filter by type (GASTO, INGRESO, TRANSFERENCIA, DEPOSITO, PAGO_TC, AJUSTE)")
	list.Flags().StringVar(&from, "from", "", "Earliest date, YYYY-MM-DD or RFC 3339")
	list.Flags().StringVar(&to, "to", "", "Latest date, YYYY-MM-DD or RFC 3339")
	list.Flags().IntVar(&limit, "limit", 20, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	cmd.AddCommand(list)
	return cmd
}

func transferCmd(opts *options) *cobra.Command {
	var source, destination, amount, description string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between wallets; use UNDECLARED for money entering or leaving untracked",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"source_wallet_id":      source,
				"destination_wallet_id": destination,
				"amount":                amount,
				"description":           description,
			}

			var result transferResult
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/transfers", nil, body, &result); err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), opts.output, result, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "%s\t->\t%s\t%s %s\n",
					result.SourceWalletID, result.DestinationWalletID, result.Amount, result.CurrencyID)
			})
		},
	}
	cmd.Flags().StringVar(&source, "from", "", "Source wallet id or UNDECLARED")
	cmd.Flags().StringVar(&destination, "to", "", "Destination wallet id or UNDECLARED")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to move")
	cmd.Flags().StringVar(&description, "description", "", "Optional description")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func reconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored balances with the transaction history",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report reconciliation
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/reconciliation", nil, nil, &report); err != nil {
				return err
			}

			err := render(cmd.OutOrStdout(), opts.output, report, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "wallets checked\t%d\n", report.WalletsChecked)
				fmt.Fprintf(tw, "envelopes checked\t%d\n", report.EnvelopesChecked)
				fmt.Fprintf(tw, "consistent\t%t\n", report.Consistent)
				for _, d := range report.Discrepancies {
					fmt.Fprintf(tw, "%s %s\t%s\trecorded %s\tcalculated %s\n",
						d.ResourceType, d.ResourceID, d.Field, d.Recorded, d.Calculated)
				}
			})
			if err != nil {
				return err
			}

			if !report.Consistent {
				return errInconsistent
			}
			return nil
		},
	}
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "ledger", Short: "Ledger service operations"}
	cmd.AddCommand(healthCmd(opts))
	return cmd
}

func healthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var status map[string]string
			if err := opts.client().do(ctx, http.MethodGet, "/ready", nil, nil, &status); err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), opts.output, status, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "status\t%s\n", status["status"])
				for name, state := range status {
					if name != "status" {
						fmt.Fprintf(tw, "%s\t%s\n", name, state)
					}
				}
			})
		},
	}
}
