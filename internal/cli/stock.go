package cli

import (
	"fmt"
	"io"
	"strconv"

	"stockledger-backend/internal/inventory"
	"stockledger-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func parseQuantity(s string) (decimal.Decimal, error) {
	q, err := decimal.NewFromString(s)
	if err != nil {
		return q, WrapExitError(ExitCommandError, fmt.Sprintf("invalid quantity %q", s), err)
	}
	return q, nil
}

func printEntry(w io.Writer, e models.LedgerEntry) {
	fmt.Fprintf(w, "ledger id\t%d\n", e.LedgerID)
	fmt.Fprintf(w, "stock id\t%s\n", e.StockID)
	fmt.Fprintf(w, "type\t%s\n", e.TransactionType)
	fmt.Fprintf(w, "quantity\t%s\n", e.QuantityChange)
	fmt.Fprintf(w, "reference\t%s\n", e.Reference)
}

func NewReceiveCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receive <stock-id> <quantity>",
		Short: "Add stock to an existing record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			env, err := root.environment(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := env.Service.Receive(cmd.Context(), args[0], qty, root.Actor)
			if err != nil {
				return err
			}
			return root.emit(cmd, entry, func(w io.Writer) { printEntry(w, entry) })
		},
	}
}

// IssueOptions holds flags for the issue command.
type IssueOptions struct {
	*RootOptions
	Reference string
	Reason    string
}

func NewIssueCommand(root *RootOptions) *cobra.Command {
	opts := &IssueOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "issue <stock-id> <quantity>",
		Short: "Issue stock from an item",
		Long: `Issue stock from an item.

Availability is counted over every record sharing the item's identity, so
stock received under an older record can be issued through a newer one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			req := inventory.IssueRequest{
				StockID:   args[0],
				Quantity:  qty,
				Reference: opts.Reference,
				Actor:     opts.Actor,
			}
			if opts.Reason != "" {
				req.Reason = &opts.Reason
			}
			entry, err := env.Service.Issue(cmd.Context(), req)
			if err != nil {
				return err
			}
			return opts.emit(cmd, entry, func(w io.Writer) { printEntry(w, entry) })
		},
	}

	cmd.Flags().StringVar(&opts.Reference, "ref", "", "issue reference (work order, job number)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "optional reason")
	_ = cmd.MarkFlagRequired("ref")

	return cmd
}

func NewReverseCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <ledger-id>",
		Short: "Append the exact opposite of a ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid ledger id %q", args[0]), err)
			}
			env, err := root.environment(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := env.Service.Reverse(cmd.Context(), uint(id), root.Actor)
			if err != nil {
				return err
			}
			return root.emit(cmd, entry, func(w io.Writer) { printEntry(w, entry) })
		},
	}
}

func NewThresholdCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "threshold <stock-id> <min-quantity>",
		Short: "Set the low-stock minimum of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			minQty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			env, err := root.environment(cmd.Context())
			if err != nil {
				return err
			}
			if err := env.Service.SetThreshold(cmd.Context(), args[0], minQty, root.Actor); err != nil {
				return err
			}
			data := map[string]string{"stock_id": args[0], "min_quantity": minQty.String()}
			return root.emit(cmd, data, func(w io.Writer) {
				fmt.Fprintf(w, "minimum for %s set to %s\n", args[0], minQty)
			})
		},
	}
}
