package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockledger-backend/internal/inventory"
	"stockledger-backend/internal/models"
	"stockledger-backend/internal/spreadsheet"

	"github.com/spf13/cobra"
)

func NewStatsCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show inventory totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.environment(cmd.Context())
			if err != nil {
				return err
			}
			st, err := env.Service.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return root.emit(cmd, st, func(w io.Writer) {
				fmt.Fprintf(w, "unique items\t%d\n", st.UniqueItems)
				fmt.Fprintf(w, "total received\t%s\n", st.TotalReceived)
				fmt.Fprintf(w, "total issued\t%s\n", st.TotalIssued)
				fmt.Fprintf(w, "low stock\t%d\n", st.LowStockCount)
			})
		},
	}
}

// PageOptions holds the search and paging flags of list commands.
type PageOptions struct {
	*RootOptions
	Search   string
	Page     int
	PageSize int
}

func (o *PageOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Search, "search", "", "case-insensitive text filter")
	cmd.Flags().IntVar(&o.Page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&o.PageSize, "page-size", 20, "rows per page (max 500)")
}

func NewInventoryCommand(root *RootOptions) *cobra.Command {
	opts := &PageOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List items with their available quantity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			page, err := env.Service.InventoryPage(cmd.Context(), opts.Search, opts.Page, opts.PageSize)
			if err != nil {
				return err
			}
			return opts.emit(cmd, page, func(w io.Writer) {
				fmt.Fprintln(w, "STOCK ID\tPROJECT\tPART\tUOM\tLOCATION\tAVAILABLE\tMIN\tLOW")
				for _, it := range page.Items {
					low := ""
					if it.LowStock {
						low = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						it.StockID, it.Project, it.PartName, it.UOM, it.Location,
						it.AvailableQuantity, it.MinQuantity, low)
				}
				fmt.Fprintf(w, "%d items\n", page.TotalCount)
			})
		},
	}
	opts.bind(cmd)

	return cmd
}

func printHistory(w io.Writer, items []models.HistoryEntry) {
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tPART\tQTY\tREFERENCE\tUSER\tREVERSED")
	for _, h := range items {
		reversed := ""
		if h.IsAlreadyReversed {
			reversed = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			h.LedgerID, h.TransactionDate.Format("2006-01-02 15:04"), h.TransactionType,
			h.PartName, h.QuantityChange, h.Reference, h.CreatedBy, reversed)
	}
}

func NewHistoryCommand(root *RootOptions) *cobra.Command {
	opts := &PageOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List ledger entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			page, err := env.Service.HistoryPage(cmd.Context(), opts.Search, opts.Page, opts.PageSize)
			if err != nil {
				return err
			}
			return opts.emit(cmd, page, func(w io.Writer) {
				printHistory(w, page.Items)
				fmt.Fprintf(w, "%d entries\n", page.TotalCount)
			})
		},
	}
	opts.bind(cmd)

	return cmd
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	From string
	To   string
	Kind string
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s), err)
	}
	return &t, nil
}

func NewExportCommand(root *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "export <out.xlsx|out.json>",
		Short: "Export ledger history to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDay(opts.From)
			if err != nil {
				return err
			}
			to, err := parseDay(opts.To)
			if err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := env.Service.HistoryExport(cmd.Context(), inventory.ExportFilter{
				From: from,
				To:   to,
				Kind: opts.Kind,
			})
			if err != nil {
				return err
			}

			path := args[0]
			write := func(w io.Writer) error { return spreadsheet.WriteHistory(w, entries) }
			if strings.ToLower(filepath.Ext(path)) == ".json" {
				write = func(w io.Writer) error {
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(entries)
				}
			}
			if err := writeFile(path, write); err != nil {
				return WrapExitError(ExitCommandError, "write "+path, err)
			}

			data := map[string]any{"file": path, "entries": len(entries)}
			return opts.emit(cmd, data, func(w io.Writer) {
				fmt.Fprintf(w, "wrote %d entries to %s\n", len(entries), path)
			})
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.To, "to", "", "last day (inclusive), YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.Kind, "kind", "All", "RECEIPT, ISSUE, REVERSAL or All")

	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
