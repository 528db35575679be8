package cli

import (
	"fmt"
	"io"

	"stockledger-backend/internal/inventory"
	"stockledger-backend/internal/spreadsheet"

	"github.com/spf13/cobra"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Commit bool
}

type importReport struct {
	Previews []inventory.PreviewEntry `json:"previews"`
	Skipped  []int                    `json:"skipped"`
	Result   *inventory.CommitResult  `json:"result,omitempty"`
}

func NewImportCommand(root *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "import <file.xlsx|file.csv>",
		Short: "Preview, and optionally commit, a spreadsheet of received stock",
		Long: `Preview, and optionally commit, a spreadsheet of received stock.

Rows whose identity (project, part name, description, uom, location) matches
an existing item are MERGED into it; all other rows create NEW items. Without
--commit nothing is written. With --commit every row is applied in a single
transaction: if one row fails, none are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet, err := spreadsheet.ParseFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read "+args[0], err)
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}

			previews, err := env.Service.Preview(cmd.Context(), sheet.Rows)
			if err != nil {
				return err
			}
			report := importReport{Previews: previews, Skipped: sheet.Skipped}

			if opts.Commit && len(previews) > 0 {
				res, err := env.Service.Commit(cmd.Context(), previews, opts.Actor)
				if err != nil {
					return err
				}
				report.Result = &res
			}

			return opts.emit(cmd, report, func(w io.Writer) {
				fmt.Fprintln(w, "STATUS\tPART\tQTY\tLOCATION\tEXISTING\tNOTE")
				for _, p := range report.Previews {
					existing, note := "-", ""
					if p.ExistingStockID != nil {
						existing = *p.ExistingStockID
					}
					if p.DiffReason != nil {
						note = *p.DiffReason
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						p.Status, p.Row.PartName, p.Row.Quantity, p.Row.Location, existing, note)
				}
				if len(report.Skipped) > 0 {
					fmt.Fprintf(w, "skipped lines: %v\n", report.Skipped)
				}
				if report.Result != nil {
					fmt.Fprintf(w, "committed: %d new, %d merged\n", report.Result.Created, report.Result.Merged)
				} else {
					fmt.Fprintln(w, "preview only, rerun with --commit to apply")
				}
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "apply the import")

	return cmd
}

func NewTemplateCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "template <out.xlsx>",
		Short: "Write an empty import spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := writeFile(args[0], spreadsheet.WriteTemplate); err != nil {
				return WrapExitError(ExitCommandError, "write "+args[0], err)
			}
			return root.emit(cmd, map[string]string{"file": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "wrote %s\n", args[0])
			})
		},
	}
}
