package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/form"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/lineitems"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/query"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/worklist"
	"github.com/odyssey-erp/invoice-worklist/internal/shared"
)

type listOptions struct {
	search  string
	status  string
	created string
	due     string
	page    int
	size    int
	sort    string
	desc    bool
	asJSON  bool
}

const listExample = `  invoicectl list --search ana --status Paid
  invoicectl list --created 2024-03-01 --size 10 --page 2 --sort amount --desc`

type listOutput struct {
	Filter    string                     `json:"filter,omitempty"`
	Page      int                        `json:"page"`
	PageSize  int                        `json:"pageSize"`
	TotalRows int                        `json:"totalRows"`
	Rows      []invoicing.InvoiceSummary `json:"rows"`
}

func newListCommand(rt *runtime) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "Search invoices the way the worklist does",
		Example: listExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runList(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.search, "search", "", "Match customer name or invoice number")
	flags.StringVar(&opts.status, "status", "", "Status filter (Paid, Pending, Overdue, Draft, Unknown)")
	flags.StringVar(&opts.created, "created", "", "Creation day, YYYY-MM-DD")
	flags.StringVar(&opts.due, "due", "", "Due day, YYYY-MM-DD")
	flags.IntVar(&opts.page, "page", 1, "Page number, starting at 1")
	flags.IntVar(&opts.size, "size", invoicing.DefaultPageSize, "Rows per page (5, 10 or 15)")
	flags.StringVar(&opts.sort, "sort", string(invoicing.SortByCustomer), "Column to sort the page by")
	flags.BoolVar(&opts.desc, "desc", false, "Sort descending")
	flags.BoolVar(&opts.asJSON, "json", false, "Print JSON")
	return cmd
}

func (rt *runtime) runList(cmd *cobra.Command, opts listOptions) error {
	criteria := invoicing.DefaultCriteria()
	criteria.SearchText = strings.TrimSpace(opts.search)
	criteria.Status = invoicing.ParseStatus(opts.status)
	if opts.page < 1 {
		return fmt.Errorf("page must be 1 or more, got %d", opts.page)
	}
	criteria.Page = opts.page - 1
	if !invoicing.ValidPageSize(opts.size) {
		return fmt.Errorf("page size must be one of %v, got %d", invoicing.PageSizes, opts.size)
	}
	criteria.PageSize = opts.size
	field := invoicing.SortField(opts.sort)
	if !worklist.SortableField(field) {
		return fmt.Errorf("cannot sort by %q", opts.sort)
	}
	criteria.Sort = invoicing.SortSpec{Field: field, Direction: invoicing.SortAsc}
	if opts.desc {
		criteria.Sort.Direction = invoicing.SortDesc
	}
	var err error
	if criteria.CreationDateFrom, err = rt.parseDay(opts.created); err != nil {
		return err
	}
	if criteria.DueDateFrom, err = rt.parseDay(opts.due); err != nil {
		return err
	}

	q := query.NewBuilder(query.WithLocation(rt.loc)).Build(criteria)
	page, err := rt.api.SearchInvoices(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("search invoices: %w", err)
	}
	rows := worklist.Sort(page.Rows, criteria.Sort)

	out := cmd.OutOrStdout()
	if opts.asJSON {
		return writeJSON(out, listOutput{
			Filter:    q.Filter,
			Page:      opts.page,
			PageSize:  criteria.PageSize,
			TotalRows: page.TotalRows,
			Rows:      rows,
		})
	}
	if len(rows) == 0 {
		if criteria.HasFilters() {
			fmt.Fprintln(out, "No invoices match the filters.")
		} else {
			fmt.Fprintln(out, "No invoices.")
		}
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNO\tCUSTOMER\tCREATED\tDUE\tAMOUNT\tSTATUS")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.ID, row.No, row.CustomerName,
			rt.day(row.CreationTime), rt.day(row.DueDateTime),
			rt.formatMoney(row.Amount), row.Status.Label())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	p := shared.NewPagination(opts.page, criteria.PageSize, page.TotalRows)
	fmt.Fprintf(out, "%d-%d of %d\n", p.From(), p.To(), p.Total)
	return nil
}

func (rt *runtime) day(ts invoicing.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.In(rt.loc).Format(dayLayout)
}

func newShowCommand(rt *runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one invoice with its line items and totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := rt.api.GetInvoice(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get invoice %s: %w", args[0], err)
			}
			if inv == nil {
				return fmt.Errorf("get invoice %s: %w", args[0], form.ErrNoInvoice)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), inv)
			}
			return rt.printInvoice(cmd.OutOrStdout(), *inv)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the invoice as returned by the API")
	return cmd
}

func (rt *runtime) printInvoice(out io.Writer, inv invoicing.Invoice) error {
	draft := form.FromInvoice(inv)
	editor := lineitems.NewEditor()
	editor.Load(draft.LineItems)

	fmt.Fprintf(out, "Invoice %s (%s)\n", inv.No, inv.ID)
	fmt.Fprintf(out, "Customer: %s\n", inv.CustomerToFullName)
	fmt.Fprintf(out, "Status:   %s\n", inv.Status.Label())
	fmt.Fprintf(out, "Created:  %s\n", rt.day(inv.CreationTime))
	fmt.Fprintf(out, "Due:      %s\n\n", rt.day(inv.DueDateTime))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tCATEGORY\tQTY\tPRICE\tTOTAL")
	for _, item := range editor.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			item.Title, item.CategoryID, item.Quantity.String(),
			rt.formatMoney(item.UnitPrice), rt.formatMoney(item.LineTotal()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal: %s\n", rt.formatMoney(editor.Totals().Total))
	return nil
}

func newDeleteCommand(rt *runtime) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}
			if err := rt.api.DeleteInvoice(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete invoice %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted invoice %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
