package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCustomersCommand(rt *runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List customers available as sender or recipient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			customers, err := rt.api.CustomerList(cmd.Context())
			if err != nil {
				return fmt.Errorf("list customers: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), customers)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL")
			for _, c := range customers {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.FullName(), c.Email)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newStatusesCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "statuses",
		Short: "List the statuses the invoice API accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := rt.api.StatusList(cmd.Context())
			if err != nil {
				return fmt.Errorf("list statuses: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VALUE\tTEXT\tLABEL")
			for _, s := range statuses {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Value, s.Text, s.Value.Label())
			}
			return tw.Flush()
		},
	}
}
