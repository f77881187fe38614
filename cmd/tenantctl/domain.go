package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/spf13/cobra"
)

func newDomainCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Email domain mapping commands",
	}
	cmd.AddCommand(newDomainAddCmd(c), newDomainListCmd(c))
	return cmd
}

func newDomainAddCmd(c *cli) *cobra.Command {
	var tenantID int64

	cmd := &cobra.Command{
		Use:   "add <domain>",
		Short: "Route an email domain to a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.open(cmd.Context()); err != nil {
				return err
			}

			d, err := c.directory.AddDomain(cmd.Context(), tenancy.AddDomainRequest{
				TenantID: kernel.TenantID(tenantID),
				Domain:   args[0],
			})
			if err != nil {
				return err
			}
			if ok, err := c.printJSON(d); ok || err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Mapped %s to tenant %d (mapping %d)\n", d.Domain, d.TenantID, d.ID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "tenant id")
	cmd.MarkFlagRequired("tenant")
	return cmd
}

func newDomainListCmd(c *cli) *cobra.Command {
	var tenantID int64

	cmd := &cobra.Command{
		Use:   "list [domain]",
		Short: "List mappings for a domain or for a tenant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && tenantID == 0 {
				return fmt.Errorf("give a domain or --tenant")
			}
			if err := c.open(cmd.Context()); err != nil {
				return err
			}

			var (
				mappings []*tenancy.TenantDomain
				err      error
			)
			if len(args) == 1 {
				mappings, err = c.directory.ResolveDomains(cmd.Context(), args[0])
			} else {
				mappings, err = c.directory.DomainsOf(cmd.Context(), kernel.TenantID(tenantID))
			}
			if err != nil {
				return err
			}
			if ok, err := c.printJSON(mappings); ok || err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTENANT\tDOMAIN")
			for _, d := range mappings {
				fmt.Fprintf(w, "%d\t%d\t%s\n", d.ID, d.TenantID, d.Domain)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "list the domains of this tenant")
	return cmd
}
