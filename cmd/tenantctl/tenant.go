package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/spf13/cobra"
)

func newTenantCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant management commands",
	}
	cmd.AddCommand(newTenantAddCmd(c), newTenantListCmd(c))
	return cmd
}

func newTenantAddCmd(c *cli) *cobra.Command {
	var (
		req      tenancy.CreateTenantRequest
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a tenant and map its email domains",
		Long: `Create a tenant with its ERP connection. When an admin pair is given it is
validated against the ERP before being stored encrypted. The admin secret is
read from ERP_ADMIN_SECRET so it never appears in shell history.`,
		Example: `  tenantctl tenant add --name Acme --erp-url https://erp.acme.com --company acme --domain acme.com
  ERP_ADMIN_SECRET=... tenantctl tenant add --name Acme --erp-url https://erp.acme.com --company acme --admin-user api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.open(cmd.Context()); err != nil {
				return err
			}
			if req.ERPAdminUsername != "" {
				req.ERPAdminSecret = os.Getenv("ERP_ADMIN_SECRET")
			}
			active := !inactive
			req.IsActive = &active

			dto, err := c.directory.CreateTenant(cmd.Context(), req)
			if err != nil {
				return err
			}
			if ok, err := c.printJSON(dto); ok || err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Created tenant %d (%s) with domains: %s\n",
				dto.ID, dto.Name, strings.Join(dto.Domains, ", "))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "tenant name")
	f.StringVar(&req.ERPBaseURL, "erp-url", "", "ERP base URL")
	f.StringVar(&req.ERPCompany, "company", "", "ERP company")
	f.StringVar(&req.ERPTabulaINI, "tabula-ini", "", "ERP tabula ini (default tabula.ini)")
	f.StringVar(&req.ERPAuthType, "auth-type", "", "ERP auth type (default basic)")
	f.StringVar(&req.ERPAdminUsername, "admin-user", "", "ERP admin username, secret from ERP_ADMIN_SECRET")
	f.StringSliceVar(&req.Domains, "domain", nil, "email domain routed to this tenant (repeatable)")
	f.BoolVar(&inactive, "inactive", false, "create the tenant deactivated")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("erp-url")
	cmd.MarkFlagRequired("company")
	return cmd
}

func newTenantListCmd(c *cli) *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.open(cmd.Context()); err != nil {
				return err
			}

			result, err := c.directory.ListTenants(cmd.Context(), kernel.PaginationOptions{Page: page, PageSize: size})
			if err != nil {
				return err
			}
			if ok, err := c.printJSON(result); ok || err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tACTIVE\tADMIN CREDS\tDOMAINS")
			for _, t := range result.Items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\t%s\n",
					t.ID, t.Name, t.ERPCompany, t.IsActive, t.HasAdminCredentials, strings.Join(t.Domains, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "page-size", kernel.DefaultPageSize, "page size")
	return cmd
}
