package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/Abraxas-365/filesmile/pkg/asyncx"
	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/spf13/cobra"
)

// probeWorkers bounds concurrent ERP calls from check-user --probe.
const probeWorkers = 4

// credentialCheck is one row of check-user output.
type credentialCheck struct {
	TenantID   kernel.TenantID `json:"tenant_id"`
	TenantName string          `json:"tenant_name"`
	Active     bool            `json:"active"`
	Result     string          `json:"result"`
}

func newCheckUserCmd(c *cli) *cobra.Command {
	var (
		tenantID int64
		probe    bool
	)

	cmd := &cobra.Command{
		Use:   "check-user <email>",
		Short: "Show a user's tenant associations and optionally re-validate them",
		Long: `Show the tenants a user is associated with. With --probe the stored
credentials of every active association are decrypted and sent to the ERP,
the same check the broker runs on a tenant switch. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.open(ctx); err != nil {
				return err
			}

			u, err := c.directory.FindUser(ctx, args[0])
			if err != nil {
				return err
			}
			memberships, err := c.directory.Memberships(ctx, u.ID)
			if err != nil {
				return err
			}

			var rows []credentialCheck
			for _, m := range memberships {
				if tenantID != 0 && m.TenantID != kernel.TenantID(tenantID) {
					continue
				}
				rows = append(rows, credentialCheck{
					TenantID:   m.TenantID,
					TenantName: m.TenantName,
					Active:     m.IsActive && m.TenantActive,
					Result:     "-",
				})
			}

			if probe {
				results := asyncx.Pool(ctx, probeWorkers, rows, func(ctx context.Context, row credentialCheck) (string, error) {
					if !row.Active {
						return row.Result, nil
					}
					return c.probe(ctx, u.ID, row.TenantID), nil
				})
				for i, r := range results {
					if r.OK() {
						rows[i].Result = r.Value
					} else {
						rows[i].Result = codeOf(r.Err)
					}
				}
			}

			if ok, err := c.printJSON(checkUserReport{User: u, Tenants: rows}); ok || err != nil {
				return err
			}

			fmt.Fprintf(c.out, "User %d %s (active=%t, role=%s)\n", u.ID, u.Email, u.IsActive, u.Role)
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TENANT\tNAME\tACTIVE\tCHECK")
			for _, r := range rows {
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", r.TenantID, r.TenantName, r.Active, r.Result)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "only this tenant")
	cmd.Flags().BoolVar(&probe, "probe", false, "validate stored credentials against the ERP")
	return cmd
}

type checkUserReport struct {
	User    *tenancy.User     `json:"user"`
	Tenants []credentialCheck `json:"tenants"`
}

// probe returns "ok" or the failure code.
func (c *cli) probe(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) string {
	t, err := c.store.Tenants().FindByID(ctx, tenantID)
	if err != nil {
		return codeOf(err)
	}
	ut, err := c.store.UserTenants().Find(ctx, userID, tenantID)
	if err != nil {
		return codeOf(err)
	}
	creds, err := c.credentials.ForUser(ut)
	if err != nil {
		return codeOf(err)
	}
	if err := c.gateway.Validate(ctx, t.Connection(), creds); err != nil {
		if errx.HasCode(err, erp.CodeCredentialAuthFailed) {
			return tenancy.CodeStoredCredentialsInvalid.Code
		}
		return codeOf(err)
	}
	return "ok"
}

func codeOf(err error) string {
	if code := errx.CodeOf(err); code != "" {
		return code
	}
	return err.Error()
}
