// Command tenantctl is the operator CLI for the tenant directory. It talks
// to the same store and vault as the broker and never prints secrets.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Abraxas-365/filesmile/pkg/config"
	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/erp/erpclient"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyinfra"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancysrv"
	"github.com/Abraxas-365/filesmile/pkg/vault"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

// cli carries what the commands share. Tests preset store and gateway.
type cli struct {
	cfg     *config.Config
	db      *sqlx.DB
	store   tenancy.Store
	gateway erp.Gateway
	out     io.Writer
	output  string

	directory   *tenancysrv.DirectoryService
	credentials *tenancysrv.CredentialResolver
}

func main() {
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))

	c := &cli{out: os.Stdout}
	defer c.close()

	if err := newRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "tenantctl",
		Short: "Manage tenants, domains and users of the identity broker",
		Long: `tenantctl seeds and inspects the tenant directory: tenants with their ERP
connection, the email domains that route to them, and user associations.
Configuration is read from the same environment variables as the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(
		newTenantCmd(c),
		newDomainCmd(c),
		newCheckUserCmd(c),
		newHashPasswordCmd(c),
		newSchemaCmd(c),
	)
	return root
}

// open connects the store, vault and ERP client on first use.
func (c *cli) open(ctx context.Context) error {
	if c.directory != nil {
		return nil
	}
	if c.cfg == nil {
		c.cfg = config.Load()
	}
	if c.cfg.Vault.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}

	if c.store == nil {
		switch c.cfg.Database.StoreMode {
		case config.StoreModeMemory:
			c.store = tenancyinfra.NewMemoryStore()
		default:
			db, err := c.connect()
			if err != nil {
				return err
			}
			c.store = tenancyinfra.NewPostgresStore(db)
		}
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("store is unreachable: %w", err)
	}

	if c.gateway == nil {
		c.gateway = erpclient.New(erpclient.Options{
			AppID:              c.cfg.ERP.AppID,
			AppKey:             c.cfg.ERP.AppKey,
			Timeout:            c.cfg.ERP.Timeout,
			InsecureSkipVerify: c.cfg.ERP.InsecureSkipVerify,
		})
	}

	v, err := vault.New(c.cfg.Vault.EncryptionKey)
	if err != nil {
		return err
	}
	c.credentials = tenancysrv.NewCredentialResolver(v)
	c.directory = tenancysrv.NewDirectoryService(c.store, c.credentials, c.gateway)
	return nil
}

func (c *cli) connect() (*sqlx.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	if c.cfg == nil {
		c.cfg = config.Load()
	}
	db, err := sqlx.Connect("postgres", c.cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.db = db
	return db, nil
}

func (c *cli) close() {
	if c.db != nil {
		c.db.Close()
	}
}

// printJSON writes v indented when -o json is set and reports whether it did.
func (c *cli) printJSON(v interface{}) (bool, error) {
	if c.output != "json" {
		return false, nil
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
