package tenancyinfra

import (
	"context"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/jmoiron/sqlx"
)

// Schema crea las tablas del directorio si no existen. Es idempotente y no
// sustituye a una herramienta de migraciones.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		erp_base_url VARCHAR(512) NOT NULL,
		erp_company VARCHAR(255) NOT NULL,
		erp_auth_type VARCHAR(50) DEFAULT 'basic',
		erp_tabula_ini VARCHAR(255) DEFAULT 'tabula.ini',
		erp_admin_username VARCHAR(255),
		erp_admin_password_or_token TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_tenants_name ON tenants (name)`,
	`CREATE INDEX IF NOT EXISTS ix_tenants_is_active ON tenants (is_active)`,

	`CREATE TABLE IF NOT EXISTS tenant_domains (
		id SERIAL PRIMARY KEY,
		tenant_id INTEGER NOT NULL REFERENCES tenants (id) ON DELETE CASCADE,
		domain VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_tenant_domain_pair UNIQUE (tenant_id, domain)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_tenant_domains_domain ON tenant_domains (domain)`,

	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		display_name VARCHAR(255),
		role VARCHAR(50) NOT NULL DEFAULT 'user',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_users_email UNIQUE (email)
	)`,

	`CREATE TABLE IF NOT EXISTS user_tenants (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		tenant_id INTEGER NOT NULL REFERENCES tenants (id) ON DELETE CASCADE,
		erp_username VARCHAR(255),
		erp_password_or_token TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_user_tenant_pair UNIQUE (user_id, tenant_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_user_tenants_tenant_id ON user_tenants (tenant_id)`,
}

// EnsureSchema ejecuta Schema en una sola transacción.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin schema transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	for _, stmt := range Schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errx.Wrap(err, "failed to apply schema", errx.TypeInternal)
		}
	}
	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit schema", errx.TypeInternal)
	}

	logx.Debugf("Directory schema ensured (%d statements)", len(Schema))
	return nil
}
