package tenancy

import (
	"context"

	"github.com/Abraxas-365/filesmile/pkg/kernel"
)

// TenantRepository persists tenants.
type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	Update(ctx context.Context, t *Tenant) error
	Delete(ctx context.Context, id kernel.TenantID) error
	FindByID(ctx context.Context, id kernel.TenantID) (*Tenant, error)
	FindByIDs(ctx context.Context, ids []kernel.TenantID) ([]*Tenant, error)
	List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[*Tenant], error)
	// FindActiveByDomain returns active tenants mapped to a lower-cased domain, ordered by id.
	FindActiveByDomain(ctx context.Context, domain string) ([]*Tenant, error)
}

// DomainRepository persists tenant-domain mappings.
type DomainRepository interface {
	Create(ctx context.Context, d *TenantDomain) error
	Delete(ctx context.Context, id kernel.DomainID) error
	FindByDomain(ctx context.Context, domain string) ([]*TenantDomain, error)
	FindByTenant(ctx context.Context, tenantID kernel.TenantID) ([]*TenantDomain, error)
	DeleteByTenant(ctx context.Context, tenantID kernel.TenantID) error
}

// UserRepository persists global users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id kernel.UserID) error
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// UserTenantRepository persists associations. Values reaching it are already
// vault ciphertext.
type UserTenantRepository interface {
	Create(ctx context.Context, ut *UserTenant) error
	Update(ctx context.Context, ut *UserTenant) error
	Find(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) (*UserTenant, error)
	FindByUser(ctx context.Context, userID kernel.UserID) ([]*UserTenant, error)
	Delete(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) error
	DeleteByTenant(ctx context.Context, tenantID kernel.TenantID) error
	DeleteByUser(ctx context.Context, userID kernel.UserID) error
}

// Repositories groups the four repositories bound to one connection or transaction.
type Repositories interface {
	Tenants() TenantRepository
	Domains() DomainRepository
	Users() UserRepository
	UserTenants() UserTenantRepository
}

// Store is the Tenant Directory's backing store. WithinTx runs fn against
// repositories bound to a single transaction: fn's writes commit together
// when it returns nil and are rolled back otherwise.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
}

// Cipher is the vault contract the directory services depend on.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, bool)
}
