package tenancyinfra

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresStore es la implementación en PostgreSQL del directorio de tenants.
type PostgresStore struct {
	db *sqlx.DB
	repositories
}

// NewPostgresStore crea el store sobre una conexión sqlx ya abierta.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, repositories: bind(db)}
}

// WithinTx ejecuta fn dentro de una única transacción.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos tenancy.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin transaction", errx.TypeInternal)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, bind(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logx.WithError(rbErr).Warn("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return translate(err, "failed to commit transaction", nil)
	}
	return nil
}

// Ping verifica la conexión con la base de datos.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// repositories agrupa los repositorios sobre una conexión o transacción.
type repositories struct {
	tenants     *tenantRepository
	domains     *domainRepository
	users       *userRepository
	userTenants *userTenantRepository
}

func bind(q sqlx.ExtContext) repositories {
	return repositories{
		tenants:     &tenantRepository{q: q},
		domains:     &domainRepository{q: q},
		users:       &userRepository{q: q},
		userTenants: &userTenantRepository{q: q},
	}
}

func (r repositories) Tenants() tenancy.TenantRepository         { return r.tenants }
func (r repositories) Domains() tenancy.DomainRepository         { return r.domains }
func (r repositories) Users() tenancy.UserRepository             { return r.users }
func (r repositories) UserTenants() tenancy.UserTenantRepository { return r.userTenants }

// translate convierte errores del driver en errores del dominio. fkErr
// recibe el nombre de la clave foránea violada.
func translate(err error, msg string, fkErr func(constraint string) *errx.Error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return tenancy.ErrConflict(conflictReason(pqErr.Constraint)).WithCause(err)
		case pqForeignKeyViolation:
			if fkErr != nil {
				return fkErr(pqErr.Constraint).WithCause(err)
			}
		}
	}
	return errx.Wrap(err, msg, errx.TypeInternal)
}

func conflictReason(constraint string) string {
	switch constraint {
	case "uq_tenant_domain_pair":
		return "tenant_domain"
	case "uq_user_tenant_pair":
		return "user_tenant"
	case "uq_users_email":
		return "email"
	default:
		return constraint
	}
}

func affected(res sql.Result, notFound func() *errx.Error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if n == 0 {
		return notFound()
	}
	return nil
}

// ============================================================================
// Tenants
// ============================================================================

const tenantColumns = `id, name, erp_base_url, erp_company, erp_auth_type, erp_tabula_ini,
	erp_admin_username, erp_admin_password_or_token, is_active, created_at, updated_at`

type tenantRepository struct {
	q sqlx.ExtContext
}

// Create inserta un tenant y completa su ID y timestamps.
func (r *tenantRepository) Create(ctx context.Context, t *tenancy.Tenant) error {
	p := tenantToRow(t)
	query := `
		INSERT INTO tenants (
			name, erp_base_url, erp_company, erp_auth_type, erp_tabula_ini,
			erp_admin_username, erp_admin_password_or_token, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	var id int64
	err := r.q.QueryRowxContext(ctx, query,
		p.Name, p.ERPBaseURL, p.ERPCompany, p.ERPAuthType, p.ERPTabulaINI,
		p.ERPAdminUsername, p.ERPAdminSecret, p.IsActive,
	).Scan(&id, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return translate(err, "failed to create tenant", nil)
	}
	t.ID = kernel.TenantID(id)
	return nil
}

// Update actualiza todos los campos editables de un tenant.
func (r *tenantRepository) Update(ctx context.Context, t *tenancy.Tenant) error {
	p := tenantToRow(t)
	query := `
		UPDATE tenants SET
			name = $1, erp_base_url = $2, erp_company = $3, erp_auth_type = $4,
			erp_tabula_ini = $5, erp_admin_username = $6, erp_admin_password_or_token = $7,
			is_active = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`

	err := r.q.QueryRowxContext(ctx, query,
		p.Name, p.ERPBaseURL, p.ERPCompany, p.ERPAuthType, p.ERPTabulaINI,
		p.ERPAdminUsername, p.ERPAdminSecret, p.IsActive, p.ID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tenancy.ErrTenantNotFound().WithDetail("tenant_id", t.ID.String())
		}
		return translate(err, "failed to update tenant", nil)
	}
	return nil
}

// Delete elimina un tenant. Los hijos se borran antes, explícitamente.
func (r *tenantRepository) Delete(ctx context.Context, id kernel.TenantID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id.Int64())
	if err != nil {
		return translate(err, "failed to delete tenant", nil)
	}
	return affected(res, tenancy.ErrTenantNotFound)
}

// FindByID busca un tenant por su ID.
func (r *tenantRepository) FindByID(ctx context.Context, id kernel.TenantID) (*tenancy.Tenant, error) {
	var row tenantRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id.Int64())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenancy.ErrTenantNotFound().WithDetail("tenant_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find tenant by ID", errx.TypeInternal)
	}
	return row.toDomain(), nil
}

// FindByIDs busca varios tenants; los IDs inexistentes se omiten.
func (r *tenantRepository) FindByIDs(ctx context.Context, ids []kernel.TenantID) ([]*tenancy.Tenant, error) {
	if len(ids) == 0 {
		return []*tenancy.Tenant{}, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = id.Int64()
	}

	var rows []tenantRow
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = ANY($1) ORDER BY id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, pq.Array(raw)); err != nil {
		return nil, errx.Wrap(err, "failed to find tenants by IDs", errx.TypeInternal)
	}
	return tenantsToDomain(rows), nil
}

// List devuelve una página de tenants ordenada por ID.
func (r *tenantRepository) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[*tenancy.Tenant], error) {
	opts = opts.Normalize()

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, `SELECT COUNT(*) FROM tenants`); err != nil {
		return kernel.Paginated[*tenancy.Tenant]{}, errx.Wrap(err, "failed to count tenants", errx.TypeInternal)
	}

	var rows []tenantRow
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY id LIMIT $1 OFFSET $2`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, opts.PageSize, opts.Offset()); err != nil {
		return kernel.Paginated[*tenancy.Tenant]{}, errx.Wrap(err, "failed to list tenants", errx.TypeInternal)
	}
	return kernel.NewPaginated(tenantsToDomain(rows), opts.Page, opts.PageSize, total), nil
}

// FindActiveByDomain resuelve un dominio a sus tenants activos.
func (r *tenantRepository) FindActiveByDomain(ctx context.Context, domain string) ([]*tenancy.Tenant, error) {
	var rows []tenantRow
	query := `
		SELECT t.id, t.name, t.erp_base_url, t.erp_company, t.erp_auth_type, t.erp_tabula_ini,
			t.erp_admin_username, t.erp_admin_password_or_token, t.is_active, t.created_at, t.updated_at
		FROM tenants t
		JOIN tenant_domains d ON d.tenant_id = t.id
		WHERE d.domain = $1 AND t.is_active = true
		ORDER BY t.id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, domain); err != nil {
		return nil, errx.Wrap(err, "failed to resolve tenants by domain", errx.TypeInternal).
			WithDetail("domain", domain)
	}
	return tenantsToDomain(rows), nil
}

// Struct auxiliar para persistencia que maneja columnas nullable.
type tenantRow struct {
	ID               int64          `db:"id"`
	Name             string         `db:"name"`
	ERPBaseURL       string         `db:"erp_base_url"`
	ERPCompany       string         `db:"erp_company"`
	ERPAuthType      sql.NullString `db:"erp_auth_type"`
	ERPTabulaINI     sql.NullString `db:"erp_tabula_ini"`
	ERPAdminUsername sql.NullString `db:"erp_admin_username"`
	ERPAdminSecret   sql.NullString `db:"erp_admin_password_or_token"`
	IsActive         bool           `db:"is_active"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func tenantToRow(t *tenancy.Tenant) tenantRow {
	return tenantRow{
		ID:               t.ID.Int64(),
		Name:             t.Name,
		ERPBaseURL:       t.ERPBaseURL,
		ERPCompany:       t.ERPCompany,
		ERPAuthType:      nullString(t.ERPAuthType),
		ERPTabulaINI:     nullString(t.ERPTabulaINI),
		ERPAdminUsername: nullString(t.ERPAdminUsername),
		ERPAdminSecret:   nullString(t.ERPAdminSecret),
		IsActive:         t.IsActive,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func (p tenantRow) toDomain() *tenancy.Tenant {
	t := &tenancy.Tenant{
		ID:               kernel.TenantID(p.ID),
		Name:             p.Name,
		ERPBaseURL:       p.ERPBaseURL,
		ERPCompany:       p.ERPCompany,
		ERPAuthType:      p.ERPAuthType.String,
		ERPTabulaINI:     p.ERPTabulaINI.String,
		ERPAdminUsername: p.ERPAdminUsername.String,
		ERPAdminSecret:   p.ERPAdminSecret.String,
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	t.ApplyDefaults()
	return t
}

func tenantsToDomain(rows []tenantRow) []*tenancy.Tenant {
	out := make([]*tenancy.Tenant, len(rows))
	for i, p := range rows {
		out[i] = p.toDomain()
	}
	return out
}

// ============================================================================
// Domains
// ============================================================================

type domainRepository struct {
	q sqlx.ExtContext
}

type domainRow struct {
	ID        int64     `db:"id"`
	TenantID  int64     `db:"tenant_id"`
	Domain    string    `db:"domain"`
	CreatedAt time.Time `db:"created_at"`
}

func (p domainRow) toDomain() *tenancy.TenantDomain {
	return &tenancy.TenantDomain{
		ID:        kernel.DomainID(p.ID),
		TenantID:  kernel.TenantID(p.TenantID),
		Domain:    p.Domain,
		CreatedAt: p.CreatedAt,
	}
}

func domainsToDomain(rows []domainRow) []*tenancy.TenantDomain {
	out := make([]*tenancy.TenantDomain, len(rows))
	for i, p := range rows {
		out[i] = p.toDomain()
	}
	return out
}

// Create inserta un mapeo dominio-tenant; el par (tenant, dominio) es único.
func (r *domainRepository) Create(ctx context.Context, d *tenancy.TenantDomain) error {
	var id int64
	err := r.q.QueryRowxContext(ctx,
		`INSERT INTO tenant_domains (tenant_id, domain) VALUES ($1, $2) RETURNING id, created_at`,
		d.TenantID.Int64(), d.Domain,
	).Scan(&id, &d.CreatedAt)
	if err != nil {
		return translate(err, "failed to create tenant domain", func(string) *errx.Error {
			return tenancy.ErrTenantNotFound().WithDetail("tenant_id", d.TenantID.String())
		})
	}
	d.ID = kernel.DomainID(id)
	return nil
}

// Delete elimina un mapeo por su ID.
func (r *domainRepository) Delete(ctx context.Context, id kernel.DomainID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tenant_domains WHERE id = $1`, int64(id))
	if err != nil {
		return translate(err, "failed to delete tenant domain", nil)
	}
	return affected(res, tenancy.ErrDomainNotFound)
}

// FindByDomain devuelve todos los mapeos de un dominio.
func (r *domainRepository) FindByDomain(ctx context.Context, domain string) ([]*tenancy.TenantDomain, error) {
	var rows []domainRow
	query := `SELECT id, tenant_id, domain, created_at FROM tenant_domains WHERE domain = $1 ORDER BY tenant_id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, domain); err != nil {
		return nil, errx.Wrap(err, "failed to find tenant domains", errx.TypeInternal)
	}
	return domainsToDomain(rows), nil
}

// FindByTenant devuelve los dominios de un tenant.
func (r *domainRepository) FindByTenant(ctx context.Context, tenantID kernel.TenantID) ([]*tenancy.TenantDomain, error) {
	var rows []domainRow
	query := `SELECT id, tenant_id, domain, created_at FROM tenant_domains WHERE tenant_id = $1 ORDER BY domain`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, tenantID.Int64()); err != nil {
		return nil, errx.Wrap(err, "failed to find domains by tenant", errx.TypeInternal)
	}
	return domainsToDomain(rows), nil
}

// DeleteByTenant elimina todos los dominios de un tenant.
func (r *domainRepository) DeleteByTenant(ctx context.Context, tenantID kernel.TenantID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM tenant_domains WHERE tenant_id = $1`, tenantID.Int64()); err != nil {
		return errx.Wrap(err, "failed to delete domains by tenant", errx.TypeInternal)
	}
	return nil
}

// ============================================================================
// Users
// ============================================================================

type userRepository struct {
	q sqlx.ExtContext
}

type userRow struct {
	ID          int64          `db:"id"`
	Email       string         `db:"email"`
	DisplayName sql.NullString `db:"display_name"`
	Role        string         `db:"role"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (p userRow) toDomain() *tenancy.User {
	return &tenancy.User{
		ID:          kernel.UserID(p.ID),
		Email:       p.Email,
		DisplayName: p.DisplayName.String,
		Role:        p.Role,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

const userColumns = `id, email, display_name, role, is_active, created_at, updated_at`

// Create inserta un usuario global; el email es único.
func (r *userRepository) Create(ctx context.Context, u *tenancy.User) error {
	var id int64
	err := r.q.QueryRowxContext(ctx,
		`INSERT INTO users (email, display_name, role, is_active) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		u.Email, nullString(u.DisplayName), u.Role, u.IsActive,
	).Scan(&id, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return translate(err, "failed to create user", nil)
	}
	u.ID = kernel.UserID(id)
	return nil
}

// Update actualiza nombre, rol y estado de un usuario.
func (r *userRepository) Update(ctx context.Context, u *tenancy.User) error {
	err := r.q.QueryRowxContext(ctx,
		`UPDATE users SET display_name = $1, role = $2, is_active = $3, updated_at = NOW()
		WHERE id = $4 RETURNING updated_at`,
		nullString(u.DisplayName), u.Role, u.IsActive, u.ID.Int64(),
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tenancy.ErrUserNotFound()
		}
		return translate(err, "failed to update user", nil)
	}
	return nil
}

// Delete elimina un usuario.
func (r *userRepository) Delete(ctx context.Context, id kernel.UserID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id.Int64())
	if err != nil {
		return translate(err, "failed to delete user", nil)
	}
	return affected(res, tenancy.ErrUserNotFound)
}

// FindByID busca un usuario por ID.
func (r *userRepository) FindByID(ctx context.Context, id kernel.UserID) (*tenancy.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.Int64())
}

// FindByEmail busca un usuario por email (ya normalizado).
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*tenancy.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*tenancy.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenancy.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user", errx.TypeInternal)
	}
	return row.toDomain(), nil
}

// ============================================================================
// User tenants
// ============================================================================

type userTenantRepository struct {
	q sqlx.ExtContext
}

type userTenantRow struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	TenantID    int64          `db:"tenant_id"`
	ERPUsername sql.NullString `db:"erp_username"`
	ERPSecret   sql.NullString `db:"erp_password_or_token"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (p userTenantRow) toDomain() *tenancy.UserTenant {
	return &tenancy.UserTenant{
		ID:          kernel.UserTenantID(p.ID),
		UserID:      kernel.UserID(p.UserID),
		TenantID:    kernel.TenantID(p.TenantID),
		ERPUsername: p.ERPUsername.String,
		ERPSecret:   p.ERPSecret.String,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

const userTenantColumns = `id, user_id, tenant_id, erp_username, erp_password_or_token, is_active, created_at, updated_at`

// Create inserta una asociación; el par (usuario, tenant) es único.
func (r *userTenantRepository) Create(ctx context.Context, ut *tenancy.UserTenant) error {
	var id int64
	err := r.q.QueryRowxContext(ctx,
		`INSERT INTO user_tenants (user_id, tenant_id, erp_username, erp_password_or_token, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
		ut.UserID.Int64(), ut.TenantID.Int64(), nullString(ut.ERPUsername), nullString(ut.ERPSecret), ut.IsActive,
	).Scan(&id, &ut.CreatedAt, &ut.UpdatedAt)
	if err != nil {
		return translate(err, "failed to create user tenant association", missingParent)
	}
	ut.ID = kernel.UserTenantID(id)
	return nil
}

// Update sobrescribe credenciales cifradas y estado de una asociación.
func (r *userTenantRepository) Update(ctx context.Context, ut *tenancy.UserTenant) error {
	var id int64
	err := r.q.QueryRowxContext(ctx,
		`UPDATE user_tenants SET erp_username = $1, erp_password_or_token = $2, is_active = $3, updated_at = NOW()
		WHERE user_id = $4 AND tenant_id = $5 RETURNING id, updated_at`,
		nullString(ut.ERPUsername), nullString(ut.ERPSecret), ut.IsActive, ut.UserID.Int64(), ut.TenantID.Int64(),
	).Scan(&id, &ut.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tenancy.ErrAssociationNotFound()
		}
		return translate(err, "failed to update user tenant association", nil)
	}
	ut.ID = kernel.UserTenantID(id)
	return nil
}

// Find busca la asociación de un usuario con un tenant.
func (r *userTenantRepository) Find(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) (*tenancy.UserTenant, error) {
	var row userTenantRow
	query := `SELECT ` + userTenantColumns + ` FROM user_tenants WHERE user_id = $1 AND tenant_id = $2`
	if err := sqlx.GetContext(ctx, r.q, &row, query, userID.Int64(), tenantID.Int64()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenancy.ErrAssociationNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user tenant association", errx.TypeInternal)
	}
	return row.toDomain(), nil
}

// FindByUser devuelve todas las asociaciones de un usuario.
func (r *userTenantRepository) FindByUser(ctx context.Context, userID kernel.UserID) ([]*tenancy.UserTenant, error) {
	var rows []userTenantRow
	query := `SELECT ` + userTenantColumns + ` FROM user_tenants WHERE user_id = $1 ORDER BY tenant_id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, userID.Int64()); err != nil {
		return nil, errx.Wrap(err, "failed to find associations by user", errx.TypeInternal)
	}
	out := make([]*tenancy.UserTenant, len(rows))
	for i, p := range rows {
		out[i] = p.toDomain()
	}
	return out, nil
}

// Delete elimina la asociación de un usuario con un tenant.
func (r *userTenantRepository) Delete(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM user_tenants WHERE user_id = $1 AND tenant_id = $2`,
		userID.Int64(), tenantID.Int64())
	if err != nil {
		return translate(err, "failed to delete user tenant association", nil)
	}
	return affected(res, tenancy.ErrAssociationNotFound)
}

// DeleteByTenant elimina todas las asociaciones de un tenant.
func (r *userTenantRepository) DeleteByTenant(ctx context.Context, tenantID kernel.TenantID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM user_tenants WHERE tenant_id = $1`, tenantID.Int64()); err != nil {
		return errx.Wrap(err, "failed to delete associations by tenant", errx.TypeInternal)
	}
	return nil
}

// DeleteByUser elimina todas las asociaciones de un usuario.
func (r *userTenantRepository) DeleteByUser(ctx context.Context, userID kernel.UserID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM user_tenants WHERE user_id = $1`, userID.Int64()); err != nil {
		return errx.Wrap(err, "failed to delete associations by user", errx.TypeInternal)
	}
	return nil
}

// missingParent distingue cuál de las dos claves foráneas de user_tenants falló.
func missingParent(constraint string) *errx.Error {
	if strings.Contains(constraint, "user_id") {
		return tenancy.ErrUserNotFound()
	}
	return tenancy.ErrTenantNotFound()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
