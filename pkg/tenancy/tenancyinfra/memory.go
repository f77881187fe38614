package tenancyinfra

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
)

// MemoryStore keeps the directory in process memory with the same uniqueness
// and cascade rules as the SQL schema. Transactions are serialized and work
// on a private copy that replaces the shared state only on commit.
type MemoryStore struct {
	mu  sync.Mutex
	st  *memState
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory directory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState(), now: func() time.Time { return time.Now().UTC() }}
}

type memState struct {
	tenantSeq, domainSeq, userSeq, utSeq int64

	tenants     map[kernel.TenantID]tenancy.Tenant
	domains     map[kernel.DomainID]tenancy.TenantDomain
	users       map[kernel.UserID]tenancy.User
	userTenants map[kernel.UserTenantID]tenancy.UserTenant
}

func newMemState() *memState {
	return &memState{
		tenants:     map[kernel.TenantID]tenancy.Tenant{},
		domains:     map[kernel.DomainID]tenancy.TenantDomain{},
		users:       map[kernel.UserID]tenancy.User{},
		userTenants: map[kernel.UserTenantID]tenancy.UserTenant{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		tenantSeq:   s.tenantSeq,
		domainSeq:   s.domainSeq,
		userSeq:     s.userSeq,
		utSeq:       s.utSeq,
		tenants:     make(map[kernel.TenantID]tenancy.Tenant, len(s.tenants)),
		domains:     make(map[kernel.DomainID]tenancy.TenantDomain, len(s.domains)),
		users:       make(map[kernel.UserID]tenancy.User, len(s.users)),
		userTenants: make(map[kernel.UserTenantID]tenancy.UserTenant, len(s.userTenants)),
	}
	for k, v := range s.tenants {
		c.tenants[k] = v
	}
	for k, v := range s.domains {
		c.domains[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.userTenants {
		c.userTenants[k] = v
	}
	return c
}

// memView binds the repositories to either the shared state (taking the
// store lock per call) or a transaction's private copy.
type memView struct {
	lock  sync.Locker
	state func() *memState
	now   func() time.Time
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

func (v *memView) Tenants() tenancy.TenantRepository         { return memTenants{v} }
func (v *memView) Domains() tenancy.DomainRepository         { return memDomains{v} }
func (v *memView) Users() tenancy.UserRepository             { return memUsers{v} }
func (v *memView) UserTenants() tenancy.UserTenantRepository { return memUserTenants{v} }

func (s *MemoryStore) shared() *memView {
	return &memView{lock: &s.mu, state: func() *memState { return s.st }, now: s.now}
}

func (s *MemoryStore) Tenants() tenancy.TenantRepository         { return s.shared().Tenants() }
func (s *MemoryStore) Domains() tenancy.DomainRepository         { return s.shared().Domains() }
func (s *MemoryStore) Users() tenancy.UserRepository             { return s.shared().Users() }
func (s *MemoryStore) UserTenants() tenancy.UserTenantRepository { return s.shared().UserTenants() }

// WithinTx runs fn on a private copy of the state and publishes it only when
// fn returns nil. fn must use the repositories it is given.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos tenancy.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errx.Wrap(err, "transaction aborted", errx.TypeInternal)
	}

	work := s.st.clone()
	view := &memView{lock: noopLocker{}, state: func() *memState { return work }, now: s.now}
	if err := fn(ctx, view); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// ============================================================================
// Tenants
// ============================================================================

type memTenants struct{ v *memView }

func (r memTenants) Create(_ context.Context, t *tenancy.Tenant) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	st.tenantSeq++
	now := r.v.now()
	t.ID = kernel.TenantID(st.tenantSeq)
	t.CreatedAt, t.UpdatedAt = now, now
	st.tenants[t.ID] = *t
	return nil
}

func (r memTenants) Update(_ context.Context, t *tenancy.Tenant) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	cur, ok := st.tenants[t.ID]
	if !ok {
		return tenancy.ErrTenantNotFound().WithDetail("tenant_id", t.ID.String())
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = r.v.now()
	st.tenants[t.ID] = *t
	return nil
}

func (r memTenants) Delete(_ context.Context, id kernel.TenantID) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	if _, ok := st.tenants[id]; !ok {
		return tenancy.ErrTenantNotFound()
	}
	delete(st.tenants, id)
	for k, d := range st.domains {
		if d.TenantID == id {
			delete(st.domains, k)
		}
	}
	for k, ut := range st.userTenants {
		if ut.TenantID == id {
			delete(st.userTenants, k)
		}
	}
	return nil
}

func (r memTenants) FindByID(_ context.Context, id kernel.TenantID) (*tenancy.Tenant, error) {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	t, ok := r.v.state().tenants[id]
	if !ok {
		return nil, tenancy.ErrTenantNotFound().WithDetail("tenant_id", id.String())
	}
	return &t, nil
}

func (r memTenants) FindByIDs(_ context.Context, ids []kernel.TenantID) ([]*tenancy.Tenant, error) {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	out := []*tenancy.Tenant{}
	seen := map[kernel.TenantID]bool{}
	for _, id := range ids {
		if t, ok := st.tenants[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, &t)
		}
	}
	sortTenants(out)
	return out, nil
}

func (r memTenants) List(_ context.Context, opts kernel.PaginationOptions) (kernel.Paginated[*tenancy.Tenant], error) {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	opts = opts.Normalize()

	all := make([]*tenancy.Tenant, 0, len(r.v.state().tenants))
	for _, t := range r.v.state().tenants {
		t := t
		all = append(all, &t)
	}
	sortTenants(all)

	start := min(opts.Offset(), len(all))
	end := min(start+opts.PageSize, len(all))
	return kernel.NewPaginated(all[start:end], opts.Page, opts.PageSize, len(all)), nil
}

func (r memTenants) FindActiveByDomain(_ context.Context, domain string) ([]*tenancy.Tenant, error) {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	out := []*tenancy.Tenant{}
	for _, d := range st.domains {
		if d.Domain != domain {
			continue
		}
		if t, ok := st.tenants[d.TenantID]; ok && t.IsActive {
			out = append(out, &t)
		}
	}
	sortTenants(out)
	return out, nil
}

func sortTenants(ts []*tenancy.Tenant) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
}

// ============================================================================
// Domains
// ============================================================================

type memDomains struct{ v *memView }

func (r memDomains) Create(_ context.Context, d *tenancy.TenantDomain) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	if _, ok := st.tenants[d.TenantID]; !ok {
		return tenancy.ErrTenantNotFound().WithDetail("tenant_id", d.TenantID.String())
	}
	for _, cur := range st.domains {
		if cur.TenantID == d.TenantID && cur.Domain == d.Domain {
			return tenancy.ErrConflict("tenant_domain")
		}
	}
	st.domainSeq++
	d.ID = kernel.DomainID(st.domainSeq)
	d.CreatedAt = r.v.now()
	st.domains[d.ID] = *d
	return nil
}

func (r memDomains) Delete(_ context.Context, id kernel.DomainID) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	if _, ok := st.domains[id]; !ok {
		return tenancy.ErrDomainNotFound()
	}
	delete(st.domains, id)
	return nil
}

func (r memDomains) FindByDomain(_ context.Context, domain string) ([]*tenancy.TenantDomain, error) {
	return r.filter(func(d tenancy.TenantDomain) bool { return d.Domain == domain }), nil
}

func (r memDomains) FindByTenant(_ context.Context, tenantID kernel.TenantID) ([]*tenancy.TenantDomain, error) {
	out := r.filter(func(d tenancy.TenantDomain) bool { return d.TenantID == tenantID })
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (r memDomains) DeleteByTenant(_ context.Context, tenantID kernel.TenantID) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	for k, d := range st.domains {
		if d.TenantID == tenantID {
			delete(st.domains, k)
		}
	}
	return nil
}

func (r memDomains) filter(keep func(tenancy.TenantDomain) bool) []*tenancy.TenantDomain {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	out := []*tenancy.TenantDomain{}
	for _, d := range r.v.state().domains {
		d := d
		if keep(d) {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out
}

// ============================================================================
// Users
// ============================================================================

type memUsers struct{ v *memView }

func (r memUsers) Create(_ context.Context, u *tenancy.User) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	for _, cur := range st.users {
		if cur.Email == u.Email {
			return tenancy.ErrConflict("email")
		}
	}
	st.userSeq++
	now := r.v.now()
	u.ID = kernel.UserID(st.userSeq)
	u.CreatedAt, u.UpdatedAt = now, now
	st.users[u.ID] = *u
	return nil
}

func (r memUsers) Update(_ context.Context, u *tenancy.User) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	cur, ok := st.users[u.ID]
	if !ok {
		return tenancy.ErrUserNotFound()
	}
	cur.DisplayName, cur.Role, cur.IsActive = u.DisplayName, u.Role, u.IsActive
	cur.UpdatedAt = r.v.now()
	st.users[u.ID] = cur
	*u = cur
	return nil
}

func (r memUsers) Delete(_ context.Context, id kernel.UserID) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	if _, ok := st.users[id]; !ok {
		return tenancy.ErrUserNotFound()
	}
	delete(st.users, id)
	for k, ut := range st.userTenants {
		if ut.UserID == id {
			delete(st.userTenants, k)
		}
	}
	return nil
}

func (r memUsers) FindByID(_ context.Context, id kernel.UserID) (*tenancy.User, error) {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	u, ok := r.v.state().users[id]
	if !ok {
		return nil, tenancy.ErrUserNotFound()
	}
	return &u, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*tenancy.User, error) {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	for _, u := range r.v.state().users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, tenancy.ErrUserNotFound()
}

// ============================================================================
// User tenants
// ============================================================================

type memUserTenants struct{ v *memView }

func (r memUserTenants) Create(_ context.Context, ut *tenancy.UserTenant) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	if _, ok := st.users[ut.UserID]; !ok {
		return tenancy.ErrUserNotFound()
	}
	if _, ok := st.tenants[ut.TenantID]; !ok {
		return tenancy.ErrTenantNotFound()
	}
	if _, ok := st.find(ut.UserID, ut.TenantID); ok {
		return tenancy.ErrConflict("user_tenant")
	}
	st.utSeq++
	now := r.v.now()
	ut.ID = kernel.UserTenantID(st.utSeq)
	ut.CreatedAt, ut.UpdatedAt = now, now
	st.userTenants[ut.ID] = *ut
	return nil
}

func (r memUserTenants) Update(_ context.Context, ut *tenancy.UserTenant) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	cur, ok := st.find(ut.UserID, ut.TenantID)
	if !ok {
		return tenancy.ErrAssociationNotFound()
	}
	cur.ERPUsername, cur.ERPSecret, cur.IsActive = ut.ERPUsername, ut.ERPSecret, ut.IsActive
	cur.UpdatedAt = r.v.now()
	st.userTenants[cur.ID] = cur
	*ut = cur
	return nil
}

func (r memUserTenants) Find(_ context.Context, userID kernel.UserID, tenantID kernel.TenantID) (*tenancy.UserTenant, error) {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	ut, ok := r.v.state().find(userID, tenantID)
	if !ok {
		return nil, tenancy.ErrAssociationNotFound()
	}
	return &ut, nil
}

func (r memUserTenants) FindByUser(_ context.Context, userID kernel.UserID) ([]*tenancy.UserTenant, error) {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	out := []*tenancy.UserTenant{}
	for _, ut := range r.v.state().userTenants {
		ut := ut
		if ut.UserID == userID {
			out = append(out, &ut)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

func (r memUserTenants) Delete(_ context.Context, userID kernel.UserID, tenantID kernel.TenantID) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	cur, ok := st.find(userID, tenantID)
	if !ok {
		return tenancy.ErrAssociationNotFound()
	}
	delete(st.userTenants, cur.ID)
	return nil
}

func (r memUserTenants) DeleteByTenant(_ context.Context, tenantID kernel.TenantID) error {
	return r.deleteWhere(func(ut tenancy.UserTenant) bool { return ut.TenantID == tenantID })
}

func (r memUserTenants) DeleteByUser(_ context.Context, userID kernel.UserID) error {
	return r.deleteWhere(func(ut tenancy.UserTenant) bool { return ut.UserID == userID })
}

func (r memUserTenants) deleteWhere(match func(tenancy.UserTenant) bool) error {
	r.v.lock.Lock()
	defer r.v.lock.Unlock()
	st := r.v.state()

	for k, ut := range st.userTenants {
		if match(ut) {
			delete(st.userTenants, k)
		}
	}
	return nil
}

func (s *memState) find(userID kernel.UserID, tenantID kernel.TenantID) (tenancy.UserTenant, bool) {
	for _, ut := range s.userTenants {
		if ut.UserID == userID && ut.TenantID == tenantID {
			return ut, true
		}
	}
	return tenancy.UserTenant{}, false
}
