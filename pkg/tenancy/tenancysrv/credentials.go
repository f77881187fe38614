package tenancysrv

import (
	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/tenancy"
)

// CredentialResolver decrypts the pair a downstream ERP call should use.
// User and admin credentials never substitute for each other.
type CredentialResolver struct {
	cipher tenancy.Cipher
}

func NewCredentialResolver(cipher tenancy.Cipher) *CredentialResolver {
	return &CredentialResolver{cipher: cipher}
}

// ForUser returns the association's credentials, or NO_STORED_CREDENTIALS
// when they are missing or no longer decrypt.
func (r *CredentialResolver) ForUser(ut *tenancy.UserTenant) (erp.Credentials, error) {
	if ut == nil || !ut.HasStoredCredentials() {
		return erp.Credentials{}, tenancy.ErrNoStoredCredentials()
	}
	creds, ok := r.open(ut.ERPUsername, ut.ERPSecret)
	if !ok {
		return erp.Credentials{}, tenancy.ErrNoStoredCredentials().WithDetail("reason", "undecryptable")
	}
	return creds, nil
}

// ForAdmin returns the tenant's admin pair, or ADMIN_CREDENTIALS_MISSING.
func (r *CredentialResolver) ForAdmin(t *tenancy.Tenant) (erp.Credentials, error) {
	if t == nil || !t.HasAdminCredentials() {
		return erp.Credentials{}, tenancy.ErrAdminCredentialsMissing()
	}
	creds, ok := r.open(t.ERPAdminUsername, t.ERPAdminSecret)
	if !ok {
		return erp.Credentials{}, tenancy.ErrAdminCredentialsMissing().WithDetail("reason", "undecryptable")
	}
	return creds, nil
}

// Seal encrypts a validated pair for storage.
func (r *CredentialResolver) Seal(creds erp.Credentials) (username, secret string, err error) {
	if username, err = r.cipher.Encrypt(creds.Username); err != nil {
		return "", "", err
	}
	if secret, err = r.cipher.Encrypt(creds.Secret); err != nil {
		return "", "", err
	}
	return username, secret, nil
}

func (r *CredentialResolver) open(encUser, encSecret string) (erp.Credentials, bool) {
	user, ok := r.cipher.Decrypt(encUser)
	if !ok {
		return erp.Credentials{}, false
	}
	secret, ok := r.cipher.Decrypt(encSecret)
	if !ok {
		return erp.Credentials{}, false
	}
	creds := erp.Credentials{Username: user, Secret: secret}
	return creds, !creds.IsEmpty()
}
