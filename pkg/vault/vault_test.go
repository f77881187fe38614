package vault_test

import (
	"strings"
	"testing"

	"github.com/Abraxas-365/filesmile/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVault(t *testing.T, master string) *vault.Vault {
	t.Helper()
	v, err := vault.New(master)
	require.NoError(t, err)
	return v
}

func TestVault_RoundTrip(t *testing.T) {
	v := newVault(t, "master-secret")

	for _, p := range []string{"hunter2", "ñandú con tildes", strings.Repeat("x", 4096), " "} {
		ct, err := v.Encrypt(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, ct)

		got, ok := v.Decrypt(ct)
		require.True(t, ok)
		assert.Equal(t, p, got)
	}
}

func TestVault_EmptyIsNotEncrypted(t *testing.T) {
	v := newVault(t, "master-secret")

	ct, err := v.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", ct)

	_, ok := v.Decrypt("")
	assert.False(t, ok)
}

func TestVault_SameMasterDerivesSameKey(t *testing.T) {
	ct, err := newVault(t, "shared").Encrypt("secret")
	require.NoError(t, err)

	got, ok := newVault(t, "shared").Decrypt(ct)
	require.True(t, ok)
	assert.Equal(t, "secret", got)
}

func TestVault_WrongKeyOrCorruptReturnsNoValue(t *testing.T) {
	ct, err := newVault(t, "key-a").Encrypt("secret")
	require.NoError(t, err)

	_, ok := newVault(t, "key-b").Decrypt(ct)
	assert.False(t, ok)

	v := newVault(t, "key-a")
	tampered := []byte(ct)
	tampered[len(tampered)/2] ^= 0x01
	for _, bad := range []string{string(tampered), "not-a-token", ct[:10], ct + "AAAA", ct + "\n", " " + ct} {
		_, ok := v.Decrypt(bad)
		assert.False(t, ok, "expected no value for %q", bad)
	}
}

func TestNew_RejectsEmptyMaster(t *testing.T) {
	_, err := vault.New("")
	assert.Error(t, err)
}
