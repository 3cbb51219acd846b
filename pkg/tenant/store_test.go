package tenant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"softphone-governor/pkg/models"
)

const tenantsYAML = `
beta:
  authenticationId: "200"
  registerPassword: pw2
  hostUri: sip.beta.example
alpha:
  authenticationId: "100"
  registerPassword: pw1
  hostUri:
    domainHost: sip.alpha.example
    domainPort: 5060
  settings:
    language: en-US
`

func writeTenants(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	store, err := LoadFile(writeTenants(t, tenantsYAML))
	require.NoError(t, err)

	assert.Equal(t, 2, store.Count())
	assert.Equal(t, []string{"alpha", "beta"}, store.IDs())

	alpha, ok := store.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "100", alpha.AuthenticationID)
	require.NotNil(t, alpha.HostURI)
	assert.Equal(t, "sip.alpha.example:5060", alpha.HostURI.String())
	require.NotNil(t, alpha.Settings)
	assert.Equal(t, "en-US", alpha.Settings.Language)

	beta, ok := store.Get("beta")
	require.True(t, ok)
	assert.Equal(t, "sip.beta.example", beta.HostURI.String())
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeTenants(t, "alpha: [unclosed"))
	assert.Error(t, err)
}

func TestStore_SetAndAdvise(t *testing.T) {
	store := NewStore()
	assert.Empty(t, store.Advise("+15550001"))

	store.Set("zeta", models.SoftphoneConfig{AuthenticationID: "z"})
	store.Set("eta", models.SoftphoneConfig{AuthenticationID: "e"})

	assert.Equal(t, []string{"eta"}, store.Advise("+15550001"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}
