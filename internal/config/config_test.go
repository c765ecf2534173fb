package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPoolJSON = `{
	"userPoolId": "eu-west-1_testpool",
	"clientId": "client-123",
	"region": "eu-west-1",
	"hostedDomain": "auth.test.example.org",
	"redirectUri": "https://test.example.org/callback",
	"loginUrl": "https://auth.test.example.org/login",
	"botCheckSiteKey": "site-key"
}`

func writePoolConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writePoolConfig(t, validPoolJSON)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "devpool", cfg.DirectoryProvider)
	assert.Equal(t, "confirm_registration", cfg.VerifyMode)
	assert.Equal(t, "dev", cfg.BotCheckProvider)
	assert.Equal(t, 5*time.Second, cfg.HandoffDelay)
	assert.Equal(t, 3*time.Second, cfg.RedirectDelay)
	assert.Equal(t, 5*time.Minute, cfg.CodeTTL)
	assert.Equal(t, "eu-west-1_testpool", cfg.Pool.UserPoolID)
	assert.Equal(t, "https://auth.test.example.org/login", cfg.Pool.LoginURL)
}

func TestLoad_MissingPoolKey(t *testing.T) {
	path := writePoolConfig(t, `{
		"userPoolId": "eu-west-1_testpool",
		"clientId": "client-123",
		"region": "eu-west-1",
		"hostedDomain": "auth.test.example.org",
		"redirectUri": "https://test.example.org/callback",
		"botCheckSiteKey": "site-key"
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing or invalid")
}

func TestLoad_PoolConfigFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoad_InvalidVerifyMode(t *testing.T) {
	path := writePoolConfig(t, validPoolJSON)
	t.Setenv("VERIFY_MODE", "magic")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VERIFY_MODE")
}

func TestLoad_CognitoRejectsAttributeMode(t *testing.T) {
	path := writePoolConfig(t, validPoolJSON)
	t.Setenv("DIRECTORY_PROVIDER", "cognito")
	t.Setenv("VERIFY_MODE", "verify_attribute")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify_attribute")
}

func TestLoad_HTTPBotCheckNeedsEndpoint(t *testing.T) {
	path := writePoolConfig(t, validPoolJSON)
	t.Setenv("BOT_CHECK_PROVIDER", "http")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_CHECK_ENDPOINT")
}

func TestLoad_ProdRejectsDefaults(t *testing.T) {
	path := writePoolConfig(t, validPoolJSON)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CODE_PEPPER")

	t.Setenv("CODE_PEPPER", "a-real-pepper-value")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret-32-characters-long")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_CHECK_PROVIDER")

	t.Setenv("BOT_CHECK_PROVIDER", "http")
	t.Setenv("BOT_CHECK_ENDPOINT", "https://botcheck.example.org/verify")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.AppEnv)
}
