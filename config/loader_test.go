// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  http_port: 8888
  read_timeout: 60s
skill_provider:
  provider_id: oms-provider
  security:
    authentication_method: basic
    basic:
      username: skills
      password: TEST_CONVSKILLS_BASIC_PASSWORD
  conversational_skills:
    - id: lookup-order
      name: Look up order
      description: Find an order
      metadata:
        owner: TEST_CONVSKILLS_OWNER
        tags: [oms, TEST_CONVSKILLS_OWNER]
    - id: cancel-order
      name: Cancel order
oms_client:
  endpoint: https://oms.example.com/smcfs
  cache_ttl: 5m
redis:
  enabled: true
  addr: "redis.example.com:6379"
  db: 1
log:
  level: "debug"
  format: "console"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "provider.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3000, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Server.HTTPS())

	assert.Equal(t, AuthNone, cfg.SkillProvider.Security.AuthenticationMethod)
	assert.Equal(t, "integrations.chat.OMS", cfg.SkillProvider.ContextVariablesPath)

	assert.Equal(t, 10*time.Minute, cfg.OMSClient.CacheTTL)
	assert.Equal(t, "en", cfg.Locale.DefaultLanguage)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "convskills", cfg.Telemetry.ServiceName)
}

// --- Loader 测试 ---

func TestLoader_LoadFromYAML(t *testing.T) {
	t.Setenv("TEST_CONVSKILLS_BASIC_PASSWORD", "s3cret")
	t.Setenv("TEST_CONVSKILLS_OWNER", "orders-team")

	cfg, err := NewLoader().
		WithConfigPath(writeConfig(t, validYAML)).
		WithValidator((*Config).Validate).
		Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "defaults survive partial sections")

	sp := cfg.SkillProvider
	assert.Equal(t, "oms-provider", sp.ProviderID)
	assert.Equal(t, AuthBasic, sp.Security.AuthenticationMethod)
	assert.Equal(t, "s3cret", sp.Security.Basic.Password, "env var names are revived")
	require.Len(t, sp.ConversationalSkills, 2)
	assert.Equal(t, "lookup-order", sp.ConversationalSkills[0].ID)
	assert.Equal(t, "orders-team", sp.ConversationalSkills[0].Metadata["owner"])
	assert.Equal(t, []any{"oms", "orders-team"}, sp.ConversationalSkills[0].Metadata["tags"])
	assert.Nil(t, sp.ConversationalSkills[1].Metadata)

	assert.Equal(t, 5*time.Minute, cfg.OMSClient.CacheTTL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_UnsetEnvNameKeptVerbatim(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(writeConfig(t, validYAML)).Load()
	require.NoError(t, err)
	assert.Equal(t, "TEST_CONVSKILLS_BASIC_PASSWORD", cfg.SkillProvider.Security.Basic.Password)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	t.Setenv("CONVSKILLS_SERVER_HTTP_PORT", "9999")
	t.Setenv("CONVSKILLS_SERVER_SECURITY_DISABLED", "true")
	t.Setenv("CONVSKILLS_SKILL_PROVIDER_PROVIDER_ID", "env-provider")
	t.Setenv("CONVSKILLS_SKILL_PROVIDER_SECURITY_BASIC_PASSWORD", "from-env")
	t.Setenv("CONVSKILLS_OMS_CLIENT_TIMEOUT", "3s")
	t.Setenv("CONVSKILLS_LOG_OUTPUT_PATHS", "stdout, /var/log/convskills.log")

	cfg, err := NewLoader().WithConfigPath(writeConfig(t, validYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.True(t, cfg.Server.SecurityDisabled)
	assert.Equal(t, "env-provider", cfg.SkillProvider.ProviderID)
	assert.Equal(t, "from-env", cfg.SkillProvider.Security.Basic.Password)
	assert.Equal(t, 3*time.Second, cfg.OMSClient.Timeout)
	assert.Equal(t, []string{"stdout", "/var/log/convskills.log"}, cfg.Log.OutputPaths)
	// YAML 值保留
	assert.Equal(t, "https://oms.example.com/smcfs", cfg.OMSClient.Endpoint)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_BadEnvValue(t *testing.T) {
	t.Setenv("CONVSKILLS_SERVER_HTTP_PORT", "not-a-port")
	_, err := NewLoader().Load()
	assert.ErrorContains(t, err, "CONVSKILLS_SERVER_HTTP_PORT")
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/non/existent/provider.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.HTTPPort)

	_, err = NewLoader().
		WithConfigPath("/non/existent/provider.yaml").
		WithValidator((*Config).Validate).
		Load()
	assert.Error(t, err, "defaults alone do not describe a provider")
}

func TestLoader_InvalidYAML(t *testing.T) {
	_, err := NewLoader().WithConfigPath(writeConfig(t, "server:\n  http_port: [invalid\n")).Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.OMSClient.Endpoint = "https://oms.example.com/smcfs"
	cfg.SkillProvider.ProviderID = "oms-provider"
	cfg.SkillProvider.ConversationalSkills = []SkillConfig{{ID: "lookup-order", Name: "Look up order"}}
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad endpoint", func(c *Config) { c.OMSClient.Endpoint = "not a url" }, "oms_client.endpoint"},
		{"missing endpoint", func(c *Config) { c.OMSClient.Endpoint = "" }, "oms_client.endpoint"},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 70000 }, "invalid HTTP port"},
		{"half tls", func(c *Config) { c.Server.TLSCertFile = "cert.pem" }, "tls_key_file"},
		{"full tls", func(c *Config) { c.Server.TLSCertFile, c.Server.TLSKeyFile = "c", "k" }, ""},
		{"empty provider", func(c *Config) { c.SkillProvider.ProviderID = "" }, "provider_id"},
		{"special provider", func(c *Config) { c.SkillProvider.ProviderID = "oms/provider" }, "provider_id"},
		{"no skills", func(c *Config) { c.SkillProvider.ConversationalSkills = nil }, "cannot be empty"},
		{"nameless skill", func(c *Config) {
			c.SkillProvider.ConversationalSkills = append(c.SkillProvider.ConversationalSkills, SkillConfig{ID: "x"})
		}, "#1(x)"},
		{"basic incomplete", func(c *Config) {
			c.SkillProvider.Security = SecurityConfig{AuthenticationMethod: AuthBasic, Basic: BasicAuthConfig{Username: "u"}}
		}, "basic authentication"},
		{"bearer jwt", func(c *Config) {
			c.SkillProvider.Security = SecurityConfig{AuthenticationMethod: AuthBearer, Bearer: BearerAuthConfig{JWTSecret: "k"}}
		}, ""},
		{"bearer missing", func(c *Config) {
			c.SkillProvider.Security = SecurityConfig{AuthenticationMethod: AuthBearer}
		}, "bearer authentication"},
		{"api key location", func(c *Config) {
			c.SkillProvider.Security = SecurityConfig{AuthenticationMethod: AuthAPIKey,
				APIKey: APIKeyConfig{Name: "x-api-key", In: "body", Value: "v"}}
		}, "api_key authentication"},
		{"api key ok", func(c *Config) {
			c.SkillProvider.Security = SecurityConfig{AuthenticationMethod: AuthAPIKey,
				APIKey: APIKeyConfig{Name: "key", In: "cookie", Value: "v"}}
		}, ""},
		{"unknown method", func(c *Config) { c.SkillProvider.Security.AuthenticationMethod = "oauth" }, "unknown authentication method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

// --- MustLoad 测试 ---

func TestMustLoad(t *testing.T) {
	path := writeConfig(t, validYAML)
	assert.NotPanics(t, func() {
		cfg := MustLoad(path)
		assert.Equal(t, 8888, cfg.Server.HTTPPort)
	})

	assert.Panics(t, func() {
		MustLoad(writeConfig(t, "invalid: [yaml"))
	})
}

func TestLoadFromEnv_Function(t *testing.T) {
	t.Setenv("CONVSKILLS_LOCALE_DEFAULT_LANGUAGE", "fr")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.Locale.DefaultLanguage)
}
