// =============================================================================
// 📦 ConvSkills 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:        DefaultServerConfig(),
		SkillProvider: DefaultSkillProviderConfig(),
		OMSClient:     DefaultOMSClientConfig(),
		Locale:        DefaultLocaleConfig(),
		Redis:         DefaultRedisConfig(),
		Log:           DefaultLogConfig(),
		Telemetry:     DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        3000,
		MetricsPort:     9091,
		Domain:          "http://localhost:3000",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultSkillProviderConfig 返回默认提供者配置
func DefaultSkillProviderConfig() SkillProviderConfig {
	return SkillProviderConfig{
		Security:             SecurityConfig{AuthenticationMethod: AuthNone},
		ContextVariablesPath: "integrations.chat.OMS",
	}
}

// DefaultOMSClientConfig 返回默认 OMS 客户端配置
func DefaultOMSClientConfig() OMSClientConfig {
	return OMSClientConfig{
		Timeout:      30 * time.Second,
		CacheTTL:     10 * time.Minute,
		MaxIdleConns: 20,
	}
}

// DefaultLocaleConfig 返回默认本地化配置
func DefaultLocaleConfig() LocaleConfig {
	return LocaleConfig{
		DefaultLanguage: "en",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "convskills:",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "convskills",
		SampleRate:   0.1,
		Insecure:     true,
	}
}
