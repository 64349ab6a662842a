// =============================================================================
// 📦 ConvSkills 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("provider.yaml").
//	    WithEnvPrefix("CONVSKILLS").
//	    WithValidator((*config.Config).Validate).
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
//
// YAML 中的字符串值若恰好是一个已设置的环境变量名，会被替换为该变量的值，
// 便于在配置文件中引用密钥（例如 `password: OMS_BASIC_PASSWORD`）。
// =============================================================================
package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是技能提供者的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// SkillProvider 技能提供者配置
	SkillProvider SkillProviderConfig `yaml:"skill_provider" env:"SKILL_PROVIDER"`

	// OMSClient 订单管理系统客户端配置
	OMSClient OMSClientConfig `yaml:"oms_client" env:"OMS_CLIENT"`

	// Locale 本地化字符串配置
	Locale LocaleConfig `yaml:"locale" env:"LOCALE"`

	// Redis 缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 对外地址
	Domain string `yaml:"domain" env:"DOMAIN"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// TLS 证书文件
	TLSCertFile string `yaml:"tls_cert_file" env:"TLS_CERT_FILE"`
	// TLS 私钥文件
	TLSKeyFile string `yaml:"tls_key_file" env:"TLS_KEY_FILE"`
	// 关闭提供者认证（仅用于本地开发）
	SecurityDisabled bool `yaml:"security_disabled" env:"SECURITY_DISABLED"`
	// 每个客户端 IP 的限流速率
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发容量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// HTTPS 报告是否配置了 TLS
func (s ServerConfig) HTTPS() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// 认证方式
const (
	AuthNone   = "none"
	AuthBasic  = "basic"
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
)

// SkillProviderConfig 技能提供者配置
type SkillProviderConfig struct {
	// 提供者 ID，出现在所有路由中
	ProviderID string `yaml:"provider_id" env:"PROVIDER_ID"`
	// 认证配置
	Security SecurityConfig `yaml:"security" env:"SECURITY"`
	// 对外公开的技能
	ConversationalSkills []SkillConfig `yaml:"conversational_skills" env:"-"`
	// 会话上下文中集成变量的路径
	ContextVariablesPath string `yaml:"context_variables_path" env:"CONTEXT_VARIABLES_PATH"`
}

// SkillConfig 单个技能的公开元数据
type SkillConfig struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Metadata    map[string]any `yaml:"metadata"`
}

// SecurityConfig 提供者认证配置
type SecurityConfig struct {
	// none | basic | bearer | api_key
	AuthenticationMethod string           `yaml:"authentication_method" env:"AUTHENTICATION_METHOD"`
	Basic                BasicAuthConfig  `yaml:"basic" env:"BASIC"`
	Bearer               BearerAuthConfig `yaml:"bearer" env:"BEARER"`
	APIKey               APIKeyConfig     `yaml:"api_key" env:"API_KEY"`
}

// BasicAuthConfig HTTP Basic 认证
type BasicAuthConfig struct {
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

// BearerAuthConfig Bearer 认证：静态令牌，或用 HMAC 密钥校验的 JWT
type BearerAuthConfig struct {
	Token     string `yaml:"token" env:"TOKEN"`
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"ISSUER"`
}

// APIKeyConfig API Key 认证
type APIKeyConfig struct {
	Name string `yaml:"name" env:"NAME"`
	// header | query | cookie
	In    string `yaml:"in" env:"IN"`
	Value string `yaml:"value" env:"VALUE"`
}

// OMSClientConfig 订单管理系统客户端配置
type OMSClientConfig struct {
	// REST 端点，例如 https://oms.example.com/smcfs
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 组织列表缓存时长
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
}

// LocaleConfig 本地化字符串配置
type LocaleConfig struct {
	// 字符串目录；为空时使用内置字符串
	Dir string `yaml:"dir" env:"DIR"`
	// 默认语言
	DefaultLanguage string `yaml:"default_language" env:"DEFAULT_LANGUAGE"`
	// 目录变更轮询间隔；0 表示不监听
	WatchInterval time.Duration `yaml:"watch_interval" env:"WATCH_INTERVAL"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用 OMS 结果缓存
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// 以明文 gRPC 连接 collector
	Insecure bool `yaml:"insecure" env:"INSECURE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "CONVSKILLS",
		lookupEnv:  os.LookupEnv,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if cfg.SkillProvider.Security.AuthenticationMethod == "" {
		cfg.SkillProvider.Security.AuthenticationMethod = AuthNone
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	l.reviveStrings(reflect.ValueOf(cfg).Elem())
	return nil
}

// reviveStrings 把恰好是环境变量名的字符串值替换为该变量的值
func (l *Loader) reviveStrings(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer:
		if !v.IsNil() {
			l.reviveStrings(v.Elem())
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(l.revive(v.String()))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			l.reviveStrings(v.Field(i))
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			if s, ok := elem.Interface().(string); ok && elem.Kind() == reflect.Interface {
				elem.Set(reflect.ValueOf(l.revive(s)))
				continue
			}
			if elem.Kind() == reflect.Interface && !elem.IsNil() {
				l.reviveStrings(elem.Elem())
				continue
			}
			l.reviveStrings(elem)
		}
	case reflect.Map:
		// map 元素不可寻址，取出后写回
		for _, key := range v.MapKeys() {
			elem := v.MapIndex(key)
			if elem.Kind() == reflect.Interface && !elem.IsNil() {
				elem = elem.Elem()
			}
			switch elem.Kind() {
			case reflect.String:
				v.SetMapIndex(key, reflect.ValueOf(l.revive(elem.String())))
			case reflect.Map, reflect.Slice:
				l.reviveStrings(elem)
			}
		}
	}
}

func (l *Loader) revive(s string) string {
	if s == "" {
		return s
	}
	if val, ok := l.lookupEnv(s); ok && val != "" {
		return val
	}
	return s
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := l.lookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载并验证配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

var providerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// OMS 客户端
	if u, err := url.Parse(c.OMSClient.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "oms_client.endpoint is not a valid URL")
	}

	// 服务器
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, "server.tls_cert_file and server.tls_key_file should both be specified")
	}

	// 提供者
	p := c.SkillProvider
	if !providerIDPattern.MatchString(p.ProviderID) {
		errs = append(errs, "skill_provider.provider_id is empty or contains special characters")
	}
	if len(p.ConversationalSkills) == 0 {
		errs = append(errs, "skill_provider.conversational_skills cannot be empty")
	} else {
		var invalid []string
		for i, s := range p.ConversationalSkills {
			if s.ID == "" || s.Name == "" {
				invalid = append(invalid, fmt.Sprintf("#%d(%s)", i, s.ID))
			}
		}
		if len(invalid) > 0 {
			errs = append(errs, "skill_provider.conversational_skills is invalid: "+strings.Join(invalid, ","))
		}
	}
	if err := p.Security.validate(); err != "" {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s SecurityConfig) validate() string {
	switch s.AuthenticationMethod {
	case "", AuthNone:
	case AuthBasic:
		if s.Basic.Username == "" || s.Basic.Password == "" {
			return "basic authentication not configured correctly"
		}
	case AuthBearer:
		if s.Bearer.Token == "" && s.Bearer.JWTSecret == "" {
			return "bearer authentication not configured correctly"
		}
	case AuthAPIKey:
		k := s.APIKey
		if k.Name == "" || k.Value == "" || (k.In != "header" && k.In != "query" && k.In != "cookie") {
			return "api_key authentication not configured correctly"
		}
	default:
		return fmt.Sprintf("unknown authentication method %q", s.AuthenticationMethod)
	}
	return ""
}
