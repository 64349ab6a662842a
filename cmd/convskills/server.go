package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/convskills/api/handlers"
	"github.com/BaSui01/convskills/assets"
	"github.com/BaSui01/convskills/config"
	"github.com/BaSui01/convskills/internal/cache"
	"github.com/BaSui01/convskills/internal/metrics"
	"github.com/BaSui01/convskills/internal/server"
	"github.com/BaSui01/convskills/internal/telemetry"
	"github.com/BaSui01/convskills/internal/tlsutil"
	"github.com/BaSui01/convskills/locale"
	"github.com/BaSui01/convskills/oms"
	"github.com/BaSui01/convskills/skill"
	"github.com/BaSui01/convskills/skills"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是技能提供者的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	otel     *telemetry.Providers
	registry *prometheus.Registry
	metrics  *metrics.Collector

	strings *locale.FSProvider
	watcher *locale.Watcher
	cache   *cache.Manager

	dispatcher    *skill.Dispatcher
	healthHandler *handlers.HealthHandler
	skillsHandler *handlers.SkillsHandler

	handler http.Handler
}

// NewServer 按配置组装全部组件，不监听任何端口。
// ctx 控制后台任务（限流清理、字符串目录监听）的生命周期。
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	// 1. 遥测（失败时降级为 noop）
	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, telemetry.Service{
		Version:    Version,
		ProviderID: cfg.SkillProvider.ProviderID,
	}, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.otel = otelProviders

	// 2. 指标
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = metrics.NewCollectorWithRegisterer("convskills", s.registry, logger)

	// 3. 组件
	if err := s.initStrings(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to init strings: %w", err)
	}
	if err := s.initCache(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}
	if err := s.initSkills(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to init skills: %w", err)
	}

	s.initHandlers()
	s.handler = s.buildRouter(ctx)
	return s, nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initStrings 使用配置目录或内置字符串
func (s *Server) initStrings(ctx context.Context) error {
	lc := s.cfg.Locale

	var fsys fs.FS = assets.I18n()
	if lc.Dir != "" {
		fsys = os.DirFS(lc.Dir)
	}
	s.strings = locale.NewFSProvider(fsys, lc.DefaultLanguage, s.logger)

	if lc.Dir == "" || lc.WatchInterval <= 0 {
		return nil
	}

	w, err := locale.NewWatcher(lc.Dir,
		locale.WithPollInterval(lc.WatchInterval),
		locale.WithWatcherLogger(s.logger))
	if err != nil {
		return err
	}
	w.OnChange(func(events []locale.FileEvent) {
		s.logger.Info("skill strings changed", zap.Int("files", len(events)))
		s.strings.Reset()
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// initCache 连接 Redis；未启用时 OMS 服务直接回源
func (s *Server) initCache() error {
	rc := s.cfg.Redis
	if !rc.Enabled {
		s.logger.Info("redis cache disabled")
		return nil
	}

	cc := cache.DefaultConfig()
	cc.Addr = rc.Addr
	cc.Password = rc.Password
	cc.DB = rc.DB
	cc.PoolSize = rc.PoolSize
	cc.MinIdleConns = rc.MinIdleConns
	cc.KeyPrefix = rc.KeyPrefix
	cc.DefaultTTL = s.cfg.OMSClient.CacheTTL

	m, err := cache.NewManager(cc, s.logger)
	if err != nil {
		return err
	}
	m.SetStats(s.metrics)
	s.cache = m
	return nil
}

// initSkills 组装 OMS 服务、技能注册表与调度器
func (s *Server) initSkills() error {
	oc := s.cfg.OMSClient
	client := oms.NewHTTPClient(oms.Config{
		Endpoint:     oc.Endpoint,
		Timeout:      oc.Timeout,
		MaxIdleConns: oc.MaxIdleConns,
	}, s.logger, oms.WithRequestObserver(s.metrics))

	var svcOpts []oms.ServiceOption
	if s.cache != nil {
		svcOpts = append(svcOpts, oms.WithCache(s.cache, oc.CacheTTL))
	}
	svc := oms.NewService(client, nil, s.logger, svcOpts...)

	registry := skill.NewRegistry(s.logger)
	if err := skills.Register(registry, svc); err != nil {
		return err
	}

	pc := s.cfg.SkillProvider
	infos := make([]skill.SkillInfo, 0, len(pc.ConversationalSkills))
	for _, sc := range pc.ConversationalSkills {
		if _, ok := registry.Lookup(sc.ID); !ok {
			return fmt.Errorf("configured skill %q is not implemented", sc.ID)
		}
		infos = append(infos, skill.SkillInfo{
			ID:          sc.ID,
			Name:        sc.Name,
			Description: sc.Description,
			Metadata:    sc.Metadata,
		})
	}

	factory := skill.NewFactory(s.strings, s.logger,
		skill.WithContextVariablesPath(pc.ContextVariablesPath))
	s.dispatcher = skill.NewDispatcher(pc.ProviderID, infos, registry, factory, s.logger,
		skill.WithObserver(s.metrics))

	s.logger.Info("skills registered",
		zap.String("provider_id", pc.ProviderID),
		zap.Int("exposed", len(infos)),
		zap.Strings("implemented", registry.IDs()))
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.cache != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("redis", s.cache.Ping))
	}
	s.skillsHandler = handlers.NewSkillsHandler(s.dispatcher, s.logger)
}

// =============================================================================
// 🌐 路由
// =============================================================================

// buildRouter 构建 API 路由与中间件链。健康检查与版本端点不经过认证。
func (s *Server) buildRouter(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		OTelTracing(s.logger),
		MetricsMiddleware(s.metrics),
	)

	// 健康检查端点
	r.Get("/health", s.healthHandler.HandleHealth)
	r.Get("/healthz", s.healthHandler.HandleHealthz)
	r.Get("/health/alive", s.healthHandler.HandleHealthz)
	r.Get("/ready", s.healthHandler.HandleReady)
	r.Get("/readyz", s.healthHandler.HandleReady)
	r.Get("/health/ready", s.healthHandler.HandleReady)
	r.Get("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 技能 API
	r.Group(func(r chi.Router) {
		sc := s.cfg.Server
		if sc.RateLimitRPS > 0 {
			r.Use(RateLimiter(ctx, sc.RateLimitRPS, sc.RateLimitBurst, s.logger))
		}
		if sc.SecurityDisabled {
			s.logger.Warn("provider authentication disabled")
		} else {
			r.Use(ProviderAuth(s.cfg.SkillProvider.Security, s.logger))
		}
		s.skillsHandler.Routes(r)
	})

	return r
}

// Handler 返回 API 处理器
func (s *Server) Handler() http.Handler { return s.handler }

// MetricsHandler 返回 Prometheus 抓取端点
func (s *Server) MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	return mux
}

// =============================================================================
// 🚀 运行与关闭
// =============================================================================

// Run 监听 API 与 metrics 端口，阻塞到 ctx 结束或某个服务器异常退出
func (s *Server) Run(ctx context.Context) error {
	sc := s.cfg.Server

	apiConfig := server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", sc.HTTPPort),
		ReadTimeout:     sc.ReadTimeout,
		WriteTimeout:    sc.WriteTimeout,
		IdleTimeout:     2 * sc.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: sc.ShutdownTimeout,
	}
	if sc.HTTPS() {
		tlsConfig, err := tlsutil.ServerTLSConfig(sc.TLSCertFile, sc.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		apiConfig.TLS = tlsConfig
	}

	managers := []*server.Manager{server.NewManager(s.handler, apiConfig, s.logger)}
	if sc.MetricsPort > 0 {
		managers = append(managers, server.NewManager(s.MetricsHandler(), server.Config{
			Name:            "metrics",
			Addr:            fmt.Sprintf(":%d", sc.MetricsPort),
			ReadTimeout:     sc.ReadTimeout,
			WriteTimeout:    sc.WriteTimeout,
			ShutdownTimeout: sc.ShutdownTimeout,
		}, s.logger))
	}

	s.logger.Info("serving",
		zap.Int("http_port", sc.HTTPPort),
		zap.Int("metrics_port", sc.MetricsPort),
		zap.Bool("https", sc.HTTPS()),
		zap.String("domain", sc.Domain))

	return server.NewGroup(s.logger, managers...).Run(ctx)
}

// Close 释放后台资源，可在部分初始化后调用
func (s *Server) Close() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("cache close error", zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.otel.Shutdown(ctx); err != nil {
		s.logger.Error("telemetry shutdown error", zap.Error(err))
	}
}
