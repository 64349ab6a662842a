// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 ConvSkills 技能提供者的服务端程序入口。

# 概述

cmd/convskills 加载 YAML 配置（环境变量覆盖），组装 OMS 客户端、
技能注册表与调度器，并在 API 端口上暴露
/providers/{providerId}/conversational_skills 路由，在独立端口上
暴露 Prometheus /metrics。

# 核心类型

  - Server：按配置组装组件，Handler/MetricsHandler 返回路由，
    Run 通过 server.Group 监听两个端口直到收到 SIGINT/SIGTERM。
  - Middleware：func(http.Handler) http.Handler。

# 中间件

  - Recovery、RequestID（uuid）、SecurityHeaders、RequestLogger
  - OTelTracing：延续上游 W3C trace context
  - MetricsMiddleware：以 chi 路由模式作为 path 标签
  - RateLimiter：按客户端 IP 的令牌桶
  - ProviderAuth：按 skill_provider.security 校验 basic、bearer
    （静态令牌或 HS256 JWT）、api_key（header、query、cookie），
    失败时返回 401 {"err":"_ERR_NOT_AUTHENTICATED"}。健康检查端点不认证。

# 子命令

serve（--config、--env-prefix）、version、health（--addr）。
构建时通过 ldflags 注入 Version、BuildTime、GitCommit。
*/
package main
