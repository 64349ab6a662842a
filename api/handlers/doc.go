// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 conversational skill provider HTTP API 的请求处理器实现。

# 概述

handlers 包实现 provider 暴露给对话编排方的全部端点：skill 列表、
skill 详情、单 turn 编排，以及健康检查和统一的错误响应。
路由基于 chi，路径参数为 providerId 与 skillId。

# 核心类型

  - SkillsHandler    — /providers/{providerId}/conversational_skills 下的三个端点
  - SkillService     — handler 依赖的调度接口，由 *skill.Dispatcher 实现
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 错误/成功结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、skill_id
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码和字节数
  - HealthCheck      — 可插拔健康检查接口，PingHealthCheck 为通用实现

# 主要能力

  - orchestrate 原样返回 turn 输出（output.generic、state、resolver），状态码 200
  - provider 或 skill 无效返回 400，上游 OMS 错误返回 502
  - 请求验证：DecodeJSONBody（1 MB 限制，容忍未知字段）、ValidateContentType
  - 调试日志对 jwt、OMS 会话上下文与变量字段脱敏（Redact）
  - 就绪检查并发执行所有 HealthCheck
*/
package handlers
