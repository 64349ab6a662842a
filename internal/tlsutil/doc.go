// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package tlsutil 提供集中式 TLS 配置，
// 用于 OMS 客户端与 HTTPS 监听（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
