// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package config 提供技能提供者的配置加载与校验。
//
// 配置来源依次为默认值、YAML 文件与带 CONVSKILLS_ 前缀的环境变量。
// YAML 字符串可以引用环境变量名，以便把凭据留在部署环境中。
package config
