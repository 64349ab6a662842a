// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供技能服务的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 skill、oms、api 等上层
模块提供统一的错误码与 context 传播工具，以避免循环依赖。

# 主要能力

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、SkillID 标记
  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
  - Context 传播：WithTraceID / WithRequestID / WithUserID / WithProviderID / WithSkillID
*/
package types
