// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package skill 实现对话技能的回合编排引擎。

# 概述

一个技能通过若干槽位（Slot）向用户收集参数。编排器每回合把槽位的最新
取值与会话变量发送过来，技能在一次回合内完成校验、取数与响应构建，并
通过 resolver 宣告完成、取消或保持等待输入。

# 核心类型

  - Declaration   — 不可变的技能声明，沿继承链合并槽位、确认模式与处理器
  - Registry      — 进程级声明注册表，启动时填充，此后只读
  - Factory       — 为每个回合加载字符串包、实例化槽位并绑定处理器
  - Instance      — 单回合技能实例，唯一入口 Orchestrate
  - Turn          — 回合上下文，所有钩子与处理器经由它读写状态
  - SkillResponse — 回合输出，包含槽位、resolver、响应条目与变量变更
  - Dispatcher    — (providerId, skillId) 路由、技能列表投影与横向委派

# 回合算法

默认的槽位变更策略按顺序执行：

 1. 前置钩子 InitializeSlotsInFlight（每回合必定执行）
 2. 按编排器上报顺序合并槽位取值；仅对标记为已变更的槽位调用处理器
 3. 后置钩子 PostSlotStateChange（技能已完成或取消时跳过）

携带确认事件且行为实现 Confirmer 时，OnConfirm/OnCancel 优先于任何策略。
PassThrough 与 Otherwise 策略以单一回调替代上述步骤。

# 横向委派

Turn.RunLateral 在当前回合上运行另一个技能，并把其变量变更、resolver、
非槽位响应条目合并回调用方，同时以子技能的槽位替换调用方的槽位。
*/
package skill
