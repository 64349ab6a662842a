// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package locale 提供技能的本地化字符串包。

# 概述

每个技能拥有一个以 skillId 命名的 YAML 字符串包，按语言存放于
<lang>/<skillId>.yaml。组合技能的字符串包按继承链从最基础到最派生依次
合并，派生技能的同名键覆盖基础技能。

# 核心类型

  - Bundle     — 嵌套键值树，String/Strings 按点分路径取值，缺失键返回路径本身
  - Provider   — 字符串包来源接口
  - FSProvider — 基于 fs.FS 的实现，带缓存与 singleflight 去重
  - LoadChain  — 并发加载并按顺序合并继承链上的全部字符串包
  - Fill       — {{path}} 模板占位符替换
*/
package locale
