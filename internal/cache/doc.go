// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 cache 提供基于 Redis 的 JSON 缓存，供 OMS 客户端缓存用户可见的组织列表。

# 核心类型

  - Manager：持有 go-redis 客户端，提供 GetJSON/SetJSON/Delete，
    以及读穿式的 Remember（并发加载经 singleflight 合并）。
  - Config：地址、键前缀、默认 TTL、连接池与健康检查间隔。

未命中以 ErrCacheMiss 表示；Remember 在缓存不可用时直接回源。
*/
package cache
