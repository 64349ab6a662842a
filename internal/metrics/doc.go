// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、skill turn、OMS 调用与缓存四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标。默认注册到
prometheus.DefaultRegisterer，测试可通过 NewCollectorWithRegisterer
使用独立 registry。所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器，同时实现 skill.Observer、
    oms.RequestObserver 与 cache.Stats，可直接注入对应组件。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - Skill 指标：turn 总数（按 skill_id/outcome）、turn 耗时、
    lateral 委托次数（按 from_skill/to_skill）。
  - OMS 指标：调用总数（按 api/outcome）与调用耗时。
  - 缓存指标：命中与未命中计数，按 cache_type 分组。
*/
package metrics
