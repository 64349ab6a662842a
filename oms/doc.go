// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 oms 封装订单管理系统（OMS）的 REST API，供各个会话技能调用。

# 分层

  - Client：传输层接口。HTTPClient 以 POST {endpoint}/restapi/{api}
    调用 OMS，携带 Bearer JWT，非 200 响应映射为 types.ErrUpstreamError。
    GetPage 通过 invoke/getPage 调用带输出模板的 API。
  - Templates：按场景组织的 getPage 输出模板，内置于二进制，
    缺失路径回退到场景的 default 条目，再回退到空模板。
  - Service：业务操作（组织列表、订单详情、取消订单、优惠券校验与应用、
    订单查询、修改规则检查），可选 Redis 读穿缓存组织列表。
  - Credentials：从会话上下文中提取的 JWT 与用户 ID。

# 响应形态

OMS 在只有一个元素时会把列表折叠为单个对象，调用方统一经
valuepath.Array 展开。
*/
package oms
