// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 skills 提供面向订单管理系统的会话技能，全部基于 skill 包的声明与
行为接口实现，经 Register 注册到技能注册表。

# 技能

  - minimal：单个实体槽位的示例技能。
  - lookup-order：按订单号与企业代码查询订单，设为当前订单。
  - cancel-order：在 lookup-order 之上确认并取消订单，受 CANCEL 修改规则约束。
  - apply-coupon：在 lookup-order 之上校验并应用优惠券，需要用户确认。
  - search-orders：按邮箱或电话号码查询客户订单，可追问是否包含草稿订单。
  - most-recent-order：在 search-orders 之上只取最近一笔订单。
  - order-help：按用户话语选择上述技能并横向委派。

# 会话变量

当前订单保存在 currentOrder / currentOrderNo 会话变量中。取消与优惠券
技能只有在调用方设置 useCurrentOrderInContext 时才会沿用当前订单，
此时 OMS 上下文中的 currentOrder 也会被接管到会话里。
*/
package skills
