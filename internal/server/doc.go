// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP/HTTPS 监听的生命周期管理。

# 核心类型

  - Manager：封装 net/http.Server 与 net.Listener，Start 非阻塞，
    Shutdown 在 ShutdownTimeout 内排空请求且可重复调用。
    Config.TLS 非空时以 HTTPS 监听。
  - Group：同时运行 API 端口与 metrics 端口。Run 阻塞到 ctx
    结束或任一服务器异常退出，随后并发关闭全部服务器。

信号处理由调用方通过 signal.NotifyContext 转换为 ctx 取消。
*/
package server
