package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如资源缺失但流程可继续）
// - 5xxx：系统错误（需要中断流程）
const (
	OK               = 0
	ValidationFailed = 4000
	ResourceMissing  = 4004
	// AIUnavailable 表示导出成功但 AI 增强不可用，内容为原始格式。
	AIUnavailable = 4030
	SystemError   = 5000
)

// Message 返回错误码对应的默认说明。
func Message(code int) string {
	switch code {
	case OK:
		return "ok"
	case ValidationFailed:
		return "resume is missing required fields"
	case ResourceMissing:
		return "profile photo missing, exported without it"
	case AIUnavailable:
		return "ai enhancement unavailable, exported raw content"
	case SystemError:
		return "export failed"
	}
	return "unknown"
}
