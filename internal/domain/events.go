package domain

// EventType 状态变更提交后需要处理的通知事件类型
type EventType string

const (
	// EventNotifyNextApprover 通知下一顺位审批人（签发新的 approve 链接）
	EventNotifyNextApprover EventType = "notify_next_approver"
	// EventNotifySigner 审批链完成，通知签署人（签发 sign 链接）
	EventNotifySigner EventType = "notify_signer"
	// EventNotifyCreatorSigned 签署完成，通知创建人
	EventNotifyCreatorSigned EventType = "notify_creator_signed"
	// EventNotifyCreatorRejected 被驳回，通知创建人
	EventNotifyCreatorRejected EventType = "notify_creator_rejected"
	// EventNotifyDisposition 向所有 kepsta 角色用户广播批示链接
	EventNotifyDisposition EventType = "notify_disposition"
)

// TransitionEvent 事务提交后由通知分发器异步处理的事件
//
// 事件处理失败只记录日志，绝不回滚已提交的状态变更
type TransitionEvent struct {
	Type         EventType
	LetterID     string
	TargetUserID string // 批示广播事件不指定目标，由分发器按角色解析
}
