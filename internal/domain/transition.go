package domain

// TransitionCommit 描述一次状态机变更需要原子提交的内容
//
// Letter 为期望写入的完整公文快照；ExpectedStatus 为提交时要求的当前库内状态，
// 不匹配则整体失败（乐观并发，防止并发审批跳位或重复推进）。
// Approver 可选，提交时要求其库内状态仍为 pending。
// Log 随变更一并写入
type TransitionCommit struct {
	Letter         *Letter
	ExpectedStatus LetterStatus
	Approver       *LetterApprover
	Log            *ActivityLog
}
