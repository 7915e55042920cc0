package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/filestore"
	"esurat/backend/internal/security"
	"esurat/backend/internal/stamp"
	"esurat/backend/internal/storage"
)

var (
	// ErrStatusInvalid 公文状态已与操作预期不符（含并发冲突后的重读失败）
	ErrStatusInvalid = errors.New("letter status no longer valid")
	// ErrNotParticipant 操作者不在该公文的审批链中
	ErrNotParticipant = errors.New("actor is not a participant")
	// ErrNotEligible 尚未轮到该操作者处理
	ErrNotEligible = errors.New("actor is not eligible yet")
	// ErrNotCreator 操作者不是公文创建人
	ErrNotCreator = errors.New("actor is not the letter creator")
	// ErrNotSigner 操作者不是指定签署人
	ErrNotSigner = errors.New("actor is not the assigned signer")
	// ErrMissingSignature 审批缺少签名图片
	ErrMissingSignature = errors.New("signature image is required")
	// ErrMissingReason 驳回缺少理由
	ErrMissingReason = errors.New("rejection reason is required")
	// ErrMissingFile 缺少上传文件
	ErrMissingFile = errors.New("file is required")
	// ErrNotDeletable 公文当前状态不允许删除
	ErrNotDeletable = errors.New("letter is not deletable in current status")
	// ErrChainLocked 公文已提交，审批链不可再修改
	ErrChainLocked = errors.New("approver chain can only be edited in draft")
	// ErrDuplicateApprover 审批链中同一用户出现多次
	ErrDuplicateApprover = errors.New("duplicate approver in chain")
)

// LetterService 公文状态机
//
// 唯一允许修改 Letter 与 LetterApprover 的组件。
// 所有状态变更通过 CommitTransition 原子提交，快照过期一律拒绝
type LetterService struct {
	store  storage.Store
	files  filestore.Store
	stamps *stamp.Coordinator
	log    *zap.Logger
}

// NewLetterService 创建公文状态机服务
func NewLetterService(store storage.Store, files filestore.Store, stamps *stamp.Coordinator, log *zap.Logger) *LetterService {
	return &LetterService{
		store:  store,
		files:  files,
		stamps: stamps,
		log:    log,
	}
}

// TransitionResult 一次成功状态变更的结果
type TransitionResult struct {
	Letter *domain.Letter
	// Events 事务提交后需要分发的通知事件
	Events []domain.TransitionEvent
	// ChainComplete 本次审批是否完成了整条审批链
	ChainComplete bool
}

// ApproverInput 创建/修改审批链时的单个审批人
type ApproverInput struct {
	UserID        string   `json:"userId" binding:"required"`
	Order         int      `json:"order" binding:"required,min=1"`
	ParafPage     *int     `json:"parafPage"`
	ParafXPercent *float64 `json:"parafXPercent"`
	ParafYPercent *float64 `json:"parafYPercent"`
	ParafSize     *float64 `json:"parafSize"`
}

// CreateLetterInput 创建公文草稿的输入
type CreateLetterInput struct {
	CreatorID          string
	Number             string
	Title              string
	FileData           []byte
	Filename           string
	QRPlacement        domain.Placement
	ParafPlacement     domain.Placement
	AssignedApproverID string
	AssignedSignerID   string
	Approvers          []ApproverInput
}

// Create 创建公文草稿。
func (s *LetterService) Create(input CreateLetterInput) (*domain.Letter, error) {
	if len(input.FileData) == 0 {
		return nil, ErrMissingFile
	}
	if err := security.ValidatePDF(input.FileData); err != nil {
		return nil, err
	}

	letterID := uuid.New().String()
	qrHash := strings.ReplaceAll(uuid.New().String(), "-", "")

	draftURL, err := s.files.Save(input.FileData, "letters",
		fmt.Sprintf("draft_%d_%s", time.Now().UnixNano(), sanitizeFilename(input.Filename)))
	if err != nil {
		return nil, fmt.Errorf("failed to save draft file: %w", err)
	}

	now := time.Now()
	letter := &domain.Letter{
		ID:                 letterID,
		Number:             input.Number,
		Title:              input.Title,
		CreatorID:          input.CreatorID,
		Status:             domain.StatusDraft,
		FileDraft:          draftURL,
		QRHash:             qrHash,
		QRPage:             input.QRPlacement.Page,
		QRXPercent:         input.QRPlacement.XPercent,
		QRYPercent:         input.QRPlacement.YPercent,
		QRSize:             input.QRPlacement.Size,
		ParafPage:          input.ParafPlacement.Page,
		ParafXPercent:      input.ParafPlacement.XPercent,
		ParafYPercent:      input.ParafPlacement.YPercent,
		ParafSize:          input.ParafPlacement.Size,
		AssignedApproverID: input.AssignedApproverID,
		AssignedSignerID:   input.AssignedSignerID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.SaveLetter(letter); err != nil {
		return nil, fmt.Errorf("failed to save letter: %w", err)
	}

	if len(input.Approvers) > 0 {
		if err := s.setApprovers(letter, input.Approvers); err != nil {
			return nil, err
		}
	}

	s.appendActivity(letter, input.CreatorID, domain.ActivityCreate,
		fmt.Sprintf("membuat surat %q", letter.Title))
	return letter, nil
}

// SetApprovers 设置/替换公文的审批链（仅草稿状态允许）。
func (s *LetterService) SetApprovers(letterID, actorID string, approvers []ApproverInput) error {
	letter, err := s.store.GetLetter(letterID)
	if err != nil {
		return err
	}
	if letter.CreatorID != actorID {
		return ErrNotCreator
	}
	if letter.Status != domain.StatusDraft {
		return ErrChainLocked
	}
	return s.setApprovers(letter, approvers)
}

func (s *LetterService) setApprovers(letter *domain.Letter, inputs []ApproverInput) error {
	seen := make(map[string]struct{}, len(inputs))
	rows := make([]*domain.LetterApprover, 0, len(inputs))
	for _, in := range inputs {
		if _, ok := seen[in.UserID]; ok {
			return ErrDuplicateApprover
		}
		seen[in.UserID] = struct{}{}
		rows = append(rows, &domain.LetterApprover{
			ID:            uuid.New().String(),
			LetterID:      letter.ID,
			UserID:        in.UserID,
			Order:         in.Order,
			Status:        domain.ApproverPending,
			ParafPage:     in.ParafPage,
			ParafXPercent: in.ParafXPercent,
			ParafYPercent: in.ParafYPercent,
			ParafSize:     in.ParafSize,
			CreatedAt:     time.Now(),
		})
	}
	if err := s.store.SaveLetterApprovers(letter.ID, rows); err != nil {
		return fmt.Errorf("failed to save approver chain: %w", err)
	}
	return nil
}

// Get 读取公文。
func (s *LetterService) Get(letterID string) (*domain.Letter, error) {
	return s.store.GetLetter(letterID)
}

// GetByQRHash 根据验证标识读取公文（验证页使用）。
func (s *LetterService) GetByQRHash(qrHash string) (*domain.Letter, error) {
	return s.store.GetLetterByQRHash(qrHash)
}

// ListByCreator 返回某创建人的全部公文。
func (s *LetterService) ListByCreator(creatorID string) ([]domain.Letter, error) {
	return s.store.ListLettersByCreator(creatorID)
}

// Approvers 返回公文的审批链。
func (s *LetterService) Approvers(letterID string) (domain.Chain, error) {
	rows, err := s.store.ListLetterApprovers(letterID)
	if err != nil {
		return nil, err
	}
	return domain.Chain(rows), nil
}

// Activities 返回公文的审计日志。
func (s *LetterService) Activities(letterID string) ([]domain.ActivityLog, error) {
	return s.store.ListActivities(letterID)
}

// Submit 提交草稿进入审批流程。
func (s *LetterService) Submit(letterID, actorID string) (*TransitionResult, error) {
	letter, err := s.store.GetLetter(letterID)
	if err != nil {
		return nil, err
	}
	if letter.CreatorID != actorID {
		return nil, ErrNotCreator
	}
	if letter.Status != domain.StatusDraft {
		return nil, ErrStatusInvalid
	}

	chain, err := s.Approvers(letterID)
	if err != nil {
		return nil, err
	}

	// 确定第一个要通知的审批人
	firstApproverID := letter.AssignedApproverID
	if first := chain.First(); first != nil {
		firstApproverID = first.UserID
	}
	if firstApproverID == "" {
		return nil, ErrNotParticipant
	}

	now := time.Now()
	updated := *letter
	updated.Status = domain.StatusPendingApproval
	updated.SubmittedAt = &now
	updated.UpdatedAt = now

	err = s.store.CommitTransition(&domain.TransitionCommit{
		Letter:         &updated,
		ExpectedStatus: domain.StatusDraft,
		Log:            s.activity(letter, actorID, domain.ActivitySubmit, fmt.Sprintf("mengajukan surat %q", letter.Title)),
	})
	if err != nil {
		return nil, s.mapCommitError(err)
	}

	return &TransitionResult{
		Letter: &updated,
		Events: []domain.TransitionEvent{{
			Type:         domain.EventNotifyNextApprover,
			LetterID:     letter.ID,
			TargetUserID: firstApproverID,
		}},
	}, nil
}

// ApproveInput 审批输入
type ApproveInput struct {
	LetterID string
	ActorID  string
	// SignatureImage base64 编码的批签图片，审批必填
	SignatureImage string
}

// Approve 当前顺位审批人通过审批
//
// 盖章与状态提交必须一起成功：盖章失败不会产生任何状态变更；
// 提交因并发冲突失败时回收刚写入的盖章文件
func (s *LetterService) Approve(input ApproveInput) (*TransitionResult, error) {
	if strings.TrimSpace(input.SignatureImage) == "" {
		return nil, ErrMissingSignature
	}

	letter, err := s.store.GetLetter(input.LetterID)
	if err != nil {
		return nil, err
	}
	if letter.Status != domain.StatusPendingApproval {
		return nil, ErrStatusInvalid
	}

	chain, err := s.Approvers(input.LetterID)
	if err != nil {
		return nil, err
	}

	var (
		row       *domain.LetterApprover
		final     bool
		placement = letter.DefaultParafPlacement()
	)
	if len(chain) == 0 {
		// 遗留单审批人模式：匹配 AssignedApproverID 即可处理，通过即完成整条链
		if letter.AssignedApproverID == "" || input.ActorID != letter.AssignedApproverID {
			return nil, ErrNotParticipant
		}
		final = true
	} else {
		row = chain.Current(input.ActorID)
		if row == nil {
			return nil, ErrNotParticipant
		}
		if !chain.IsEligible(row) {
			return nil, ErrNotEligible
		}
		final = chain.IsFinal(row)
		if override, ok := row.ParafOverride(); ok {
			placement = override
		}
	}

	stampedURL, err := s.stamps.ApplyApproval(letter, placement, input.SignatureImage)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updated := *letter
	updated.FileStamped = stampedURL
	updated.UpdatedAt = now
	if final {
		updated.Status = domain.StatusPendingSign
		updated.ApprovedAt = &now
	}

	commit := &domain.TransitionCommit{
		Letter:         &updated,
		ExpectedStatus: domain.StatusPendingApproval,
		Log:            s.activity(letter, input.ActorID, domain.ActivityApprove, fmt.Sprintf("menyetujui surat %q", letter.Title)),
	}
	if row != nil {
		approved := *row
		approved.Status = domain.ApproverApproved
		approved.ApprovedAt = &now
		commit.Approver = &approved
	}

	if err := s.store.CommitTransition(commit); err != nil {
		// 提交失败：刚写入的盖章文件不再被引用，尽力回收
		s.stamps.DiscardStamped(stampedURL)
		return nil, s.mapCommitError(err)
	}

	// 先写后删：新盖章版已提交，旧盖章版尽力清理
	s.stamps.CleanupReplaced(letter.FileStamped, letter.FileDraft)

	result := &TransitionResult{Letter: &updated, ChainComplete: final}
	if final {
		if updated.AssignedSignerID != "" {
			result.Events = append(result.Events, domain.TransitionEvent{
				Type:         domain.EventNotifySigner,
				LetterID:     letter.ID,
				TargetUserID: updated.AssignedSignerID,
			})
		}
	} else if next := chain.Next(row.Order); next != nil {
		result.Events = append(result.Events, domain.TransitionEvent{
			Type:         domain.EventNotifyNextApprover,
			LetterID:     letter.ID,
			TargetUserID: next.UserID,
		})
	}
	return result, nil
}

// RejectInput 驳回输入
type RejectInput struct {
	LetterID string
	ActorID  string
	Reason   string
}

// Reject 驳回公文
//
// 审批中由当前顺位审批人驳回，待签署由指定签署人驳回。
// 理由必填（仅空白字符视为缺失），原样存储
func (s *LetterService) Reject(input RejectInput) (*TransitionResult, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, ErrMissingReason
	}

	letter, err := s.store.GetLetter(input.LetterID)
	if err != nil {
		return nil, err
	}

	commit := &domain.TransitionCommit{
		ExpectedStatus: letter.Status,
	}

	switch letter.Status {
	case domain.StatusPendingApproval:
		chain, err := s.Approvers(input.LetterID)
		if err != nil {
			return nil, err
		}
		if len(chain) == 0 {
			if letter.AssignedApproverID == "" || input.ActorID != letter.AssignedApproverID {
				return nil, ErrNotParticipant
			}
		} else {
			row := chain.Current(input.ActorID)
			if row == nil {
				return nil, ErrNotParticipant
			}
			if !chain.IsEligible(row) {
				return nil, ErrNotEligible
			}
			rejected := *row
			rejected.Status = domain.ApproverRejected
			commit.Approver = &rejected
		}
	case domain.StatusPendingSign:
		if input.ActorID != letter.AssignedSignerID {
			return nil, ErrNotSigner
		}
	default:
		return nil, ErrStatusInvalid
	}

	now := time.Now()
	updated := *letter
	updated.Status = domain.StatusRejected
	updated.RejectionReason = input.Reason
	updated.UpdatedAt = now
	commit.Letter = &updated
	commit.Log = s.activity(letter, input.ActorID, domain.ActivityReject,
		fmt.Sprintf("menolak surat %q: %s", letter.Title, input.Reason))

	if err := s.store.CommitTransition(commit); err != nil {
		return nil, s.mapCommitError(err)
	}

	return &TransitionResult{
		Letter: &updated,
		Events: []domain.TransitionEvent{{
			Type:         domain.EventNotifyCreatorRejected,
			LetterID:     letter.ID,
			TargetUserID: letter.CreatorID,
		}},
	}, nil
}

// UploadSignedInput 上传签署版输入
type UploadSignedInput struct {
	LetterID string
	ActorID  string
	FileData []byte
	Filename string
}

// UploadSigned 指定签署人上传已签署的最终版 PDF
//
// 最终版不再盖章，直接存为 FileFinal
func (s *LetterService) UploadSigned(input UploadSignedInput) (*TransitionResult, error) {
	if len(input.FileData) == 0 {
		return nil, ErrMissingFile
	}
	if err := security.ValidatePDF(input.FileData); err != nil {
		return nil, err
	}

	letter, err := s.store.GetLetter(input.LetterID)
	if err != nil {
		return nil, err
	}
	if letter.Status != domain.StatusPendingSign {
		return nil, ErrStatusInvalid
	}
	if input.ActorID != letter.AssignedSignerID {
		return nil, ErrNotSigner
	}

	finalURL, err := s.files.Save(input.FileData, "letters",
		fmt.Sprintf("final_%d_%s", time.Now().UnixNano(), sanitizeFilename(input.Filename)))
	if err != nil {
		return nil, fmt.Errorf("failed to save signed file: %w", err)
	}

	now := time.Now()
	updated := *letter
	updated.Status = domain.StatusSigned
	updated.FileFinal = finalURL
	updated.SignedAt = &now
	updated.UpdatedAt = now

	err = s.store.CommitTransition(&domain.TransitionCommit{
		Letter:         &updated,
		ExpectedStatus: domain.StatusPendingSign,
		Log:            s.activity(letter, input.ActorID, domain.ActivitySign, fmt.Sprintf("menandatangani surat %q", letter.Title)),
	})
	if err != nil {
		if deleteErr := s.files.Delete(finalURL); deleteErr != nil {
			s.log.Warn("failed to discard uncommitted final file",
				zap.String("url", finalURL), zap.Error(deleteErr))
		}
		return nil, s.mapCommitError(err)
	}

	return &TransitionResult{
		Letter: &updated,
		Events: []domain.TransitionEvent{
			{
				Type:         domain.EventNotifyCreatorSigned,
				LetterID:     letter.ID,
				TargetUserID: letter.CreatorID,
			},
			{
				Type:     domain.EventNotifyDisposition,
				LetterID: letter.ID,
			},
		},
	}, nil
}

// Cancel 创建人取消公文（草稿或审批中）。
func (s *LetterService) Cancel(letterID, actorID string) (*TransitionResult, error) {
	letter, err := s.store.GetLetter(letterID)
	if err != nil {
		return nil, err
	}
	if letter.CreatorID != actorID {
		return nil, ErrNotCreator
	}
	if letter.Status != domain.StatusDraft && letter.Status != domain.StatusPendingApproval {
		return nil, ErrStatusInvalid
	}

	now := time.Now()
	updated := *letter
	updated.Status = domain.StatusCancelled
	updated.UpdatedAt = now

	err = s.store.CommitTransition(&domain.TransitionCommit{
		Letter:         &updated,
		ExpectedStatus: letter.Status,
		Log:            s.activity(letter, actorID, domain.ActivityCancel, fmt.Sprintf("membatalkan surat %q", letter.Title)),
	})
	if err != nil {
		return nil, s.mapCommitError(err)
	}
	return &TransitionResult{Letter: &updated}, nil
}

// DeleteInput 删除输入
type DeleteInput struct {
	LetterID string
	ActorID  string
	// IsAdmin 操作者是否持有删除权限（管理员）
	IsAdmin bool
}

// Delete 删除公文（仅草稿/已驳回/已取消，创建人或管理员）。
func (s *LetterService) Delete(input DeleteInput) error {
	letter, err := s.store.GetLetter(input.LetterID)
	if err != nil {
		return err
	}
	if letter.CreatorID != input.ActorID && !input.IsAdmin {
		return ErrNotCreator
	}
	if !letter.Status.IsDeletable() {
		return ErrNotDeletable
	}

	if err := s.store.DeleteLetter(input.LetterID); err != nil {
		return err
	}

	// 文件清理尽力而为
	for _, url := range []string{letter.FileDraft, letter.FileStamped, letter.FileFinal} {
		if url == "" {
			continue
		}
		if err := s.files.Delete(url); err != nil {
			s.log.Warn("failed to delete letter file", zap.String("url", url), zap.Error(err))
		}
	}
	return nil
}

// activity 构造一条审计日志（随事务提交写入）
func (s *LetterService) activity(letter *domain.Letter, userID, action, description string) *domain.ActivityLog {
	return &domain.ActivityLog{
		ID:          uuid.New().String(),
		LetterID:    letter.ID,
		UserID:      userID,
		Action:      action,
		Description: description,
		CreatedAt:   time.Now(),
	}
}

// appendActivity 直接追加一条审计日志（非事务路径）
func (s *LetterService) appendActivity(letter *domain.Letter, userID, action, description string) {
	if err := s.store.AppendActivity(s.activity(letter, userID, action, description)); err != nil {
		s.log.Warn("failed to append activity log",
			zap.String("letter_id", letter.ID), zap.Error(err))
	}
}

// mapCommitError 将存储层乐观并发冲突映射为用户可见的状态失效错误
func (s *LetterService) mapCommitError(err error) error {
	if errors.Is(err, storage.ErrStatusConflict) || errors.Is(err, storage.ErrApproverConflict) {
		return ErrStatusInvalid
	}
	return err
}

// sanitizeFilename 清理上传文件名，缺失时给默认名
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "document.pdf"
	}
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
