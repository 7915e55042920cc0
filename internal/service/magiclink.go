package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"esurat/backend/internal/config"
	"esurat/backend/internal/domain"
	"esurat/backend/internal/monitoring"
	"esurat/backend/internal/notify"
	"esurat/backend/internal/storage"
)

var (
	// ErrLinkExpired 魔法链接已过期
	ErrLinkExpired = errors.New("magic link expired")
	// ErrBadOTP OTP 不匹配（可由同一操作者重试）
	ErrBadOTP = errors.New("otp mismatch")
	// ErrActionMismatch 令牌的动作类型与调用的端点不符
	ErrActionMismatch = errors.New("link action mismatch")
)

// MagicLinkService 一次性远程操作凭证服务
//
// 负责令牌与 OTP 的生成、WhatsApp 下发、幂等校验与消费。
// Verify 永不修改状态；Consume 必须在受保护的业务变更提交之后调用
type MagicLinkService struct {
	store   storage.Store
	sender  notify.Sender
	cfg     *config.Config
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewMagicLinkService 创建魔法链接服务。metrics 可为 nil（关闭指标上报）
func NewMagicLinkService(store storage.Store, sender notify.Sender, cfg *config.Config, metrics *monitoring.Metrics, log *zap.Logger) *MagicLinkService {
	return &MagicLinkService{
		store:   store,
		sender:  sender,
		cfg:     cfg,
		metrics: metrics,
		log:     log,
	}
}

// Issue 签发一条新的魔法链接并持久化
//
// 有效期按动作类型取配置（批示链接默认远长于审批/签署链接）
func (s *MagicLinkService) Issue(userID, letterID string, action domain.LinkAction) (*domain.MagicLink, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	otp, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	link := &domain.MagicLink{
		Token:     token,
		UserID:    userID,
		LetterID:  letterID,
		Action:    action,
		OTPCode:   otp,
		IsUsed:    false,
		ExpiresAt: time.Now().Add(s.ttlFor(action)),
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveMagicLink(link); err != nil {
		return nil, fmt.Errorf("failed to save magic link: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordLinkIssued(string(action))
	}
	return link, nil
}

// IssueAndNotify 签发链接并通过 WhatsApp 下发给用户
//
// 发送失败不会删除已持久化的链接（调用方可重试发送，而非重新签发），
// 此时返回已签发的链接与发送错误
func (s *MagicLinkService) IssueAndNotify(user *domain.User, letter *domain.Letter, action domain.LinkAction) (*domain.MagicLink, error) {
	link, err := s.Issue(user.ID, letter.ID, action)
	if err != nil {
		return nil, err
	}

	in := notify.LinkMessageInput{
		RecipientName: user.Name,
		LetterTitle:   letter.Title,
		LetterNumber:  letter.Number,
		DeepLink:      s.DeepLink(link),
		OTP:           link.OTPCode,
		Now:           time.Now(),
	}

	var message string
	switch action {
	case domain.ActionApprove:
		message = notify.ApprovalRequestMessage(in)
	case domain.ActionSign:
		message = notify.SignRequestMessage(in)
	case domain.ActionDisposition:
		message = notify.DispositionMessage(in)
	default:
		return link, fmt.Errorf("unknown link action: %s", action)
	}

	if err := s.sender.Send(user.Phone, message); err != nil {
		return link, fmt.Errorf("failed to send magic link: %w", err)
	}
	return link, nil
}

// DeepLink 返回链接对应的快捷操作页地址。
func (s *MagicLinkService) DeepLink(link *domain.MagicLink) string {
	return fmt.Sprintf("%s/quick/%s/%s", s.cfg.Letter.QuickBaseURL, link.Action, link.Token)
}

// Verify 校验令牌与 OTP，不产生任何副作用
//
// expected 为本端点允许的动作类型；失败按优先级返回：
// 不存在 > 已消费 > 已过期 > 动作不符 > OTP 不符
func (s *MagicLinkService) Verify(token, otp string, expected ...domain.LinkAction) (*domain.MagicLink, error) {
	link, err := s.structuralCheck(token, expected...)
	if err != nil {
		return nil, err
	}
	if link.OTPCode != otp {
		return nil, ErrBadOTP
	}
	return link, nil
}

// Inspect 仅做结构性校验（不校验 OTP），供快捷操作页加载时预检
func (s *MagicLinkService) Inspect(token string, expected domain.LinkAction) (*domain.MagicLink, error) {
	return s.structuralCheck(token, expected)
}

// Consume 消费令牌（IsUsed 置位，原子）
//
// 必须是快捷操作成功路径上的最后一步：之前任何失败都要保留令牌供重试
func (s *MagicLinkService) Consume(link *domain.MagicLink) error {
	if err := s.store.ConsumeMagicLink(link.Token); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordLinkConsumed(string(link.Action))
	}
	return nil
}

// PurgeExpired 清理已过期的链接，返回删除数量。
func (s *MagicLinkService) PurgeExpired() (int, error) {
	return s.store.DeleteExpiredMagicLinks(time.Now())
}

func (s *MagicLinkService) structuralCheck(token string, expected ...domain.LinkAction) (*domain.MagicLink, error) {
	link, err := s.store.GetMagicLinkByToken(token)
	if err != nil {
		return nil, err
	}
	if link.IsUsed {
		return nil, storage.ErrLinkUsed
	}
	if link.Expired(time.Now()) {
		return nil, ErrLinkExpired
	}
	if len(expected) > 0 {
		matched := false
		for _, action := range expected {
			if link.Action == action {
				matched = true
				break
			}
		}
		if !matched {
			return nil, ErrActionMismatch
		}
	}
	return link, nil
}

func (s *MagicLinkService) ttlFor(action domain.LinkAction) time.Duration {
	switch action {
	case domain.ActionSign:
		return s.cfg.MagicLink.SignTTL
	case domain.ActionDisposition:
		return s.cfg.MagicLink.DispositionTTL
	default:
		return s.cfg.MagicLink.ApproveTTL
	}
}

// generateToken 生成 48 字符的随机令牌
func generateToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// generateOTP 生成 6 位数字 OTP
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
