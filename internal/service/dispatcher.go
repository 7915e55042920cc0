package service

import (
	"time"

	"go.uber.org/zap"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/notify"
	"esurat/backend/internal/pool"
	"esurat/backend/internal/storage"
)

// Broadcaster 向实时订阅端推送公文事件（WebSocket 中心实现）
type Broadcaster interface {
	BroadcastLetterEvent(letterID string, event string, status domain.LetterStatus)
}

// Dispatcher 状态变更后的通知分发器
//
// 只处理已提交事务产生的事件：任何发送失败都只记录日志，
// 绝不回滚业务，也不中断同批次其他收件人的发送。
// workers 为 nil 时同步执行（测试与 CLI 场景）
type Dispatcher struct {
	store   storage.Store
	links   *MagicLinkService
	sender  notify.Sender
	hub     Broadcaster
	workers *pool.WorkerPool
	log     *zap.Logger
}

// NewDispatcher 创建通知分发器。hub 与 workers 均可为 nil
func NewDispatcher(store storage.Store, links *MagicLinkService, sender notify.Sender, hub Broadcaster, workers *pool.WorkerPool, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		links:   links,
		sender:  sender,
		hub:     hub,
		workers: workers,
		log:     log,
	}
}

// Dispatch 分发一批事件
func (d *Dispatcher) Dispatch(events []domain.TransitionEvent) {
	for _, event := range events {
		event := event
		if d.workers == nil {
			d.process(event)
			continue
		}
		if !d.workers.TrySubmit(func() { d.process(event) }) {
			d.log.Warn("notification queue full, processing inline",
				zap.String("event", string(event.Type)),
				zap.String("letter_id", event.LetterID))
			d.process(event)
		}
	}
}

func (d *Dispatcher) process(event domain.TransitionEvent) {
	letter, err := d.store.GetLetter(event.LetterID)
	if err != nil {
		d.log.Error("dispatch: letter lookup failed",
			zap.String("letter_id", event.LetterID), zap.Error(err))
		return
	}

	switch event.Type {
	case domain.EventNotifyNextApprover:
		d.sendLink(letter, event.TargetUserID, domain.ActionApprove)
	case domain.EventNotifySigner:
		d.sendLink(letter, event.TargetUserID, domain.ActionSign)
	case domain.EventNotifyCreatorSigned:
		d.sendPlain(letter, event.TargetUserID, func(user *domain.User) string {
			return notify.SignedMessage(user.Name, letter.Number, letter.Title, time.Now())
		})
	case domain.EventNotifyCreatorRejected:
		d.sendPlain(letter, event.TargetUserID, func(user *domain.User) string {
			return notify.RejectedMessage(user.Name, letter.Number, letter.Title, letter.RejectionReason, time.Now())
		})
	case domain.EventNotifyDisposition:
		d.broadcastDisposition(letter)
	default:
		d.log.Warn("dispatch: unknown event type", zap.String("event", string(event.Type)))
		return
	}

	if d.hub != nil {
		d.hub.BroadcastLetterEvent(letter.ID, string(event.Type), letter.Status)
	}
}

// sendLink 为目标用户签发魔法链接并下发
func (d *Dispatcher) sendLink(letter *domain.Letter, userID string, action domain.LinkAction) {
	user, err := d.store.GetUserByID(userID)
	if err != nil {
		d.log.Error("dispatch: user lookup failed",
			zap.String("user_id", userID), zap.String("letter_id", letter.ID), zap.Error(err))
		return
	}
	if _, err := d.links.IssueAndNotify(user, letter, action); err != nil {
		d.log.Error("dispatch: magic link delivery failed",
			zap.String("user_id", userID),
			zap.String("letter_id", letter.ID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// sendPlain 发送不带链接的纯通知消息
func (d *Dispatcher) sendPlain(letter *domain.Letter, userID string, build func(*domain.User) string) {
	user, err := d.store.GetUserByID(userID)
	if err != nil {
		d.log.Error("dispatch: user lookup failed",
			zap.String("user_id", userID), zap.String("letter_id", letter.ID), zap.Error(err))
		return
	}
	if err := d.sender.Send(user.Phone, build(user)); err != nil {
		d.log.Error("dispatch: notification delivery failed",
			zap.String("user_id", userID), zap.String("letter_id", letter.ID), zap.Error(err))
	}
}

// broadcastDisposition 向所有 kepsta 角色用户签发批示链接
//
// 单个收件人失败不影响其余收件人
func (d *Dispatcher) broadcastDisposition(letter *domain.Letter) {
	users, err := d.store.ListUsersByRole(domain.RoleKepsta)
	if err != nil {
		d.log.Error("dispatch: kepsta lookup failed",
			zap.String("letter_id", letter.ID), zap.Error(err))
		return
	}
	for i := range users {
		user := users[i]
		if _, err := d.links.IssueAndNotify(&user, letter, domain.ActionDisposition); err != nil {
			d.log.Error("dispatch: disposition delivery failed",
				zap.String("user_id", user.ID),
				zap.String("letter_id", letter.ID),
				zap.Error(err))
		}
	}
}
