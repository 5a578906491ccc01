package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/repository"
)

// Notifier 负责通知的落库和投递
// 投递是尽力而为的：失败只记录日志，绝不让业务操作跟着失败
type Notifier struct {
	cfg         *config.Config
	repo        *repository.Repository
	mailChannel *amqp.Channel
}

func NewNotifier(cfg *config.Config, repo *repository.Repository, mailChannel *amqp.Channel) *Notifier {
	return &Notifier{
		cfg:         cfg,
		repo:        repo,
		mailChannel: mailChannel,
	}
}

// Send 先写入通知记录再投递，用于单条独立产生的通知
func (n *Notifier) Send(notification *domain.Notification) {
	if err := n.repo.CreateNotification(notification); err != nil {
		slog.Error("写入通知记录失败", "type", notification.Type, "recipientID", notification.RecipientID, "error", err)
		return
	}

	n.deliver(notification)
}

// Deliver 只负责投递，通知记录已经随业务变更在事务中写入
func (n *Notifier) Deliver(notifications []*domain.Notification) {
	for _, notification := range notifications {
		n.deliver(notification)
	}
}

func (n *Notifier) deliver(notification *domain.Notification) {
	switch notification.Channel {
	case domain.NotificationChannelEmail:
		n.deliverEmail(notification)
	case domain.NotificationChannelPush:
		// 推送通道尚未接入
		slog.Info("推送通道尚未接入，跳过投递", "notificationID", notification.ID)
	default:
		// 站内通知落库即完成投递
	}
}

func (n *Notifier) deliverEmail(notification *domain.Notification) {
	user, err := n.repo.GetUserByID(notification.RecipientID)
	if err != nil {
		slog.Error("查找通知接收者失败", "notificationID", notification.ID, "recipientID", notification.RecipientID, "error", err)
		return
	}

	msg := domain.MailMessage{
		Type: "notification",
		To:   user.Email,
		Data: domain.NotificationMailData{
			FullName: user.FullName,
			Title:    notification.Title,
			Content:  notification.Content,
		},
	}
	body, err := json.Marshal(msg)
	if err != nil {
		slog.Error("序列化通知邮件失败", "notificationID", notification.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(n.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := n.mailChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		slog.Error("投递通知邮件到消息队列失败", "notificationID", notification.ID, "error", err)
		return
	}

	if err := n.repo.MarkNotificationSent(notification.ID); err != nil {
		slog.Error("更新通知投递时间失败", "notificationID", notification.ID, "error", err)
	}
}
