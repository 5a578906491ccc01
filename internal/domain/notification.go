package domain

import "time"

type NotificationType string

const (
	NotificationTypeShiftAssigned      NotificationType = "shift_assigned"
	NotificationTypeShiftRemoved       NotificationType = "shift_removed"
	NotificationTypeShiftUpdated       NotificationType = "shift_updated"
	NotificationTypeShiftCompleted     NotificationType = "shift_completed"
	NotificationTypeShiftCancelled     NotificationType = "shift_cancelled"
	NotificationTypeShiftSwapRequested NotificationType = "shift_swap_requested"
	NotificationTypeSystem             NotificationType = "system"
	NotificationTypePasswordReset      NotificationType = "password_reset"
)

type NotificationChannel string

const (
	NotificationChannelInApp NotificationChannel = "in_app"
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelPush  NotificationChannel = "push"
)

// Notification 是引擎状态变更产生的结构化通知记录
// Metadata 至少携带相关的班次 ID，方便前端跳转
type Notification struct {
	ID             int64               `json:"id"`
	Type           NotificationType    `json:"type"`
	Title          string              `json:"title"`
	Content        string              `json:"content"`
	Channel        NotificationChannel `json:"channel"`
	Read           bool                `json:"read"`
	Metadata       map[string]any      `json:"metadata"`
	RecipientID    int64               `json:"recipientID"`
	OrganizationID int64               `json:"organizationID"`
	CreatedAt      time.Time           `json:"createdAt"`
	SentAt         *time.Time          `json:"sentAt"`
}
