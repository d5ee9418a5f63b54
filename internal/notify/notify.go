// Package notify delivers user-facing alerts. Delivery is fire-and-forget:
// implementations log their own failures and never return them.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pennywise/internal/broker"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/money"
)

// Notifier sends budget and goal alerts.
type Notifier interface {
	BudgetThresholdReached(ctx context.Context, budget *models.Budget, percentage int)
	GoalCompleted(ctx context.Context, goal *models.Goal)
	GoalReminder(ctx context.Context, goal *models.Goal, reminder models.Reminder)
}

// LogNotifier writes alerts to the application log.
type LogNotifier struct {
	log *zap.SugaredLogger
}

// NewLogNotifier creates a notifier backed by the global logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Named("notify")}
}

func (n *LogNotifier) BudgetThresholdReached(_ context.Context, b *models.Budget, percentage int) {
	n.log.Infow("budget threshold reached",
		"user_id", b.UserID,
		"budget_id", b.ID,
		"spent", money.Format(b.Spent),
		"amount", money.Format(b.Amount),
		"percentage", percentage,
	)
}

func (n *LogNotifier) GoalCompleted(_ context.Context, g *models.Goal) {
	n.log.Infow("goal completed", "user_id", g.UserID, "goal_id", g.ID, "target", money.Format(g.TargetAmount))
}

func (n *LogNotifier) GoalReminder(_ context.Context, g *models.Goal, r models.Reminder) {
	n.log.Infow("goal reminder", "user_id", g.UserID, "goal_id", g.ID, "reminder_id", r.ID, "message", r.Message)
}

// Notification kinds carried on the broker.
const (
	KindBudgetThreshold = "budget_threshold"
	KindGoalCompleted   = "goal_completed"
	KindGoalReminder    = "goal_reminder"
)

// BrokerNotifier queues email jobs for the external mailer.
type BrokerNotifier struct {
	pub broker.Publisher
	now func() time.Time
}

// NewBrokerNotifier creates a notifier publishing to pub.
func NewBrokerNotifier(pub broker.Publisher) *BrokerNotifier {
	return &BrokerNotifier{pub: pub, now: time.Now}
}

func (n *BrokerNotifier) BudgetThresholdReached(ctx context.Context, b *models.Budget, percentage int) {
	n.send(ctx, &broker.NotificationMessage{
		Kind:    KindBudgetThreshold,
		UserID:  b.UserID,
		Subject: "Budget alert: " + b.Name,
		Data: map[string]any{
			"budget_id":  b.ID,
			"spent":      money.Format(b.Spent),
			"amount":     money.Format(b.Amount),
			"percentage": percentage,
		},
	})
}

func (n *BrokerNotifier) GoalCompleted(ctx context.Context, g *models.Goal) {
	n.send(ctx, &broker.NotificationMessage{
		Kind:    KindGoalCompleted,
		UserID:  g.UserID,
		Subject: "Goal reached: " + g.Name,
		Data: map[string]any{
			"goal_id": g.ID,
			"target":  money.Format(g.TargetAmount),
			"current": money.Format(g.CurrentAmount),
		},
	})
}

func (n *BrokerNotifier) GoalReminder(ctx context.Context, g *models.Goal, r models.Reminder) {
	n.send(ctx, &broker.NotificationMessage{
		Kind:    KindGoalReminder,
		UserID:  g.UserID,
		Subject: "Reminder: " + g.Name,
		Data: map[string]any{
			"goal_id":     g.ID,
			"reminder_id": r.ID,
			"message":     r.Message,
			"remaining":   money.Format(g.Remaining()),
		},
	})
}

func (n *BrokerNotifier) send(ctx context.Context, msg *broker.NotificationMessage) {
	msg.Timestamp = n.now()
	body, err := msg.ToJSON()
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to encode notification", "error", err, "kind", msg.Kind)
		return
	}
	if err := n.pub.Publish(ctx, broker.NotificationsKey, body); err != nil {
		logger.FromContext(ctx).Warnw("failed to queue notification", "error", err, "kind", msg.Kind, "user_id", msg.UserID)
	}
}
