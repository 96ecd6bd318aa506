package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/store"
)

// sender abstracts Service.Send so tests can fake the push service.
type sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Notifier fans domain events out to a family's push subscriptions.
// Unlike a polling scheduler there is no timer here: handlers and the
// progress engine call it at the moment something happens.
type Notifier struct {
	sender sender
	push   *store.PushStore
	logger *slog.Logger
}

// NewNotifier creates a Notifier. A nil service disables sending, which
// lets the rest of the app call the Notifier without caring whether
// VAPID keys were configured.
func NewNotifier(svc *Service, pushStore *store.PushStore, logger *slog.Logger) *Notifier {
	n := &Notifier{push: pushStore, logger: logger}
	if svc != nil {
		n.sender = svc
	}
	return n
}

// Enabled reports whether push sending is configured.
func (n *Notifier) Enabled() bool {
	return n.sender != nil
}

// StreakBonus announces a weekly, monthly, or yearly streak bonus.
func (n *Notifier) StreakBonus(familyID int64, childName, period string, seeds int) {
	n.fanOut(familyID, 0, model.NotifTypeStreakBonus, Payload{
		Title: "Streak Bonus!",
		Body:  fmt.Sprintf("%s earned a %s streak bonus: %d seeds", childName, period, seeds),
		URL:   "/progress",
		Tag:   "streak-bonus",
	})
}

// AllTasksDone announces that a child finished every task due today.
func (n *Notifier) AllTasksDone(familyID int64, childName string) {
	n.fanOut(familyID, 0, model.NotifTypeAllTasksDone, Payload{
		Title: "All Tasks Done",
		Body:  fmt.Sprintf("%s finished all of today's tasks", childName),
		URL:   "/progress",
		Tag:   "all-tasks-done",
	})
}

// PrivilegeDecided announces an approval or denial to everyone but the
// deciding parent.
func (n *Notifier) PrivilegeDecided(familyID, decidedBy int64, childName, privilegeTitle, status string) {
	n.fanOut(familyID, decidedBy, model.NotifTypePrivilegeDecided, Payload{
		Title: "Privilege Request",
		Body:  fmt.Sprintf("%s's request for %s was %s", childName, privilegeTitle, status),
		URL:   "/privileges",
		Tag:   "privilege-decided",
	})
}

// RewardRedeemed announces a redemption to everyone but the acting parent.
func (n *Notifier) RewardRedeemed(familyID, actorUserID int64, childName, rewardTitle string) {
	n.fanOut(familyID, actorUserID, model.NotifTypeRewardRedeemed, Payload{
		Title: "Reward Redeemed",
		Body:  fmt.Sprintf("%s redeemed %s", childName, rewardTitle),
		URL:   "/rewards",
		Tag:   "reward-redeemed",
	})
}

// fanOut sends the payload to every family subscription whose owner has
// the notification type enabled, skipping excludeUserID. Expired
// subscriptions are pruned as they are discovered.
func (n *Notifier) fanOut(familyID, excludeUserID int64, notifType string, payload Payload) {
	if n.sender == nil {
		return
	}

	subs, err := n.push.ListSubscriptionsByFamily(familyID)
	if err != nil {
		n.logger.Error("list push subscriptions", "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		if sub.UserID == excludeUserID {
			continue
		}
		enabled, err := n.push.IsPreferenceEnabled(sub.UserID, notifType)
		if err != nil || !enabled {
			continue
		}

		if err := n.sender.Send(sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.push.DeleteSubscriptionByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("prune expired subscription", "error", err)
				}
			} else {
				n.logger.Error("send push", "type", notifType, "error", err)
			}
		}
	}
}
