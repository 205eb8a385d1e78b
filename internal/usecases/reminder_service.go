package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"coach_report_bot/internal/config"
	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/interfaces"
	"coach_report_bot/internal/logger"
	"coach_report_bot/internal/markdown"
)

const reminderText = "*Нагадування*: ви не відправили сьогоднішній звіт"

// ReminderService nudges users who have not reported and tells coaches who
// skipped yesterday
type ReminderService struct {
	store      interfaces.ReminderStore
	dispatcher *Dispatcher
	cfg        *config.Config
	now        func() time.Time
}

func NewReminderService(store interfaces.ReminderStore, dispatcher *Dispatcher, cfg *config.Config) *ReminderService {
	return &ReminderService{store: store, dispatcher: dispatcher, cfg: cfg, now: time.Now}
}

// RemindToday messages every managed user without a report today and returns
// how many reminders went out
func (s *ReminderService) RemindToday(ctx context.Context) (int, error) {
	start, err := dates.ResolveStartDate(s.now(), s.cfg.DefaultTimezone, false)
	if err != nil {
		return 0, err
	}
	users, err := s.store.WithoutReportSince(ctx, start)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range users {
		if err := s.dispatcher.Deliver(ctx, Delivery{ChatID: u.TelegramID, Content: reminderText}); err != nil {
			logger.FromContext(ctx).Warn("Reminder not delivered", "user_id", u.ID.Hex(), "err", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// DaysWord renders n with the Ukrainian plural form of "day"
func DaysWord(n int) string {
	mod10, mod100 := n%10, n%100
	if n < 0 {
		mod10, mod100 = -mod10, -mod100
	}
	switch {
	case mod10 == 1 && mod100 != 11:
		return fmt.Sprintf("%d день", n)
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 12 || mod100 > 14):
		return fmt.Sprintf("%d дні", n)
	default:
		return fmt.Sprintf("%d днів", n)
	}
}

// RenderDigest lists the users that did not report, with days since their
// last report or since signup
func RenderDigest(users []entities.ReminderUser, now time.Time) string {
	lines := make([]string, 0, len(users)+1)
	lines = append(lines, markdown.Escape("Вчора не скинули звіт наступні користувачі:"))
	for _, u := range users {
		since := u.CreatedAt
		if len(u.Messages) > 0 {
			since = u.Messages[0].CreatedAt
		}
		days := int(now.Sub(since) / (24 * time.Hour))
		lines = append(lines, "• "+markdown.UserLink(u.DisplayName(), u.TelegramID)+
			" \\("+markdown.Escape(DaysWord(days))+" не надсилає звіти\\)")
	}
	return strings.Join(lines, "\n")
}

// NotifyManagers sends each coach the digest of their users that skipped
// yesterday's report
func (s *ReminderService) NotifyManagers(ctx context.Context) (int, error) {
	now := s.now()
	yesterday, err := dates.DayRange(now.AddDate(0, 0, -1), s.cfg.DefaultTimezone, false)
	if err != nil {
		return 0, err
	}
	users, err := s.store.Stale(ctx, yesterday.Start, yesterday.End.Add(-time.Millisecond))
	if err != nil {
		return 0, err
	}

	byManager := make(map[int64][]entities.ReminderUser)
	for _, u := range users {
		managerID, ok := u.ManagerID()
		if !ok {
			continue
		}
		byManager[managerID] = append(byManager[managerID], u)
	}
	managers := make([]int64, 0, len(byManager))
	for id := range byManager {
		managers = append(managers, id)
	}
	sort.Slice(managers, func(i, j int) bool { return managers[i] < managers[j] })

	sent := 0
	for _, managerID := range managers {
		digest := RenderDigest(byManager[managerID], now)
		if err := s.dispatcher.Deliver(ctx, Delivery{ChatID: managerID, Content: digest}); err != nil {
			logger.FromContext(ctx).Warn("Digest not delivered", "manager_id", managerID, "err", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// Schedule registers both tasks on c using the configured cron specs
func (s *ReminderService) Schedule(ctx context.Context, c *cron.Cron) error {
	log := logger.FromContext(ctx).With("component", "reminders")
	tasks := []struct {
		name string
		spec string
		run  func(context.Context) (int, error)
	}{
		{"report-reminder", s.cfg.ReminderCron, s.RemindToday},
		{"didnt-send", s.cfg.DidntSendCron, s.NotifyManagers},
	}
	for _, task := range tasks {
		if task.spec == "" {
			continue
		}
		_, err := c.AddFunc(task.spec, func() {
			sent, err := task.run(ctx)
			if err != nil {
				log.Error("Task failed", "task", task.name, "err", err)
				return
			}
			log.Info("Task finished", "task", task.name, "sent", sent)
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", task.spec, task.name, err)
		}
	}
	return nil
}
