// Package scheduler runs the periodic rental jobs: the overdue sweep and the
// due-soon reminders.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/service"
	"github.com/segyhp/movie-rental/pkg/utils"
)

const jobTimeout = time.Minute

// OverdueNotice is one rental found by the overdue sweep.
type OverdueNotice struct {
	RentalID       int64
	UserID         int64
	MovieID        int64
	DaysOverdue    int
	ProvisionalFee decimal.Decimal
}

// Reminder is one rental due within the reminder window.
type Reminder struct {
	RentalID int64
	UserID   int64
	DueDate  time.Time
}

type Config struct {
	OverdueSpec    string
	ReminderSpec   string
	ReminderWindow time.Duration
}

type Scheduler struct {
	cron     *cron.Cron
	ledger   *service.Ledger
	policies service.PolicyProvider
	window   time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// New registers both jobs. Specs use the six-field format with seconds.
func New(ledger *service.Ledger, policies service.PolicyProvider, cfg Config, log *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		ledger:   ledger,
		policies: policies,
		window:   cfg.ReminderWindow,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}

	if _, err := s.cron.AddFunc(cfg.OverdueSpec, s.run("overdue sweep", s.sweep)); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(cfg.ReminderSpec, s.run("due-soon reminders", s.remind)); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run(name string, job func(ctx context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		n, err := job(ctx)
		if err != nil {
			s.log.Error("job failed", "job", name, "err", err)
			return
		}
		s.log.Info("job finished", "job", name, "matched", n, "duration", time.Since(start))
	}
}

func (s *Scheduler) sweep(ctx context.Context) (int, error) {
	notices, err := s.SweepOverdue(ctx, s.now())
	return len(notices), err
}

func (s *Scheduler) remind(ctx context.Context) (int, error) {
	reminders, err := s.DueSoon(ctx, s.now())
	return len(reminders), err
}

// SweepOverdue logs every rental overdue at now with its provisional fee.
func (s *Scheduler) SweepOverdue(ctx context.Context, now time.Time) ([]OverdueNotice, error) {
	overdue, err := s.ledger.ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	policy, err := s.policies.Current(ctx)
	if err != nil {
		return nil, err
	}

	var notices []OverdueNotice
	for view := range overdue {
		notice := OverdueNotice{
			RentalID:       view.ID,
			UserID:         view.UserID,
			MovieID:        view.MovieID,
			DaysOverdue:    view.DaysOverdue,
			ProvisionalFee: service.LateFeeFor(&view.Rental, policy, now),
		}
		s.log.WarnContext(ctx, "rental overdue",
			"rental_id", notice.RentalID,
			"user_id", notice.UserID,
			"movie_id", notice.MovieID,
			"days_overdue", notice.DaysOverdue,
			"provisional_fee", notice.ProvisionalFee.String(),
		)
		notices = append(notices, notice)
	}

	return notices, nil
}

// DueSoon logs every active rental that falls due within the reminder window.
func (s *Scheduler) DueSoon(ctx context.Context, now time.Time) ([]Reminder, error) {
	active, err := s.ledger.ListActiveRentals(ctx, now)
	if err != nil {
		return nil, err
	}

	var reminders []Reminder
	for view := range active {
		if view.DisplayStatus != domain.RentalStatusActive || !utils.IsDueWithin(view.DueDate, now, s.window) {
			continue
		}
		reminder := Reminder{RentalID: view.ID, UserID: view.UserID, DueDate: view.DueDate}
		s.log.InfoContext(ctx, "rental due soon",
			"rental_id", reminder.RentalID,
			"user_id", reminder.UserID,
			"due_date", reminder.DueDate,
		)
		reminders = append(reminders, reminder)
	}

	return reminders, nil
}
