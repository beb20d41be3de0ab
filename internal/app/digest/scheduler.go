package digest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"meetingbot/internal/app/repository"
	"meetingbot/pkg/logger"
)

// Sender delivers a message to a chat. Fire-and-forget: the scheduler
// needs no delivery acknowledgment.
type Sender interface {
	Send(chatID int64, text string) error
}

// Cadence is the fixed weekly point in time at which the digest job fires,
// interpreted in the scheduler's location.
type Cadence struct {
	Day    time.Weekday
	Hour   int
	Minute int
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekday accepts a day-of-week name, full or abbreviated to three
// letters, case-insensitive.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) > 3 {
		name = name[:3]
	}
	day, ok := weekdays[name]
	if !ok {
		return 0, fmt.Errorf("invalid weekday: %q", s)
	}
	return day, nil
}

// Scheduler drives two independent background jobs: the weekly digest and
// an optional liveness probe. A failure in either is logged and never
// fatal to the process.
type Scheduler struct {
	log      *logger.Logger
	meetings *repository.MeetingRepository
	sender   Sender
	loc      *time.Location
	cadence  Cadence

	selfURL   string
	pingEvery time.Duration
	client    *http.Client

	// limiter paces outbound sends across chats to stay under the
	// Telegram per-bot rate ceiling.
	limiter *rate.Limiter
	done    chan struct{}
}

func NewScheduler(meetings *repository.MeetingRepository, sender Sender, loc *time.Location,
	cadence Cadence, selfURL string, pingEvery time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		log:       log,
		meetings:  meetings,
		sender:    sender,
		loc:       loc,
		cadence:   cadence,
		selfURL:   selfURL,
		pingEvery: pingEvery,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
		done:      make(chan struct{}),
	}
}

// Start launches the background jobs. The liveness probe only runs when a
// ping target is configured.
func (s *Scheduler) Start() {
	go s.weeklyLoop()
	if s.selfURL != "" {
		go s.pingLoop()
	}
}

func (s *Scheduler) Stop() {
	close(s.done)
}

func (s *Scheduler) weeklyLoop() {
	for {
		now := time.Now().In(s.loc)
		timer := time.NewTimer(s.NextFire(now).Sub(now))

		select {
		case <-timer.C:
			s.DispatchAll(time.Now().In(s.loc))
		case <-s.done:
			timer.Stop()
			return
		}
	}
}

// NextFire returns the first cadence point strictly after now.
func (s *Scheduler) NextFire(now time.Time) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(),
		s.cadence.Hour, s.cadence.Minute, 0, 0, s.loc)

	days := (int(s.cadence.Day) - int(next.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// DispatchAll sends the 7-day digest to every chat with stored meetings.
// Each chat is dispatched independently; one slow or failing chat never
// blocks or aborts the others.
func (s *Scheduler) DispatchAll(now time.Time) {
	chatIDs, err := s.meetings.DistinctChats()
	if err != nil {
		s.log.Error("failed to enumerate chats for weekly digest", err)
		return
	}

	var wg sync.WaitGroup
	for _, chatID := range chatIDs {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()

			if err := s.limiter.Wait(context.Background()); err != nil {
				return
			}
			if err := s.sendDigest(chatID, now); err != nil {
				s.log.Error("weekly digest dispatch failed", err,
					slog.Int64("chat_id", chatID))
			}
		}(chatID)
	}
	wg.Wait()

	s.log.Info("weekly digest dispatched", slog.Int("chats", len(chatIDs)))
}

func (s *Scheduler) sendDigest(chatID int64, now time.Time) error {
	text, err := s.BuildForChat(chatID, now)
	if err != nil {
		return err
	}
	return s.sender.Send(chatID, text)
}

func (s *Scheduler) pingLoop() {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ping()
		case <-s.done:
			return
		}
	}
}

// ping is a best-effort outbound probe against the configured target.
func (s *Scheduler) ping() {
	resp, err := s.client.Get(s.selfURL)
	if err != nil {
		s.log.Warn("self-ping failed", slog.String("error", err.Error()))
		return
	}
	resp.Body.Close()
	s.log.Info("self-ping successful")
}
