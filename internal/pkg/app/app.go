package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meetingbot/internal/app/config"
	"meetingbot/internal/app/conversation"
	"meetingbot/internal/app/digest"
	"meetingbot/internal/app/models"
	"meetingbot/internal/app/repository"
	"meetingbot/pkg/logger"
)

const startMessage = "Hi! I'm your MeetingBot.\nCommands:\n" +
	"/add - add a meeting\n" +
	"/list - list meetings\n" +
	"/delete <id> - delete meeting\n" +
	"/edit <id> - edit meeting\n" +
	"/weekly - send weekly schedule now\n\n" +
	"Date/time format for adding: YYYY MM DD HHMM - HHMM"

type App struct {
	log      *logger.Logger
	cfg      *config.Config
	db       *gorm.DB
	loc      *time.Location
	meetings *repository.MeetingRepository
	conv     *conversation.Manager
	sched    *digest.Scheduler
	bot      *tele.Bot
}

// botSender adapts the telebot client to the scheduler's Sender.
type botSender struct {
	bot *tele.Bot
}

func (s *botSender) Send(chatID int64, text string) error {
	_, err := s.bot.Send(tele.ChatID(chatID), text)
	return err
}

func New() error {
	a := &App{
		log: logger.New(),
	}

	var err error
	a.cfg, err = config.NewConfig()
	if err != nil {
		a.log.Error("Error loading config from env", err)
		return err
	}
	a.log.SetLogLevel(a.cfg.LoggerLevel)

	a.loc, err = time.LoadLocation(a.cfg.Timezone)
	if err != nil {
		a.log.Error("Invalid TIMEZONE", err, slog.String("timezone", a.cfg.Timezone))
		return err
	}

	a.db, err = gorm.Open(sqlite.Open(a.cfg.DBPath), &gorm.Config{})
	if err != nil {
		return err
	}
	err = a.db.AutoMigrate(&models.Meeting{})
	if err != nil {
		return err
	}

	a.meetings = repository.NewMeetings(a.db, a.loc, a.log)
	a.conv = conversation.NewManager(a.meetings, a.loc, a.log)

	go a.runHealthServer()

	return RunBot(a)
}

// runHealthServer exposes the liveness endpoint uptime monitors poll.
func (a *App) runHealthServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Bot is running ✅")
	})

	if err := http.ListenAndServe(fmt.Sprintf(":%d", a.cfg.Port), mux); err != nil {
		a.log.Error("health server stopped", err)
	}
}

func RunBot(a *App) error {
	pref := tele.Settings{
		Token:  a.cfg.TelegramAPI,
		Poller: &tele.LongPoller{Timeout: 1 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return err
	}
	a.bot = b

	weeklyDay, err := digest.ParseWeekday(a.cfg.WeeklyDay)
	if err != nil {
		a.log.Error("Invalid WEEKLY_DAY", err, slog.String("day", a.cfg.WeeklyDay))
		return err
	}

	a.sched = digest.NewScheduler(a.meetings, &botSender{bot: b}, a.loc,
		digest.Cadence{Day: weeklyDay, Hour: a.cfg.WeeklyHour, Minute: a.cfg.WeeklyMinute},
		a.cfg.SelfURL, a.cfg.PingInterval, a.log)
	a.sched.Start()
	defer a.sched.Stop()

	b.Handle("/start", func(c tele.Context) error {
		return c.Send(startMessage)
	})

	b.Handle("/add", func(c tele.Context) error {
		return c.Send(a.conv.StartAdd(c.Chat().ID))
	})

	b.Handle("/skip", func(c tele.Context) error {
		reply, ok := a.conv.Skip(c.Chat().ID)
		if !ok {
			return c.Send("Nothing to skip.")
		}
		return c.Send(reply)
	})

	b.Handle("/cancel", func(c tele.Context) error {
		reply, ok := a.conv.Cancel(c.Chat().ID)
		if !ok {
			return c.Send("Nothing to cancel.")
		}
		return c.Send(reply)
	})

	b.Handle(tele.OnText, func(c tele.Context) error {
		reply, ok := a.conv.HandleText(c.Chat().ID, c.Text())
		if !ok {
			return nil
		}
		return c.Send(reply)
	})

	b.Handle("/list", func(c tele.Context) error {
		meetings, err := a.meetings.ListByChat(c.Chat().ID)
		if err != nil {
			a.log.Error("list failed", err, slog.Int64("chat_id", c.Chat().ID))
			return c.Send("Something went wrong, try again later.")
		}
		if len(meetings) == 0 {
			return c.Send("No meetings stored.")
		}

		rows := make([]string, 0, len(meetings))
		for _, m := range meetings {
			rows = append(rows, digest.FormatRow(m, a.loc))
		}
		return c.Send(strings.Join(rows, "\n\n"))
	})

	b.Handle("/delete", func(c tele.Context) error {
		payload := strings.TrimSpace(c.Message().Payload)
		if payload == "" {
			return c.Send("Usage: /delete <id>")
		}
		id, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return c.Send("ID must be a number.")
		}

		m, err := a.meetings.Get(id)
		if err != nil {
			a.log.Error("delete lookup failed", err, slog.Int64("id", id))
			return c.Send("Something went wrong, try again later.")
		}
		if m == nil {
			return c.Send("No meeting with that ID.")
		}
		if m.ChatID != c.Chat().ID {
			return c.Send("You can only delete meetings in this chat.")
		}

		if err := a.meetings.Delete(id, c.Chat().ID); err != nil {
			a.log.Error("delete failed", err, slog.Int64("id", id))
			return c.Send("Something went wrong, try again later.")
		}
		return c.Send("Deleted ✅")
	})

	b.Handle("/edit", func(c tele.Context) error {
		payload := strings.TrimSpace(c.Message().Payload)
		if payload == "" {
			return c.Send("Usage: /edit <id>")
		}
		id, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return c.Send("ID must be a number.")
		}
		return c.Send(a.conv.StartEdit(c.Chat().ID, id))
	})

	b.Handle("/weekly", func(c tele.Context) error {
		text, err := a.sched.BuildForChat(c.Chat().ID, time.Now().In(a.loc))
		if err != nil {
			a.log.Error("weekly digest failed", err, slog.Int64("chat_id", c.Chat().ID))
			return c.Send("Something went wrong, try again later.")
		}
		return c.Send(text)
	})

	a.log.Info("starting bot")
	b.Start()
	return nil
}
