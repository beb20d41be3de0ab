// Package conversation implements the per-chat guided-entry flow that
// collects a new meeting's fields step by step, plus the field-edit flow.
// State lives only in process memory; nothing is persisted until a flow
// reaches its terminal step, so a restart drops in-flight sessions.
package conversation

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"meetingbot/internal/app/repository"
	"meetingbot/internal/app/timeparse"
	"meetingbot/pkg/logger"
)

type step int

const (
	stepTitle step = iota
	stepDescription
	stepTimeRange
	stepEditField
	stepEditValue
)

type session struct {
	step        step
	title       string
	description string

	editID    int64
	editField string
}

const (
	promptTitle       = "Send meeting title:"
	promptDescription = "Send a description (or /skip):"
	promptTimeRange   = "Send date/time range (YYYY MM DD HHMM - HHMM):"
	promptEditField   = "Which field? (title, description, start, end)"
	promptEditValue   = "Send the new value:"
	promptEditStart   = "Send new start (YYYY MM DD HHMM):"
	promptEditEnd     = "Send new end (YYYY MM DD HHMM, or - to clear):"

	replyRangeParseFail  = "Couldn't parse. Format: YYYY MM DD HHMM - HHMM"
	replySingleParseFail = "Couldn't parse. Format: YYYY MM DD HHMM"
	replyAdded           = "Meeting added ✅"
	replyUpdated         = "Meeting updated ✅"
	replyAddCancelled    = "Add cancelled."
	replyEditCancelled   = "Edit cancelled."
	replyStorageFail     = "Something went wrong, try again later."
)

// Manager holds at most one live session per chat. A second /add or /edit
// while a session is live re-prompts the pending step instead of starting
// an overlapping session.
type Manager struct {
	log      *logger.Logger
	meetings *repository.MeetingRepository
	loc      *time.Location

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewManager(meetings *repository.MeetingRepository, loc *time.Location, log *logger.Logger) *Manager {
	return &Manager{
		log:      log,
		meetings: meetings,
		loc:      loc,
		sessions: make(map[int64]*session),
	}
}

// Active reports whether the chat has a live session; the transport layer
// uses it to decide where plain text goes.
func (m *Manager) Active(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[chatID]
	return ok
}

// StartAdd begins the add flow for the chat, or re-prompts the pending
// step when a session is already live.
func (m *Manager) StartAdd(chatID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[chatID]; ok {
		return prompt(s)
	}

	m.sessions[chatID] = &session{step: stepTitle}
	return promptTitle
}

// StartEdit begins the edit flow for an existing meeting owned by the
// chat, or re-prompts the pending step when a session is already live.
func (m *Manager) StartEdit(chatID, meetingID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[chatID]; ok {
		return prompt(s)
	}

	meeting, err := m.meetings.Get(meetingID)
	if err != nil {
		m.log.Error("edit lookup failed", err, slog.Int64("id", meetingID))
		return replyStorageFail
	}
	if meeting == nil {
		return "No meeting with that ID."
	}
	if meeting.ChatID != chatID {
		return "You can only edit meetings in this chat."
	}

	m.sessions[chatID] = &session{step: stepEditField, editID: meetingID}
	return promptEditField
}

// Skip completes the description step with an empty description. It is
// valid only while that step is pending; ok is false otherwise.
func (m *Manager) Skip(chatID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[chatID]
	if !ok || s.step != stepDescription {
		return "", false
	}

	s.description = ""
	s.step = stepTimeRange
	return promptTimeRange, true
}

// Cancel discards the chat's live session. ok is false when there is
// nothing to cancel.
func (m *Manager) Cancel(chatID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[chatID]
	if !ok {
		return "", false
	}

	delete(m.sessions, chatID)
	if s.step == stepEditField || s.step == stepEditValue {
		return replyEditCancelled, true
	}
	return replyAddCancelled, true
}

// HandleText feeds a free-text reply into the chat's live session and
// returns the next prompt. ok is false when no session is live.
func (m *Manager) HandleText(chatID int64, text string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[chatID]
	if !ok {
		return "", false
	}

	text = strings.TrimSpace(text)

	switch s.step {
	case stepTitle:
		if text == "" {
			return promptTitle, true
		}
		s.title = text
		s.step = stepDescription
		return promptDescription, true

	case stepDescription:
		s.description = text
		s.step = stepTimeRange
		return promptTimeRange, true

	case stepTimeRange:
		return m.commitAdd(chatID, s, text), true

	case stepEditField:
		field := strings.ToLower(text)
		if _, ok := editValuePrompts[field]; !ok {
			return "Field must be one of: title, description, start, end.", true
		}
		s.editField = field
		s.step = stepEditValue
		return editValuePrompts[field], true

	case stepEditValue:
		return m.commitEdit(chatID, s, text), true
	}

	return "", false
}

var editValuePrompts = map[string]string{
	"title":       promptEditValue,
	"description": promptEditValue,
	"start":       promptEditStart,
	"end":         promptEditEnd,
}

// commitAdd is the only retry point in the add flow: a parse failure keeps
// the session in the time-range step. On success exactly one store Add
// runs and the session is destroyed.
func (m *Manager) commitAdd(chatID int64, s *session, text string) string {
	var end *time.Time

	start, e, ok := timeparse.ParseRange(text, m.loc)
	if ok {
		end = &e
	} else {
		start, ok = timeparse.ParseSingle(text, m.loc)
	}
	if !ok {
		return replyRangeParseFail
	}

	if _, err := m.meetings.Add(chatID, s.title, s.description, start, end); err != nil {
		m.log.Error("failed to save meeting", err, slog.Int64("chat_id", chatID))
		return replyStorageFail
	}

	delete(m.sessions, chatID)
	return replyAdded
}

func (m *Manager) commitEdit(chatID int64, s *session, text string) string {
	var value any

	switch s.editField {
	case "title":
		if text == "" {
			return promptEditValue
		}
		value = text
	case "description":
		value = text
	case "start":
		t, ok := timeparse.ParseSingle(text, m.loc)
		if !ok {
			return replySingleParseFail
		}
		value = t
	case "end":
		if text == "-" {
			value = (*time.Time)(nil)
		} else {
			t, ok := timeparse.ParseSingle(text, m.loc)
			if !ok {
				return replySingleParseFail
			}
			value = t
		}
	}

	if err := m.meetings.UpdateField(s.editID, s.editField, value); err != nil {
		m.log.Error("failed to update meeting", err, slog.Int64("id", s.editID))
		return replyStorageFail
	}

	delete(m.sessions, chatID)
	return replyUpdated
}

func prompt(s *session) string {
	switch s.step {
	case stepTitle:
		return promptTitle
	case stepDescription:
		return promptDescription
	case stepTimeRange:
		return promptTimeRange
	case stepEditField:
		return promptEditField
	case stepEditValue:
		return editValuePrompts[s.editField]
	}
	return promptTitle
}
