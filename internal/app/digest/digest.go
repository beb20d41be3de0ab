// Package digest builds the per-chat meeting summaries and runs the
// timer-driven jobs that deliver them.
package digest

import (
	"fmt"
	"strings"
	"time"

	"meetingbot/internal/app/models"
	"meetingbot/internal/app/timeparse"
)

const (
	digestHeader  = "Your upcoming meetings (next 7 days):"
	NoMeetingsMsg = "No meetings scheduled for the next 7 days."
)

// FormatRow renders one meeting the way /list shows it:
//
//	id: [1] Standup
//	2024 06 10 0900 - 0930
//	desc: ...
func FormatRow(m models.Meeting, loc *time.Location) string {
	row := fmt.Sprintf("id: [%d] %s\n%s",
		m.ID, m.Title, timeparse.FormatStoredRange(m.StartTS, m.EndTS, loc))
	if m.Description != "" {
		row += "\ndesc: " + m.Description
	}
	return row
}

// BuildForChat formats the digest for every meeting starting inside
// [now, now+7d]. An empty window yields NoMeetingsMsg, never an empty
// string.
func (s *Scheduler) BuildForChat(chatID int64, now time.Time) (string, error) {
	meetings, err := s.meetings.RangeQuery(chatID, now, now.AddDate(0, 0, 7))
	if err != nil {
		return "", err
	}

	if len(meetings) == 0 {
		return NoMeetingsMsg, nil
	}

	parts := make([]string, 0, len(meetings)+1)
	parts = append(parts, digestHeader)
	for i, m := range meetings {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, FormatRow(m, s.loc)))
	}
	return strings.Join(parts, "\n\n"), nil
}
