package conversation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meetingbot/internal/app/models"
	"meetingbot/internal/app/repository"
	"meetingbot/pkg/logger"
)

func newTestManager(t *testing.T) (*Manager, *repository.MeetingRepository) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Meeting{}))

	log := logger.New()
	repo := repository.NewMeetings(db, time.UTC, log)
	return NewManager(repo, time.UTC, log), repo
}

func TestAddFlow(t *testing.T) {
	m, repo := newTestManager(t)

	assert.Equal(t, promptTitle, m.StartAdd(1))
	assert.True(t, m.Active(1))

	reply, ok := m.HandleText(1, "Standup")
	require.True(t, ok)
	assert.Equal(t, promptDescription, reply)

	reply, ok = m.HandleText(1, "daily sync")
	require.True(t, ok)
	assert.Equal(t, promptTimeRange, reply)

	reply, ok = m.HandleText(1, "2024 06 10 0900 - 0930")
	require.True(t, ok)
	assert.Equal(t, replyAdded, reply)
	assert.False(t, m.Active(1))

	meetings, err := repo.ListByChat(1)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "Standup", meetings[0].Title)
	assert.Equal(t, "daily sync", meetings[0].Description)
	assert.Equal(t, "2024-06-10T09:00:00Z", meetings[0].StartTS)
	require.NotNil(t, meetings[0].EndTS)
	assert.Equal(t, "2024-06-10T09:30:00Z", *meetings[0].EndTS)
}

func TestAddFlowSingleTimestamp(t *testing.T) {
	m, repo := newTestManager(t)

	m.StartAdd(1)
	m.HandleText(1, "One on one")
	m.HandleText(1, "with Sam")

	reply, ok := m.HandleText(1, "2024 06 11 1400")
	require.True(t, ok)
	assert.Equal(t, replyAdded, reply)

	meetings, err := repo.ListByChat(1)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Nil(t, meetings[0].EndTS)
}

// A parse failure keeps the session in the time-range step; it is the only
// retry point in the flow.
func TestAddFlowReprompsOnBadRange(t *testing.T) {
	m, repo := newTestManager(t)

	m.StartAdd(1)
	m.HandleText(1, "Standup")
	m.HandleText(1, "daily sync")

	reply, ok := m.HandleText(1, "next monday morning")
	require.True(t, ok)
	assert.Equal(t, replyRangeParseFail, reply)
	assert.True(t, m.Active(1))

	reply, _ = m.HandleText(1, "2024 06 10 0900 - 0930")
	assert.Equal(t, replyAdded, reply)

	meetings, err := repo.ListByChat(1)
	require.NoError(t, err)
	assert.Len(t, meetings, 1)
}

func TestSkipDescription(t *testing.T) {
	m, repo := newTestManager(t)

	m.StartAdd(1)
	m.HandleText(1, "Standup")

	reply, ok := m.Skip(1)
	require.True(t, ok)
	assert.Equal(t, promptTimeRange, reply)

	m.HandleText(1, "2024 06 10 0900 - 0930")

	meetings, err := repo.ListByChat(1)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Empty(t, meetings[0].Description)
}

func TestSkipOnlyValidInDescriptionStep(t *testing.T) {
	m, _ := newTestManager(t)

	_, ok := m.Skip(1)
	assert.False(t, ok)

	m.StartAdd(1)
	_, ok = m.Skip(1)
	assert.False(t, ok)
}

func TestCancelDiscardsPartial(t *testing.T) {
	m, repo := newTestManager(t)

	m.StartAdd(1)
	m.HandleText(1, "Standup")

	reply, ok := m.Cancel(1)
	require.True(t, ok)
	assert.Equal(t, replyAddCancelled, reply)
	assert.False(t, m.Active(1))

	meetings, err := repo.ListByChat(1)
	require.NoError(t, err)
	assert.Empty(t, meetings)

	_, ok = m.Cancel(1)
	assert.False(t, ok)
}

// A second /add while a session is live continues the pending step instead
// of restarting the flow.
func TestSecondAddContinuesSession(t *testing.T) {
	m, repo := newTestManager(t)

	m.StartAdd(1)
	m.HandleText(1, "Standup")

	assert.Equal(t, promptDescription, m.StartAdd(1))

	m.HandleText(1, "daily sync")
	m.HandleText(1, "2024 06 10 0900 - 0930")

	meetings, err := repo.ListByChat(1)
	require.NoError(t, err)
	assert.Len(t, meetings, 1)
}

func TestSessionsAreIndependentPerChat(t *testing.T) {
	m, repo := newTestManager(t)

	m.StartAdd(1)
	m.StartAdd(2)

	m.HandleText(1, "Standup")
	m.HandleText(2, "Retro")
	m.HandleText(1, "daily")
	m.HandleText(2, "monthly")
	m.HandleText(1, "2024 06 10 0900 - 0930")
	m.HandleText(2, "2024 06 14 1600 - 1700")

	first, err := repo.ListByChat(1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "Standup", first[0].Title)

	second, err := repo.ListByChat(2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Retro", second[0].Title)
}

func TestHandleTextWithoutSession(t *testing.T) {
	m, _ := newTestManager(t)

	_, ok := m.HandleText(1, "hello")
	assert.False(t, ok)
}

func TestEditFlow(t *testing.T) {
	m, repo := newTestManager(t)

	id, err := repo.Add(1, "Standup", "daily", time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	assert.Equal(t, promptEditField, m.StartEdit(1, id))

	reply, ok := m.HandleText(1, "color")
	require.True(t, ok)
	assert.Equal(t, "Field must be one of: title, description, start, end.", reply)

	reply, _ = m.HandleText(1, "title")
	assert.Equal(t, promptEditValue, reply)

	reply, _ = m.HandleText(1, "Daily standup")
	assert.Equal(t, replyUpdated, reply)
	assert.False(t, m.Active(1))

	meeting, err := repo.Get(id)
	require.NoError(t, err)
	require.NotNil(t, meeting)
	assert.Equal(t, "Daily standup", meeting.Title)
	assert.Equal(t, "daily", meeting.Description)
}

func TestEditStartReprompsOnBadValue(t *testing.T) {
	m, repo := newTestManager(t)

	id, err := repo.Add(1, "Standup", "", time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	m.StartEdit(1, id)
	m.HandleText(1, "start")

	reply, _ := m.HandleText(1, "monday")
	assert.Equal(t, replySingleParseFail, reply)
	assert.True(t, m.Active(1))

	reply, _ = m.HandleText(1, "2024 06 11 1000")
	assert.Equal(t, replyUpdated, reply)

	meeting, err := repo.Get(id)
	require.NoError(t, err)
	require.NotNil(t, meeting)
	assert.Equal(t, "2024-06-11T10:00:00Z", meeting.StartTS)
}

func TestEditClearEnd(t *testing.T) {
	m, repo := newTestManager(t)

	end := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	id, err := repo.Add(1, "Standup", "", time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), &end)
	require.NoError(t, err)

	m.StartEdit(1, id)
	m.HandleText(1, "end")
	reply, _ := m.HandleText(1, "-")
	assert.Equal(t, replyUpdated, reply)

	meeting, err := repo.Get(id)
	require.NoError(t, err)
	require.NotNil(t, meeting)
	assert.Nil(t, meeting.EndTS)
}

func TestEditScopedToOwningChat(t *testing.T) {
	m, repo := newTestManager(t)

	id, err := repo.Add(2, "theirs", "", time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	assert.Equal(t, "You can only edit meetings in this chat.", m.StartEdit(1, id))
	assert.False(t, m.Active(1))
}

func TestEditAbsentMeeting(t *testing.T) {
	m, _ := newTestManager(t)

	assert.Equal(t, "No meeting with that ID.", m.StartEdit(1, 999))
	assert.False(t, m.Active(1))
}
