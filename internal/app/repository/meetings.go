package repository

import (
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"meetingbot/internal/app/models"
	"meetingbot/pkg/logger"
)

// ErrInvalidField is returned by UpdateField for a field name outside the
// allow-list, before anything touches storage.
var ErrInvalidField = errors.New("invalid meeting field")

// fieldColumns is the UpdateField allow-list. It is the only open-ended
// field name the repository accepts, hence the only guarded operation.
var fieldColumns = map[string]string{
	"title":       "title",
	"description": "description",
	"start":       "start_ts",
	"end":         "end_ts",
}

// MeetingRepository persists meetings through gorm. Every operation opens,
// performs, and releases its own statement; there are no transactions
// spanning calls, so multi-step flows (lookup then delete) must tolerate
// benign races between the steps.
type MeetingRepository struct {
	log *logger.Logger
	db  *gorm.DB
	loc *time.Location
}

func NewMeetings(db *gorm.DB, loc *time.Location, log *logger.Logger) *MeetingRepository {
	return &MeetingRepository{
		log: log,
		db:  db,
		loc: loc,
	}
}

// Add inserts a new meeting and returns its id. Ids are assigned by the
// store and never reused after deletion.
func (mr *MeetingRepository) Add(chatID int64, title, description string, start time.Time, end *time.Time) (int64, error) {
	m := models.Meeting{
		ChatID:      chatID,
		Title:       title,
		Description: description,
		StartTS:     start.Format(time.RFC3339),
		CreatedTS:   time.Now().In(mr.loc).Format(time.RFC3339),
	}
	if end != nil {
		ts := end.Format(time.RFC3339)
		m.EndTS = &ts
	}

	if err := mr.db.Create(&m).Error; err != nil {
		return 0, err
	}

	mr.log.Info("added meeting",
		slog.Int64("chat_id", chatID), slog.String("title", title))
	return m.ID, nil
}

// ListByChat returns the chat's meetings sorted by start ascending. An
// empty slice, not an error, when none exist.
func (mr *MeetingRepository) ListByChat(chatID int64) ([]models.Meeting, error) {
	var meetings []models.Meeting
	err := mr.db.
		Where("chat_id = ?", chatID).
		Order("start_ts").
		Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// Get returns nil, nil when no meeting with id exists.
func (mr *MeetingRepository) Get(id int64) (*models.Meeting, error) {
	var m models.Meeting
	err := mr.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete removes the meeting only when it belongs to chatID. Deleting an
// absent or out-of-scope id is a no-op; callers distinguish "not found" by
// a prior Get.
func (mr *MeetingRepository) Delete(id, chatID int64) error {
	res := mr.db.
		Where("id = ? AND chat_id = ?", id, chatID).
		Delete(&models.Meeting{})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected > 0 {
		mr.log.Info("deleted meeting",
			slog.Int64("id", id), slog.Int64("chat_id", chatID))
	}
	return nil
}

// UpdateField sets one of title, description, start or end. Time values
// may be passed as time.Time or *time.Time; a nil *time.Time clears the
// column.
func (mr *MeetingRepository) UpdateField(id int64, field string, value any) error {
	column, ok := fieldColumns[field]
	if !ok {
		return ErrInvalidField
	}

	switch v := value.(type) {
	case time.Time:
		value = v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			value = nil
		} else {
			value = v.Format(time.RFC3339)
		}
	}

	err := mr.db.Model(&models.Meeting{}).
		Where("id = ?", id).
		Update(column, value).Error
	if err != nil {
		return err
	}

	mr.log.Info("updated meeting field",
		slog.Int64("id", id), slog.String("field", field))
	return nil
}

// RangeQuery returns the chat's meetings whose start falls in [from, to]
// inclusive, sorted ascending. Comparison runs on the stored RFC3339 text,
// which is ordered correctly for a fixed-offset zone.
func (mr *MeetingRepository) RangeQuery(chatID int64, from, to time.Time) ([]models.Meeting, error) {
	var meetings []models.Meeting
	err := mr.db.
		Where("chat_id = ? AND start_ts >= ? AND start_ts <= ?",
			chatID, from.Format(time.RFC3339), to.Format(time.RFC3339)).
		Order("start_ts").
		Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// DistinctChats returns every chat id with at least one stored meeting.
func (mr *MeetingRepository) DistinctChats() ([]int64, error) {
	var chatIDs []int64
	err := mr.db.Model(&models.Meeting{}).
		Distinct("chat_id").
		Pluck("chat_id", &chatIDs).Error
	if err != nil {
		return nil, err
	}
	return chatIDs, nil
}
