package validation

import (
	"strings"
	"testing"

	"reefops/internal/errors"
	"reefops/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessageInput(t *testing.T) {
	tests := []struct {
		name          string
		msg           models.Message
		hasAttachment bool
		wantErr       bool
	}{
		{
			name: "valid discussion",
			msg:  models.Message{Type: models.TypeCourseDiscussion, ScopeID: "c1", SenderID: "u1", Text: "pool session at 9"},
		},
		{
			name:          "empty text with attachment",
			msg:           models.Message{Type: models.TypeChat, ScopeID: "ch1", SenderID: "u1"},
			hasAttachment: true,
		},
		{
			name:    "empty text without attachment",
			msg:     models.Message{Type: models.TypeChat, ScopeID: "ch1", SenderID: "u1"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			msg:     models.Message{Type: "course_shout", ScopeID: "c1", SenderID: "u1", Text: "hi"},
			wantErr: true,
		},
		{
			name:    "missing scope",
			msg:     models.Message{Type: models.TypeChat, SenderID: "u1", Text: "hi"},
			wantErr: true,
		},
		{
			name:    "private without recipient",
			msg:     models.Message{Type: models.TypeTripPrivate, ScopeID: "t1", SenderID: "u1", Text: "hi"},
			wantErr: true,
		},
		{
			name:    "recipient on non-private",
			msg:     models.Message{Type: models.TypeTripDiscussion, ScopeID: "t1", SenderID: "u1", RecipientID: "u2", Text: "hi"},
			wantErr: true,
		},
		{
			name:    "oversized text",
			msg:     models.Message{Type: models.TypeChat, ScopeID: "ch1", SenderID: "u1", Text: strings.Repeat("a", 4001)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageInput(&tt.msg, tt.hasAttachment)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmoji(t *testing.T) {
	assert.NoError(t, ValidateEmoji("🤿"))
	assert.Error(t, ValidateEmoji(""))
	assert.Error(t, ValidateEmoji("🤿🤿🤿🤿🤿🤿🤿🤿🤿"))
}

func TestValidateFileSize(t *testing.T) {
	assert.NoError(t, ValidateFileSize(1024))
	assert.NoError(t, ValidateFileSize(10*1024*1024))
	assert.Error(t, ValidateFileSize(10*1024*1024+1))
	assert.Error(t, ValidateFileSize(0))
}

func TestValidateTimeRange(t *testing.T) {
	assert.NoError(t, ValidateTimeRange("09:00", "17:30"))
	assert.Error(t, ValidateTimeRange("9:00", "17:30"))
	assert.Error(t, ValidateTimeRange("17:30", "09:00"))
	assert.Error(t, ValidateTimeRange("11:00", "11:00"))
	assert.Error(t, ValidateTimeRange("24:00", "25:00"))
}

func TestValidateDateRange(t *testing.T) {
	assert.NoError(t, ValidateDateRange("2024-06-09", "2024-06-11"))
	assert.NoError(t, ValidateDateRange("2024-06-09", "2024-06-09"))
	assert.Error(t, ValidateDateRange("2024-06-11", "2024-06-09"))
	assert.Error(t, ValidateDateRange("June 9", "2024-06-11"))
}
