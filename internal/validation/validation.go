package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"reefops/internal/constants"
	"reefops/internal/errors"
	"reefops/internal/models"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ValidateMessageInput checks the sendable parts of a message. Text may be
// empty only when a file attachment accompanies the message.
func ValidateMessageInput(msg *models.Message, hasAttachment bool) error {
	if !msg.Type.IsValid() {
		return errors.NewValidationError("type", fmt.Sprintf("unknown message type %q", msg.Type))
	}
	if msg.ScopeID == "" {
		return errors.NewValidationError("scopeId", "scope ID is required")
	}
	if msg.SenderID == "" {
		return errors.NewValidationError("senderId", "sender ID is required")
	}

	family, _, err := msg.Type.Classify()
	if err != nil {
		return errors.NewValidationError("type", err.Error())
	}
	if family == models.FamilyPrivate && msg.RecipientID == "" {
		return errors.NewValidationError("recipientId", "private messages require a recipient")
	}
	if family != models.FamilyPrivate && msg.RecipientID != "" {
		return errors.NewValidationError("recipientId", "only private messages carry a recipient")
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" && !hasAttachment {
		return errors.NewValidationError("text", "message text is required without an attachment")
	}
	if utf8.RuneCountInString(msg.Text) > constants.MaxMessageTextLength {
		return errors.NewValidationError("text",
			fmt.Sprintf("message exceeds %d characters", constants.MaxMessageTextLength))
	}
	return nil
}

// ValidateEmoji bounds a reaction emoji to something short and non-empty.
// No attempt is made to verify it is a real emoji; clients send what they
// render.
func ValidateEmoji(emoji string) error {
	if emoji == "" {
		return errors.NewValidationError("emoji", "emoji is required")
	}
	if utf8.RuneCountInString(emoji) > 8 {
		return errors.NewValidationError("emoji", "emoji too long")
	}
	return nil
}

// ValidateFileSize enforces the attachment cap before upload.
func ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return errors.NewValidationError("file", "file is empty")
	}
	if sizeBytes > constants.MaxFileSizeBytes {
		return errors.NewValidationError("file",
			fmt.Sprintf("file exceeds %d MB limit", constants.MaxFileSizeBytes/(1024*1024)))
	}
	return nil
}

// ValidateDate checks YYYY-MM-DD format.
func ValidateDate(field, date string) error {
	if !datePattern.MatchString(date) {
		return errors.NewValidationError(field, "date must be YYYY-MM-DD")
	}
	return nil
}

// ValidateTimeRange checks HH:MM values and that the range is non-empty.
func ValidateTimeRange(start, end string) error {
	if !timePattern.MatchString(start) {
		return errors.NewValidationError("startTime", "time must be HH:MM")
	}
	if !timePattern.MatchString(end) {
		return errors.NewValidationError("endTime", "time must be HH:MM")
	}
	if start >= end {
		return errors.NewValidationError("endTime", "end time must be after start time")
	}
	return nil
}

// ValidateDateRange checks a whole-day range.
func ValidateDateRange(startDate, endDate string) error {
	if err := ValidateDate("startDate", startDate); err != nil {
		return err
	}
	if err := ValidateDate("endDate", endDate); err != nil {
		return err
	}
	if startDate > endDate {
		return errors.NewValidationError("endDate", "end date must not be before start date")
	}
	return nil
}
