package privacy

import (
	"strings"
)

// MaskEmail masks the local part of an email address.
// Example: "ana.reyes@example.com" -> "a*******s@example.com"
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return maskString(email, 2)
	}

	local := email[:at]
	domain := email[at:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + domain
}

// MaskUserID masks a user identifier, keeping the tail for log correlation.
// Example: "user123456" -> "******3456"
func MaskUserID(userID string) string {
	if userID == "" {
		return ""
	}
	return maskString(userID, 4)
}

// MaskMessageID keeps the last 8 characters so related log lines can still
// be matched up during debugging.
func MaskMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}
	return maskString(messageID, 8)
}

// MaskToken fully masks credentials regardless of length.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	return "[REDACTED]"
}

func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields.
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{})
	for k, v := range fields {
		s, isString := v.(string)
		if !isString {
			masked[k] = v
			continue
		}
		switch k {
		case "email", "from_addr", "to_addr":
			masked[k] = MaskEmail(s)
		case "user_id", "userId", "sender_id", "senderId", "recipient_id", "recipientId", "staff_id", "staffId":
			masked[k] = MaskUserID(s)
		case "message_id", "messageId":
			masked[k] = MaskMessageID(s)
		case "token", "api_key", "jwt":
			masked[k] = MaskToken(s)
		default:
			masked[k] = v
		}
	}

	return masked
}
