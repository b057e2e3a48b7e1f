package errors

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	err := New(ErrCodePermission, "sender is not the instructor")
	assert.Equal(t, "PERMISSION: sender is not the instructor", err.Error())

	wrapped := Wrap(fmt.Errorf("disk full"), ErrCodeServer, "insert failed")
	assert.Equal(t, "SERVER: insert failed: disk full", wrapped.Error())
	assert.Equal(t, "disk full", wrapped.Unwrap().Error())
}

func TestWithContext(t *testing.T) {
	err := New(ErrCodeNotFound, "message not found").
		WithContext("message_id", "m-42").
		WithContext("scope_id", "course-1")
	require.NotNil(t, err.Context)
	assert.Equal(t, "m-42", err.Context["message_id"])
	assert.Equal(t, "course-1", err.Context["scope_id"])
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeValidation, GetCode(New(ErrCodeValidation, "empty text")))
	assert.Equal(t, ErrCodeUnknown, GetCode(fmt.Errorf("plain error")))
	assert.True(t, Is(NewPermissionError("nope"), ErrCodePermission))
}

func TestGetUserMessage(t *testing.T) {
	err := New(ErrCodeValidation, "text too long").WithUserMessage("Message is too long")
	assert.Equal(t, "Message is too long", GetUserMessage(err))
	assert.Equal(t, "An internal error occurred", GetUserMessage(fmt.Errorf("oops")))
}

func TestClassifyStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"no rows maps to not found", sql.ErrNoRows, ErrCodeNotFound},
		{"deadline maps to network", context.DeadlineExceeded, ErrCodeNetwork},
		{"cancel maps to network", context.Canceled, ErrCodeNetwork},
		{"anything else maps to server", fmt.Errorf("constraint failed"), ErrCodeServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyStoreError("get message", tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.code, classified.Code)
		})
	}

	// Already-classified errors pass through untouched.
	original := NewPermissionError("not a member")
	assert.Same(t, original, ClassifyStoreError("send", original))
	assert.Nil(t, ClassifyStoreError("send", nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(ErrCodeValidation, "x")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(New(ErrCodePermission, "x")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(New(ErrCodeNotFound, "x")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(New(ErrCodeNetwork, "x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("plain")))
}
