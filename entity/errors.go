package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned when the session cannot be recovered by a
// token refresh. Stored credentials are already cleared when it is returned.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is any non-2xx response that was not recovered by a token refresh.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.Status, e.Message())
}

// Message returns the server-provided message when the body is a JSON object
// carrying one, the raw body otherwise.
func (e *APIError) Message() string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	return strings.TrimSpace(e.Body)
}

// NetworkError is a transport level failure: DNS, refused connection, timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type ValidationReason string

const (
	ValidationEmptySelection   ValidationReason = "empty_selection"
	ValidationMissingSchedule  ValidationReason = "missing_schedule"
	ValidationUnresolvedTicket ValidationReason = "unresolved_ticket"
)

// ValidationError is raised locally before any network call is made.
type ValidationError struct {
	Reason ValidationReason
	SeatID ID
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ValidationEmptySelection:
		return "selection is empty: choose at least one seat"
	case ValidationMissingSchedule:
		return "no event schedule selected"
	case ValidationUnresolvedTicket:
		return fmt.Sprintf("no ticket found for seat %s", e.SeatID)
	default:
		return string(e.Reason)
	}
}
