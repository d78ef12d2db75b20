// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxUserIDLen = 64

var (
	ErrEmptyUserID   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
	ErrBadUserID     = errors.New("user id contains reserved characters")
)

type (
	// UserID is the verified identity handed over by the identity provider.
	UserID string
	// ConnID identifies one live transport session, not a user.
	ConnID string
)

// ValidateUserID is the single gate every inbound user id passes through.
func ValidateUserID(id UserID) error {
	if len(id) == 0 {
		return ErrEmptyUserID
	}
	if len(id) > MaxUserIDLen {
		return ErrUserIDTooLong
	}
	if strings.Contains(string(id), channelSep) {
		return ErrBadUserID
	}
	return nil
}
