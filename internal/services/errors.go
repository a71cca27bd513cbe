package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientMembers = fmt.Errorf("%w: more than 2 users are required to form a group chat", ErrInvalidInput)
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrForbidden           = errors.New("forbidden")
	ErrUserNotFound        = errors.New("user not found")
	ErrChatNotFound        = errors.New("chat not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrNotChatMember       = fmt.Errorf("%w: user is not a member of this chat", ErrForbidden)
	ErrNotGroupAdmin       = fmt.Errorf("%w: only the group admin can do this", ErrForbidden)
	ErrEmailTaken          = errors.New("user already exists")
	ErrUpstream            = errors.New("upstream service failed")
)

// invalid wraps ErrInvalidInput with a client facing reason.
func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}
