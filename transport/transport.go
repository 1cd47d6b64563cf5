// Package transport defines how the bot talks to its message channel. The
// core only depends on Transport; concrete clients live in subpackages.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrTransportFailure = errors.New("transport failure")
	ErrInvalidPayload   = errors.New("invalid callback payload")
)

// Affordance is an interactive button attached to a group message.
type Affordance struct {
	Label   string
	Payload string
}

// Transport delivers text. Both calls are fallible and are not retried by
// the caller.
type Transport interface {
	SendPrivate(ctx context.Context, userID int64, text string) error
	SendToGroup(ctx context.Context, groupID int64, text string, affordance *Affordance) error
}

const retrievePrefix = "code:"

// RetrievePayload encodes the callback payload of the "retrieve code" button.
func RetrievePayload(groupID int64) string {
	return retrievePrefix + strconv.FormatInt(groupID, 10)
}

// ParseRetrievePayload is the inverse of RetrievePayload.
func ParseRetrievePayload(payload string) (int64, error) {
	rest, ok := strings.CutPrefix(payload, retrievePrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPayload, payload)
	}
	groupID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPayload, payload)
	}
	return groupID, nil
}

// IsGroupChat reports whether id addresses a broadcast-capable chat rather
// than a personal inbox. Group, supergroup and channel ids are negative.
func IsGroupChat(id int64) bool {
	return id < 0
}

// Failure wraps err so callers can match ErrTransportFailure.
func Failure(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrTransportFailure, op, err)
}
