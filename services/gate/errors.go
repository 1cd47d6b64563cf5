package gate

import (
	"errors"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
)

var (
	ErrBlocked           = errors.New("user is blocked in this group")
	ErrAttemptsExhausted = errors.New("no attempts left")
	ErrConfiguration     = errors.New("group is not configured for code retrieval")
	ErrGeneration        = errors.New("code generation failed")
	ErrRecording         = errors.New("attempt could not be recorded")
	ErrDelivery          = errors.New("code could not be delivered privately")
)

const (
	MessageBlocked       = "⛔ You are blocked from receiving codes in this group."
	MessageExhausted     = "❌ You have used all your attempts for this group. Ask an admin for more."
	MessageConfiguration = "⚠️ This group is not set up for codes yet. The admins have been notified."
	MessageGeneration    = "⚠️ A code could not be generated right now. Please try again later."
	MessageRecording     = "⚠️ Your request could not be recorded. Please try again."
	MessageDelivery      = "📩 I could not message you privately. Start a private chat with me, then try again."
	MessageInvalidGroup  = "❓ This button does not belong to a known group."
	MessageUnexpected    = "⚠️ Something went wrong. Please try again later."
	MessageSent          = "✅ The code was sent to you in a private message."
)

// Message maps a gate error to the text shown to the requesting user. It
// never includes internal detail.
func Message(err error) string {
	switch {
	case err == nil:
		return MessageSent
	case errors.Is(err, ErrBlocked):
		return MessageBlocked
	case errors.Is(err, ErrAttemptsExhausted):
		return MessageExhausted
	case errors.Is(err, ErrConfiguration):
		return MessageConfiguration
	case errors.Is(err, ErrGeneration):
		return MessageGeneration
	case errors.Is(err, ErrRecording):
		return MessageRecording
	case errors.Is(err, ErrDelivery):
		return MessageDelivery
	case errors.Is(err, registry.ErrInvalidGroupID):
		return MessageInvalidGroup
	default:
		return MessageUnexpected
	}
}
