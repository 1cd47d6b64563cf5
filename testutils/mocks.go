package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) SendPrivate(ctx context.Context, userID int64, text string) error {
	args := m.Called(ctx, userID, text)
	return args.Error(0)
}

func (m *MockTransport) SendToGroup(ctx context.Context, groupID int64, text string, affordance *transport.Affordance) error {
	args := m.Called(ctx, groupID, text, affordance)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyFault(ctx context.Context, subject, body string) error {
	args := m.Called(ctx, subject, body)
	return args.Error(0)
}

type MockRevocationService struct {
	mock.Mock
}

func (m *MockRevocationService) IsTokenRevoked(jti string) (bool, error) {
	args := m.Called(jti)
	return args.Bool(0), args.Error(1)
}

func (m *MockRevocationService) RevokeToken(jti string, expiresAt time.Time) error {
	args := m.Called(jti, expiresAt)
	return args.Error(0)
}

// SentMessage is one delivery captured by RecordingTransport.
type SentMessage struct {
	ChatID     int64
	Text       string
	Affordance *transport.Affordance
	Private    bool
}

// RecordingTransport captures deliveries and can be told to fail.
type RecordingTransport struct {
	mu          sync.Mutex
	messages    []SentMessage
	PrivateErr  error
	GroupErr    error
	OnGroupSend func(groupID int64)
}

func (r *RecordingTransport) SendPrivate(_ context.Context, userID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PrivateErr != nil {
		return r.PrivateErr
	}
	r.messages = append(r.messages, SentMessage{ChatID: userID, Text: text, Private: true})
	return nil
}

func (r *RecordingTransport) SendToGroup(_ context.Context, groupID int64, text string, affordance *transport.Affordance) error {
	r.mu.Lock()
	err := r.GroupErr
	if err == nil {
		r.messages = append(r.messages, SentMessage{ChatID: groupID, Text: text, Affordance: affordance})
	}
	hook := r.OnGroupSend
	r.mu.Unlock()

	if hook != nil {
		hook(groupID)
	}
	return err
}

func (r *RecordingTransport) Messages() []SentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SentMessage(nil), r.messages...)
}

// GroupMessages counts messages delivered to groupID.
func (r *RecordingTransport) GroupMessages(groupID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if !m.Private && m.ChatID == groupID {
			n++
		}
	}
	return n
}

func (r *RecordingTransport) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
