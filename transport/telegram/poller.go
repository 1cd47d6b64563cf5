package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/gate"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const welcomeMessage = "👋 Hi! Codes you request with the \"Get code\" button in your group will arrive here."

// Retriever is the access gate as seen by the poller.
type Retriever interface {
	Retrieve(ctx context.Context, groupID, userID int64) (gate.Result, error)
}

// Poller reads updates and answers retrieval button presses. Each press is
// handled on its own goroutine.
type Poller struct {
	api            API
	gate           Retriever
	logger         *logging.Service
	pollTimeout    int
	requestTimeout time.Duration

	cancel   context.CancelFunc
	done     chan struct{}
	handlers sync.WaitGroup
}

func NewPoller(api API, retriever Retriever, pollTimeout int, requestTimeout time.Duration, logger *logging.Service) *Poller {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Poller{
		api:            api,
		gate:           retriever,
		logger:         logger,
		pollTimeout:    pollTimeout,
		requestTimeout: requestTimeout,
	}
}

func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.pollTimeout
	cfg.AllowedUpdates = []string{"callback_query", "message"}
	updates := p.api.GetUpdatesChan(cfg)

	go p.run(ctx, updates)
	p.logger.Info("telegram poller started")
}

// Stop ends polling and waits for in-flight presses to finish until ctx
// expires. Presses are not cancelled.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.api.StopReceivingUpdates()
	p.cancel()

	finished := make(chan struct{})
	go func() {
		<-p.done
		p.handlers.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.logger.Info("telegram poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			p.dispatch(ctx, update)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		// Presses outlive Stop; requestTimeout bounds each one.
		pressCtx := context.WithoutCancel(ctx)
		p.handlers.Add(1)
		go func() {
			defer p.handlers.Done()
			p.handleCallback(pressCtx, update.CallbackQuery)
		}()
	case update.Message != nil && update.Message.Chat != nil && update.Message.Chat.IsPrivate() && update.Message.IsCommand():
		if update.Message.Command() == "start" {
			if _, err := p.api.Send(tgbotapi.NewMessage(update.Message.Chat.ID, welcomeMessage)); err != nil {
				p.logger.Warn("failed to greet user", zap.Error(err))
			}
		}
	}
}

func (p *Poller) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From == nil {
		return
	}
	log := p.logger.With(zap.Int64("user_id", query.From.ID))

	groupID, err := transport.ParseRetrievePayload(query.Data)
	if err != nil {
		log.Debug("ignoring callback with foreign payload", zap.String("data", query.Data))
		p.answer(log, query.ID, gate.MessageInvalidGroup, true)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	_, err = p.gate.Retrieve(ctx, groupID, query.From.ID)
	if err != nil && !errors.Is(err, gate.ErrDelivery) {
		log.Debug("retrieval denied", zap.Int64("group_id", groupID), zap.Error(err))
	}
	p.answer(log, query.ID, gate.Message(err), err != nil)
}

func (p *Poller) answer(log *logging.Service, queryID, text string, alert bool) {
	cb := tgbotapi.NewCallback(queryID, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(queryID, text)
	}
	if _, err := p.api.Request(cb); err != nil {
		log.Warn("failed to answer callback", zap.Error(err))
	}
}
