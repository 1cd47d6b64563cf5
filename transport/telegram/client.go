// Package telegram carries the bot's messages over the Telegram Bot API
// and turns "Get code" button presses into retrieval requests.
package telegram

import (
	"context"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client implements transport.Transport.
type Client struct {
	api    API
	logger *logging.Service
}

func NewClient(api API, logger *logging.Service) *Client {
	return &Client{api: api, logger: logger}
}

func (c *Client) SendPrivate(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return transport.Failure("sendMessage", err)
	}

	if _, err := c.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		return transport.Failure("sendMessage", err)
	}
	return nil
}

func (c *Client) SendToGroup(ctx context.Context, groupID int64, text string, affordance *transport.Affordance) error {
	if err := ctx.Err(); err != nil {
		return transport.Failure("sendMessage", err)
	}

	msg := tgbotapi.NewMessage(groupID, text)
	if affordance != nil {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(affordance.Label, affordance.Payload),
			),
		)
	}

	sent, err := c.api.Send(msg)
	if err != nil {
		return transport.Failure("sendMessage", err)
	}

	c.logger.Debug("group message sent",
		zap.Int64("group_id", groupID),
		zap.Int("message_id", sent.MessageID))
	return nil
}
