package telegram

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// BotInfo identifies the bot behind a token.
type BotInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// VerifyToken calls getMe with token.
func (c *Client) VerifyToken(ctx context.Context, token string) (BotInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return BotInfo{}, ErrNoToken
	}
	if err := ctx.Err(); err != nil {
		return BotInfo{}, err
	}
	// NewBot performs getMe unless Offline is set.
	b, err := tele.NewBot(tele.Settings{
		URL:    c.base,
		Token:  token,
		Client: c.http,
	})
	if err != nil {
		return BotInfo{}, fmt.Errorf("getMe: %s", strings.ReplaceAll(err.Error(), token, "<token>"))
	}
	if b.Me == nil {
		return BotInfo{}, fmt.Errorf("getMe: empty response")
	}
	return BotInfo{ID: b.Me.ID, Username: b.Me.Username, FirstName: b.Me.FirstName}, nil
}
