package api

import "context"

// TelegramLinkToken fetches the deep link used to bind the account to the
// Telegram bot.
func (c *Client) TelegramLinkToken(ctx context.Context) (string, error) {
	var res struct {
		Link string `json:"link"`
	}
	if err := c.Get(ctx, "/telegram/link-token/", &res); err != nil {
		return "", err
	}
	return res.Link, nil
}
