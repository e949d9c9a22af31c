package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"luvrix-giveaway-engine/internal/common/logger"
)

const defaultBaseURL = "https://api.telegram.org"

var ErrNoToken = errors.New("telegram bot token is not configured")

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Response is the Telegram Bot API envelope
type Response struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// WinnerNotice is what the winner is told about their win.
type WinnerNotice struct {
	UserID        int64
	GiveawayTitle string
	PrizeDetails  string
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultBaseURL,
		token:   token,
	}
}

// WithBaseURL points the client at another API host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

func (c *Client) NotifyWinner(ctx context.Context, notice WinnerNotice) error {
	message := fmt.Sprintf("🎉 Congratulations! You won the giveaway \"%s\"!", notice.GiveawayTitle)
	if notice.PrizeDetails != "" {
		message += "\n\n🎁 Prize: " + notice.PrizeDetails
	}
	message += "\n\nThe organizer will contact you to hand over the prize."

	if _, err := c.SendMessage(ctx, notice.UserID, message); err != nil {
		logger.Error().Err(err).Int64("user_id", notice.UserID).Msg("Failed to notify winner")
		return err
	}

	logger.Info().Int64("user_id", notice.UserID).Msg("Winner notified")
	return nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Response, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}

	var response Response
	if err := c.makeRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	if !response.Ok {
		return nil, fmt.Errorf("telegram API error %d: %s", response.ErrorCode, response.Description)
	}

	return &response, nil
}

func (c *Client) makeRequest(ctx context.Context, endpoint string, data url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
