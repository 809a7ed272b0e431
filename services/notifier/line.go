package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "sjsage522/akiyawatch/pkg/errors"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// LineConfig contains configuration for the LINE Messaging API push
type LineConfig struct {
	PushURL string
	Token   string
	UserID  string
	// RatePerSecond paces pushes
	RatePerSecond float64
}

type lineTextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type linePushRequest struct {
	To       string            `json:"to"`
	Messages []lineTextMessage `json:"messages"`
}

// LineNotifier pushes text messages to one LINE user
type LineNotifier struct {
	cfg     LineConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewLineNotifier creates a new LINE notifier
func NewLineNotifier(cfg LineConfig, client *http.Client) *LineNotifier {
	return &LineNotifier{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

// Notify sends message as a single text push. Every call carries a fresh
// X-Line-Retry-Key so the API can deduplicate a resent request.
func (n *LineNotifier) Notify(ctx context.Context, message string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return apperrors.NewNotification("line", "rate limiter wait aborted", err)
	}

	payload, err := json.Marshal(linePushRequest{
		To:       n.cfg.UserID,
		Messages: []lineTextMessage{{Type: "text", Text: message}},
	})
	if err != nil {
		return apperrors.NewNotification("line", "failed to encode push request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.PushURL, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewNotification("line", "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	req.Header.Set("X-Line-Retry-Key", uuid.NewString())

	resp, err := n.client.Do(req)
	if err != nil {
		return apperrors.NewNotification("line", "push request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.NewNotification("line",
			fmt.Sprintf("push rejected with status %d", resp.StatusCode),
			fmt.Errorf("%s", bytes.TrimSpace(body)))
	}

	return nil
}
