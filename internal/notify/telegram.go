package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	// DefaultTelegramAPI is the Bot API base URL.
	DefaultTelegramAPI = "https://api.telegram.org"
	// MaxTelegramMessage is the Bot API limit for one message.
	MaxTelegramMessage = 4096

	defaultTelegramTimeout = 15 * time.Second
)

// ErrTelegramRejected is returned when the Bot API answers ok=false.
var ErrTelegramRejected = errors.New("telegram rejected message")

// TelegramConfig configures the Bot API sink.
type TelegramConfig struct {
	Token         string
	ChatID        string
	APIBase       string
	MaxMessageLen int
	Timeout       time.Duration
	// PartInterval paces multi-part messages.
	PartInterval time.Duration
}

// Telegram sends summaries through the Bot API sendMessage method. Long
// summaries are split at line boundaries.
type Telegram struct {
	cfg     TelegramConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewTelegram creates the sink. Zero fields fall back to defaults.
func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTelegramAPI
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.MaxMessageLen <= 0 || cfg.MaxMessageLen > MaxTelegramMessage {
		cfg.MaxMessageLen = MaxTelegramMessage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTelegramTimeout
	}
	if cfg.PartInterval <= 0 {
		cfg.PartInterval = time.Second
	}
	return &Telegram{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Every(cfg.PartInterval), 1),
	}
}

func (t *Telegram) Name() string { return "telegram" }

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send delivers text, one request per part.
func (t *Telegram) Send(ctx context.Context, text string, mute bool) error {
	parts := SplitMessage(text, t.cfg.MaxMessageLen)
	for i, part := range parts {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := t.sendPart(ctx, part, mute); err != nil {
			return fmt.Errorf("part %d/%d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

func (t *Telegram) sendPart(ctx context.Context, text string, mute bool) error {
	form := url.Values{}
	form.Set("chat_id", t.cfg.ChatID)
	form.Set("text", text)
	form.Set("disable_notification", strconv.FormatBool(mute))

	endpoint := t.cfg.APIBase + "/bot" + t.cfg.Token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// The request URL carries the bot token; do not leak it through the error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var tr telegramResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("sendMessage: status %d: %w", resp.StatusCode, err)
	}
	if !tr.OK || resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrTelegramRejected, resp.StatusCode, tr.Description)
	}
	return nil
}

// SplitMessage splits text into parts of at most limit runes, breaking at
// line boundaries when possible. Empty text yields no parts.
func SplitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		for n > limit {
			flush()
			cut := byteOffset(line, limit)
			parts = append(parts, line[:cut])
			line = line[cut:]
			n -= limit
		}
		sep := 0
		if curLen > 0 {
			sep = 1
		}
		if curLen+sep+n > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		curLen += sep + n
	}
	flush()
	return parts
}

func byteOffset(s string, runes int) int {
	i := 0
	for pos := range s {
		if i == runes {
			return pos
		}
		i++
	}
	return len(s)
}
