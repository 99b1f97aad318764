package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"streamguide/internal/config"
)

const userAgent = "StreamGuide-Go/1.0"

// Event names a pipeline milestone.
type Event string

const (
	EventRunStarted      Event = "run_started"
	EventPassCompleted   Event = "pass_completed"
	EventRunCompleted    Event = "run_completed"
	EventBudgetExhausted Event = "budget_exhausted"
	EventSeedUnresolved  Event = "seed_unresolved"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes pipeline events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// format renders an event. Progress events are suppressed and report false.
func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		mode := payload.text("mode", "pipeline")
		duration := payload.duration("duration").Round(time.Second)
		failed := payload.number("failed")
		passes := payload.number("passes")
		title := "StreamGuide - Run Complete"
		body := fmt.Sprintf("✅ %s finished: %d passes in %s", mode, passes, duration)
		if failed > 0 {
			title = "StreamGuide - Run Complete (with errors)"
			body = fmt.Sprintf("⚠️ %s finished: %d passes, %d failed in %s", mode, passes, failed, duration)
		}
		if shows := payload.number("shows"); shows > 0 {
			body += fmt.Sprintf("\nPublished %d titles", shows)
		}
		return message{title: title, body: body, tags: []string{"streamguide", "pipeline", "completed"}}, true

	case EventBudgetExhausted:
		provider := payload.text("provider", "provider")
		body := fmt.Sprintf("📉 %s budget exhausted", provider)
		if budget := payload.text("budget", ""); budget != "" {
			body += " (" + budget + ")"
		}
		return message{
			title: "StreamGuide - Budget Exhausted",
			body:  body,
			tags:  []string{"streamguide", "quota", provider},
		}, true

	case EventSeedUnresolved:
		titles := payload.list("titles")
		body := fmt.Sprintf("🔎 %d seed titles unresolved", len(titles))
		if len(titles) > 0 {
			shown := titles
			if len(shown) > 5 {
				shown = shown[:5]
			}
			body += ": " + strings.Join(shown, ", ")
			if extra := len(titles) - len(shown); extra > 0 {
				body += fmt.Sprintf(" and %d more", extra)
			}
		}
		return message{
			title: "StreamGuide - Seed Review",
			body:  body,
			tags:  []string{"streamguide", "seed", "review"},
		}, true

	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.text("context", ""); label != "" {
			builder.WriteString(" in ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		builder.WriteString(payload.text("error", "unknown"))
		return message{
			title:    "StreamGuide - Error",
			body:     builder.String(),
			tags:     []string{"streamguide", "error", "alert"},
			priority: "high",
		}, true

	case EventTest:
		return message{
			title:    "StreamGuide - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"streamguide", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key, fallback string) string {
	switch v := p[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return v.String()
	}
	return fallback
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func (p Payload) duration(key string) time.Duration {
	if d, ok := p[key].(time.Duration); ok && d > 0 {
		return d
	}
	return 0
}

func (p Payload) list(key string) []string {
	v, _ := p[key].([]string)
	return v
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
