package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Message is the wire format accepted by the push gateway.
type Message struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

// Settings push gateway client setting
type Settings struct {
	Endpoint      string
	AccessToken   string
	Timeout       time.Duration
	MaxFailures   uint32
	OpenTimeout   time.Duration
	RatePerSecond float64
	Burst         int
}

// Gateway sends push notifications over HTTP, guarded by a circuit breaker
// and a token bucket.
type Gateway struct {
	endpoint    string
	accessToken string
	client      *http.Client
	cb          *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
}

// NewGateway create push Gateway
func NewGateway(s Settings) *Gateway {
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	limit := rate.Inf
	if s.RatePerSecond > 0 {
		limit = rate.Limit(s.RatePerSecond)
	}
	if s.Burst <= 0 {
		s.Burst = 10
	}

	st := gobreaker.Settings{
		Name:        "push-gateway",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Log.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	return &Gateway{
		endpoint:    s.Endpoint,
		accessToken: s.AccessToken,
		client:      &http.Client{Timeout: s.Timeout},
		cb:          gobreaker.NewCircuitBreaker(st),
		limiter:     rate.NewLimiter(limit, s.Burst),
	}
}

// Send deliver one push message
func (g *Gateway) Send(ctx context.Context, msg Message) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("push rate limit: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	_, err = g.cb.Execute(func() (interface{}, error) {
		return nil, g.post(ctx, payload)
	})
	return err
}

func (g *Gateway) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.accessToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return errprocess.Set(fmt.Sprintf("push gateway status=%d", resp.StatusCode), zap.ByteString("body", body))
}
