package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// ErrClassifierUnavailable se devuelve cuando el servicio de clasificación no
// responde tras agotar los reintentos.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

const (
	defaultTimeout    = 2 * time.Second
	defaultRatePerSec = 4
	defaultMaxRetries = 1
	defaultRetryWait  = 100 * time.Millisecond
)

// HTTPConfig configura el cliente del clasificador remoto.
type HTTPConfig struct {
	Endpoint   string        // URL completa del POST, p.ej. http://localhost:8090/classify
	Timeout    time.Duration // por request
	RatePerSec float64
	MaxRetries int
	RetryWait  time.Duration // base del backoff exponencial
}

// classifyRequest es el body del POST.
type classifyRequest struct {
	Region    domain.Region `json:"region"`
	Timestamp time.Time     `json:"timestamp"`
}

// classifyResponse es lo que devuelve el servicio de visión.
type classifyResponse struct {
	DominantColor string  `json:"dominantColor"`
	Confidence    float64 `json:"confidence"`
	ExtractedText string  `json:"extractedText"`
	Error         string  `json:"error,omitempty"`
}

// HTTPClassifier implementa ports.FrameClassifier contra un servicio HTTP
// que captura la pantalla y devuelve color dominante y texto OCR.
//
// Los reintentos son pocos y cortos: el tick espera a esta llamada.
type HTTPClassifier struct {
	http       *http.Client
	endpoint   string
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
}

// NewHTTPClassifier crea el cliente con rate limiting y retries.
func NewHTTPClassifier(cfg HTTPConfig) (*HTTPClassifier, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("capture.NewHTTPClassifier: endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	return &HTTPClassifier{
		http:       &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		maxRetries: cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
	}, nil
}

// Classify pide un frame clasificado para la región dada.
func (c *HTTPClassifier) Classify(ctx context.Context, region domain.Region) (domain.FrameResult, error) {
	body, err := json.Marshal(classifyRequest{Region: region, Timestamp: time.Now().UTC()})
	if err != nil {
		return domain.FrameResult{}, fmt.Errorf("capture.Classify: marshal: %w", err)
	}

	var out classifyResponse
	if err := c.doWithRetry(ctx, body, &out); err != nil {
		return domain.FrameResult{}, fmt.Errorf("capture.Classify: %w", err)
	}
	if out.Error != "" {
		return domain.FrameResult{}, fmt.Errorf("capture.Classify: service: %s", out.Error)
	}

	return domain.NewFrameResult(domain.ParseChartColor(out.DominantColor), out.Confidence, out.ExtractedText), nil
}

// doWithRetry ejecuta el POST con backoff exponencial, respetando el contexto.
func (c *HTTPClassifier) doWithRetry(ctx context.Context, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server status %d", resp.StatusCode)
			slog.Debug("capture: classifier retry", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(msg))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrClassifierUnavailable, c.maxRetries+1, lastErr)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *HTTPClassifier) sleep(ctx context.Context, attempt int) {
	if attempt >= c.maxRetries {
		return
	}
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
