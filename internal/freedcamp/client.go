package freedcamp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
)

const (
	// DefaultBaseURL базовый адрес Freedcamp API.
	DefaultBaseURL = "https://freedcamp.com/api/v1"

	// DefaultRequestTimeout таймаут обычного вызова.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultUploadTimeout таймаут загрузки файла.
	DefaultUploadTimeout = 120 * time.Second

	apiKeyHeader = "X-API-KEY"
	dataField    = "data"
	maxErrorBody = 512
)

// Opts параметры подключения к Freedcamp.
type Opts struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	APIKey         string        `mapstructure:"api_key" validate:"required"`
	APISecret      string        `mapstructure:"api_secret" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=0"`
	UploadTimeout  time.Duration `mapstructure:"upload_timeout" validate:"min=0"`
	ArrayStyle     string        `mapstructure:"array_style" validate:"omitempty,oneof=indexed bracket"`
	Timezone       string        `mapstructure:"timezone"`
	UploadDir      string        `mapstructure:"upload_dir"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes" validate:"min=0"`
}

// Option настраивает клиента.
type Option func(*Client)

// WithHTTPClient подменяет HTTP клиента (тесты, прокси).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithClock подменяет часы подписчика.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.signer.now = now
	}
}

// Client диспетчер запросов к Freedcamp. Создается один раз на старте,
// безопасен для конкурентных независимых вызовов.
type Client struct {
	opts    Opts
	baseURL string
	signer  *Signer
	style   ArrayStyle
	http    *http.Client
	logger  *slog.Logger
}

// NewClient создает клиента Freedcamp.
func NewClient(opts Opts, logger *slog.Logger, options ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.APIKey == "" || opts.APISecret == "" {
		return nil, fmt.Errorf("freedcamp api key and secret are required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}

	style, err := ParseArrayStyle(opts.ArrayStyle)
	if err != nil {
		return nil, err
	}

	c := &Client{
		opts:    opts,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		signer:  NewSigner(opts.APIKey, opts.APISecret),
		style:   style,
		http:    &http.Client{Timeout: max(opts.RequestTimeout, opts.UploadTimeout)},
		logger:  logger,
	}
	for _, o := range options {
		o(c)
	}

	logger.Info("Freedcamp client created", "base_url", c.baseURL, "array_style", opts.ArrayStyle)
	return c, nil
}

// ArrayStyle возвращает стиль кодирования массивов в query.
func (c *Client) ArrayStyle() ArrayStyle {
	return c.style
}

// Get выполняет чтение: параметры и подпись уходят в query string.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, "", nil, c.opts.RequestTimeout, out)
}

// Post выполняет создание или обновление. Тело сериализуется в JSON и
// передается единственным полем data в form-urlencoded теле.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", path, err)
		}
		form := url.Values{}
		form.Set(dataField, string(encoded))
		reader = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}
	return c.do(ctx, http.MethodPost, path, nil, contentType, reader, c.opts.RequestTimeout, out)
}

// Delete выполняет удаление.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", nil, c.opts.RequestTimeout, out)
}

// do собирает запрос, подписывает его, выполняет и разбирает конверт.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := url.Values{}
	for k, vs := range query {
		params[k] = append([]string(nil), vs...)
	}
	sig := c.signer.Sign()
	params.Set("timestamp", fmt.Sprintf("%d", sig.Timestamp))
	params.Set("hash", sig.Hash)

	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/") + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return &UpstreamError{Method: method, Path: path, Kind: KindTransport, Message: "build request", Err: err}
	}
	req.Header.Set(apiKeyHeader, c.opts.APIKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Freedcamp request failed", "method", method, "path", path, "error", err)
		return &UpstreamError{Method: method, Path: path, Kind: KindTransport, Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Method: method, Path: path, Kind: KindTransport, HTTPStatus: resp.StatusCode, Message: "read response", Err: err}
	}

	c.logger.Debug("Freedcamp request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(started))

	var env models.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Text()
		if decodeErr != nil || msg == "" {
			msg = snippet(raw)
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &UpstreamError{Method: method, Path: path, Kind: KindTransport, HTTPStatus: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return &UpstreamError{Method: method, Path: path, Kind: KindApplication, HTTPStatus: resp.StatusCode, Message: "decode response envelope", Err: decodeErr}
	}

	if code, ok := envelopeCode(env); ok && (code < 200 || code >= 300) {
		msg := env.Text()
		if msg == "" {
			msg = "request was not successful"
		}
		return &UpstreamError{Method: method, Path: path, Kind: KindApplication, HTTPStatus: resp.StatusCode, Code: code, Message: msg}
	}

	if out == nil || len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return nil
	}
	// PHP-бэкенд отдает пустой data как [] вместо {}
	if bytes.Equal(bytes.TrimSpace(env.Data), []byte("[]")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &UpstreamError{Method: method, Path: path, Kind: KindApplication, HTTPStatus: resp.StatusCode, Message: "decode response data", Err: err}
	}
	return nil
}

// envelopeCode достает код статуса из конверта, если он там есть.
func envelopeCode(env models.Envelope) (int, bool) {
	if env.StatusCode.Set && env.StatusCode.Valid {
		return int(env.StatusCode.Value), true
	}
	if env.HTTPCode.Set && env.HTTPCode.Valid {
		return int(env.HTTPCode.Value), true
	}
	return 0, false
}

func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	return err.Error()
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
