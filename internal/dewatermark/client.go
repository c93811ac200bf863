package dewatermark

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Robertiks/erase-watermark/internal/resize"
)

const (
	DefaultEndpoint = "https://platform.dewatermark.ai/api/object_removal/v1/erase_watermark"
	DefaultMaxWidth = 1408

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Client talks to the dewatermark erase endpoint. A Client is never mutated after
// NewClient returns; WithUseAPI hands out adjusted copies.
type Client struct {
	apiKey     string
	endpoint   string
	maxWidth   int
	useAPI     bool
	proxy      *url.URL
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithProxy routes requests through a forward proxy.
func WithProxy(proxy *url.URL) Option {
	return func(c *Client) { c.proxy = proxy }
}

// WithTimeout bounds a single request. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func WithMaxWidth(width int) Option {
	return func(c *Client) { c.maxWidth = width }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		maxWidth: DefaultMaxWidth,
		useAPI:   true,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if c.proxy != nil {
			transport.Proxy = http.ProxyURL(c.proxy)
		}
		c.httpClient = &http.Client{
			Transport: transport,
			Timeout:   c.timeout,
		}
	}
	return c
}

// WithUseAPI returns a copy of the client with API usage switched on or off.
func (c *Client) WithUseAPI(use bool) *Client {
	clone := *c
	clone.useAPI = use
	return &clone
}

// PassThrough reports whether Erase returns its input untouched.
func (c *Client) PassThrough() bool {
	return !c.useAPI || c.apiKey == ""
}

type eraseResponse struct {
	EditedImage *struct {
		Image string `json:"image"`
	} `json:"edited_image"`
}

// Erase sends the image to the remote service and returns the cleaned bytes.
// In pass-through mode the input is returned as is.
func (c *Client) Erase(ctx context.Context, image []byte) ([]byte, error) {
	if c.PassThrough() {
		return image, nil
	}

	resized, err := resize.ToWidth(image, c.maxWidth)
	if err != nil {
		return nil, err
	}

	body, contentType, err := buildForm(resized)
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call erase endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Erase call finished",
		zap.Int("status", resp.StatusCode),
		zap.Int("request_bytes", len(resized)),
		zap.Int("response_bytes", len(raw)),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteServiceError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if !json.Valid(raw) {
		return nil, &InvalidResponseError{Body: string(raw)}
	}

	var result eraseResponse
	if err := json.Unmarshal(raw, &result); err != nil || result.EditedImage == nil || result.EditedImage.Image == "" {
		return nil, &RemoteServiceError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	decoded, err := base64.StdEncoding.DecodeString(result.EditedImage.Image)
	if err != nil {
		return nil, &InvalidResponseError{Body: string(raw), Err: err}
	}
	return decoded, nil
}

func buildForm(image []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="original_preview_image"; filename="image.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("remove_text", "true"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}
