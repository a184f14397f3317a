package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"musicbot/internal/logging"
	"musicbot/internal/services"
)

// HTTPDoer describes the HTTP client used by the bridge client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the bridge API.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	client  HTTPDoer
	logger  *slog.Logger
}

// NewClient returns a client for baseURL authenticated with token. Timeout
// bounds JSON calls; uploads and downloads follow the caller's context.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		timeout: timeout,
		client:  &http.Client{},
		logger:  logging.NewComponentLogger(logger, "bridge"),
	}
}

// WithHTTPClient swaps the transport, typically for tests.
func (c *Client) WithHTTPClient(doer HTTPDoer) *Client {
	c.client = doer
	return c
}

// SendMessage posts text to chatID and returns the new message id.
func (c *Client) SendMessage(ctx context.Context, chatID, replyTo int64, text string) (int64, error) {
	payload := map[string]any{"chat_id": chatID, "text": text}
	if replyTo != 0 {
		payload["reply_to_message_id"] = replyTo
	}
	result, err := c.callJSON(ctx, "sendMessage", payload)
	if err != nil {
		return 0, err
	}
	return result.Get("message_id").Int(), nil
}

// EditMessageText replaces the text of a sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	_, err := c.callJSON(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	})
	return err
}

// DeleteMessage removes a sent message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	_, err := c.callJSON(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	})
	return err
}

// Upload describes a file sent with SendDocument or SendAudio.
type Upload struct {
	ChatID  int64
	ReplyTo int64
	Path    string
	// Name overrides the file name shown to the user.
	Name    string
	Caption string
}

// SendDocument uploads a generic file.
func (c *Client) SendDocument(ctx context.Context, up Upload) error {
	return c.upload(ctx, "sendDocument", "document", up)
}

// SendAudio uploads an audio file.
func (c *Client) SendAudio(ctx context.Context, up Upload) error {
	return c.upload(ctx, "sendAudio", "audio", up)
}

// Fetch streams the file with the given bridge file id. It satisfies
// media.Fetcher.
func (c *Client) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/file/"+url.PathEscape(fileID), nil)
	if err != nil {
		return nil, fmt.Errorf("build file request: %w", err)
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "bridge", "fetch", "download "+fileID, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, statusError("file", resp)
	}
	return resp.Body, nil
}

func (c *Client) callJSON(ctx context.Context, method string, payload any) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode %s: %w", method, err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	return c.do(req, method)
}

func (c *Client) upload(ctx context.Context, method, field string, up Upload) error {
	file, err := os.Open(up.Path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	name := strings.TrimSpace(up.Name)
	if name == "" {
		name = filepath.Base(up.Path)
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, field, name, file, up))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.authorize(req)
	_, err = c.do(req, method)
	pr.Close()
	return err
}

func writeForm(form *multipart.Writer, field, name string, file io.Reader, up Upload) error {
	fields := map[string]string{"chat_id": fmt.Sprint(up.ChatID)}
	if up.ReplyTo != 0 {
		fields["reply_to_message_id"] = fmt.Sprint(up.ReplyTo)
	}
	if up.Caption != "" {
		fields["caption"] = up.Caption
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return form.Close()
}

func (c *Client) do(req *http.Request, method string) (gjson.Result, error) {
	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return gjson.Result{}, services.Wrap(services.ErrTransient, "bridge", method, "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return gjson.Result{}, statusError(method, resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return gjson.Result{}, services.Wrap(services.ErrTransient, "bridge", method, "read response", err)
	}
	c.logger.Debug("bridge call",
		logging.String("method", method),
		logging.Int("status", resp.StatusCode),
		logging.Duration("duration", time.Since(started)),
	)
	if len(bytes.TrimSpace(data)) == 0 || !gjson.ValidBytes(data) {
		return gjson.Result{}, nil
	}
	reply := gjson.ParseBytes(data)
	if ok := reply.Get("ok"); ok.Exists() && !ok.Bool() {
		return gjson.Result{}, services.Wrap(services.ErrExternalTool, "bridge", method, reply.Get("description").String(), nil)
	}
	return reply.Get("result"), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusError(method string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	marker := services.ErrExternalTool
	if resp.StatusCode == http.StatusNotFound {
		marker = services.ErrNotFound
	}
	return services.Wrap(marker, "bridge", method,
		fmt.Sprintf("bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
}
