package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// apiClient talks to the daemon's HTTP API.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(addr string) *apiClient {
	base := strings.TrimSpace(addr)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &apiClient{
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// dialableAddr turns a listen bind like 0.0.0.0:7877 into an address a local
// client can reach.
func dialableAddr(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon returned status %d", e.Status)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w (is readoutd running?)", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &apiError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Wire shapes mirrored from the daemon API.

type taskPayload struct {
	ID           int64     `json:"id"`
	OriginKind   string    `json:"originKind"`
	Origin       string    `json:"origin"`
	Mode         string    `json:"mode"`
	Engine       string    `json:"engine"`
	Status       string    `json:"status"`
	Progress     int       `json:"progress"`
	Stage        string    `json:"stage"`
	Title        string    `json:"title"`
	ErrorKind    string    `json:"errorKind"`
	ErrorMessage string    `json:"errorMessage"`
	MediaID      string    `json:"mediaId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type statsPayload struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

type errorPayload struct {
	Time    time.Time `json:"time"`
	TaskID  int64     `json:"task_id"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

type statusPayload struct {
	Queue      statsPayload   `json:"queue"`
	Tasks      []taskPayload  `json:"tasks"`
	Errors     []errorPayload `json:"errors"`
	LastUpdate time.Time      `json:"lastUpdate"`
}

type sourcePayload struct {
	URL       string    `json:"url"`
	Category  string    `json:"category"`
	Keywords  []string  `json:"keywords"`
	CreatedAt time.Time `json:"createdAt"`
}

type sourcesPayload struct {
	Sources        []sourcePayload `json:"sources"`
	GlobalKeywords []string        `json:"global_keywords"`
}

type mediaPayload struct {
	ID            string     `json:"id"`
	ContentType   string     `json:"content_type"`
	Title         string     `json:"title"`
	SourceURL     string     `json:"sourceUrl"`
	AudioFile     string     `json:"audioFile"`
	MarkdownFile  string     `json:"markdownFile"`
	ShortText     string     `json:"shortText"`
	FullText      string     `json:"fullText"`
	DateAdded     time.Time  `json:"dateAdded"`
	DatePublished *time.Time `json:"datePublished"`
}

type candidatePayload struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`
}

func (c *apiClient) submitURL(ctx context.Context, mode, rawURL, engine string) (*taskPayload, error) {
	var task taskPayload
	err := c.do(ctx, http.MethodPost, "/v1/url/"+mode,
		map[string]string{"url": rawURL, "tts_engine": engine}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *apiClient) submitText(ctx context.Context, mode, text, engine string) (*taskPayload, error) {
	var task taskPayload
	err := c.do(ctx, http.MethodPost, "/v1/text/"+mode,
		map[string]string{"text": text, "tts_engine": engine}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *apiClient) queueStatus(ctx context.Context) (*statusPayload, error) {
	var payload statusPayload
	if err := c.do(ctx, http.MethodGet, "/v1/queue/status", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *apiClient) removeTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/queue/remove?id=%d", id), nil, nil)
}

func (c *apiClient) listSources(ctx context.Context) (*sourcesPayload, error) {
	var payload sourcesPayload
	if err := c.do(ctx, http.MethodGet, "/v1/sources/get", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *apiClient) addSource(ctx context.Context, rawURL, category string, keywords, global []string) ([]sourcePayload, error) {
	var payload sourcesPayload
	body := map[string]any{}
	if rawURL != "" {
		body["sources"] = []map[string]any{{
			"url":      rawURL,
			"category": category,
			"keywords": keywords,
		}}
	}
	if len(global) > 0 {
		body["global_keywords"] = global
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sources/add", body, &payload); err != nil {
		return nil, err
	}
	return payload.Sources, nil
}

func (c *apiClient) forceFetch(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/sources/fetch", nil, nil)
}

func (c *apiClient) todaysArticles(ctx context.Context) ([]candidatePayload, error) {
	var payload struct {
		Articles []candidatePayload `json:"articles"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/feeds/get_todays_articles", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Articles, nil
}

func (c *apiClient) listMedia(ctx context.Context, contentType string, limit, offset int) ([]mediaPayload, error) {
	path := fmt.Sprintf("/v1/available-media?limit=%d&offset=%d", limit, offset)
	if contentType != "" {
		path += "&type=" + contentType
	}
	var payload struct {
		Media []mediaPayload `json:"media"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Media, nil
}

func (c *apiClient) deleteMedia(ctx context.Context, contentType, id string) (int, error) {
	var payload struct {
		Deleted int `json:"deleted"`
	}
	body := map[string]any{
		"items": []map[string]string{{"content_type": contentType, "id": id}},
	}
	if err := c.do(ctx, http.MethodDelete, "/v1/audio", body, &payload); err != nil {
		return 0, err
	}
	return payload.Deleted, nil
}
