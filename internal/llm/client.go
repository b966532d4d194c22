package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

// Config holds the static backend settings.
type Config struct {
	BaseURL       string
	Model         string
	NumCtx        int
	Timeout       time.Duration
	Temperature   float32
	NumPredict    int
	RepeatPenalty float32
	RepeatLastN   int

	ConnectTimeout time.Duration // default 30s
	HealthTimeout  time.Duration // default 10s
}

// ConfigFrom maps application configuration onto the client config.
func ConfigFrom(c common.OllamaConfig) Config {
	return Config{
		BaseURL:       c.BaseURL,
		Model:         c.Model,
		NumCtx:        c.NumCtx,
		Timeout:       c.Timeout,
		Temperature:   c.Temperature,
		NumPredict:    c.NumPredict,
		RepeatPenalty: c.RepeatPenalty,
		RepeatLastN:   c.RepeatLastN,
	}
}

// Client talks to an Ollama server.
type Client struct {
	cfg        Config
	httpClient *http.Client
	healthHTTP *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 600 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		healthHTTP: &http.Client{Timeout: cfg.HealthTimeout, Transport: transport},
		log:        logger,
	}
}

// Structure implements Chatter.
func (c *Client) Structure(ctx context.Context, system, user string) (string, error) {
	return c.Send(ctx, system, user,
		WithTemperature(StructureTemperature),
		WithNumPredict(StructureNumPredict),
		WithJSONFormat(),
		WithStep("structure"),
	)
}

// Report implements Chatter.
func (c *Client) Report(ctx context.Context, system, user string) (string, error) {
	return c.Send(ctx, system, user, WithStep("report"))
}

// Send issues one non-streaming chat request with a system and a user message
// and returns the message content. Empty content is returned as is.
func (c *Client) Send(ctx context.Context, system, user string, opts ...CallOption) (string, error) {
	o := callOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	temperature := c.cfg.Temperature
	if o.temperature != nil {
		temperature = *o.temperature
	}
	numPredict := c.cfg.NumPredict
	if o.numPredict != nil {
		numPredict = *o.numPredict
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
		Options: chatOptions{
			NumCtx:        c.cfg.NumCtx,
			Temperature:   temperature,
			NumPredict:    numPredict,
			RepeatPenalty: c.cfg.RepeatPenalty,
			RepeatLastN:   c.cfg.RepeatLastN,
		},
	}
	if o.jsonFormat {
		body.Format = "json"
	}

	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.chat.start",
		"req_id", rid,
		"step", o.step,
		"model", c.cfg.Model,
		"num_ctx", c.cfg.NumCtx,
		"num_predict", numPredict,
		"temp", temperature,
		"json", o.jsonFormat,
		"timeout_s", int(c.cfg.Timeout.Seconds()),
		"user_len", len(user),
	)

	raw, _, err := SendJSON(ctx, c.httpClient, c.cfg.BaseURL+"/api/chat", body, nil, c.log)
	if err != nil {
		c.log.Error("llm.chat.http_error",
			"req_id", rid, "step", o.step, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewAppError(common.KindLLMCall, callFailure(err, c.cfg.BaseURL), err)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.log.Error("llm.chat.decode_error",
			"req_id", rid, "step", o.step, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewAppError(common.KindLLMCall, "decode ollama response", err)
	}

	doneReason := resp.DoneReason
	if doneReason == "" {
		doneReason = "unknown"
	}
	c.log.Info("llm.chat.meta",
		"req_id", rid,
		"step", o.step,
		"done_reason", doneReason,
		"prompt_tokens", resp.PromptEvalCount,
		"eval_tokens", resp.EvalCount,
		"thinking_chars", len(resp.Message.Thinking),
	)

	content := resp.Message.Content
	switch {
	case content == "" && resp.Message.Thinking != "":
		// usually num_predict ran out while the model was still thinking
		c.log.Warn("llm.chat.empty_content_with_thinking",
			"req_id", rid, "step", o.step,
			"thinking_chars", len(resp.Message.Thinking),
			"done_reason", doneReason,
			"hint", "increase OLLAMA_NUM_PREDICT",
		)
	case content == "":
		c.log.Warn("llm.chat.empty_response",
			"req_id", rid, "step", o.step,
			"response", clip(string(raw), 500),
		)
	}

	c.log.Info("llm.chat.ok",
		"req_id", rid,
		"step", o.step,
		"content_chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func callFailure(err error, baseURL string) string {
	var statusErr *HTTPStatusError
	var netErr net.Error
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("ollama returned status %d", statusErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "ollama request timed out"
	default:
		return "cannot reach ollama at " + baseURL
	}
}
