// Package llm is the Ollama chat client used for the structuring and
// reporting calls, plus the backend health probe.
package llm

import "context"

// Chatter is what the pipeline needs from the LLM backend.
type Chatter interface {
	// Structure converts document text into a JSON dataset (strict JSON, low temperature).
	Structure(ctx context.Context, system, user string) (string, error)
	// Report turns formatted calculations into a narrative report.
	Report(ctx context.Context, system, user string) (string, error)
}

// HealthChecker reports backend reachability. It never returns an error.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// Structuring call decoding settings.
const (
	StructureTemperature = 0.1
	StructureNumPredict  = 4096
)

type callOptions struct {
	temperature *float32
	numPredict  *int
	jsonFormat  bool
	step        string
}

// CallOption overrides per-call decoding settings. Unset options fall back to configuration.
type CallOption func(*callOptions)

func WithTemperature(t float32) CallOption {
	return func(o *callOptions) { o.temperature = &t }
}

func WithNumPredict(n int) CallOption {
	return func(o *callOptions) { o.numPredict = &n }
}

// WithJSONFormat asks the backend for strict JSON output.
func WithJSONFormat() CallOption {
	return func(o *callOptions) { o.jsonFormat = true }
}

// WithStep labels the call in logs.
func WithStep(step string) CallOption {
	return func(o *callOptions) { o.step = step }
}

// wire types for /api/chat

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumCtx        int     `json:"num_ctx"`
	Temperature   float32 `json:"temperature"`
	NumPredict    int     `json:"num_predict"`
	RepeatPenalty float32 `json:"repeat_penalty"`
	RepeatLastN   int     `json:"repeat_last_n"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role     string `json:"role"`
		Content  string `json:"content"`
		Thinking string `json:"thinking"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	EvalCount       int    `json:"eval_count"`
	PromptEvalCount int    `json:"prompt_eval_count"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// HealthStatus is the outcome of a backend probe.
type HealthStatus struct {
	OllamaReachable bool     `json:"ollama_reachable"`
	ModelAvailable  bool     `json:"model_available"`
	ConfiguredModel string   `json:"configured_model"`
	AvailableModels []string `json:"available_models,omitempty"`
	Error           string   `json:"error,omitempty"`
}
