package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
)

// Health queries /api/tags. Failures are reported in the result, never returned.
func (c *Client) Health(ctx context.Context) HealthStatus {
	st := HealthStatus{ConfiguredModel: c.cfg.Model}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	raw, _, err := GetJSON(ctx, c.healthHTTP, c.cfg.BaseURL+"/api/tags", c.log)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			st.Error = "cannot connect to ollama at " + c.cfg.BaseURL
		} else {
			st.Error = err.Error()
		}
		c.log.Warn("llm.health.unreachable", "error", st.Error)
		return st
	}

	var tags tagsResponse
	if err := json.Unmarshal(raw, &tags); err != nil {
		st.Error = "decode tags: " + err.Error()
		c.log.Warn("llm.health.decode_error", "error", err)
		return st
	}

	st.OllamaReachable = true
	st.AvailableModels = make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		st.AvailableModels = append(st.AvailableModels, m.Name)
		if strings.Contains(m.Name, c.cfg.Model) {
			st.ModelAvailable = true
		}
	}
	return st
}
