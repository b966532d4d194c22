package pipeline

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// PostProcessor prepares the model's report for direct HTML rendering.
type PostProcessor struct {
	policy *bluemonday.Policy
}

// NewPostProcessor returns a post-processor. With sanitize set, markup is
// filtered through a user-generated-content policy first.
func NewPostProcessor(sanitize bool) *PostProcessor {
	p := &PostProcessor{}
	if sanitize {
		p.policy = bluemonday.UGCPolicy()
	}
	return p
}

// Apply sanitizes (when enabled) and turns every newline into "<br>\n".
func (p *PostProcessor) Apply(report string) string {
	if p.policy != nil {
		report = p.policy.Sanitize(report)
	}
	return strings.ReplaceAll(report, "\n", "<br>\n")
}
