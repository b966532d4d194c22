package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

// PromptLoader reads prompt templates from disk on every call, so edits take
// effect without a restart.
type PromptLoader struct {
	baseDir string
}

func NewPromptLoader(baseDir string) *PromptLoader {
	return &PromptLoader{baseDir: baseDir}
}

// Load returns the template at path. Relative paths resolve against the base
// directory. A missing file yields an error wrapping common.ErrPromptNotFound.
func (l *PromptLoader) Load(path string) (string, error) {
	if !filepath.IsAbs(path) && l.baseDir != "" {
		path = filepath.Join(l.baseDir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", common.ErrPromptNotFound, path)
		}
		return "", fmt.Errorf("read prompt %s: %w", path, err)
	}
	return string(b), nil
}

// SplitPrompt builds the system and user messages from a template.
// With the marker present, the system part is everything before the first
// marker and the user part is the marker followed by the payload. Without it,
// the system part is empty and the placeholder is substituted in place.
func SplitPrompt(template, marker, placeholder, payload string) (system, user string) {
	if before, _, ok := strings.Cut(template, marker); ok {
		return strings.TrimSpace(before), marker + "\n" + payload
	}
	return "", strings.ReplaceAll(template, placeholder, payload)
}

// AppendInstructions adds caller-supplied instructions to a user message.
// Blank instructions leave it unchanged.
func AppendInstructions(user, instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return user
	}
	return user + "\n\n" + constants.InstructionsMarker + "\n" + instructions
}
