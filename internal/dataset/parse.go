package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

var reFence = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// Parser recovers a FinancialDataset from free-form model output.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse locates a JSON object in raw, checks the required sections and
// normalizes their codes and values. Failures are KindResponseRepair errors.
func (p *Parser) Parse(raw string) (FinancialDataset, error) {
	if strings.TrimSpace(raw) == "" {
		return FinancialDataset{}, repairError("model returned an empty response", common.ErrEmptyResponse)
	}

	span, err := ExtractJSONSpan(raw)
	if err != nil {
		return FinancialDataset{}, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(span)))
	dec.UseNumber()
	var top any
	if err := dec.Decode(&top); err != nil {
		p.logger.Debug("dataset.parse.invalid_json", "error", err, "preview", preview(raw, 500))
		return FinancialDataset{}, repairError("invalid JSON", err)
	}
	obj, ok := top.(map[string]any)
	if !ok {
		return FinancialDataset{}, repairError(fmt.Sprintf("expected a JSON object, got %s", jsonType(top)), nil)
	}

	var missing []string
	for _, k := range RequiredKeys {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return FinancialDataset{}, repairError("missing required keys: "+strings.Join(missing, ", "), nil)
	}

	out := FinancialDataset{
		CompanyName: stringOr(obj["company_name"], constants.UnknownCompany),
		Period:      stringOr(obj["period"], constants.UnknownPeriod),
	}
	sections := []struct {
		key string
		dst *Values
	}{
		{KeyBalanceStart, &out.BalanceStart},
		{KeyBalanceEnd, &out.BalanceEnd},
		{KeyIncomeCurrent, &out.IncomeCurrent},
	}
	for _, s := range sections {
		m, ok := obj[s.key].(map[string]any)
		if !ok {
			return FinancialDataset{}, repairError(fmt.Sprintf("key %q must be an object, got %s", s.key, jsonType(obj[s.key])), nil)
		}
		*s.dst = p.normalizeSection(s.key, m)
	}
	if err := Validate(out); err != nil {
		return FinancialDataset{}, repairError("normalized dataset is invalid", err)
	}

	p.logger.Info("dataset.parse.ok",
		"company", out.CompanyName,
		"period", out.Period,
		"balance_start_codes", len(out.BalanceStart),
		"balance_end_codes", len(out.BalanceEnd),
		"income_codes", len(out.IncomeCurrent),
	)
	return out, nil
}

func (p *Parser) normalizeSection(section string, m map[string]any) Values {
	out := make(Values, len(m))
	for key, val := range m {
		code, ok := NormalizeCode(key)
		if !ok {
			p.logger.Warn("dataset.parse.skip_key", "section", section, "key", key)
			continue
		}
		f, ok := ToFloat(val)
		if !ok {
			if !isAbsent(val) {
				p.logger.Warn("dataset.parse.skip_value", "section", section, "code", code, "value", fmt.Sprint(val))
			}
			continue
		}
		if !IsKnownCode(section, code) {
			p.logger.Debug("dataset.parse.unknown_code", "section", section, "code", code)
		}
		out[code] = f
	}
	return out
}

// ExtractJSONSpan returns the text of the first JSON object in raw: the body
// of a fenced code block if present, otherwise the span from the first "{" to
// its matching "}" by depth counting. Braces inside string literals are
// counted like any other. With no matching "}", the rest of the text from the
// first "{" is returned.
func ExtractJSONSpan(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if m := reFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), nil
	}

	first := strings.IndexByte(text, '{')
	if first < 0 {
		return "", repairError("no JSON object found in model response", nil)
	}
	depth := 0
	for i := first; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[first : i+1], nil
			}
		}
	}
	return text[first:], nil
}

func repairError(msg string, cause error) *common.AppError {
	return common.NewAppError(common.KindResponseRepair, msg, cause)
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "-", "null", "none":
		return true
	}
	return false
}

func stringOr(v any, def string) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case nil:
		return def
	default:
		return fmt.Sprint(x)
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
