package dataset

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

const wellFormed = `{"balance_start":{"1000":"732,8"},"balance_end":{},"income_current":{}}`

func TestParse_CommaDecimal(t *testing.T) {
	ds, err := NewParser(nil).Parse(wellFormed)
	require.NoError(t, err)

	assert.Equal(t, Values{"1000": 732.8}, ds.BalanceStart)
	assert.Empty(t, ds.BalanceEnd)
	assert.NotNil(t, ds.BalanceEnd)
	assert.Empty(t, ds.IncomeCurrent)
	assert.Equal(t, constants.UnknownCompany, ds.CompanyName)
	assert.Equal(t, constants.UnknownPeriod, ds.Period)
}

func TestParse_WrappingIsIgnored(t *testing.T) {
	want, err := NewParser(nil).Parse(wellFormed)
	require.NoError(t, err)

	inputs := map[string]string{
		"fenced json":  "```json\n" + wellFormed + "\n```",
		"fenced plain": "```" + wellFormed + "```",
		"prose around": "Ось результат:\n" + wellFormed + "\nДякую!",
		"fence in prose": "Результат нижче.\n```json\n" + wellFormed + "\n```\nКінець.",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := NewParser(nil).Parse(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParse_Values(t *testing.T) {
	raw := `{
		"company_name": "ТОВ Ромашка",
		"period": "2024",
		"balance_start": {
			"р.1195": "(150.5)",
			"р 1495": "1 234,5",
			"р1900": 1000,
			"1100": "-",
			"1125": "null",
			"1135": "",
			"1155": "None",
			"1160": "abc",
			"1165": null,
			"total": 5,
			"1695": "12 000"
		},
		"balance_end": {"2000": -3.25e2},
		"income_current": {"2350": "(1 000,25)"}
	}`

	ds, err := NewParser(nil).Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "ТОВ Ромашка", ds.CompanyName)
	assert.Equal(t, "2024", ds.Period)
	assert.Equal(t, Values{"1195": -150.5, "1495": 1234.5, "1900": 1000, "1695": 12000}, ds.BalanceStart)
	assert.Equal(t, Values{"2000": -325}, ds.BalanceEnd)
	assert.Equal(t, Values{"2350": -1000.25}, ds.IncomeCurrent)

	_, present := ds.BalanceStart.Get("1100")
	assert.False(t, present, "dash must be absent, not zero")
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		message string
	}{
		{"empty", "   \n ", "empty response"},
		{"no object", "I could not find any data", "no JSON object"},
		{"invalid json", `{"balance_start": {"1000": 1},}`, "invalid JSON"},
		{"not an object", "```json\n[1, 2]\n```", "expected a JSON object, got array"},
		{"missing keys sorted", `{"income_current": {}}`, "missing required keys: balance_end, balance_start"},
		{"section wrong type", `{"balance_start": [], "balance_end": {}, "income_current": {}}`, `key "balance_start" must be an object, got array`},
		{"section string", `{"balance_start": {}, "balance_end": "n/a", "income_current": {}}`, `key "balance_end" must be an object, got string`},
		{"unterminated", `prefix {"balance_start": {"1000": 1}`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).Parse(tt.raw)
			require.Error(t, err)
			assert.Equal(t, common.KindResponseRepair, common.KindOf(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestExtractJSONSpan(t *testing.T) {
	span, err := ExtractJSONSpan(`note {"a": {"b": 1}} trailing {"c": 2}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, span)

	// braces inside strings are counted as structure
	span, err = ExtractJSONSpan(`{"a": "}"} tail`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": "}`, span)

	span, err = ExtractJSONSpan(`x {"open": {`)
	require.NoError(t, err)
	assert.Equal(t, `{"open": {`, span)
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{json.Number("42"), 42, true},
		{12.5, 12.5, true},
		{"(150.5)", -150.5, true},
		{"( 10 )", -10, true},
		{"()", 0, false},
		{"(-)", 0, false},
		{"1 000 000,5", 1000000.5, true},
		{"-", 0, false},
		{"NULL", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{true, 0, false},
		{nil, 0, false},
		{[]any{1}, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat(tt.in)
		assert.Equal(t, tt.ok, ok, "input %#v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, "input %#v", tt.in)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := map[string]string{
		"1195":    "1195",
		" р.1195": "1195",
		"р. 1195": "1195",
		"р1195":   "1195",
	}
	for in, want := range tests {
		got, ok := NormalizeCode(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"", "р.", "11-95", "row1195", "１１９５"} {
		_, ok := NormalizeCode(bad)
		assert.False(t, ok, bad)
	}
}

func TestValidate(t *testing.T) {
	ok := FinancialDataset{
		CompanyName: "X", Period: "2024",
		BalanceStart: Values{"1195": 1}, BalanceEnd: Values{}, IncomeCurrent: Values{},
	}
	assert.NoError(t, Validate(ok))

	bad := ok
	bad.BalanceEnd = Values{"12a": 1}
	assert.Error(t, Validate(bad))

	missing := ok
	missing.IncomeCurrent = nil
	assert.Error(t, Validate(missing))
}

func TestIsKnownCode(t *testing.T) {
	assert.True(t, IsKnownCode(KeyBalanceEnd, "1195"))
	assert.True(t, IsKnownCode(KeyIncomeCurrent, "2350"))
	assert.False(t, IsKnownCode(KeyIncomeCurrent, "1195"))
	assert.False(t, IsKnownCode("unknown_section", "1195"))
}

func TestParse_KeepsUnknownCodes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ds, err := NewParser(logger).Parse(`{"balance_start":{},"balance_end":{"1195":10,"9999":5},"income_current":{}}`)
	require.NoError(t, err)

	assert.Equal(t, Values{"1195": 10, "9999": 5}, ds.BalanceEnd)
	assert.Contains(t, buf.String(), `"msg":"dataset.parse.unknown_code"`)
	assert.Contains(t, buf.String(), `"code":"9999"`)
	assert.NotContains(t, buf.String(), `"code":"1195"`)
}
