// Package dataset holds the typed financial dataset produced by the
// structuring call and the tolerant parser that recovers it from model output.
package dataset

// Values maps accounting line codes (digits only) to signed amounts.
type Values map[string]float64

// Get returns the value for code and whether it is present.
func (v Values) Get(code string) (float64, bool) {
	x, ok := v[code]
	return x, ok
}

// FinancialDataset is the normalized result of the structuring call.
type FinancialDataset struct {
	CompanyName   string `json:"company_name"`
	Period        string `json:"period"`
	BalanceStart  Values `json:"balance_start"`
	BalanceEnd    Values `json:"balance_end"`
	IncomeCurrent Values `json:"income_current"`
}

// Section names of the dataset.
const (
	KeyBalanceStart  = "balance_start"
	KeyBalanceEnd    = "balance_end"
	KeyIncomeCurrent = "income_current"
)

// RequiredKeys lists the sections every structuring response must carry, sorted.
var RequiredKeys = []string{KeyBalanceEnd, KeyBalanceStart, KeyIncomeCurrent}

// Known statutory form codes. Unknown digit codes are still kept.
var (
	BalanceCodes = []string{
		"1002", "1011", "1012", "1095", "1100",
		"1125", "1135", "1155", "1160", "1165", "1195",
		"1495", "1595", "1600", "1610",
		"1615", "1620", "1625", "1690", "1695", "1900",
	}
	IncomeCodes = []string{"2000", "2050", "2290", "2350"}
)

var knownCodes = map[string]map[string]bool{
	KeyBalanceStart:  codeSet(BalanceCodes),
	KeyBalanceEnd:    codeSet(BalanceCodes),
	KeyIncomeCurrent: codeSet(IncomeCodes),
}

func codeSet(codes []string) map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

// IsKnownCode reports whether code is one of the statutory rows listed for section.
func IsKnownCode(section, code string) bool {
	return knownCodes[section][code]
}
