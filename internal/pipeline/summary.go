package pipeline

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/analysis"
)

// FormatCalculations renders a calculation result as the plain-text block fed
// to the reporting call.
func FormatCalculations(calc analysis.CalculationResult) string {
	var lines []string
	lines = append(lines,
		"Компанія: "+calc.CompanyName,
		"Період: "+calc.Period,
		"",
	)

	for i, s := range calc.Sections {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, s.Title))
		if len(s.Rows) == 0 {
			lines = append(lines, "   (немає даних для розрахунку)")
		}
		for _, row := range s.Rows {
			lines = append(lines, fmt.Sprintf("   - %s: %s = %s [%s:%s] (норма: %s)",
				row.Name, row.Formula, formatResult(row.Result), row.Rating, row.RatingLabel, row.Norm))
		}
		lines = append(lines, "")
	}

	if len(calc.Limitations) == 0 {
		lines = append(lines, "ОБМЕЖЕННЯ: немає — усі показники розраховано.")
	} else {
		lines = append(lines, "ОБМЕЖЕННЯ:")
		for _, l := range calc.Limitations {
			lines = append(lines, fmt.Sprintf("   - %s: %s (%s)", l.Indicator, l.Reason, strings.Join(l.MissingRows, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

func formatResult(v analysis.Value) string {
	if v.IsText() {
		return v.Text
	}
	return fmt.Sprintf("%.4f", v.Number)
}
