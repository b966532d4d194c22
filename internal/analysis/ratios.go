package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/dataset"
)

const (
	reasonMissing  = "відсутні дані"
	reasonZeroBase = "нульовий знаменник"
)

// ratio describes one indicator. compute returns numerator and denominator
// read through the lookup, which records missing rows.
type ratio struct {
	name    string
	formula string
	norm    string
	compute func(l *lookup) (num, den float64)
	rate    func(v float64) Rating
	// text replaces the numeric result when it returns non-empty
	text func(num, den float64) string
}

type section struct {
	title  string
	ratios []ratio
}

// RatioEngine computes statutory-form ratios for Ukrainian financial statements
// (balance sheet form 1, income statement form 2).
type RatioEngine struct {
	sections []section
	logger   *slog.Logger
}

func NewRatioEngine(logger *slog.Logger) *RatioEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatioEngine{sections: defaultSections(), logger: logger}
}

// Calculate implements Engine.
func (e *RatioEngine) Calculate(ctx context.Context, ds dataset.FinancialDataset) (CalculationResult, error) {
	if err := ctx.Err(); err != nil {
		return CalculationResult{}, err
	}

	out := CalculationResult{
		CompanyName: ds.CompanyName,
		Period:      ds.Period,
		Sections:    make([]Section, 0, len(e.sections)),
		Limitations: []Limitation{},
	}

	for _, s := range e.sections {
		sec := Section{Title: s.title, Rows: []Row{}}
		for _, r := range s.ratios {
			l := &lookup{ds: ds}
			num, den := r.compute(l)
			if len(l.missing) > 0 {
				out.Limitations = append(out.Limitations, Limitation{
					Indicator:   r.name,
					Reason:      reasonMissing,
					MissingRows: l.missing,
				})
				continue
			}

			row := Row{Name: r.name, Formula: fmt.Sprintf("%s (%s / %s)", r.formula, amount(num), amount(den)), Norm: r.norm}
			if r.text != nil {
				if txt := r.text(num, den); txt != "" {
					row.Result = Value{Text: txt}
					row.Rating = RatingBad
					row.RatingLabel = row.Rating.Label()
					sec.Rows = append(sec.Rows, row)
					continue
				}
			}
			if den == 0 {
				out.Limitations = append(out.Limitations, Limitation{
					Indicator:   r.name,
					Reason:      reasonZeroBase,
					MissingRows: []string{},
				})
				continue
			}

			v := num / den
			row.Result = Value{Number: v}
			row.Rating = r.rate(v)
			row.RatingLabel = row.Rating.Label()
			sec.Rows = append(sec.Rows, row)
		}
		out.Sections = append(out.Sections, sec)
	}

	e.logger.Info("analysis.calculate.ok",
		"company", ds.CompanyName,
		"sections", len(out.Sections),
		"limitations", len(out.Limitations),
	)
	return out, nil
}

type lookup struct {
	ds      dataset.FinancialDataset
	missing []string
}

func (l *lookup) get(v dataset.Values, code, where string) float64 {
	x, ok := v.Get(code)
	if !ok {
		l.missing = append(l.missing, "р."+code+" ("+where+")")
	}
	return x
}

func (l *lookup) end(code string) float64 { return l.get(l.ds.BalanceEnd, code, "кінець періоду") }

func (l *lookup) income(code string) float64 { return l.get(l.ds.IncomeCurrent, code, "звіт про фін. результати") }

// avg averages start and end balances, falling back to whichever one exists.
func (l *lookup) avg(code string) float64 {
	s, okS := l.ds.BalanceStart.Get(code)
	e, okE := l.ds.BalanceEnd.Get(code)
	switch {
	case okS && okE:
		return (s + e) / 2
	case okE:
		return e
	case okS:
		return s
	default:
		l.missing = append(l.missing, "р."+code+" (початок або кінець періоду)")
		return 0
	}
}

func amount(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

// atLeast grades higher-is-better ratios.
func atLeast(good, acceptable float64) func(float64) Rating {
	return func(v float64) Rating {
		switch {
		case v >= good:
			return RatingGood
		case v >= acceptable:
			return RatingAcceptable
		default:
			return RatingBad
		}
	}
}

// atMost grades lower-is-better ratios.
func atMost(good, acceptable float64) func(float64) Rating {
	return func(v float64) Rating {
		switch {
		case v <= good:
			return RatingGood
		case v <= acceptable:
			return RatingAcceptable
		default:
			return RatingBad
		}
	}
}

// positive grades ratios where any profit is acceptable and good starts at good.
func positive(good float64) func(float64) Rating {
	return func(v float64) Rating {
		switch {
		case v >= good:
			return RatingGood
		case v > 0:
			return RatingAcceptable
		default:
			return RatingBad
		}
	}
}

func informational(float64) Rating { return RatingInfo }

func defaultSections() []section {
	return []section{
		{
			title: "Показники ліквідності",
			ratios: []ratio{
				{
					name: "Коефіцієнт поточної ліквідності", formula: "р.1195 / р.1695", norm: "1,0–2,0",
					compute: func(l *lookup) (float64, float64) { return l.end("1195"), l.end("1695") },
					rate:    atLeast(1.5, 1.0),
				},
				{
					name: "Коефіцієнт швидкої ліквідності", formula: "(р.1195 − р.1100) / р.1695", norm: "0,6–0,8",
					compute: func(l *lookup) (float64, float64) { return l.end("1195") - l.end("1100"), l.end("1695") },
					rate:    atLeast(0.8, 0.6),
				},
				{
					name: "Коефіцієнт абсолютної ліквідності", formula: "(р.1160 + р.1165) / р.1695", norm: "≥ 0,2",
					compute: func(l *lookup) (float64, float64) { return l.end("1160") + l.end("1165"), l.end("1695") },
					rate:    atLeast(0.2, 0.1),
				},
			},
		},
		{
			title: "Показники фінансової стійкості",
			ratios: []ratio{
				{
					name: "Коефіцієнт автономії", formula: "р.1495 / р.1900", norm: "≥ 0,5",
					compute: func(l *lookup) (float64, float64) { return l.end("1495"), l.end("1900") },
					rate:    atLeast(0.5, 0.3),
				},
				{
					name: "Коефіцієнт фінансового левериджу", formula: "(р.1595 + р.1695) / р.1495", norm: "≤ 1,0",
					compute: func(l *lookup) (float64, float64) { return l.end("1595") + l.end("1695"), l.end("1495") },
					rate:    atMost(1.0, 2.0),
					text: func(_, den float64) string {
						if den <= 0 {
							return "н/д (власний капітал ≤ 0)"
						}
						return ""
					},
				},
			},
		},
		{
			title: "Показники рентабельності",
			ratios: []ratio{
				{
					name: "Рентабельність активів (ROA)", formula: "р.2350 / сер.(р.1900)", norm: "> 0, бажано ≥ 0,05",
					compute: func(l *lookup) (float64, float64) { return l.income("2350"), l.avg("1900") },
					rate:    positive(0.05),
				},
				{
					name: "Рентабельність власного капіталу (ROE)", formula: "р.2350 / сер.(р.1495)", norm: "> 0, бажано ≥ 0,1",
					compute: func(l *lookup) (float64, float64) { return l.income("2350"), l.avg("1495") },
					rate:    positive(0.1),
				},
				{
					name: "Чиста рентабельність продажів", formula: "р.2350 / р.2000", norm: "> 0, бажано ≥ 0,05",
					compute: func(l *lookup) (float64, float64) { return l.income("2350"), l.income("2000") },
					rate:    positive(0.05),
				},
				{
					name: "Валова рентабельність", formula: "(р.2000 − р.2050) / р.2000", norm: "> 0, бажано ≥ 0,2",
					compute: func(l *lookup) (float64, float64) { return l.income("2000") - l.income("2050"), l.income("2000") },
					rate:    positive(0.2),
				},
			},
		},
		{
			title: "Показники ділової активності",
			ratios: []ratio{
				{
					name: "Оборотність активів", formula: "р.2000 / сер.(р.1900)", norm: "≥ 1,0",
					compute: func(l *lookup) (float64, float64) { return l.income("2000"), l.avg("1900") },
					rate:    atLeast(1.0, 0.5),
				},
				{
					name: "Оборотність дебіторської заборгованості", formula: "р.2000 / сер.(р.1125)", norm: "зростання в динаміці",
					compute: func(l *lookup) (float64, float64) { return l.income("2000"), l.avg("1125") },
					rate:    informational,
				},
				{
					name: "Оборотність запасів", formula: "р.2050 / сер.(р.1100)", norm: "зростання в динаміці",
					compute: func(l *lookup) (float64, float64) { return l.income("2050"), l.avg("1100") },
					rate:    informational,
				},
				{
					name: "Оборотність кредиторської заборгованості", formula: "р.2050 / сер.(р.1615)", norm: "зростання в динаміці",
					compute: func(l *lookup) (float64, float64) { return l.income("2050"), l.avg("1615") },
					rate:    informational,
				},
			},
		},
	}
}
