package analysis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/dataset"
)

func fullDataset() dataset.FinancialDataset {
	return dataset.FinancialDataset{
		CompanyName: "ТОВ Тест",
		Period:      "2024",
		BalanceStart: dataset.Values{
			"1100": 180, "1125": 90, "1495": 900, "1615": 110, "1900": 1800,
		},
		BalanceEnd: dataset.Values{
			"1100": 200, "1125": 110, "1160": 50, "1165": 150, "1195": 1500,
			"1495": 1100, "1595": 100, "1615": 90, "1695": 1000, "1900": 2200,
		},
		IncomeCurrent: dataset.Values{"2000": 4000, "2050": 3000, "2350": 200},
	}
}

func findRow(t *testing.T, res CalculationResult, name string) Row {
	t.Helper()
	for _, s := range res.Sections {
		for _, r := range s.Rows {
			if r.Name == name {
				return r
			}
		}
	}
	t.Fatalf("row %q not found", name)
	return Row{}
}

func TestCalculate_FullDataset(t *testing.T) {
	e := NewRatioEngine(nil)
	res, err := e.Calculate(context.Background(), fullDataset())
	require.NoError(t, err)

	assert.Equal(t, "ТОВ Тест", res.CompanyName)
	assert.Equal(t, "2024", res.Period)
	require.Len(t, res.Sections, 4)
	assert.Empty(t, res.Limitations)

	cur := findRow(t, res, "Коефіцієнт поточної ліквідності")
	assert.InDelta(t, 1.5, cur.Result.Number, 1e-9)
	assert.Equal(t, RatingGood, cur.Rating)
	assert.Equal(t, "добре", cur.RatingLabel)
	assert.Equal(t, "р.1195 / р.1695 (1500 / 1000)", cur.Formula)

	quick := findRow(t, res, "Коефіцієнт швидкої ліквідності")
	assert.InDelta(t, 1.3, quick.Result.Number, 1e-9)

	roa := findRow(t, res, "Рентабельність активів (ROA)")
	assert.InDelta(t, 0.1, roa.Result.Number, 1e-9)
	assert.Equal(t, RatingGood, roa.Rating)

	margin := findRow(t, res, "Чиста рентабельність продажів")
	assert.InDelta(t, 0.05, margin.Result.Number, 1e-9)

	inv := findRow(t, res, "Оборотність запасів")
	assert.InDelta(t, 3000.0/190.0, inv.Result.Number, 1e-9)
	assert.Equal(t, RatingInfo, inv.Rating)
	assert.Equal(t, "довідково", inv.RatingLabel)
}

func TestCalculate_MissingRowsBecomeLimitations(t *testing.T) {
	ds := fullDataset()
	delete(ds.BalanceEnd, "1695")

	res, err := NewRatioEngine(nil).Calculate(context.Background(), ds)
	require.NoError(t, err)

	require.Len(t, res.Limitations, 4)
	lim := res.Limitations[0]
	assert.Equal(t, "Коефіцієнт поточної ліквідності", lim.Indicator)
	assert.Equal(t, "відсутні дані", lim.Reason)
	assert.Equal(t, []string{"р.1695 (кінець періоду)"}, lim.MissingRows)
	assert.Empty(t, res.Sections[0].Rows)
}

func TestCalculate_ZeroDenominator(t *testing.T) {
	ds := fullDataset()
	ds.IncomeCurrent["2000"] = 0

	res, err := NewRatioEngine(nil).Calculate(context.Background(), ds)
	require.NoError(t, err)

	var zero []string
	for _, l := range res.Limitations {
		if l.Reason == "нульовий знаменник" {
			zero = append(zero, l.Indicator)
		}
	}
	assert.ElementsMatch(t, []string{"Чиста рентабельність продажів", "Валова рентабельність"}, zero)
}

func TestCalculate_NegativeEquityGivesTextResult(t *testing.T) {
	ds := fullDataset()
	ds.BalanceEnd["1495"] = -50

	res, err := NewRatioEngine(nil).Calculate(context.Background(), ds)
	require.NoError(t, err)

	row := findRow(t, res, "Коефіцієнт фінансового левериджу")
	assert.True(t, row.Result.IsText())
	assert.Equal(t, RatingBad, row.Rating)

	b, err := json.Marshal(row.Result)
	require.NoError(t, err)
	assert.Equal(t, `"н/д (власний капітал ≤ 0)"`, string(b))
}

func TestCalculate_AverageFallsBackToAvailableSide(t *testing.T) {
	ds := fullDataset()
	ds.BalanceStart = dataset.Values{}

	res, err := NewRatioEngine(nil).Calculate(context.Background(), ds)
	require.NoError(t, err)

	roa := findRow(t, res, "Рентабельність активів (ROA)")
	assert.InDelta(t, 200.0/2200.0, roa.Result.Number, 1e-9)
}

func TestCalculate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRatioEngine(nil).Calculate(ctx, fullDataset())
	require.ErrorIs(t, err, context.Canceled)
}

func TestValueJSON(t *testing.T) {
	b, err := json.Marshal(Value{Number: 1.25})
	require.NoError(t, err)
	assert.Equal(t, "1.25", string(b))
}
