// Package analysis is the calculation engine boundary: it turns a
// FinancialDataset into rated financial ratios and a list of limitations.
package analysis

import (
	"context"
	"strconv"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/dataset"
)

// Engine computes ratios for a dataset.
type Engine interface {
	Calculate(ctx context.Context, ds dataset.FinancialDataset) (CalculationResult, error)
}

// Rating grades a ratio against its norm.
type Rating string

const (
	RatingGood       Rating = "good"
	RatingAcceptable Rating = "acceptable"
	RatingBad        Rating = "bad"
	RatingInfo       Rating = "info"
)

// Label returns the Ukrainian label shown next to the rating.
func (r Rating) Label() string {
	switch r {
	case RatingGood:
		return "добре"
	case RatingAcceptable:
		return "задовільно"
	case RatingBad:
		return "незадовільно"
	default:
		return "довідково"
	}
}

// Value is a row result: a number, or text when no number is meaningful.
type Value struct {
	Number float64
	Text   string
}

// IsText reports whether the value carries text instead of a number.
func (v Value) IsText() bool { return v.Text != "" }

// MarshalJSON renders numbers as JSON numbers and text as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsText() {
		return []byte(strconv.Quote(v.Text)), nil
	}
	return []byte(strconv.FormatFloat(v.Number, 'f', -1, 64)), nil
}

type Row struct {
	Name        string `json:"name"`
	Formula     string `json:"formula"`
	Result      Value  `json:"result"`
	Rating      Rating `json:"rating"`
	RatingLabel string `json:"rating_label"`
	Norm        string `json:"norm"`
}

type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

type Limitation struct {
	Indicator   string   `json:"indicator"`
	Reason      string   `json:"reason"`
	MissingRows []string `json:"missing_rows"`
}

type CalculationResult struct {
	CompanyName string       `json:"company_name"`
	Period      string       `json:"period"`
	Sections    []Section    `json:"sections"`
	Limitations []Limitation `json:"limitations"`
}
