// Package grading computes percentages and letter grades for results.
//
// Grade boundaries are inclusive lower bounds on the percentage:
//
//	A ≥ 70, B ≥ 60, C ≥ 50, D ≥ 45, E ≥ 40, F otherwise
package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
)

type boundary struct {
	min   float64
	grade string
}

var boundaries = []boundary{
	{70, "A"},
	{60, "B"},
	{50, "C"},
	{45, "D"},
	{40, "E"},
}

const failing = "F"

var (
	scoreFields = []string{"score", "marks", "mark"}
	totalFields = []string{"total", "totalMarks", "maxScore", "outOf"}
)

// Percentage returns score as a percentage of total.
func Percentage(score, total float64) (float64, error) {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("%w: total must be positive, got %v", shared.ErrInvalidInput, total)
	}
	if score < 0 || math.IsNaN(score) {
		return 0, fmt.Errorf("%w: score must not be negative, got %v", shared.ErrInvalidInput, score)
	}
	return score / total * 100, nil
}

// Grade maps a percentage to its letter grade.
func Grade(pct float64) string {
	for _, b := range boundaries {
		if pct >= b.min {
			return b.grade
		}
	}
	return failing
}

// Round2 rounds pct to two decimal places for display.
func Round2(pct float64) float64 {
	return math.Round(pct*100) / 100
}

// Result is a graded score.
type Result struct {
	Score      float64
	Total      float64
	Percentage float64
	Grade      string
}

// Evaluate computes the percentage and grade for score out of total.
func Evaluate(score, total float64) (Result, error) {
	pct, err := Percentage(score, total)
	if err != nil {
		return Result{}, err
	}
	return Result{Score: score, Total: total, Percentage: Round2(pct), Grade: Grade(pct)}, nil
}

// FromRecord grades a result record using its score and total fields.
//
// A missing total defaults to 100.
func FromRecord(r models.Record) (Result, error) {
	score, ok := numberField(r, scoreFields)
	if !ok {
		return Result{}, fmt.Errorf("%w: record %q has no score", shared.ErrInvalidInput, r.Key())
	}

	total, ok := numberField(r, totalFields)
	if !ok {
		total = 100
	}
	return Evaluate(score, total)
}

func numberField(r models.Record, fields []string) (float64, bool) {
	for _, f := range fields {
		if n, ok := toFloat(r[f]); ok {
			return n, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
