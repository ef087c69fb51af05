// Package datewindow decides whether an article date falls in a rolling month window.
package datewindow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-report/internal/domain"
)

// Layout is the only accepted date text format, e.g. "July 8, 2024".
const Layout = "January 2, 2006"

// WindowDays is the width of one window step.
const WindowDays = 30

// ErrParse marks date text that does not match Layout.
var ErrParse = errors.New("date text does not match long-form layout")

// ParseError reports the offending date text.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse date %q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// Result is the tagged outcome of Parse.
type Result struct {
	Date time.Time
	Err  error
}

// OK reports whether parsing succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Parse parses dateText with Layout only; no alternate formats are attempted.
func Parse(dateText string) Result {
	t, err := time.Parse(Layout, strings.TrimSpace(dateText))
	if err != nil {
		return Result{Err: &ParseError{Text: dateText, Err: err}}
	}
	return Result{Date: t}
}

// Matches reports whether the month of dateText equals target.
// The year is ignored, so the same month of any year matches.
func Matches(dateText string, target time.Month) (bool, error) {
	res := Parse(dateText)
	if !res.OK() {
		return false, res.Err
	}
	return res.Date.Month() == target, nil
}

// TargetMonth returns the month key for window i counted back from now.
func TargetMonth(now time.Time, window int) domain.TargetMonth {
	anchor := now.AddDate(0, 0, -window*WindowDays)
	return domain.TargetMonth{Month: anchor.Month(), Window: window, Anchor: anchor}
}
