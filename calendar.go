package main

import (
	"fmt"
	"strings"
	"time"
)

const (
	initialFeeKey = "Initial Fee"

	excelGlobalSchool  = "Excel Global School"
	excelCentralSchool = "Excel Central School"
)

// ConfigurationError marks a school that has no registered fee calendar.
// It is fatal for that school's students only; other schools in the same
// run are unaffected.
type ConfigurationError struct {
	School string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no fee calendar configured for school %q", e.School)
}

// FeePeriod is one billable slot on a school's fee calendar.
type FeePeriod struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Due   time.Time `json:"due"`
}

// CalendarPolicy is one school's fee calendar: which periods exist, which
// are in scope on a given date, and how invoice item text maps to them.
// Policies are immutable after construction.
type CalendarPolicy interface {
	School() string
	// ActivePeriods returns the periods in scope on asOf, in calendar
	// order. The initial fee is always first; a period due in a future
	// month never appears. The result depends only on asOf, so it can be
	// computed once per school and shared across students.
	ActivePeriods(asOf time.Time) []FeePeriod
	// MatchItem maps raw invoice item text to a period key.
	MatchItem(item string) (string, bool)
}

// policyForSchool selects the calendar for a school by exact name.
func policyForSchool(school string) (CalendarPolicy, error) {
	switch school {
	case excelGlobalSchool:
		return newTermPolicy(), nil
	case excelCentralSchool:
		return newMonthlyPolicy(), nil
	default:
		return nil, &ConfigurationError{School: school}
	}
}

func schoolPrefix(school string) string {
	var b strings.Builder
	for _, word := range strings.Fields(school) {
		b.WriteString(strings.ToUpper(word[:1]))
	}
	return b.String()
}

// sameOrBeforeMonth reports whether due falls in asOf's month or earlier.
// Scope is decided at month granularity: a fee due on the 15th is already
// in scope on the 1st of that month.
func sameOrBeforeMonth(due, asOf time.Time) bool {
	if due.Year() != asOf.Year() {
		return due.Year() < asOf.Year()
	}
	return due.Month() <= asOf.Month()
}

func monthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func monthKey(t time.Time) string {
	return t.Format("Jan-2006")
}

// academicYearMonths lists the billable months of the 2025/26 academic
// year, June through March.
func academicYearMonths() []time.Time {
	months := make([]time.Time, 0, 10)
	cursor := monthStart(2025, time.June)
	for i := 0; i < 10; i++ {
		months = append(months, cursor)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months
}

// feeTerm is one term on the term-based calendar together with the months
// it unlocks.
type feeTerm struct {
	key    string
	item   string // substring expected in invoice item text
	start  time.Time
	months []time.Time
}

// termPolicy implements the Excel Global School calendar: an initial fee
// plus three terms, each term unlocking its constituent month columns as
// the reference date moves through it.
type termPolicy struct {
	school string
	terms  []feeTerm
}

func newTermPolicy() *termPolicy {
	year := academicYearMonths()
	return &termPolicy{
		school: excelGlobalSchool,
		terms: []feeTerm{
			{key: "Term I", item: "Term I Fee (June)", start: monthStart(2025, time.June), months: year[0:3]},
			{key: "Term II", item: "Term II Fee (Sept)", start: monthStart(2025, time.September), months: year[3:7]},
			{key: "Term III", item: "Term III Fee (Jan)", start: monthStart(2026, time.January), months: year[7:10]},
		},
	}
}

func (p *termPolicy) School() string {
	return p.school
}

func (p *termPolicy) ActivePeriods(asOf time.Time) []FeePeriod {
	periods := []FeePeriod{{Key: initialFeeKey, Label: initialFeeKey, Due: p.terms[0].start}}
	for _, term := range p.terms {
		if !sameOrBeforeMonth(term.start, asOf) {
			break
		}
		periods = append(periods, FeePeriod{Key: term.key, Label: term.key, Due: term.start})
		for _, month := range term.months {
			if !sameOrBeforeMonth(month, asOf) {
				break
			}
			periods = append(periods, FeePeriod{Key: monthKey(month), Label: monthKey(month), Due: month})
		}
	}
	return periods
}

func (p *termPolicy) MatchItem(item string) (string, bool) {
	if strings.Contains(item, "Initial Academic Fee") {
		return initialFeeKey, true
	}
	for _, term := range p.terms {
		if strings.Contains(item, term.item) {
			return term.key, true
		}
		for _, month := range term.months {
			if strings.Contains(item, month.Format("January")+" Monthly Fee") {
				return monthKey(month), true
			}
		}
	}
	return "", false
}

// monthlyPolicy implements the Excel Central School calendar: an initial
// fee plus one column per academic-year month, due on the first.
type monthlyPolicy struct {
	school string
	months []time.Time
}

func newMonthlyPolicy() *monthlyPolicy {
	return &monthlyPolicy{school: excelCentralSchool, months: academicYearMonths()}
}

func (p *monthlyPolicy) School() string {
	return p.school
}

func (p *monthlyPolicy) ActivePeriods(asOf time.Time) []FeePeriod {
	periods := []FeePeriod{{Key: initialFeeKey, Label: initialFeeKey, Due: p.months[0]}}
	for _, month := range p.months {
		if !sameOrBeforeMonth(month, asOf) {
			break
		}
		periods = append(periods, FeePeriod{Key: monthKey(month), Label: monthKey(month), Due: month})
	}
	return periods
}

func (p *monthlyPolicy) MatchItem(item string) (string, bool) {
	if strings.Contains(item, "Initial Academic Fee") {
		return initialFeeKey, true
	}
	for _, month := range p.months {
		if strings.Contains(item, month.Format("January")+" Monthly Fee") {
			return monthKey(month), true
		}
	}
	return "", false
}
