package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FeeStatus is the teacher-facing payment state of one fee period. Paid
// and Unpaid are the only states: a period is Unpaid exactly when it has a
// positive overdue balance, and Paid otherwise.
type FeeStatus string

const (
	StatusPaid   FeeStatus = "Paid"
	StatusUnpaid FeeStatus = "Unpaid"
)

// StatusRecord is the computed result for one (student, period) pair.
// Records are created once during aggregation and never mutated.
type StatusRecord struct {
	Student     StudentIdentity `json:"student"`
	Period      FeePeriod       `json:"period"`
	Status      FeeStatus       `json:"status"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// lineOverdue reports whether an invoice line is late on asOf: either the
// billing system already marked it overdue, or its due date has passed.
// A line with a future due date is not late regardless of its balance, so
// a partial payment is not reported as debt before the fee is actually due.
func lineOverdue(line InvoiceLine, asOf time.Time) bool {
	if strings.EqualFold(strings.TrimSpace(line.Status), "overdue") {
		return true
	}
	return !line.DueDate.IsZero() && dateOnly(line.DueDate).Before(dateOnly(asOf))
}

// aggregateStudent reduces one student's invoice lines into exactly one
// StatusRecord per in-scope period.
//
// Lines whose item text matches no period key are recorded as unmatched
// diagnostics. Lines mapping to a period outside the in-scope list (a fee
// billed for a future month) are ignored entirely. Overdue balances for
// the same period are summed, so a fee billed and partially paid across
// several invoices merges instead of overwriting. A period with no late
// balance at all reports Paid with zero outstanding.
func aggregateStudent(group *StudentGroup, periods []FeePeriod, policy CalendarPolicy, asOf time.Time, diags *Diagnostics) []StatusRecord {
	inScope := make(map[string]bool, len(periods))
	for _, period := range periods {
		inScope[period.Key] = true
	}

	sums := make(map[string]decimal.Decimal, len(periods))
	for _, line := range group.Lines {
		key, ok := policy.MatchItem(line.ItemName)
		if !ok {
			diags.addUnmatchedItem(line.ItemName)
			continue
		}
		if !inScope[key] {
			continue
		}
		if !lineOverdue(line, asOf) {
			continue
		}
		// Credits sum in too, so a refund offsets the same period's debt.
		sums[key] = sums[key].Add(line.Balance)
	}

	records := make([]StatusRecord, 0, len(periods))
	for _, period := range periods {
		amount := sums[period.Key]
		if amount.IsNegative() {
			diags.NegativeClamps = append(diags.NegativeClamps,
				fmt.Sprintf("%s %s %s", group.Student.CustomerID, period.Key, amount.String()))
			amount = decimal.Zero
		}
		status := StatusPaid
		if amount.IsPositive() {
			status = StatusUnpaid
		}
		records = append(records, StatusRecord{
			Student:     group.Student,
			Period:      period,
			Status:      status,
			Outstanding: amount,
		})
	}
	return records
}
