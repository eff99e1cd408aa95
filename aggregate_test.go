package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func centralStudent(lines ...InvoiceLine) *StudentGroup {
	return &StudentGroup{
		Student: StudentIdentity{
			CustomerID:  "C-100",
			StudentName: "Asha Nair",
			School:      excelCentralSchool,
			Grade:       "5",
			Section:     "A",
		},
		Lines: lines,
	}
}

func recordFor(t *testing.T, records []StatusRecord, key string) StatusRecord {
	t.Helper()
	for _, record := range records {
		if record.Period.Key == key {
			return record
		}
	}
	t.Fatalf("no record for period %s", key)
	return StatusRecord{}
}

func TestAggregateOverdueLine(t *testing.T) {
	asOf := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	policy := newMonthlyPolicy()
	periods := policy.ActivePeriods(asOf)
	group := centralStudent(InvoiceLine{
		CustomerID: "C-100",
		ItemName:   "July Monthly Fee",
		Status:     "Overdue",
		DueDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Balance:    decimal.NewFromInt(15000),
	})

	diags := Diagnostics{}
	records := aggregateStudent(group, periods, policy, asOf, &diags)
	if len(records) != len(periods) {
		t.Fatalf("expected %d records, got %d", len(periods), len(records))
	}

	july := recordFor(t, records, "Jul-2025")
	if july.Status != StatusUnpaid || !july.Outstanding.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("expected Jul-2025 Unpaid/15000, got %s/%s", july.Status, july.Outstanding)
	}
	for _, key := range []string{"Initial Fee", "Jun-2025", "Aug-2025"} {
		record := recordFor(t, records, key)
		if record.Status != StatusPaid || !record.Outstanding.IsZero() {
			t.Fatalf("expected %s Paid/0, got %s/%s", key, record.Status, record.Outstanding)
		}
	}

	_, accounts := buildRows(records)
	if !accounts.TotalOutstanding.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("expected summary 15000, got %s", accounts.TotalOutstanding)
	}
}

func TestAggregateFutureDueIsPaid(t *testing.T) {
	policy := newMonthlyPolicy()
	line := InvoiceLine{
		CustomerID: "C-100",
		ItemName:   "June Monthly Fee",
		Status:     "PartiallyPaid",
		DueDate:    time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
		Balance:    decimal.NewFromInt(4000),
	}

	before := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	records := aggregateStudent(centralStudent(line), policy.ActivePeriods(before), policy, before, &Diagnostics{})
	june := recordFor(t, records, "Jun-2025")
	if june.Status != StatusPaid || !june.Outstanding.IsZero() {
		t.Fatalf("expected Paid/0 before the due date, got %s/%s", june.Status, june.Outstanding)
	}

	after := time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC)
	records = aggregateStudent(centralStudent(line), policy.ActivePeriods(after), policy, after, &Diagnostics{})
	june = recordFor(t, records, "Jun-2025")
	if june.Status != StatusUnpaid || !june.Outstanding.Equal(decimal.NewFromInt(4000)) {
		t.Fatalf("expected Unpaid/4000 after the due date, got %s/%s", june.Status, june.Outstanding)
	}
}

func TestAggregateMergesLinesForSamePeriod(t *testing.T) {
	asOf := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	policy := newMonthlyPolicy()
	group := centralStudent(
		InvoiceLine{
			CustomerID: "C-100",
			ItemName:   "July Monthly Fee",
			Status:     "Overdue",
			DueDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			Balance:    decimal.NewFromInt(5000),
		},
		InvoiceLine{
			CustomerID: "C-100",
			ItemName:   "July Monthly Fee",
			Status:     "Overdue",
			DueDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			Balance:    decimal.NewFromInt(3000),
		},
	)

	records := aggregateStudent(group, policy.ActivePeriods(asOf), policy, asOf, &Diagnostics{})
	july := recordFor(t, records, "Jul-2025")
	if july.Status != StatusUnpaid || !july.Outstanding.Equal(decimal.NewFromInt(8000)) {
		t.Fatalf("expected merged Unpaid/8000, got %s/%s", july.Status, july.Outstanding)
	}
}

func TestAggregateStudentWithoutLines(t *testing.T) {
	asOf := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	policy := newMonthlyPolicy()
	periods := policy.ActivePeriods(asOf)

	records := aggregateStudent(centralStudent(), periods, policy, asOf, &Diagnostics{})
	if len(records) != len(periods) {
		t.Fatalf("expected %d records, got %d", len(periods), len(records))
	}
	for _, record := range records {
		if record.Status != StatusPaid || !record.Outstanding.IsZero() {
			t.Fatalf("expected %s Paid/0, got %s/%s", record.Period.Key, record.Status, record.Outstanding)
		}
	}
}

func TestAggregateOutOfScopeLineIgnored(t *testing.T) {
	asOf := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	policy := newMonthlyPolicy()
	periods := policy.ActivePeriods(asOf)
	group := centralStudent(InvoiceLine{
		CustomerID: "C-100",
		ItemName:   "July Monthly Fee",
		Status:     "Overdue",
		DueDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Balance:    decimal.NewFromInt(15000),
	})

	diags := Diagnostics{}
	records := aggregateStudent(group, periods, policy, asOf, &diags)
	for _, record := range records {
		if record.Period.Key == "Jul-2025" {
			t.Fatal("Jul-2025 must not be in scope in mid June")
		}
		if record.Status != StatusPaid || !record.Outstanding.IsZero() {
			t.Fatalf("expected %s Paid/0, got %s/%s", record.Period.Key, record.Status, record.Outstanding)
		}
	}
	if len(diags.UnmatchedItems) != 0 {
		t.Fatalf("out-of-scope line is not an unmatched item: %v", diags.UnmatchedItems)
	}
}

func TestAggregateUnmatchedItemDiagnostics(t *testing.T) {
	asOf := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	policy := newMonthlyPolicy()
	group := centralStudent(
		InvoiceLine{CustomerID: "C-100", ItemName: "Bus Fee", Balance: decimal.NewFromInt(500)},
		InvoiceLine{CustomerID: "C-100", ItemName: "Bus Fee", Balance: decimal.NewFromInt(500)},
	)

	diags := Diagnostics{}
	aggregateStudent(group, policy.ActivePeriods(asOf), policy, asOf, &diags)
	if len(diags.UnmatchedItems) != 1 || diags.UnmatchedItems[0] != "Bus Fee" {
		t.Fatalf("expected one deduplicated unmatched item, got %v", diags.UnmatchedItems)
	}
}

func TestAggregateClampsNegativeBalance(t *testing.T) {
	asOf := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	policy := newMonthlyPolicy()
	group := centralStudent(InvoiceLine{
		CustomerID: "C-100",
		ItemName:   "June Monthly Fee",
		Status:     "Overdue",
		DueDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Balance:    decimal.NewFromInt(-500),
	})

	diags := Diagnostics{}
	records := aggregateStudent(group, policy.ActivePeriods(asOf), policy, asOf, &diags)
	june := recordFor(t, records, "Jun-2025")
	if june.Status != StatusPaid || !june.Outstanding.IsZero() {
		t.Fatalf("expected a credit to clamp to Paid/0, got %s/%s", june.Status, june.Outstanding)
	}
	if len(diags.NegativeClamps) != 1 {
		t.Fatalf("expected one clamp diagnostic, got %v", diags.NegativeClamps)
	}
}

func TestLineOverdue(t *testing.T) {
	asOf := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	overdueStatus := InvoiceLine{Status: "overdue", Balance: decimal.NewFromInt(100)}
	if !lineOverdue(overdueStatus, asOf) {
		t.Fatal("status overdue must count as late regardless of due date")
	}

	pastDue := InvoiceLine{Status: "PartiallyPaid", DueDate: time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)}
	if !lineOverdue(pastDue, asOf) {
		t.Fatal("past due date must count as late")
	}

	dueToday := InvoiceLine{Status: "Open", DueDate: asOf}
	if lineOverdue(dueToday, asOf) {
		t.Fatal("a line due today is not yet late")
	}

	noDueDate := InvoiceLine{Status: "Open"}
	if lineOverdue(noDueDate, asOf) {
		t.Fatal("a line with no due date and no overdue status is not late")
	}
}
