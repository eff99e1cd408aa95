package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFixture(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestEndToEndCSVPipeline(t *testing.T) {
	contactsCSV := "Contact ID,First Name,Last Name,School,Grade,Section,CF.Enrollment Code,Opening Balance\n" +
		"C-1,Asha,Nair,Excel Central School,5,A,EN-101,0\n" +
		"C-2,Ravi,Menon,Excel Central School,5,,,0\n"
	invoicesCSV := "Customer ID,Item Name,Invoice Status,Due Date,Balance\n" +
		"C-1,July Monthly Fee,Overdue,2025-07-01,15000\n" +
		"C-1,August Monthly Fee,PartiallyPaid,2025-09-01,2000\n" +
		"C-2,not-a-fee,,bad-date,100\n"

	contactsPath := writeFixture(t, "Contacts.csv", contactsCSV)
	invoicesPath := writeFixture(t, "Invoice.csv", invoicesCSV)

	contacts, invalidContacts, err := readContacts(contactsPath)
	if err != nil {
		t.Fatalf("read contacts: %v", err)
	}
	if invalidContacts != 0 || len(contacts) != 2 {
		t.Fatalf("expected 2 contacts with no invalid rows, got %d/%d", len(contacts), invalidContacts)
	}
	if contacts[0].EnrollmentNo != "EN-101" {
		t.Fatalf("expected enrollment code EN-101, got %q", contacts[0].EnrollmentNo)
	}

	invoices, invalidInvoices, err := readInvoices(invoicesPath)
	if err != nil {
		t.Fatalf("read invoices: %v", err)
	}
	if len(invoices) != 2 || invalidInvoices != 1 {
		t.Fatalf("expected 2 lines and 1 invalid row, got %d/%d", len(invoices), invalidInvoices)
	}

	asOf := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	report := buildReport(contacts, invoices, asOf, invalidContacts+invalidInvoices)

	if report.Summary.InvalidRows != 1 {
		t.Fatalf("expected 1 invalid row in the summary, got %d", report.Summary.InvalidRows)
	}
	if len(report.Schools) != 1 {
		t.Fatalf("expected one school, got %d", len(report.Schools))
	}
	school := report.Schools[0]
	want := []string{"Initial Fee", "Jun-2025", "Jul-2025", "Aug-2025"}
	if !keysEqual(periodKeys(school.Periods), want) {
		t.Fatalf("expected columns %v, got %v", want, periodKeys(school.Periods))
	}
	if school.Defaulters != 1 {
		t.Fatalf("expected one defaulter (the August fee is not due yet), got %d", school.Defaulters)
	}

	outDir := t.TempDir()
	if err := writeReportFiles(report, outDir); err != nil {
		t.Fatalf("write report files: %v", err)
	}

	teacherPath := filepath.Join(outDir, "teachers", excelCentralSchool, "5", "ECS 5 A.csv")
	rows := readCSVFile(t, teacherPath)
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row in %s, got %d rows", teacherPath, len(rows))
	}
	header := rows[0]
	if header[len(header)-1] != "Aug-2025" {
		t.Fatalf("expected last teacher column Aug-2025, got %q", header[len(header)-1])
	}
	row := rows[1]
	if row[0] != "Asha Nair" {
		t.Fatalf("expected Asha Nair's row, got %v", row)
	}
	// Columns: name, enrollment, grade, section, then Initial, Jun, Jul, Aug.
	if row[6] != "Unpaid" {
		t.Fatalf("expected Jul-2025 Unpaid, got %q", row[6])
	}
	if row[7] != "Paid" {
		t.Fatalf("expected Aug-2025 Paid (due date not passed), got %q", row[7])
	}

	generalPath := filepath.Join(outDir, "accounts", excelCentralSchool, "5", "ECS 5 General.csv")
	accountRows := readCSVFile(t, generalPath)
	if len(accountRows) != 2 {
		t.Fatalf("expected the blank-section student under General, got %d rows", len(accountRows))
	}
	total := accountRows[1][len(accountRows[1])-1]
	if total != "0" {
		t.Fatalf("expected a zero summary for the unbilled student, got %q", total)
	}
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestReadContactsMissingIDColumn(t *testing.T) {
	path := writeFixture(t, "Contacts.csv", "First Name,School\nAsha,Excel Central School\n")
	if _, _, err := readContacts(path); err == nil {
		t.Fatal("expected an error for the missing Contact ID column")
	}
}

func TestParseAmountHandlesSeparatorsAndBlanks(t *testing.T) {
	amount, err := parseAmount("1,50,000.25")
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	if amount.String() != "150000.25" {
		t.Fatalf("expected 150000.25, got %s", amount)
	}
	zero, err := parseAmount("  ")
	if err != nil || !zero.IsZero() {
		t.Fatalf("blank amount should read as zero, got %s (%v)", zero, err)
	}
	if _, err := parseAmount("12x"); err == nil {
		t.Fatal("expected an error for a malformed amount")
	}
}

func TestSanitizeSchemaName(t *testing.T) {
	if _, err := sanitizeSchema("fee_report"); err != nil {
		t.Fatalf("valid schema rejected: %v", err)
	}
	if _, err := sanitizeSchema("bad-schema;drop"); err == nil {
		t.Fatal("expected invalid schema name to be rejected")
	}
	if _, err := sanitizeSchema("  "); err == nil {
		t.Fatal("expected blank schema name to be rejected")
	}
}
