package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const openingBalanceInvoiceNo = "Customer opening balance"

// readContacts loads the contacts export. Rows without a contact id are
// counted as invalid and skipped; everything else is preserved as-is and
// normalized later by the linker.
func readContacts(path string) ([]Contact, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("unable to read contacts header: %w", err)
	}

	colMap := normalizeHeaders(headers)
	idIdx, ok := findColumn(colMap, []string{"contact_id", "customer_id", "contact"})
	if !ok {
		return nil, 0, errors.New("contacts file missing Contact ID column")
	}
	firstIdx, _ := findColumn(colMap, []string{"first_name", "firstname"})
	lastIdx, _ := findColumn(colMap, []string{"last_name", "lastname"})
	schoolIdx, ok := findColumn(colMap, []string{"school", "school_name"})
	if !ok {
		return nil, 0, errors.New("contacts file missing School column")
	}
	gradeIdx, _ := findColumn(colMap, []string{"grade", "class"})
	sectionIdx, _ := findColumn(colMap, []string{"section"})
	enrollIdx, _ := findColumn(colMap, []string{"cf.enrollment code", "enrollment_code", "enrollment_no", "admission_no"})
	openingIdx, _ := findColumn(colMap, []string{"opening_balance"})

	contacts := []Contact{}
	invalidRows := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("unable to read contacts CSV: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		customerID := getValue(record, idIdx)
		if customerID == "" {
			invalidRows++
			continue
		}

		name := strings.TrimSpace(getValue(record, firstIdx) + " " + getValue(record, lastIdx))
		opening := decimal.Zero
		if openingIdx >= 0 {
			opening, err = parseAmount(getValue(record, openingIdx))
			if err != nil {
				invalidRows++
				continue
			}
		}

		contacts = append(contacts, Contact{
			StudentIdentity: StudentIdentity{
				CustomerID:   customerID,
				StudentName:  name,
				EnrollmentNo: getValue(record, enrollIdx),
				School:       getValue(record, schoolIdx),
				Grade:        getValue(record, gradeIdx),
				Section:      getValue(record, sectionIdx),
			},
			OpeningBalance: opening,
		})
	}
	return contacts, invalidRows, nil
}

// readInvoices loads the invoices export. A line needs a customer id and
// item text to be usable; missing due dates stay as the zero time and a
// missing balance reads as zero.
func readInvoices(path string) ([]InvoiceLine, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("unable to read invoices header: %w", err)
	}

	colMap := normalizeHeaders(headers)
	idIdx, ok := findColumn(colMap, []string{"customer_id", "contact_id"})
	if !ok {
		return nil, 0, errors.New("invoices file missing Customer ID column")
	}
	itemIdx, ok := findColumn(colMap, []string{"item_name", "item", "description"})
	if !ok {
		return nil, 0, errors.New("invoices file missing Item Name column")
	}
	statusIdx, _ := findColumn(colMap, []string{"invoice_status", "status"})
	dueIdx, _ := findColumn(colMap, []string{"due_date", "due"})
	balanceIdx, _ := findColumn(colMap, []string{"balance", "balance_due", "amount_due"})

	lines := []InvoiceLine{}
	invalidRows := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("unable to read invoices CSV: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		customerID := getValue(record, idIdx)
		item := getValue(record, itemIdx)
		if customerID == "" || item == "" {
			invalidRows++
			continue
		}

		balance := decimal.Zero
		if balanceIdx >= 0 {
			balance, err = parseAmount(getValue(record, balanceIdx))
			if err != nil {
				invalidRows++
				continue
			}
		}

		dueDate := time.Time{}
		if raw := getValue(record, dueIdx); raw != "" {
			dueDate, err = parseDate(raw)
			if err != nil {
				invalidRows++
				continue
			}
		}

		lines = append(lines, InvoiceLine{
			CustomerID: customerID,
			ItemName:   item,
			Status:     getValue(record, statusIdx),
			DueDate:    dueDate,
			Balance:    balance,
		})
	}
	return lines, invalidRows, nil
}

// readOpeningBalancePayments loads the customer payments export and sums,
// per customer, every payment applied against the opening balance pseudo
// invoice. Other payments are ignored here; regular invoices already
// carry their remaining balance.
func readOpeningBalancePayments(path string) (map[string]decimal.Decimal, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("unable to read payments header: %w", err)
	}

	colMap := normalizeHeaders(headers)
	idIdx, ok := findColumn(colMap, []string{"customerid", "customer_id", "contact_id"})
	if !ok {
		return nil, 0, errors.New("payments file missing CustomerID column")
	}
	invoiceIdx, ok := findColumn(colMap, []string{"invoice_number", "invoice_no"})
	if !ok {
		return nil, 0, errors.New("payments file missing Invoice Number column")
	}
	amountIdx, ok := findColumn(colMap, []string{"amount_applied_to_invoice", "amount_applied", "amount"})
	if !ok {
		return nil, 0, errors.New("payments file missing Amount Applied to Invoice column")
	}

	paid := map[string]decimal.Decimal{}
	invalidRows := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("unable to read payments CSV: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		if getValue(record, invoiceIdx) != openingBalanceInvoiceNo {
			continue
		}

		customerID := getValue(record, idIdx)
		if customerID == "" {
			invalidRows++
			continue
		}
		amount, err := parseAmount(getValue(record, amountIdx))
		if err != nil {
			invalidRows++
			continue
		}
		paid[customerID] = paid[customerID].Add(amount)
	}
	return paid, invalidRows, nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	layouts := []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"02-Jan-2006",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", value)
}

func dateOnly(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

func normalizeHeaders(headers []string) map[string]int {
	result := make(map[string]int, len(headers))
	for idx, header := range headers {
		normalized := normalizeHeader(header)
		if _, exists := result[normalized]; !exists {
			result[normalized] = idx
		}
	}
	return result
}

func normalizeHeader(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}

func findColumn(headers map[string]int, names []string) (int, bool) {
	for _, name := range names {
		if idx, ok := headers[normalizeHeader(name)]; ok {
			return idx, true
		}
	}
	return -1, false
}

func getValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
