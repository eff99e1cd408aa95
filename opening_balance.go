package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
)

// OpeningBalanceRow is one student who still owes part of their opening
// balance: the balance carried into the billing system minus every payment
// applied against the opening-balance pseudo invoice.
type OpeningBalanceRow struct {
	CustomerID  string          `json:"customer_id"`
	StudentName string          `json:"student_name"`
	School      string          `json:"school"`
	Grade       string          `json:"grade"`
	Section     string          `json:"section"`
	Opening     decimal.Decimal `json:"opening_balance"`
	Paid        decimal.Decimal `json:"paid"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// buildOpeningBalanceReport lists every contact with a positive opening
// balance that their recorded payments do not fully cover. Fully settled
// balances drop out; sections fall back to "General" like everywhere else.
func buildOpeningBalanceReport(contacts []Contact, paid map[string]decimal.Decimal) []OpeningBalanceRow {
	rows := []OpeningBalanceRow{}
	for _, contact := range contacts {
		if !contact.OpeningBalance.IsPositive() {
			continue
		}
		applied := paid[contact.CustomerID]
		remaining := contact.OpeningBalance.Sub(applied)
		if !remaining.IsPositive() {
			continue
		}
		section := contact.Section
		if section == "" {
			section = defaultSection
		}
		rows = append(rows, OpeningBalanceRow{
			CustomerID:  contact.CustomerID,
			StudentName: contact.StudentName,
			School:      contact.School,
			Grade:       contact.Grade,
			Section:     section,
			Opening:     contact.OpeningBalance,
			Paid:        applied,
			Remaining:   remaining,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].School != rows[j].School {
			return rows[i].School < rows[j].School
		}
		if rows[i].StudentName != rows[j].StudentName {
			return rows[i].StudentName < rows[j].StudentName
		}
		return rows[i].CustomerID < rows[j].CustomerID
	})
	return rows
}

// writeOpeningBalanceFiles writes one CSV per school under
// <out>/opening_balance/.
func writeOpeningBalanceFiles(rows []OpeningBalanceRow, outDir string) error {
	bySchool := map[string][]OpeningBalanceRow{}
	schools := []string{}
	for _, row := range rows {
		if _, seen := bySchool[row.School]; !seen {
			schools = append(schools, row.School)
		}
		bySchool[row.School] = append(bySchool[row.School], row)
	}
	sort.Strings(schools)

	dir := filepath.Join(outDir, "opening_balance")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, school := range schools {
		path := filepath.Join(dir, fmt.Sprintf("%s Opening Balance Defaulters.csv", schoolPrefix(school)))
		file, err := os.Create(path)
		if err != nil {
			return err
		}

		writer := csv.NewWriter(file)
		header := []string{"Customer ID", "Student Name", "Grade", "Section", "Opening Balance", "Paid", "Remaining"}
		if err := writer.Write(header); err != nil {
			file.Close()
			return err
		}
		for _, row := range bySchool[school] {
			record := []string{
				row.CustomerID,
				row.StudentName,
				row.Grade,
				row.Section,
				row.Opening.String(),
				row.Paid.String(),
				row.Remaining.String(),
			}
			if err := writer.Write(record); err != nil {
				file.Close()
				return err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
	}
	return nil
}
