package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sanitizePathPart makes a grade or section label safe to use as a folder
// or file name component.
func sanitizePathPart(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "/", "_"))
	if value == "" {
		return "Ungraded"
	}
	return value
}

// writeReportFiles writes the teacher and accounts CSV trees:
// <out>/teachers/<school>/<grade>/<prefix> <grade> <section>.csv and the
// same layout under <out>/accounts. The row content keeps blank grades
// blank; only the path components fall back to a placeholder.
func writeReportFiles(report Report, outDir string) error {
	for _, school := range report.Schools {
		for _, group := range school.Groups {
			gradeClean := sanitizePathPart(group.Grade)
			sectionClean := sanitizePathPart(group.Section)
			filename := fmt.Sprintf("%s %s %s.csv", school.FilePrefix, gradeClean, sectionClean)

			teacherDir := filepath.Join(outDir, "teachers", school.School, gradeClean)
			if err := writeTeacherCSV(filepath.Join(teacherDir, filename), school.Periods, group.Teacher); err != nil {
				return err
			}

			accountsDir := filepath.Join(outDir, "accounts", school.School, gradeClean)
			if err := writeAccountsCSV(filepath.Join(accountsDir, filename), school.Periods, group.Accounts); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeTeacherCSV(path string, periods []FeePeriod, rows []TeacherRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"Student Name", "Enrollment No", "Grade", "Section"}
	for _, period := range periods {
		header = append(header, period.Label)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{row.StudentName, row.EnrollmentNo, row.Grade, row.Section}
		for _, status := range row.Statuses {
			record = append(record, string(status))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeAccountsCSV(path string, periods []FeePeriod, rows []AccountsRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"Customer ID", "Student Name", "Enrollment No", "Grade", "Section"}
	for _, period := range periods {
		header = append(header, period.Label)
	}
	header = append(header, "Total Outstanding")
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{row.CustomerID, row.StudentName, row.EnrollmentNo, row.Grade, row.Section}
		for _, amount := range row.Amounts {
			record = append(record, amount.String())
		}
		record = append(record, row.TotalOutstanding.String())
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(report Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func printReport(report Report, contactsPath string, invoicesPath string) {
	fmt.Println("Excel Schools Fee Defaulter Report")
	fmt.Println(strings.Repeat("=", 38))
	fmt.Printf("Contacts: %s\n", filepath.Base(contactsPath))
	fmt.Printf("Invoices: %s\n", filepath.Base(invoicesPath))
	fmt.Printf("As of: %s\n", report.Summary.AsOf)
	fmt.Printf("Contacts loaded: %d | invoice lines: %d\n", report.Summary.TotalContacts, report.Summary.TotalInvoices)
	fmt.Printf("Students reported: %d | defaulters: %d | outstanding: %s\n",
		report.Summary.ReportedStudents, report.Summary.Defaulters, report.Summary.TotalOutstanding.String())
	if report.Summary.InvalidRows > 0 {
		fmt.Printf("Invalid rows skipped: %d\n", report.Summary.InvalidRows)
	}
	if report.Summary.OrphanLines > 0 {
		fmt.Printf("Orphan invoice lines: %d\n", report.Summary.OrphanLines)
	}

	for _, school := range report.Schools {
		fmt.Printf("\n%s\n", school.School)
		fmt.Println(strings.Repeat("-", 38))
		keys := make([]string, 0, len(school.Periods))
		for _, period := range school.Periods {
			keys = append(keys, period.Key)
		}
		fmt.Printf("Fee columns: %s\n", strings.Join(keys, ", "))
		fmt.Printf("Students: %d | defaulters: %d | outstanding: %s\n",
			school.Students, school.Defaulters, school.TotalOutstanding.String())
	}

	if len(report.Diagnostics.ConfigErrors) > 0 {
		fmt.Println("\nConfiguration errors")
		fmt.Println(strings.Repeat("-", 38))
		for _, schoolErr := range report.Diagnostics.ConfigErrors {
			fmt.Printf("%s: %s (%d students skipped)\n", schoolErr.School, schoolErr.Message, schoolErr.Students)
		}
	}
	if len(report.Diagnostics.UnmatchedItems) > 0 {
		fmt.Println("\nUnmatched item descriptions")
		fmt.Println(strings.Repeat("-", 38))
		for _, item := range report.Diagnostics.UnmatchedItems {
			fmt.Println(item)
		}
	}
}
