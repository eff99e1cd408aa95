package main

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Report is the full outcome of one run: per-school row groups ready for
// serialization plus the diagnostics gathered along the way. Partial
// success is normal: a school without a calendar shows up only in the
// diagnostics while every other school still gets its rows.
type Report struct {
	Summary     ReportSummary  `json:"summary"`
	Schools     []SchoolReport `json:"schools"`
	Diagnostics Diagnostics    `json:"diagnostics"`
}

type ReportSummary struct {
	AsOf             string          `json:"as_of"`
	TotalContacts    int             `json:"total_contacts"`
	TotalInvoices    int             `json:"total_invoice_lines"`
	ReportedStudents int             `json:"reported_students"`
	Defaulters       int             `json:"defaulters"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	OrphanLines      int             `json:"orphan_lines"`
	InvalidRows      int             `json:"invalid_rows"`
}

type SchoolReport struct {
	School           string          `json:"school"`
	FilePrefix       string          `json:"file_prefix"`
	Periods          []FeePeriod     `json:"periods"`
	Groups           []SectionGroup  `json:"groups"`
	Students         int             `json:"students"`
	Defaulters       int             `json:"defaulters"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// SectionGroup is the partition key the report-writing side needs: one
// (grade, section) bucket with the teacher and accounts rows for it. The
// two row slices are parallel and share one student order.
type SectionGroup struct {
	Grade    string        `json:"grade"`
	Section  string        `json:"section"`
	Teacher  []TeacherRow  `json:"teacher_rows"`
	Accounts []AccountsRow `json:"accounts_rows"`
}

// TeacherRow is the class-teacher view: identity columns plus Paid/Unpaid
// per in-scope period, aligned with the school's period list.
type TeacherRow struct {
	StudentName  string      `json:"student_name"`
	EnrollmentNo string      `json:"enrollment_no"`
	Grade        string      `json:"grade"`
	Section      string      `json:"section"`
	Statuses     []FeeStatus `json:"statuses"`
}

// AccountsRow is the finance view: identity columns plus the outstanding
// amount per in-scope period and their exact sum.
type AccountsRow struct {
	CustomerID       string            `json:"customer_id"`
	StudentName      string            `json:"student_name"`
	EnrollmentNo     string            `json:"enrollment_no"`
	Grade            string            `json:"grade"`
	Section          string            `json:"section"`
	Amounts          []decimal.Decimal `json:"amounts"`
	TotalOutstanding decimal.Decimal   `json:"total_outstanding"`
}

// buildRows turns one student's ordered status records into both audience
// rows in a single pass, so the two views can never disagree.
func buildRows(records []StatusRecord) (TeacherRow, AccountsRow) {
	var teacher TeacherRow
	var accounts AccountsRow
	if len(records) == 0 {
		accounts.TotalOutstanding = decimal.Zero
		return teacher, accounts
	}

	student := records[0].Student
	teacher = TeacherRow{
		StudentName:  student.StudentName,
		EnrollmentNo: student.EnrollmentNo,
		Grade:        student.Grade,
		Section:      student.Section,
		Statuses:     make([]FeeStatus, 0, len(records)),
	}
	accounts = AccountsRow{
		CustomerID:       student.CustomerID,
		StudentName:      student.StudentName,
		EnrollmentNo:     student.EnrollmentNo,
		Grade:            student.Grade,
		Section:          student.Section,
		Amounts:          make([]decimal.Decimal, 0, len(records)),
		TotalOutstanding: decimal.Zero,
	}
	for _, record := range records {
		teacher.Statuses = append(teacher.Statuses, record.Status)
		accounts.Amounts = append(accounts.Amounts, record.Outstanding)
		accounts.TotalOutstanding = accounts.TotalOutstanding.Add(record.Outstanding)
	}
	return teacher, accounts
}

type studentRows struct {
	teacher  TeacherRow
	accounts AccountsRow
}

type sectionKey struct {
	grade   string
	section string
}

// buildReport runs the whole engine: link, resolve each school's calendar
// once, aggregate every student, and assemble the grouped rows. It is a
// pure function of its inputs; invalidRows is carried through from ingest
// so the diagnostics cover the run end to end.
func buildReport(contacts []Contact, invoices []InvoiceLine, asOf time.Time, invalidRows int) Report {
	asOf = dateOnly(asOf)
	diags := Diagnostics{InvalidRows: invalidRows}
	groups := linkStudents(contacts, invoices, &diags)

	buckets := make(map[string][]*StudentGroup)
	schools := make([]string, 0)
	for _, group := range groups {
		if _, seen := buckets[group.Student.School]; !seen {
			schools = append(schools, group.Student.School)
		}
		buckets[group.Student.School] = append(buckets[group.Student.School], group)
	}
	sort.Strings(schools)

	report := Report{
		Summary: ReportSummary{
			AsOf:             asOf.Format("2006-01-02"),
			TotalContacts:    len(contacts),
			TotalInvoices:    len(invoices),
			TotalOutstanding: decimal.Zero,
		},
	}

	for _, school := range schools {
		students := buckets[school]
		policy, err := policyForSchool(school)
		if err != nil {
			log.Warnf("Skipping %d students: %v", len(students), err)
			diags.ConfigErrors = append(diags.ConfigErrors, SchoolError{
				School:   school,
				Students: len(students),
				Message:  err.Error(),
			})
			continue
		}

		periods := policy.ActivePeriods(asOf)
		schoolReport := SchoolReport{
			School:           school,
			FilePrefix:       schoolPrefix(school),
			Periods:          periods,
			TotalOutstanding: decimal.Zero,
		}

		sections := make(map[sectionKey][]studentRows)
		keys := make([]sectionKey, 0)
		for _, group := range students {
			records := aggregateStudent(group, periods, policy, asOf, &diags)
			teacher, accounts := buildRows(records)
			key := sectionKey{grade: group.Student.Grade, section: group.Student.Section}
			if _, seen := sections[key]; !seen {
				keys = append(keys, key)
			}
			sections[key] = append(sections[key], studentRows{teacher: teacher, accounts: accounts})

			schoolReport.Students++
			schoolReport.TotalOutstanding = schoolReport.TotalOutstanding.Add(accounts.TotalOutstanding)
			if accounts.TotalOutstanding.IsPositive() {
				schoolReport.Defaulters++
			}
		}

		sort.Slice(keys, func(i, j int) bool {
			if keys[i].grade != keys[j].grade {
				return keys[i].grade < keys[j].grade
			}
			return keys[i].section < keys[j].section
		})

		for _, key := range keys {
			rows := sections[key]
			sort.Slice(rows, func(i, j int) bool {
				if rows[i].teacher.StudentName != rows[j].teacher.StudentName {
					return rows[i].teacher.StudentName < rows[j].teacher.StudentName
				}
				return rows[i].accounts.CustomerID < rows[j].accounts.CustomerID
			})
			group := SectionGroup{Grade: key.grade, Section: key.section}
			for _, row := range rows {
				group.Teacher = append(group.Teacher, row.teacher)
				group.Accounts = append(group.Accounts, row.accounts)
			}
			schoolReport.Groups = append(schoolReport.Groups, group)
		}

		report.Summary.ReportedStudents += schoolReport.Students
		report.Summary.Defaulters += schoolReport.Defaulters
		report.Summary.TotalOutstanding = report.Summary.TotalOutstanding.Add(schoolReport.TotalOutstanding)
		report.Schools = append(report.Schools, schoolReport)
	}

	report.Summary.OrphanLines = len(diags.OrphanLines)
	report.Summary.InvalidRows = diags.InvalidRows
	report.Diagnostics = diags
	return report
}
