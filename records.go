package main

import (
	"time"

	"github.com/shopspring/decimal"
)

const defaultSection = "General"

// StudentIdentity carries the identity columns reports are built from.
type StudentIdentity struct {
	CustomerID   string `json:"customer_id"`
	StudentName  string `json:"student_name"`
	EnrollmentNo string `json:"enrollment_no"`
	School       string `json:"school"`
	Grade        string `json:"grade"`
	Section      string `json:"section"`
}

// Contact is one row of the billing system's contacts export.
type Contact struct {
	StudentIdentity
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// InvoiceLine is one raw billed item from the invoices export. DueDate is
// the zero time when the export left it blank.
type InvoiceLine struct {
	CustomerID string          `json:"customer_id"`
	ItemName   string          `json:"item_name"`
	Status     string          `json:"status"`
	DueDate    time.Time       `json:"due_date"`
	Balance    decimal.Decimal `json:"balance"`
}

// StudentGroup is one student together with every invoice line billed to
// them. A student with no lines still gets a group so they appear in the
// reports.
type StudentGroup struct {
	Student StudentIdentity
	Lines   []InvoiceLine
}

// Diagnostics collects data-quality findings that never halt a run.
type Diagnostics struct {
	InvalidRows       int           `json:"invalid_rows"`
	OrphanLines       []InvoiceLine `json:"orphan_lines,omitempty"`
	UnmatchedItems    []string      `json:"unmatched_items,omitempty"`
	BlankGrades       []string      `json:"blank_grade_customers,omitempty"`
	DuplicateContacts []string      `json:"duplicate_contacts,omitempty"`
	NegativeClamps    []string      `json:"negative_balance_clamps,omitempty"`
	ConfigErrors      []SchoolError `json:"config_errors,omitempty"`
}

// SchoolError records a per-school failure alongside the students it
// affected.
type SchoolError struct {
	School   string `json:"school"`
	Students int    `json:"students"`
	Message  string `json:"message"`
}

func (d *Diagnostics) addUnmatchedItem(item string) {
	for _, existing := range d.UnmatchedItems {
		if existing == item {
			return
		}
	}
	d.UnmatchedItems = append(d.UnmatchedItems, item)
}

// linkStudents joins the contacts export against the invoices export into
// one group per unique customer id, in contact order. Blank sections fall
// back to "General"; blank grades are kept but flagged. Invoice lines with
// no matching contact become orphan diagnostics rather than failures.
func linkStudents(contacts []Contact, invoices []InvoiceLine, diags *Diagnostics) []*StudentGroup {
	groups := make([]*StudentGroup, 0, len(contacts))
	byCustomer := make(map[string]*StudentGroup, len(contacts))

	for _, contact := range contacts {
		if _, exists := byCustomer[contact.CustomerID]; exists {
			diags.DuplicateContacts = append(diags.DuplicateContacts, contact.CustomerID)
			continue
		}
		student := contact.StudentIdentity
		if student.Section == "" {
			student.Section = defaultSection
		}
		if student.Grade == "" {
			diags.BlankGrades = append(diags.BlankGrades, student.CustomerID)
		}
		group := &StudentGroup{Student: student}
		byCustomer[student.CustomerID] = group
		groups = append(groups, group)
	}

	for _, line := range invoices {
		group, ok := byCustomer[line.CustomerID]
		if !ok {
			diags.OrphanLines = append(diags.OrphanLines, line)
			continue
		}
		group.Lines = append(group.Lines, line)
	}

	return groups
}
