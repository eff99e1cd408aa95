package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBConfig is the Postgres target for archiving a run.
type DBConfig struct {
	URL    string
	Schema string
	Tag    string
}

func dbURLFromEnv() string {
	if value := strings.TrimSpace(os.Getenv("FEE_REPORT_DB_URL")); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

func sanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	valid := regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	if !valid.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

// seedDatabase initializes the schema and stores the current report only
// when no run has been archived yet.
func seedDatabase(report Report, cfg DBConfig) (string, error) {
	schema, err := sanitizeSchema(cfg.Schema)
	if err != nil {
		return "", err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return "", err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return "", err
	}

	if err := ensureSchema(ctx, db, schema); err != nil {
		return "", err
	}

	var count int
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s.report_runs`, schema)).Scan(&count); err != nil {
		return "", err
	}
	if count > 0 {
		log.Info("Report runs already present; skipping seed.")
		return "", nil
	}

	return storeReportTx(ctx, db, report, schema, cfg.Tag)
}

// storeReportInDB archives the run unconditionally.
func storeReportInDB(report Report, cfg DBConfig) (string, error) {
	schema, err := sanitizeSchema(cfg.Schema)
	if err != nil {
		return "", err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return "", err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return "", err
	}

	if err := ensureSchema(ctx, db, schema); err != nil {
		return "", err
	}

	return storeReportTx(ctx, db, report, schema, cfg.Tag)
}

func storeReportTx(ctx context.Context, db *sql.DB, report Report, schema string, tag string) (string, error) {
	runID := uuid.New()
	asOfDate, err := parseDate(report.Summary.AsOf)
	if err != nil {
		return "", err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.report_runs (
			id, as_of, total_contacts, total_invoice_lines, reported_students,
			defaulters, total_outstanding, orphan_lines, invalid_rows, run_tag
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10
		)`, schema),
		runID,
		dateOnly(asOfDate),
		report.Summary.TotalContacts,
		report.Summary.TotalInvoices,
		report.Summary.ReportedStudents,
		report.Summary.Defaulters,
		report.Summary.TotalOutstanding,
		report.Summary.OrphanLines,
		report.Summary.InvalidRows,
		nullString(tag),
	)
	if err != nil {
		return "", err
	}

	insertRecordSQL := fmt.Sprintf(`
		INSERT INTO %s.status_records (
			id, run_id, school, customer_id, student_name, enrollment_no,
			grade, section, period_key, period_due, status, outstanding
		) VALUES (
			$1,$2,$3,$4,$5,$6,
			$7,$8,$9,$10,$11,$12
		)`, schema)

	for _, school := range report.Schools {
		for _, group := range school.Groups {
			for i, accounts := range group.Accounts {
				teacher := group.Teacher[i]
				for j, period := range school.Periods {
					_, err = tx.ExecContext(ctx, insertRecordSQL,
						uuid.New(),
						runID,
						school.School,
						accounts.CustomerID,
						nullString(accounts.StudentName),
						nullString(accounts.EnrollmentNo),
						nullString(accounts.Grade),
						nullString(accounts.Section),
						period.Key,
						dateOnly(period.Due),
						string(teacher.Statuses[j]),
						accounts.Amounts[j],
					)
					if err != nil {
						return "", err
					}
				}
			}
		}
	}

	insertSummarySQL := fmt.Sprintf(`
		INSERT INTO %s.school_summary (
			id, run_id, school, students, defaulters, total_outstanding,
			fee_columns, config_error
		) VALUES (
			$1,$2,$3,$4,$5,$6,
			$7,$8
		)`, schema)

	for _, school := range report.Schools {
		_, err = tx.ExecContext(ctx, insertSummarySQL,
			uuid.New(),
			runID,
			school.School,
			school.Students,
			school.Defaulters,
			school.TotalOutstanding,
			len(school.Periods),
			sql.NullString{},
		)
		if err != nil {
			return "", err
		}
	}
	for _, schoolErr := range report.Diagnostics.ConfigErrors {
		_, err = tx.ExecContext(ctx, insertSummarySQL,
			uuid.New(),
			runID,
			schoolErr.School,
			schoolErr.Students,
			0,
			0,
			0,
			nullString(schoolErr.Message),
		)
		if err != nil {
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return runID.String(), nil
}

func ensureSchema(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.report_runs (
			id uuid PRIMARY KEY,
			as_of date NOT NULL,
			total_contacts integer NOT NULL,
			total_invoice_lines integer NOT NULL,
			reported_students integer NOT NULL,
			defaulters integer NOT NULL,
			total_outstanding numeric(14,2) NOT NULL,
			orphan_lines integer NOT NULL,
			invalid_rows integer NOT NULL,
			run_tag text,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.status_records (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.report_runs(id) ON DELETE CASCADE,
			school text NOT NULL,
			customer_id text NOT NULL,
			student_name text,
			enrollment_no text,
			grade text,
			section text,
			period_key text NOT NULL,
			period_due date,
			status text NOT NULL,
			outstanding numeric(14,2) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.school_summary (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.report_runs(id) ON DELETE CASCADE,
			school text NOT NULL,
			students integer NOT NULL,
			defaulters integer NOT NULL,
			total_outstanding numeric(14,2) NOT NULL,
			fee_columns integer NOT NULL,
			config_error text,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_status_records_run_idx ON %s.status_records (run_id)`, schema, schema))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_status_records_status_idx ON %s.status_records (status)`, schema, schema))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_school_summary_run_idx ON %s.school_summary (run_id)`, schema, schema))
	return err
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
