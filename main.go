package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	contactsPath := flag.String("contacts", "", "Path to the contacts CSV export")
	invoicesPath := flag.String("invoices", "", "Path to the invoices CSV export")
	paymentsPath := flag.String("payments", "", "Optional customer payments CSV for the opening-balance report")
	asOf := flag.String("as-of", "", "Report as-of date (YYYY-MM-DD); defaults to today")
	outDir := flag.String("out", "", "Output directory for teacher/accounts CSV trees")
	jsonOut := flag.String("json", "", "Optional JSON output path for the full report")
	dbEnabled := flag.Bool("db", false, "Archive the run in Postgres (requires FEE_REPORT_DB_URL or DATABASE_URL)")
	dbSchema := flag.String("db-schema", "fee_report", "Postgres schema for the run archive")
	dbTag := flag.String("db-tag", "", "Optional label for this run")
	initDB := flag.Bool("init-db", false, "Initialize database schema and seed it if empty")
	flag.Parse()

	_ = godotenv.Load()
	initLogger()

	if *contactsPath == "" {
		exitWithError(errors.New("--contacts is required"))
	}
	if *invoicesPath == "" {
		exitWithError(errors.New("--invoices is required"))
	}

	asOfDate := time.Now()
	if *asOf != "" {
		parsed, err := parseDate(*asOf)
		if err != nil {
			exitWithError(fmt.Errorf("invalid --as-of date: %w", err))
		}
		asOfDate = parsed
	}
	asOfDate = dateOnly(asOfDate)

	contacts, invalidContacts, err := readContacts(*contactsPath)
	if err != nil {
		exitWithError(err)
	}
	invoices, invalidInvoices, err := readInvoices(*invoicesPath)
	if err != nil {
		exitWithError(err)
	}
	log.Infof("Loaded %d contacts and %d invoice lines", len(contacts), len(invoices))

	report := buildReport(contacts, invoices, asOfDate, invalidContacts+invalidInvoices)

	printReport(report, *contactsPath, *invoicesPath)

	if *outDir != "" {
		if err := writeReportFiles(report, *outDir); err != nil {
			exitWithError(err)
		}
		fmt.Printf("\nReport CSV trees saved under %s\n", *outDir)
	}

	if *jsonOut != "" {
		if err := writeJSON(report, *jsonOut); err != nil {
			exitWithError(err)
		}
		fmt.Printf("JSON report saved to %s\n", *jsonOut)
	}

	if *paymentsPath != "" {
		paid, invalidPayments, err := readOpeningBalancePayments(*paymentsPath)
		if err != nil {
			exitWithError(err)
		}
		if invalidPayments > 0 {
			log.Warnf("Skipped %d invalid payment rows", invalidPayments)
		}
		rows := buildOpeningBalanceReport(contacts, paid)
		fmt.Printf("\nOpening balance defaulters: %d\n", len(rows))
		if *outDir != "" {
			if err := writeOpeningBalanceFiles(rows, *outDir); err != nil {
				exitWithError(err)
			}
		}
	}

	if *dbEnabled || *initDB {
		dbURL := dbURLFromEnv()
		if dbURL == "" {
			exitWithError(errors.New("database URL missing; set FEE_REPORT_DB_URL or DATABASE_URL"))
		}
		cfg := DBConfig{
			URL:    dbURL,
			Schema: *dbSchema,
			Tag:    *dbTag,
		}
		seeded := false
		if *initDB {
			runID, err := seedDatabase(report, cfg)
			if err != nil {
				exitWithError(err)
			}
			if runID != "" {
				seeded = true
				fmt.Printf("\nSeeded Postgres with initial run (run_id=%s)\n", runID)
			}
		}
		if *dbEnabled {
			if seeded {
				fmt.Println("Skipped duplicate insert; current report already used for seed.")
			} else {
				runID, err := storeReportInDB(report, cfg)
				if err != nil {
					exitWithError(err)
				}
				fmt.Printf("\nArchived run in Postgres (run_id=%s)\n", runID)
			}
		}
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
