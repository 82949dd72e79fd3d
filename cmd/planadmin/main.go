package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"aiwriter/internal/infra"
	"aiwriter/internal/sqlinline"
)

func main() {
	var (
		licenseFlag string
		planFlag    string
		resetFlag   string
		listFlag    bool
		monthFlag   string
	)

	flag.StringVar(&licenseFlag, "license", "", "license key to assign a plan to")
	flag.StringVar(&planFlag, "plan", "", "plan name to assign (free, starter, pro)")
	flag.StringVar(&resetFlag, "reset-usage", "", "site ID whose monthly counter should be reset")
	flag.BoolVar(&listFlag, "list-usage", false, "list per-site usage for the month")
	flag.StringVar(&monthFlag, "month", "", "calendar month as YYYY-MM (default: current month)")
	flag.Parse()

	month := strings.TrimSpace(monthFlag)
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "planadmin").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	switch {
	case strings.TrimSpace(licenseFlag) != "":
		assignPlan(ctx, runner, strings.TrimSpace(licenseFlag), strings.TrimSpace(planFlag))
	case strings.TrimSpace(resetFlag) != "":
		resetUsage(ctx, runner, strings.TrimSpace(resetFlag), month)
	case listFlag:
		listUsage(ctx, runner, month)
	default:
		exitWithError(errors.New("one of -license, -reset-usage or -list-usage must be provided"))
	}
}

func assignPlan(ctx context.Context, runner *infra.SQLRunner, key, plan string) {
	switch strings.ToLower(plan) {
	case "free", "starter", "pro":
	case "":
		exitWithError(errors.New("-plan is required with -license"))
	default:
		exitWithError(fmt.Errorf("unsupported plan %q", plan))
	}

	var licenseID string
	row := runner.QueryRow(ctx, sqlinline.QAssignLicensePlan, key, plan)
	if err := row.Scan(&licenseID); err != nil {
		if infra.IsNoRows(err) {
			exitWithError(fmt.Errorf("no license with key %q", key))
		}
		exitWithError(fmt.Errorf("failed to assign plan: %w", err))
	}
	fmt.Printf("license %s now on plan %s\n", licenseID, strings.ToLower(plan))
}

func resetUsage(ctx context.Context, runner *infra.SQLRunner, siteID, month string) {
	tag, err := runner.Exec(ctx, sqlinline.QResetUsage, siteID, month)
	if err != nil {
		exitWithError(fmt.Errorf("failed to reset usage: %w", err))
	}
	if tag.RowsAffected() == 0 {
		fmt.Printf("no usage recorded for site %s in %s\n", siteID, month)
		return
	}
	fmt.Printf("usage for site %s in %s reset to 0\n", siteID, month)
}

func listUsage(ctx context.Context, runner *infra.SQLRunner, month string) {
	rows, err := runner.Query(ctx, sqlinline.QListUsageForMonth, month)
	if err != nil {
		exitWithError(fmt.Errorf("failed to list usage: %w", err))
	}
	defer rows.Close()

	fmt.Printf("usage for %s\n", month)
	for rows.Next() {
		var (
			siteID string
			domain string
			plan   string
			used   int
			limit  int
		)
		if err := rows.Scan(&siteID, &domain, &plan, &used, &limit); err != nil {
			exitWithError(fmt.Errorf("failed to scan usage row: %w", err))
		}
		fmt.Printf("%s  %-30s  %-8s  %d/%d\n", siteID, domain, plan, used, limit)
	}
	if err := rows.Err(); err != nil {
		exitWithError(fmt.Errorf("failed to read usage rows: %w", err))
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
