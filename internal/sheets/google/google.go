// Package google reads the raw-flows and valuations sheets through the
// Google Sheets API using service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "kosh/internal/sheets"
)

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	rawFlowsSheet   string
	valuationsSheet string
}

// Ensure interface conformance
var (
	_ ports.RawFlowReader   = (*Client)(nil)
	_ ports.ValuationReader = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service-account credentials
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS).
// Optional sheet names: GOOGLE_RAW_FLOWS_SHEET (default "Raw"),
// GOOGLE_VALUATIONS_SHEET (default "Valuations").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	rawFlows := strings.TrimSpace(os.Getenv("GOOGLE_RAW_FLOWS_SHEET"))
	if rawFlows == "" {
		rawFlows = "Raw"
	}
	valuations := strings.TrimSpace(os.Getenv("GOOGLE_VALUATIONS_SHEET"))
	if valuations == "" {
		valuations = "Valuations"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:             svc,
		spreadsheetID:   spreadsheetID,
		rawFlowsSheet:   rawFlows,
		valuationsSheet: valuations,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

func (c *Client) ReadRawFlows(ctx context.Context) ([]ports.RawFlowRow, error) {
	values, err := c.readSheet(ctx, c.rawFlowsSheet)
	if err != nil {
		return nil, err
	}
	rows, err := parseRawFlows(values)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Read raw flows sheet",
		"sheet", c.rawFlowsSheet, "rows", len(rows))
	return rows, nil
}

func (c *Client) ReadValuations(ctx context.Context) ([]ports.ValuationRow, error) {
	values, err := c.readSheet(ctx, c.valuationsSheet)
	if err != nil {
		return nil, err
	}
	rows, err := parseValuations(values)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Read valuations sheet",
		"sheet", c.valuationsSheet, "rows", len(rows))
	return rows, nil
}

func (c *Client) readSheet(ctx context.Context, sheetName string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	return resp.Values, nil
}
