// Package sheets implements the tabular store against the Google Sheets API.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/iyaskobsp-spec/helpme.bot/internal/store"
)

// Client talks to one spreadsheet. It implements store.Tabular.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	logger        *zerolog.Logger
}

// New creates a client from a service-account credentials source. creds may
// be an inline JSON document or a path to one, matching how the credential is
// deployed.
func New(ctx context.Context, spreadsheetID, creds string, logger *zerolog.Logger) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is empty")
	}

	var opt option.ClientOption
	if strings.HasPrefix(strings.TrimSpace(creds), "{") {
		opt = option.WithCredentialsJSON([]byte(creds))
	} else {
		opt = option.WithCredentialsFile(creds)
	}

	svc, err := sheetsapi.NewService(ctx, opt, option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, logger: logger}, nil
}

// Ping verifies the spreadsheet is reachable; used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: ping: %w", err)
	}
	return nil
}

func (c *Client) GetAllRows(ctx context.Context, table string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, table).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: get %s: %w", table, err)
	}
	return toStringRows(resp.Values), nil
}

func (c *Client) GetRow(ctx context.Context, table string, index int) ([]string, error) {
	rng := fmt.Sprintf("%s!%d:%d", table, index, index)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: get %s row %d: %w", table, index, err)
	}
	rows := toStringRows(resp.Values)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (c *Client) UpdateCell(ctx context.Context, table string, index, col int, value string) error {
	rng := fmt.Sprintf("%s!%s%d", table, ColumnLetter(col), index)
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{{value}}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) BatchUpdate(ctx context.Context, table string, updates []store.RangeUpdate) error {
	data := make([]*sheetsapi.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheetsapi.ValueRange{
			Range:  fmt.Sprintf("%s!%s", table, u.Range),
			Values: toInterfaceRows(u.Values),
		})
	}
	req := &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: batch update %s: %w", table, err)
	}
	return nil
}

func (c *Client) AppendRow(ctx context.Context, table string, values []string) (int, error) {
	vr := &sheetsapi.ValueRange{Values: toInterfaceRows([][]string{values})}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, table, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets: append to %s: %w", table, err)
	}
	if resp.Updates == nil {
		return 0, fmt.Errorf("sheets: append to %s: empty response", table)
	}
	idx, err := rowFromRange(resp.Updates.UpdatedRange)
	if err != nil {
		return 0, fmt.Errorf("sheets: append to %s: %w", table, err)
	}
	return idx, nil
}

// ColumnLetter converts a 1-based column number to its A1 letters.
func ColumnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// rowFromRange extracts the starting row of an updated range such as
// "Requests!A12:G12".
func rowFromRange(updated string) (int, error) {
	if i := strings.IndexByte(updated, '!'); i >= 0 {
		updated = updated[i+1:]
	}
	updated = strings.SplitN(updated, ":", 2)[0]
	digits := strings.TrimLeftFunc(updated, func(r rune) bool {
		return r < '0' || r > '9'
	})
	idx, err := strconv.Atoi(digits)
	if err != nil || idx < 1 {
		return 0, fmt.Errorf("bad updated range %q", updated)
	}
	return idx, nil
}

func toStringRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, r := range values {
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = fmt.Sprint(v)
		}
		rows[i] = row
	}
	return rows
}

func toInterfaceRows(values [][]string) [][]interface{} {
	rows := make([][]interface{}, len(values))
	for i, r := range values {
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		rows[i] = row
	}
	return rows
}
