package sheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	gsheets "google.golang.org/api/sheets/v4"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"turnstile/internal/config"
	"turnstile/internal/services"
)

// GoogleClient talks to one worksheet of one Google spreadsheet. The
// credential handshake is the SDK's business; turnstile only supplies the
// service account file.
type GoogleClient struct {
	svc           *gsheets.Service
	spreadsheetID string
	worksheet     string
	timeout       time.Duration

	worksheetReady bool
}

// NewGoogleClient builds a client from the sheets section of the config.
func NewGoogleClient(ctx context.Context, cfg *config.Config) (*GoogleClient, error) {
	if err := cfg.ValidateSheets(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sheets", "new client", "", err)
	}

	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(cfg.Sheets.CredentialsPath),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sheets", "new client", "build service", err)
	}

	return &GoogleClient{
		svc:           svc,
		spreadsheetID: cfg.Sheets.SpreadsheetID,
		worksheet:     cfg.Sheets.Worksheet,
		timeout:       cfg.RequestTimeout(),
	}, nil
}

// ReadHeader returns the worksheet's first row.
func (c *GoogleClient) ReadHeader(ctx context.Context) ([]string, error) {
	if err := c.ensureWorksheet(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, c.headerRange()).
		Context(callCtx).Do()
	if err != nil {
		return nil, c.classify("read header", err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	header := make([]string, 0, len(resp.Values[0]))
	for _, cell := range resp.Values[0] {
		header = append(header, strings.TrimSpace(fmt.Sprint(cell)))
	}
	return header, nil
}

// EnsureHeader writes the header row.
func (c *GoogleClient) EnsureHeader(ctx context.Context, columns []string) error {
	if err := c.ensureWorksheet(ctx); err != nil {
		return err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	vr := &gsheets.ValueRange{Values: [][]any{toCells(columns)}}
	_, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, c.headerRange(), vr).
		ValueInputOption("RAW").
		Context(callCtx).Do()
	if err != nil {
		return c.classify("ensure header", err)
	}
	return nil
}

// AppendRow appends one data row below the used range.
func (c *GoogleClient) AppendRow(ctx context.Context, values []string) error {
	if err := c.ensureWorksheet(ctx); err != nil {
		return err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	vr := &gsheets.ValueRange{Values: [][]any{toCells(values)}}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetRange("A1"), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(callCtx).Do()
	if err != nil {
		return c.classify("append row", err)
	}
	return nil
}

// ensureWorksheet creates the configured worksheet when the spreadsheet
// does not have it yet. Checked once per process; worksheets are never
// deleted out from under a running kiosk in practice, and a racing delete
// surfaces as a classified call error anyway.
func (c *GoogleClient) ensureWorksheet(ctx context.Context) error {
	if c.worksheetReady {
		return nil
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	meta, err := c.svc.Spreadsheets.
		Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(callCtx).Do()
	if err != nil {
		return c.classify("lookup worksheet", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.worksheet {
			c.worksheetReady = true
			return nil
		}
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: c.worksheet},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(callCtx).Do(); err != nil {
		return c.classify("add worksheet", err)
	}
	c.worksheetReady = true
	return nil
}

func (c *GoogleClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *GoogleClient) headerRange() string {
	return c.sheetRange("1:1")
}

func (c *GoogleClient) sheetRange(cells string) string {
	escaped := strings.ReplaceAll(c.worksheet, "'", "''")
	return fmt.Sprintf("'%s'!%s", escaped, cells)
}

func (c *GoogleClient) classify(op string, err error) error {
	marker := services.ErrPermanent
	if isTransportError(err) {
		marker = services.ErrTransient
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 408, apiErr.Code == 429, apiErr.Code >= 500:
			marker = services.ErrTransient
		default:
			marker = services.ErrPermanent
		}
	}
	return services.Wrap(marker, "sheets", op, "", err)
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
