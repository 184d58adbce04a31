package sheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// OAuth scopes required to read and write spreadsheets shared with the
// service account.
const (
	ScopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
	ScopeDrive        = "https://www.googleapis.com/auth/drive"
)

// Config holds the credentials and endpoint settings for a sheet client.
// Credentials are passed in explicitly; the client never reads ambient
// process state on its own.
type Config struct {
	// CredentialsFile is the path to a service-account JSON key file.
	CredentialsFile string

	// CredentialsJSON holds the service-account key directly and takes
	// precedence over CredentialsFile.
	CredentialsJSON []byte

	// Endpoint overrides the Sheets API base URL. Used by tests to point
	// the client at a local server.
	Endpoint string

	// HTTPClient overrides the authorized HTTP client. When set, no
	// service-account authentication is performed.
	HTTPClient *http.Client
}

// Client reads a source column from and writes single cells to the first
// worksheet of a spreadsheet. It is constructed once per pipeline run and
// reused for every row.
type Client struct {
	svc *sheets.Service

	// First-worksheet titles by spreadsheet ID, so per-row writes don't
	// refetch spreadsheet metadata.
	mu     sync.Mutex
	titles map[string]string
}

// NewClient creates a sheet client authorized via the configured service
// account. The context governs the token source for the lifetime of the
// client.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	var opts []option.ClientOption

	if config.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(config.HTTPClient))
	} else {
		data := config.CredentialsJSON
		if len(data) == 0 {
			if config.CredentialsFile == "" {
				return nil, errors.New("no sheet credentials configured")
			}
			b, err := os.ReadFile(config.CredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("reading service account key: %w", err)
			}
			data = b
		}

		jwt, err := google.JWTConfigFromJSON(data, ScopeSpreadsheets, ScopeDrive)
		if err != nil {
			return nil, fmt.Errorf("parsing service account key: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(jwt.Client(ctx)))
	}

	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &Client{
		svc:    svc,
		titles: make(map[string]string),
	}, nil
}

// ReadColumn returns the cell texts of the given column on the first
// worksheet, ordered by row and including the header. Trailing empty cells
// are trimmed; empty cells between values are kept as "" so row numbers stay
// aligned with the sheet.
func (c *Client) ReadColumn(ctx context.Context, spreadsheetID string, col int64) ([]string, error) {
	label := ColumnLabel(col)
	if label == "?" {
		return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidColumn, col)
	}

	title, err := c.worksheetTitle(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}

	rng := fmt.Sprintf("'%s'!%s:%s", escapeTitle(title), label, label)
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		MajorDimension("COLUMNS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("reading column %s: %w", label, err)
	}

	if len(resp.Values) == 0 {
		return nil, nil
	}

	cells := make([]string, 0, len(resp.Values[0]))
	for _, v := range resp.Values[0] {
		cells = append(cells, cellString(v))
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells, nil
}

// WriteCell updates a single cell on the first worksheet with RAW input.
// Failures are reported as a *WriteError carrying the cell coordinates; the
// caller decides whether to continue.
func (c *Client) WriteCell(ctx context.Context, spreadsheetID string, row, col int64, value string) error {
	label := ColumnLabel(col)
	if label == "?" {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidColumn, col)
	}
	if row < 1 {
		return &WriteError{Row: row, Column: col, Cause: errors.New("row numbers are 1-based")}
	}

	title, err := c.worksheetTitle(ctx, spreadsheetID)
	if err != nil {
		return &WriteError{Row: row, Column: col, Cause: err}
	}

	rng := fmt.Sprintf("'%s'!%s%d", escapeTitle(title), label, row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}

	_, err = c.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return &WriteError{Row: row, Column: col, Cause: err}
	}
	return nil
}

// worksheetTitle resolves and caches the title of the first worksheet. Only
// the first worksheet is ever addressed.
func (c *Client) worksheetTitle(ctx context.Context, spreadsheetID string) (string, error) {
	c.mu.Lock()
	if t, ok := c.titles[spreadsheetID]; ok {
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return "", fmt.Errorf("spreadsheet %s not found: %w", spreadsheetID, err)
		}
		return "", fmt.Errorf("opening spreadsheet %s: %w", spreadsheetID, err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("%w: %s", ErrNoWorksheets, spreadsheetID)
	}

	t := ss.Sheets[0].Properties.Title
	c.mu.Lock()
	c.titles[spreadsheetID] = t
	c.mu.Unlock()
	return t, nil
}

// escapeTitle doubles single quotes so worksheet titles survive A1 notation.
func escapeTitle(title string) string {
	return strings.ReplaceAll(title, "'", "''")
}

// cellString renders a cell value as text. With the default formatted-value
// rendering everything arrives as a string already; other types are printed.
func cellString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
