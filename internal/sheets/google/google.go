package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"presupuesto/internal/core"
	"presupuesto/internal/log"
	ports "presupuesto/internal/sheets"
)

// DefaultTabPrefix names month tabs "Presupuesto 2025-08".
const DefaultTabPrefix = "Presupuesto"

const tabCacheTTL = 5 * time.Minute

// Ensure interface conformance
var (
	_ ports.MonthExporter = (*Client)(nil)
	_ ports.ExportLister  = (*Client)(nil)
)

// Options configure New. Exactly one of CredentialsJSON and CredentialsFile
// is needed; JSON wins when both are set.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	TabPrefix       string
	Logger          *log.Logger
}

// Client writes one tab per month to a spreadsheet shared with a service
// account.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabPrefix     string
	logger        *log.Logger

	mu            sync.Mutex
	tabs          map[string]bool
	tabsExpiresAt time.Time
	tabsTTL       time.Duration
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	credentials, err := readCredentials(opts)
	if err != nil {
		return nil, err
	}
	svc, err := newSheetsService(ctx, credentials)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)

	return newClient(svc, spreadsheetID, opts.TabPrefix, logger), nil
}

func newClient(svc *gsheet.Service, spreadsheetID, prefix string, logger *log.Logger) *Client {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultTabPrefix
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tabPrefix:     prefix,
		logger:        logger,
		tabsTTL:       tabCacheTTL,
	}
}

func readCredentials(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		return []byte(opts.CredentialsJSON), nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// newSheetsService authenticates as the service account over a pooled
// transport.
func newSheetsService(ctx context.Context, credentials []byte) (*gsheet.Service, error) {
	conf, err := google.JWTConfigFromJSON(credentials, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	pooled := newHTTPClientWithPooling()
	client := &http.Client{
		Transport: &oauth2.Transport{
			Source: conf.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, pooled)),
			Base:   pooled.Transport,
		},
		Timeout: pooled.Timeout,
	}
	return gsheet.NewService(ctx, goption.WithHTTPClient(client))
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// a1 quotes a tab title for A1 notation.
func a1(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(tab, "'", "''"), cells)
}

// ExportMonth replaces the tab of month with its current totals and entries.
func (c *Client) ExportMonth(ctx context.Context, month core.MonthKey, s *core.Snapshot) error {
	if err := month.Validate(); err != nil {
		return err
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if s == nil {
		s = core.NewSnapshot()
	}

	tab := tabName(c.tabPrefix, month)
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(tab, "A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: monthValues(month, s, time.Now())}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(tab, "A1"), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}

	c.logger.InfoContext(ctx, "Exported month to sheet",
		log.FieldMonth, month.String(),
		log.FieldOperation, log.OpExport,
		"tab", tab,
		log.FieldCount, len(vr.Values))
	return nil
}

// ExportedMonths lists the months that already have a tab.
func (c *Client) ExportedMonths(ctx context.Context) ([]core.MonthKey, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	titles, err := c.tabTitles(ctx, true)
	if err != nil {
		return nil, err
	}
	return monthsFromTabs(c.tabPrefix, titles), nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	if c.hasTab(tab) {
		return nil
	}
	titles, err := c.tabTitles(ctx, false)
	if err != nil {
		return err
	}
	for _, t := range titles {
		if t == tab {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", tab, err)
	}
	c.rememberTab(tab)
	c.logger.InfoContext(ctx, "Created sheet tab", "tab", tab)
	return nil
}

// tabTitles returns the tab titles, from cache unless it expired or fresh
// is set.
func (c *Client) tabTitles(ctx context.Context, fresh bool) ([]string, error) {
	c.mu.Lock()
	if !fresh && c.tabs != nil && time.Now().Before(c.tabsExpiresAt) {
		out := make([]string, 0, len(c.tabs))
		for t := range c.tabs {
			out = append(out, t)
		}
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}

	c.mu.Lock()
	c.tabs = make(map[string]bool, len(titles))
	for _, t := range titles {
		c.tabs[t] = true
	}
	c.tabsExpiresAt = time.Now().Add(c.tabsTTL)
	c.mu.Unlock()
	return titles, nil
}

func (c *Client) hasTab(tab string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tabs[tab] && time.Now().Before(c.tabsExpiresAt)
}

func (c *Client) rememberTab(tab string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tabs == nil {
		c.tabs = map[string]bool{}
	}
	c.tabs[tab] = true
}
