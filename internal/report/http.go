package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Row layout of the station table. Indexes into the <td> cells of each row.
const (
	colName    = 1
	colPartner = 2
	colStatus  = 3
	colTime    = 7
)

// HTTPConfig configures the HTTP-session report source.
type HTTPConfig struct {
	BaseURL   string // admin root, e.g. https://fleet.example.com/admin
	LoginPath string // path under BaseURL presenting the login form
	ListPath  string // path under BaseURL listing the station table
	Username  string
	Password  string
	Timeout   time.Duration

	// Headless is honoured by browser-driven Source implementations;
	// a plain HTTP session has nothing to render and ignores it.
	Headless bool
}

// HTTPSource scans the fleet report over an authenticated HTTP session.
// Login submits the identifier and the secret as two sequential form
// posts, mirroring the report's two-step login flow. Pages are addressed
// by a numeric cursor (?page=N) and the scan ends when the pagination
// control offers no enabled "next" link.
type HTTPSource struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPSource creates a source with a fresh cookie jar. The session
// cookie obtained at login lives in the jar for the rest of the scan.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("report: base_url is required")
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.ListPath == "" {
		cfg.ListPath = "/charge-boxes"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("report: cookie jar: %w", err)
	}

	return &HTTPSource{
		cfg: cfg,
		client: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
		},
	}, nil
}

// NextPage implements Source. An empty cursor authenticates and fetches
// the first page; a numeric cursor fetches that page of the current
// session, re-authenticating once if the session has expired.
func (s *HTTPSource) NextPage(ctx context.Context, cursor string) ([]Record, string, error) {
	pageNum := 1
	if cursor == "" {
		if err := s.login(ctx); err != nil {
			return nil, "", err
		}
	} else {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 1 {
			return nil, "", &UnavailableError{Stage: "fetch", URL: s.listURL(), Err: fmt.Errorf("bad cursor %q", cursor)}
		}
		pageNum = n
	}

	doc, err := s.fetchPage(ctx, pageNum, true)
	if err != nil {
		return nil, "", err
	}

	records := parseRows(doc)
	next := ""
	if hasNextPage(doc) {
		next = strconv.Itoa(pageNum + 1)
	}

	slog.Debug("report page fetched", "page", pageNum, "records", len(records), "has_next", next != "")
	return records, next, nil
}

func (s *HTTPSource) loginURL() string { return s.cfg.BaseURL + s.cfg.LoginPath }
func (s *HTTPSource) listURL() string  { return s.cfg.BaseURL + s.cfg.ListPath }

// login performs the two-step credential flow: the identifier is
// submitted alone first, then identifier and secret together.
func (s *HTTPSource) login(ctx context.Context) error {
	slog.Debug("logging in to report", "url", s.loginURL())

	if _, err := s.postForm(ctx, s.loginURL(), url.Values{
		"username": {s.cfg.Username},
	}); err != nil {
		return &UnavailableError{Stage: "login", URL: s.loginURL(), Err: err}
	}

	doc, err := s.postForm(ctx, s.loginURL(), url.Values{
		"username": {s.cfg.Username},
		"password": {s.cfg.Password},
	})
	if err != nil {
		return &UnavailableError{Stage: "login", URL: s.loginURL(), Err: err}
	}

	if isLoginPage(doc) {
		return &UnavailableError{Stage: "login", URL: s.loginURL(), Err: fmt.Errorf("credentials rejected")}
	}
	return nil
}

func (s *HTTPSource) postForm(ctx context.Context, u string, form url.Values) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit form: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return doc, nil
}

// fetchPage GETs one list page and parses it. If the session has expired
// the server serves the login form instead of the table; one re-login and
// retry is attempted before giving up.
func (s *HTTPSource) fetchPage(ctx context.Context, pageNum int, retryAuth bool) (*goquery.Document, error) {
	u := fmt.Sprintf("%s?page=%d", s.listURL(), pageNum)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &UnavailableError{Stage: "fetch", URL: u, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Stage: "fetch", URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &UnavailableError{Stage: "fetch", URL: u, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Stage: "parse", URL: u, Err: err}
	}

	if isLoginPage(doc) {
		if !retryAuth {
			return nil, &UnavailableError{Stage: "fetch", URL: u, Err: fmt.Errorf("session expired")}
		}
		slog.Info("report session expired, logging in again")
		if err := s.login(ctx); err != nil {
			return nil, err
		}
		return s.fetchPage(ctx, pageNum, false)
	}

	if doc.Find("table tbody tr").Length() == 0 && pageNum == 1 {
		return nil, &UnavailableError{Stage: "parse", URL: u, Err: fmt.Errorf("station table not found")}
	}
	return doc, nil
}

func parseRows(doc *goquery.Document) []Record {
	var records []Record
	doc.Find("table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cols := tr.Find("td")
		records = append(records, Record{
			Name:       cellText(cols, colName),
			Partner:    cellText(cols, colPartner),
			Status:     ParseStatus(cellText(cols, colStatus)),
			ObservedAt: cellText(cols, colTime),
		})
	})
	return records
}

func cellText(cols *goquery.Selection, i int) string {
	return strings.TrimSpace(cols.Eq(i).Text())
}

func isLoginPage(doc *goquery.Document) bool {
	return doc.Find(`input[type="password"], input[type="email"]`).Length() > 0 &&
		doc.Find("table tbody tr").Length() == 0
}

// hasNextPage mirrors the report's pagination widget: the last <li> of
// ul.pagination is the "next" control, disabled on the final page.
func hasNextPage(doc *goquery.Document) bool {
	last := doc.Find("ul.pagination li").Last()
	if last.Length() == 0 || last.HasClass("disabled") {
		return false
	}
	return last.Find("a").Length() > 0
}
