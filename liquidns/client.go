// Package liquidns is a client for the LiquiDNS web API.
//
// The API authenticates with a browser style session: the login form is
// posted together with the csrftoken cookie, and every later write repeats
// the current token in the csrfmiddlewaretoken form field.
package liquidns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultBaseURL is the public LiquiDNS endpoint
	DefaultBaseURL = "https://liquidns.com"
	// DefaultRecordLabel is stored as the description of every created record
	DefaultRecordLabel = "imported from zonefile"

	loginPath   = "/accounts/login/"
	domainsPath = "/api/v2/domains/"
	recordsPath = "/api/v2/records/"

	csrfCookie    = "csrftoken"
	sessionCookie = "sessionid"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

var (
	// ErrAuthenticationFailed is returned when the login flow does not yield a session
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNotLoggedIn is returned when a write is attempted before Login
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError is returned for any non 2xx response.
type APIError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Status, e.Body)
}

// Client holds an authenticated LiquiDNS session.
type Client struct {
	base        *url.URL
	http        *http.Client
	log         logrus.FieldLogger
	recordLabel string
	csrf        string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Its cookie jar is replaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithRecordLabel sets the description stored with created records.
func WithRecordLabel(label string) Option {
	return func(c *Client) {
		c.recordLabel = label
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:        base,
		http:        &http.Client{Timeout: defaultTimeout},
		log:         logrus.StandardLogger(),
		recordLabel: DefaultRecordLabel,
	}
	for _, opt := range opts {
		opt(c)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	c.http.Jar = jar
	return c, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

// cookie returns the value of the named session cookie, or "".
func (c *Client) cookie(name string) string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// Login exchanges username and password for a session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint(loginPath), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching login page: %w", ErrAuthenticationFailed, err)
	}
	_ = resp.Body.Close()
	token := c.cookie(csrfCookie)
	if token == "" {
		return fmt.Errorf("%w: no %s cookie from %s", ErrAuthenticationFailed, csrfCookie, loginPath)
	}

	form := url.Values{
		"login":               {username},
		"password":            {password},
		"csrfmiddlewaretoken": {token},
		"next":                {"/"},
	}
	if err := c.postForm(ctx, "login", loginPath, form); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	if c.cookie(sessionCookie) == "" {
		return fmt.Errorf("%w: credentials rejected for %q", ErrAuthenticationFailed, username)
	}
	// the token rotates on login
	c.csrf = c.cookie(csrfCookie)
	if c.csrf == "" {
		return fmt.Errorf("%w: no %s cookie after login", ErrAuthenticationFailed, csrfCookie)
	}
	c.log.Debugf("Login successful for %s", username)
	return nil
}

// CreateDomain creates a domain object for label.
func (c *Client) CreateDomain(ctx context.Context, label string) error {
	if c.csrf == "" {
		return ErrNotLoggedIn
	}
	form := url.Values{
		"domain":              {label},
		"csrfmiddlewaretoken": {c.csrf},
		"dnssec":              {"False"},
	}
	return c.postForm(ctx, "create domain "+label, domainsPath, form)
}

// CreateRecord creates a record of type rrtype under the domain label.
func (c *Client) CreateRecord(ctx context.Context, label string, rrtype uint16, data string) error {
	if c.csrf == "" {
		return ErrNotLoggedIn
	}
	form := url.Values{
		"domain":              {label},
		"type":                {strconv.FormatUint(uint64(rrtype), 10)},
		"record":              {data},
		"label":               {c.recordLabel},
		"csrfmiddlewaretoken": {c.csrf},
	}
	return c.postForm(ctx, "create record "+label, recordsPath, form)
}

func (c *Client) postForm(ctx context.Context, op, path string, form url.Values) error {
	target := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", target)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	c.log.Debugf("%s: %s", op, resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}
