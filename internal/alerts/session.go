package alerts

import (
	"bytes"
	"context"
	"fmt"
	"galerts/internal/components/assert"
	"galerts/internal/components/sessionstore"
	"galerts/internal/components/telemetry"
	"galerts/pkg/htmlutil"
	"galerts/pkg/restyutil"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/publicsuffix"
)

var tracer = otel.Tracer("galerts/alerts")

const (
	report_session_restore     = "session.restore"
	report_session_login       = "session.login"
	report_session_persist     = "session.persist"
	report_session_fetch_state = "session.fetch-state"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/60.0.3112.90 Safari/537.36"

// Endpoints are the urls of the service.
type Endpoints struct {
	Login  string
	Auth   string
	Alerts string
	// Test is a page that only renders for a signed in account.
	Test string

	// UnauthenticatedMarker is found on Test when the session is not
	// signed in.
	UnauthenticatedMarker string
	CaptchaMarker         string
	// SessionCookie is set by Auth on a successful login.
	SessionCookie string
	EmailField    string
	PasswordField string
}

var GoogleEndpoints = Endpoints{
	Login:  "https://accounts.google.com/ServiceLogin?nojavascript=1",
	Auth:   "https://accounts.google.com/signin/challenge/sl/password",
	Alerts: "https://www.google.com/alerts",
	Test:   "https://myaccount.google.com/?pli=1",

	UnauthenticatedMarker: "CREATE YOUR GOOGLE ACCOUNT",
	CaptchaMarker:         "captcha-container",
	SessionCookie:         "SIDCC",
	EmailField:            "Email",
	PasswordField:         "Passwd",
}

func (e Endpoints) action(a Action) string {
	return strings.TrimSuffix(e.Alerts, "/") + "/" + a.String()
}

// hosts returns the root url of every host the session talks to, these
// are the scopes cookies are persisted under.
func (e Endpoints) check() {
	assert.AbsoluteURL("endpoints.login", e.Login)
	assert.AbsoluteURL("endpoints.auth", e.Auth)
	assert.AbsoluteURL("endpoints.alerts", e.Alerts)
	assert.AbsoluteURL("endpoints.test", e.Test)
	assert.NotEmpty("endpoints.unauthenticated_marker", e.UnauthenticatedMarker)
	assert.NotEmpty("endpoints.captcha_marker", e.CaptchaMarker)
	assert.NotEmpty("endpoints.session_cookie", e.SessionCookie)
	assert.NotEmpty("endpoints.email_field", e.EmailField)
	assert.NotEmpty("endpoints.password_field", e.PasswordField)
}

func (e Endpoints) hosts() ([]*url.URL, error) {
	var out []*url.URL
	seen := map[string]bool{}
	for _, raw := range []string{e.Login, e.Auth, e.Alerts, e.Test} {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint %q: %w", raw, err)
		}
		if seen[u.Host] {
			continue
		}
		seen[u.Host] = true
		out = append(out, &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"})
	}
	return out, nil
}

// CookieStore persists the cookies of a session between runs.
type CookieStore interface {
	Load(ctx context.Context) ([]sessionstore.Cookie, error)
	Save(ctx context.Context, cookies []sessionstore.Cookie) error
	Clear(ctx context.Context) error
}

type SessionOptions struct {
	Email    string
	Password string

	// Endpoints defaults to GoogleEndpoints.
	Endpoints *Endpoints
	// Layouts defaults to Layouts.
	Layouts []*Layout
	// Store may be nil, in which case every Authenticate logs in.
	Store     CookieStore
	Telemetry telemetry.API
	// HttpDump receives every request and response when not nil.
	HttpDump restyutil.MessageOutput
}

// Session is one signed in account. It is not safe for concurrent use.
type Session struct {
	email     string
	password  string
	endpoints Endpoints
	layouts   []*Layout
	hosts     []*url.URL
	store     CookieStore
	tel       telemetry.API

	http *resty.Client
	jar  *cookiejar.Jar

	authenticated bool
	state         AppState
}

func NewSession(opts SessionOptions) (*Session, error) {
	assert.NotNil(opts.Telemetry)

	endpoints := GoogleEndpoints
	if opts.Endpoints != nil {
		endpoints = *opts.Endpoints
	}
	endpoints.check()
	layouts := opts.Layouts
	if len(layouts) == 0 {
		layouts = Layouts
	}
	hosts, err := endpoints.hosts()
	if err != nil {
		return nil, err
	}

	client := resty.New()
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", userAgent)
	var hostnames []string
	for _, u := range hosts {
		hostnames = append(hostnames, u.Hostname())
	}
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(hostnames...))
	client.SetTimeout(time.Second * 30)

	tel := telemetry.NewScopedAPI("alerts_session", opts.Telemetry)
	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("alerts_http", opts.Telemetry), opts.HttpDump)

	return &Session{
		email:     opts.Email,
		password:  opts.Password,
		endpoints: endpoints,
		layouts:   layouts,
		hosts:     hosts,
		store:     opts.Store,
		tel:       tel,
		http:      client,
		jar:       jar,
	}, nil
}

// Email is the account the session signs in as, it may be empty for a
// session restored from an imported browser session.
func (s *Session) Email() string {
	return s.email
}

func (s *Session) Authenticated() bool {
	return s.authenticated
}

// State returns the last successfully decoded state.
func (s *Session) State() (AppState, bool) {
	return s.state, s.state.Valid()
}

// Authenticate restores the persisted session if it is still signed in,
// otherwise it logs in with the email and password. Either way the state
// is fetched once afterwards.
func (s *Session) Authenticate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:Authenticate")
	defer span.End()

	restored, err := s.restore(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to restore session")
		return err
	}
	if !restored {
		err = s.login(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to login")
			return err
		}
	}

	s.authenticated = true
	_, err = s.RefreshState(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch state")
		return err
	}
	return nil
}

func (s *Session) restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}

	cookies, err := s.store.Load(ctx)
	if err != nil {
		s.tel.ReportBroken(report_session_restore, err)
		return false, fmt.Errorf("load session: %w", err)
	}
	if len(cookies) == 0 {
		s.tel.ReportDebug("no persisted session")
		return false, nil
	}
	s.loadCookies(cookies)
	s.tel.ReportDebug("loaded persisted session", len(cookies))

	res, err := s.http.R().
		SetContext(ctx).
		Get(s.endpoints.Test)
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	if strings.Contains(res.String(), s.endpoints.UnauthenticatedMarker) {
		s.tel.ReportWarning(report_session_restore, "persisted session is no longer signed in")
		return false, nil
	}
	return true, nil
}

func (s *Session) login(ctx context.Context) error {
	if s.email == "" || s.password == "" {
		return fmt.Errorf("%w: no email or password to login with", ErrInvalidCredentials)
	}

	res, err := s.http.R().
		SetContext(ctx).
		Get(s.endpoints.Login)
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("parse login page: %w", err)
	}

	form := htmlutil.FormInputs(doc)
	form[s.endpoints.EmailField] = s.email
	form[s.endpoints.PasswordField] = s.password

	res, err = s.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(s.endpoints.Auth)
	if err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}

	if strings.Contains(res.String(), s.endpoints.CaptchaMarker) {
		s.tel.ReportWarning(report_session_login, "captcha")
		return ErrAccountCaptcha
	}
	signedIn := false
	for _, c := range res.Cookies() {
		if c.Name == s.endpoints.SessionCookie {
			signedIn = true
			break
		}
	}
	if !signedIn {
		s.tel.ReportWarning(report_session_login, "missing session cookie")
		return ErrInvalidCredentials
	}

	err = s.persist(ctx)
	if err != nil {
		// the session still works for this run
		s.tel.ReportBroken(report_session_persist, err)
	}
	s.tel.ReportDebug("user successfully authenticated")
	return nil
}

func (s *Session) loadCookies(cookies []sessionstore.Cookie) {
	byHost := map[string][]*http.Cookie{}
	for _, c := range cookies {
		cookie := &http.Cookie{
			Name:  c.Name,
			Value: c.Value,
			Path:  "/",
		}
		// ".google.com" covers every subdomain, a cookie without Domain
		// would only be sent to google.com itself
		if strings.HasPrefix(c.Host, ".") {
			cookie.Domain = strings.TrimPrefix(c.Host, ".")
		}
		byHost[c.Host] = append(byHost[c.Host], cookie)
	}
	for host, list := range byHost {
		s.jar.SetCookies(s.hostURL(host), list)
	}
}

// hostURL finds the scope a cookie saved under host belongs to. Browser
// exports name domain cookies with a leading dot.
func (s *Session) hostURL(host string) *url.URL {
	for _, u := range s.hosts {
		if u.Host == host || u.Hostname() == host {
			return u
		}
	}
	return &url.URL{Scheme: "https", Host: strings.TrimPrefix(host, "."), Path: "/"}
}

func (s *Session) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	var cookies []sessionstore.Cookie
	for _, u := range s.hosts {
		for _, c := range s.jar.Cookies(u) {
			cookies = append(cookies, sessionstore.Cookie{
				Host:  u.Host,
				Name:  c.Name,
				Value: c.Value,
			})
		}
	}
	err := s.store.Save(ctx, cookies)
	if err != nil {
		return err
	}
	s.tel.ReportDebug("saved session for future reference", len(cookies))
	return nil
}

// RefreshState fetches and decodes the state. A failed decode keeps the
// previously held state, so does a page with an empty state.
func (s *Session) RefreshState(ctx context.Context) (AppState, error) {
	ctx, span := tracer.Start(ctx, "session:RefreshState")
	defer span.End()

	res, err := s.http.R().
		SetContext(ctx).
		Get(s.endpoints.Alerts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch alerts page")
		return s.state, fmt.Errorf("fetch alerts page: %w", err)
	}

	state, ok, err := DecodeState(s.layouts, res.Body())
	if err != nil {
		s.tel.ReportBroken(report_session_fetch_state, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode state")
		return s.state, err
	}
	if !ok {
		s.tel.ReportDebug("alerts page holds no state yet")
		return s.state, nil
	}

	s.state = state
	s.tel.ReportDebug("state value set", state.Layout().Name)
	return s.state, nil
}

// Logout forgets the persisted session and the current state.
func (s *Session) Logout(ctx context.Context) error {
	s.authenticated = false
	s.state = AppState{}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	s.jar = jar
	s.http.SetCookieJar(jar)

	if s.store == nil {
		return nil
	}
	return s.store.Clear(ctx)
}

// post sends a mutation to the endpoint of action, with the token of the
// current state.
func (s *Session) post(ctx context.Context, action Action, payload []any) error {
	state, ok := s.State()
	if !ok {
		return ErrInvalidState
	}
	params, err := EncodePayload(payload)
	if err != nil {
		return err
	}

	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("x", state.Token()).
		SetFormData(map[string]string{"params": params}).
		Post(s.endpoints.action(action))
	if err != nil {
		return fmt.Errorf("%s monitor: %w", action, err)
	}
	if res.StatusCode() != http.StatusOK {
		return &ActionError{
			Action:     action,
			StatusCode: res.StatusCode(),
			Body:       res.String(),
		}
	}
	return nil
}
