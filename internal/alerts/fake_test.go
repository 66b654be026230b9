package alerts

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	_ "embed"
)

//go:embed testdata/login_page.html
var loginPage []byte

const (
	fakeUserId  = "06449491676132715360"
	fakeToken   = "AB2Xq4hcilCERh73EFWJVHXx-io2lhh1EhC8UD8"
	fakeSession = "sidcc-alice"
)

type fakeMonitor struct {
	id       string
	term     string
	language string
	region   string
	match    int
	delivery int
	email    string
	freq     int
	feedId   string
}

func (m fakeMonitor) record() []any {
	return []any{
		m.id,
		[]any{
			nil, nil,
			[]any{m.term, "com", []any{m.language, m.region}, nil, nil, nil, false},
			nil,
			m.match,
			[]any{[]any{m.delivery, m.email, []any{}, m.freq, "en-US", 1, nil, nil, nil, nil, m.feedId, nil, nil, "AB2Xq4g1vxP5nJCT4SVMp8"}},
		},
		fakeUserId,
	}
}

// fakeService imitates the account and alerts pages, it keeps monitors
// created through the mutation endpoints so they show up in the state.
type fakeService struct {
	server *httptest.Server

	mu       sync.Mutex
	email    string
	password string
	captcha  bool
	monitors []fakeMonitor
	nextId   int
	// statePage replaces the rendered alerts page when set.
	statePage []byte
	// actionStatus is returned by every mutation endpoint when set.
	actionStatus int
	requests     map[string]int
	params       map[Action][]string
	forms        []map[string]string
}

func newFakeService(t testing.TB) *fakeService {
	f := &fakeService{
		email:    "alice@example.com",
		password: "hunter2",
		requests: map[string]int{},
		params:   map[Action][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ServiceLogin", f.handleLoginPage)
	mux.HandleFunc("POST /signin/challenge/sl/password", f.handleAuth)
	mux.HandleFunc("GET /account", f.handleAccount)
	mux.HandleFunc("GET /alerts", f.handleAlerts)
	mux.HandleFunc("POST /alerts/create", f.handleMutation(ActionCreate))
	mux.HandleFunc("POST /alerts/modify", f.handleMutation(ActionModify))
	mux.HandleFunc("POST /alerts/delete", f.handleMutation(ActionDelete))

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeService) endpoints() *Endpoints {
	e := GoogleEndpoints
	e.Login = f.server.URL + "/ServiceLogin?nojavascript=1"
	e.Auth = f.server.URL + "/signin/challenge/sl/password"
	e.Alerts = f.server.URL + "/alerts"
	e.Test = f.server.URL + "/account?pli=1"
	return &e
}

func (f *fakeService) host() string {
	return strings.TrimPrefix(f.server.URL, "http://")
}

func (f *fakeService) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[key]
}

func (f *fakeService) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.requests {
		n += c
	}
	return n
}

func (f *fakeService) sentParams(action Action) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.params[action]...)
}

func (f *fakeService) sentForms() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.forms...)
}

func (f *fakeService) set(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeService) addMonitor(m fakeMonitor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitors = append(f.monitors, m)
}

func signedIn(r *http.Request) bool {
	c, err := r.Cookie("SIDCC")
	return err == nil && c.Value == fakeSession
}

func (f *fakeService) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Write(loginPage)
}

func (f *fakeService) handleAuth(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	form := map[string]string{}
	for key := range r.PostForm {
		form[key] = r.PostForm.Get(key)
	}
	f.forms = append(f.forms, form)

	if f.captcha {
		w.Write([]byte(`<html><body><div id="captcha-container"><img src="/Captcha"></div></body></html>`))
		return
	}
	// the hidden inputs of the login form must come back
	if r.PostForm.Get("GALX") != "q4d1JmVRAmA" ||
		r.PostForm.Get("Email") != f.email ||
		r.PostForm.Get("Passwd") != f.password {
		w.Write([]byte(`<html><body>Wrong password. Try again.</body></html>`))
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "SID", Value: "sid-alice", Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "SIDCC", Value: fakeSession, Path: "/"})
	w.Write([]byte(`<html><body>Welcome</body></html>`))
}

func (f *fakeService) handleAccount(w http.ResponseWriter, r *http.Request) {
	if !signedIn(r) {
		w.Write([]byte(`<html><body>One account. All of Google. CREATE YOUR GOOGLE ACCOUNT</body></html>`))
		return
	}
	w.Write([]byte(`<html><body>Welcome, Alice</body></html>`))
}

func renderStatePage(state any) []byte {
	blob, err := json.Marshal(state)
	if err != nil {
		panic(err)
	}
	return []byte(
		"<!DOCTYPE html><html><head><script>window.google = {};</script>" +
			"<script type=\"text/javascript\">//<![CDATA[\nwindow.STATE=" + string(blob) + "\n//]]></script>" +
			"</head><body></body></html>",
	)
}

func (f *fakeService) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !signedIn(r) {
		w.Write(noStatePage)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statePage != nil {
		w.Write(f.statePage)
		return
	}

	var container any
	if len(f.monitors) > 0 {
		records := []any{}
		for _, m := range f.monitors {
			records = append(records, m.record())
		}
		container = []any{records}
	}
	w.Write(renderStatePage([]any{container, nil, fakeToken, nil, 1, "en"}))
}

func asArray(v any, idx ...int) ([]any, error) {
	for _, i := range idx {
		arr, ok := v.([]any)
		if !ok || i >= len(arr) {
			return nil, fmt.Errorf("bad payload at %v", idx)
		}
		v = arr[i]
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("bad payload at %v", idx)
	}
	return arr, nil
}

// applyMonitor reads the monitor part of a create or modify payload into m.
func applyMonitor(m *fakeMonitor, inner []any) error {
	query, err := asArray(inner, 3)
	if err != nil {
		return err
	}
	locale, err := asArray(query, 3)
	if err != nil {
		return err
	}
	record, err := asArray(inner, 6, 0)
	if err != nil {
		return err
	}
	if len(record) != 15 {
		return fmt.Errorf("delivery record has %d slots", len(record))
	}

	m.term, _ = query[1].(string)
	m.language, _ = locale[1].(string)
	m.region, _ = locale[2].(string)
	match, _ := inner[5].(float64)
	m.match = int(match)
	delivery, _ := record[1].(float64)
	m.delivery = int(delivery)
	m.email, _ = record[2].(string)
	freq, _ := record[4].(float64)
	m.freq = int(freq)
	if feed, _ := record[11].(string); feed != "0" {
		m.feedId = feed
	}
	if token, _ := record[14].(string); token != fakeToken {
		return fmt.Errorf("delivery record token %q", token)
	}
	return nil
}

func (f *fakeService) handleMutation(action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.URL.Query().Get("x") != fakeToken {
			http.Error(w, "bad request token", http.StatusForbidden)
			return
		}
		if f.actionStatus != 0 {
			http.Error(w, "internal error", f.actionStatus)
			return
		}

		params := r.PostFormValue("params")
		f.params[action] = append(f.params[action], params)

		var payload []any
		err := json.Unmarshal([]byte(params), &payload)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch action {
		case ActionCreate:
			inner, err := asArray(payload, 1)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.nextId++
			m := fakeMonitor{feedId: fmt.Sprintf("%d", 1000+f.nextId)}
			err = applyMonitor(&m, inner)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			m.id = fmt.Sprintf("062bc676ab9e9d9b:%016x:com:%s:%s", f.nextId, m.language, m.region)
			f.monitors = append(f.monitors, m)
		case ActionModify:
			id, _ := payload[1].(string)
			inner, err := asArray(payload, 2)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			for i := range f.monitors {
				if f.monitors[i].id != id {
					continue
				}
				err = applyMonitor(&f.monitors[i], inner)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
				}
				return
			}
			http.Error(w, "no such monitor", http.StatusNotFound)
		case ActionDelete:
			id, _ := payload[1].(string)
			for i := range f.monitors {
				if f.monitors[i].id != id {
					continue
				}
				f.monitors = append(f.monitors[:i], f.monitors[i+1:]...)
				return
			}
			http.Error(w, "no such monitor", http.StatusNotFound)
		}
	}
}
