package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"lifesim/internal/llm"
	"lifesim/internal/session"
	"lifesim/internal/simulation"
	"lifesim/internal/simulation/simtest"
)

type testClient struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newTestServer(t *testing.T, client llm.Client) (*testClient, *session.Manager) {
	t.Helper()
	m := session.NewManager(simulation.NewRequester(client, ""), nil)
	t.Cleanup(m.Wait)
	return &testClient{t: t, handler: NewWebServer(m, ":0").Handler()}, m
}

func (c *testClient) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == cookieName {
			c.cookie = ck
		}
	}
	return rr
}

func bakeryForm() url.Values {
	in := simtest.BakeryInput
	return url.Values{
		"decision":      {in.Decision},
		"currentAge":    {"30"},
		"currentStatus": {in.CurrentStatus},
		"riskTolerance": {string(in.RiskTolerance)},
		"goals":         {in.Goals},
	}
}

func TestFlow_SubmitRenderReset(t *testing.T) {
	client := simtest.OK()
	tc, m := newTestServer(t, client)

	rr := tc.do(http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `action="/simulate"`) {
		t.Fatalf("expected form, got %d:\n%s", rr.Code, rr.Body.String())
	}
	if tc.cookie != nil || m.Len() != 0 {
		t.Fatalf("viewing the form must not create a session")
	}

	rr = tc.do(http.MethodPost, "/simulate", bakeryForm())
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if tc.cookie == nil {
		t.Fatalf("session cookie not issued")
	}
	m.Wait()

	reqs := client.Requests()
	if len(reqs) != 1 {
		t.Fatalf("want exactly one outbound request, got %d", len(reqs))
	}
	for _, v := range []string{"Quit job to start a bakery", "30", "$10k savings", "High", "financial freedom"} {
		if !strings.Contains(reqs[0].Prompt, v) {
			t.Fatalf("prompt missing %q: %s", v, reqs[0].Prompt)
		}
	}

	body := tc.do(http.MethodGet, "/", nil).Body.String()
	if n := strings.Count(body, `class="panel card"`); n != 4 {
		t.Fatalf("want 4 cards, got %d", n)
	}
	if !strings.Contains(body, `data-points="4"`) {
		t.Fatalf("chart should have 4 points:\n%s", body)
	}
	if n := strings.Count(body, `<ul class="risks">`); n != 4 {
		t.Fatalf("want 4 risk lists, got %d", n)
	}
	if !strings.Contains(body, "Landlord rent hike") || !strings.Contains(body, "Run a weekend market stall") {
		t.Fatalf("dashboard content missing")
	}

	rr = tc.do(http.MethodGet, "/chart.png", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("chart not served: %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}

	rr = tc.do(http.MethodGet, "/api/state", nil)
	var st stateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("state json: %v", err)
	}
	if st.Status != session.StatusComplete || st.Result == nil || len(st.Result.Timeline) != 4 {
		t.Fatalf("unexpected state: %+v", st)
	}

	if rr := tc.do(http.MethodPost, "/reset", url.Values{}); rr.Code != http.StatusSeeOther {
		t.Fatalf("reset: %d", rr.Code)
	}
	body = tc.do(http.MethodGet, "/", nil).Body.String()
	if !strings.Contains(body, `action="/simulate"`) || strings.Contains(body, `class="panel card"`) {
		t.Fatalf("reset should show the empty form")
	}
	if rr := tc.do(http.MethodGet, "/chart.png", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("chart must be gone after reset, got %d", rr.Code)
	}
	if m.Len() != 0 {
		t.Fatalf("reset must release the session, %d left", m.Len())
	}
}

func TestRoot_WithoutCookieCreatesNoSession(t *testing.T) {
	tc, m := newTestServer(t, simtest.OK())
	for i := 0; i < 100; i++ {
		tc.cookie = nil
		if rr := tc.do(http.MethodGet, "/", nil); rr.Code != http.StatusOK {
			t.Fatalf("GET /: %d", rr.Code)
		}
		tc.do(http.MethodGet, "/api/state", nil)
	}
	if m.Len() != 0 {
		t.Fatalf("cookieless visits created %d sessions", m.Len())
	}
}

func TestSimulate_WhileLoadingIsIgnored(t *testing.T) {
	client := simtest.OK()
	client.Release = make(chan struct{})
	tc, m := newTestServer(t, client)

	tc.do(http.MethodPost, "/simulate", bakeryForm())
	deadline := time.Now().Add(time.Second)
	for len(client.Requests()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	rr := tc.do(http.MethodPost, "/simulate", bakeryForm())
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("second submit should redirect silently, got %d", rr.Code)
	}

	body := tc.do(http.MethodGet, "/", nil).Body.String()
	if !strings.Contains(body, `http-equiv="refresh"`) || !strings.Contains(body, "Simulating") {
		t.Fatalf("loading page expected:\n%s", body)
	}

	close(client.Release)
	m.Wait()
	if n := len(client.Requests()); n != 1 {
		t.Fatalf("want 1 request, got %d", n)
	}
}

func TestSimulate_FailureShowsBanner(t *testing.T) {
	body := strings.Replace(simtest.ResultJSON, `"timeline"`, `"timeframe"`, 1)
	tc, m := newTestServer(t, &simtest.FakeClient{Response: llm.Response{Content: body}})

	tc.do(http.MethodPost, "/simulate", bakeryForm())
	m.Wait()

	page := tc.do(http.MethodGet, "/", nil).Body.String()
	if !strings.Contains(page, simulation.FailureMessage) {
		t.Fatalf("error banner missing:\n%s", page)
	}
	if strings.Contains(page, `class="panel card"`) {
		t.Fatalf("no dashboard may render on failure")
	}
	if !strings.Contains(page, `action="/reset"`) {
		t.Fatalf("reset control missing")
	}
}

func TestSimulate_InvalidInput(t *testing.T) {
	client := simtest.OK()
	tc, m := newTestServer(t, client)
	form := bakeryForm()
	form.Set("currentAge", "12")

	rr := tc.do(http.MethodPost, "/simulate", form)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "age must be between 16 and 99") {
		t.Fatalf("validation message missing")
	}
	if len(client.Requests()) != 0 {
		t.Fatalf("invalid input must not reach the provider")
	}
	if m.Len() != 0 {
		t.Fatalf("invalid input must not create a session")
	}
}

func TestSimulate_InvalidAgeIsEchoed(t *testing.T) {
	tc, _ := newTestServer(t, simtest.OK())
	form := bakeryForm()
	form.Set("currentAge", "thirty")

	rr := tc.do(http.MethodPost, "/simulate", form)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `value="thirty"`) {
		t.Fatalf("typed age not echoed:\n%s", rr.Body.String())
	}
}

func TestSimulate_InvalidSubmitWhileLoadingIsIgnored(t *testing.T) {
	client := simtest.OK()
	client.Release = make(chan struct{})
	tc, m := newTestServer(t, client)

	tc.do(http.MethodPost, "/simulate", bakeryForm())
	form := bakeryForm()
	form.Set("decision", "")
	if rr := tc.do(http.MethodPost, "/simulate", form); rr.Code != http.StatusSeeOther {
		t.Fatalf("submit while loading should redirect silently, got %d", rr.Code)
	}

	close(client.Release)
	m.Wait()
	if n := len(client.Requests()); n != 1 {
		t.Fatalf("want 1 request, got %d", n)
	}
}

func TestMethodsAndUnknownPaths(t *testing.T) {
	tc, _ := newTestServer(t, simtest.OK())
	if rr := tc.do(http.MethodGet, "/simulate", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /simulate: %d", rr.Code)
	}
	if rr := tc.do(http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path: %d", rr.Code)
	}
	if rr := tc.do(http.MethodGet, "/chart.png", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("chart without session: %d", rr.Code)
	}
	rr := tc.do(http.MethodGet, "/api/status", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("status endpoint: %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"scheduler":false`) {
		t.Fatalf("scheduler state missing: %s", rr.Body.String())
	}
}

type runningJobs bool

func (r runningJobs) IsRunning() bool { return bool(r) }

func TestStatus_ReportsScheduler(t *testing.T) {
	m := session.NewManager(simulation.NewRequester(simtest.OK(), ""), nil)
	ws := NewWebServer(m, ":0")
	ws.SetJobStatus(runningJobs(true))
	rr := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if !strings.Contains(rr.Body.String(), `"scheduler":true`) {
		t.Fatalf("scheduler state missing: %s", rr.Body.String())
	}
}

func TestStop_BeforeStartDoesNotHang(t *testing.T) {
	m := session.NewManager(simulation.NewRequester(simtest.OK(), ""), nil)
	ws := NewWebServer(m, "127.0.0.1:0")
	if err := ws.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- ws.Start() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start after stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start kept serving after Stop")
	}
}
