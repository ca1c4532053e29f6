package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"

	"voucherdesk/internal/voucher"
	"voucherdesk/pkg/client"
	"voucherdesk/pkg/formdef"
	"voucherdesk/pkg/logger"
	"voucherdesk/pkg/middleware"
	"voucherdesk/pkg/model"
	"voucherdesk/pkg/sealer"
)

const testSessionKey = "lfQVRuulcL2iOhOJ2r8BYTweoSKwVAJnIF9U+AL+M60="

// ────────────────────────────────────────────────
// Fake backend
// ────────────────────────────────────────────────

type fakeBackend struct {
	server *httptest.Server

	checkFunc    func(req model.CheckRequest) (int, any)
	generateFunc func(req model.GenerateRequest) (int, any)

	checkCalls    atomic.Int32
	generateCalls atomic.Int32

	mu        sync.Mutex
	generated []model.GenerateRequest
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		checkFunc: func(model.CheckRequest) (int, any) {
			return http.StatusOK, model.CheckResponse{Exists: false}
		},
		generateFunc: func(model.GenerateRequest) (int, any) {
			return http.StatusOK, model.GenerateResponse{Success: true, Seats: []string{"1A", "1B"}}
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/check", func(w http.ResponseWriter, r *http.Request) {
		b.checkCalls.Add(1)
		var req model.CheckRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		status, body := b.checkFunc(req)
		writeBackendJSON(w, status, body)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		b.generateCalls.Add(1)
		var req model.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.generated = append(b.generated, req)
		b.mu.Unlock()
		status, body := b.generateFunc(req)
		writeBackendJSON(w, status, body)
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func writeBackendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ────────────────────────────────────────────────
// Screen harness
// ────────────────────────────────────────────────

type screenHarness struct {
	t       *testing.T
	router  *httprouter.Router
	store   *SessionStore
	cookies []*http.Cookie
}

func newScreenHarness(t *testing.T, backendURL string, submitLimit int) *screenHarness {
	t.Helper()

	log := logger.Discard()
	voucherClient := client.NewVoucherClient(backendURL, 2*time.Second)
	controller := voucher.NewController(voucherClient, log)

	store := NewSessionStore(time.Hour, func() *voucher.Screen {
		return voucher.NewScreen(controller, nil, log)
	}, log)
	t.Cleanup(store.Stop)

	limiter := middleware.NewKeyedRateLimiter(submitLimit, time.Minute, log)
	t.Cleanup(limiter.Stop)

	cookieSealer, err := sealer.New(testSessionKey)
	require.NoError(t, err)

	def, err := formdef.Default()
	require.NoError(t, err)

	handler, err := NewScreenHandler(store, cookieSealer, limiter, def, log)
	require.NoError(t, err)

	router := httprouter.New()
	handler.RegisterRoutes(router)

	return &screenHarness{t: t, router: router, store: store}
}

func (h *screenHarness) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", middleware.ContentTypeForm)
	}
	for _, c := range h.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name != SessionCookieName {
			continue
		}
		if c.MaxAge < 0 {
			h.cookies = nil
		} else {
			h.cookies = []*http.Cookie{c}
		}
	}
	return rec
}

func (h *screenHarness) state() voucher.UIState {
	h.t.Helper()

	rec := h.do(http.MethodGet, "/api/state", nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())

	var state voucher.UIState
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &state))
	return state
}

func (h *screenHarness) waitSettled() voucher.UIState {
	h.t.Helper()

	var state voucher.UIState
	require.Eventually(h.t, func() bool {
		state = h.state()
		return !state.IsSubmitting
	}, 2*time.Second, 10*time.Millisecond)
	return state
}

func completeForm() url.Values {
	return url.Values{
		"name":         {"Dana Levi"},
		"id":           {"EMP-204"},
		"flightNumber": {"GA102"},
		"date":         {"2025-07-14"},
		"aircraft":     {"Airbus 320"},
	}
}

// ────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────

func TestShow_MountsSessionWithEmptyForm(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 10)

	rec := h.do(http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, h.cookies, 1)
	require.True(t, h.cookies[0].HttpOnly)
	require.Equal(t, 1, h.store.Len())

	body := rec.Body.String()
	require.Contains(t, body, "Voucher Seat Assignment")
	require.Contains(t, body, "Generate Vouchers")
	require.Contains(t, body, `<option value="ATR" selected>`)
	require.NotContains(t, body, `class="message error"`)
	require.NotContains(t, body, `class="seat-list"`)
	require.NotContains(t, body, `http-equiv="refresh"`)

	state := h.state()
	require.Equal(t, model.NewVoucherRequest(), state.Form)
	require.Empty(t, state.AssignedSeats)
	require.Empty(t, state.ErrorMessage)
	require.False(t, state.IsSubmitting)
}

func TestShow_ReusesSession(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 10)

	h.do(http.MethodGet, "/", nil)
	first := h.cookies[0].Value

	h.do(http.MethodPost, "/form", url.Values{"name": {"Dana"}})
	h.do(http.MethodGet, "/", nil)

	require.Equal(t, 1, h.store.Len())
	require.Equal(t, "Dana", h.state().Form.CrewName)
	require.NotEmpty(t, first)
}

func TestSessionCookie_RefreshedOnActivity(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 10)

	h.do(http.MethodGet, "/", nil)

	requests := []struct {
		method string
		path   string
		form   url.Values
	}{
		{http.MethodGet, "/", nil},
		{http.MethodPost, "/form", url.Values{"name": {"Dana"}}},
		{http.MethodGet, "/api/state", nil},
	}
	for _, req := range requests {
		rec := h.do(req.method, req.path, req.form)

		var refreshed *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == SessionCookieName {
				refreshed = c
			}
		}
		require.NotNil(t, refreshed, "%s %s did not refresh the session cookie", req.method, req.path)
		require.Equal(t, int(time.Hour.Seconds()), refreshed.MaxAge)
	}

	require.Equal(t, 1, h.store.Len())
	require.Equal(t, "Dana", h.state().Form.CrewName)
}

func TestShow_TamperedCookieMountsNewSession(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 10)

	h.cookies = []*http.Cookie{{Name: SessionCookieName, Value: "not-a-sealed-token"}}
	rec := h.do(http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, h.store.Len())
	require.NotEqual(t, "not-a-sealed-token", h.cookies[0].Value)
}

func TestUpdateForm_MergesFields(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 10)

	rec := h.do(http.MethodPost, "/form", url.Values{"name": {"Dana Levi"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `value="Dana Levi"`)

	h.do(http.MethodPost, "/form", url.Values{"flightNumber": {"GA102"}})

	state := h.state()
	require.Equal(t, "Dana Levi", state.Form.CrewName)
	require.Equal(t, "GA102", state.Form.FlightNumber)
	require.Equal(t, model.AircraftATR, state.Form.AircraftType)
	require.Zero(t, backend.checkCalls.Load())
}

func TestUpdateForm_UnknownFieldRejected(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 10)

	h.do(http.MethodPost, "/form", url.Values{"name": {"Dana"}})
	rec := h.do(http.MethodPost, "/form", url.Values{"name": {"Other"}, "seat": {"1A"}})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Unknown form field: seat")
	require.Equal(t, "Dana", h.state().Form.CrewName)
}

func TestUpdateForm_EscapesValues(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 10)

	rec := h.do(http.MethodPost, "/form", url.Values{"name": {`"><script>alert(1)</script>`}})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
}

func TestSubmit_Success(t *testing.T) {
	backend := newFakeBackend(t)
	backend.generateFunc = func(model.GenerateRequest) (int, any) {
		return http.StatusOK, model.GenerateResponse{Success: true, Seats: []string{"12C", "3A", "7F"}}
	}
	h := newScreenHarness(t, backend.server.URL, 10)

	rec := h.do(http.MethodPost, "/submit", completeForm())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	state := h.waitSettled()
	require.Equal(t, []string{"12C", "3A", "7F"}, state.AssignedSeats)
	require.Empty(t, state.ErrorMessage)

	body := h.do(http.MethodGet, "/", nil).Body.String()
	require.Contains(t, body, "Assigned Voucher Seats")
	require.Less(t, strings.Index(body, ">12C<"), strings.Index(body, ">3A<"))
	require.Less(t, strings.Index(body, ">3A<"), strings.Index(body, ">7F<"))
	require.NotContains(t, body, `class="message error"`)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Equal(t, []model.GenerateRequest{{
		Name:         "Dana Levi",
		ID:           "EMP-204",
		FlightNumber: "GA102",
		Date:         "2025-07-14",
		Aircraft:     "Airbus 320",
	}}, backend.generated)
}

func TestSubmit_ErrorPaths(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		check        func(model.CheckRequest) (int, any)
		generate     func(model.GenerateRequest) (int, any)
		wantMessage  string
		wantCheck    int32
		wantGenerate int32
	}{
		{
			name: "missing fields",
			form: url.Values{
				"name":         {"Dana Levi"},
				"id":           {""},
				"flightNumber": {"GA102"},
				"date":         {"2025-07-14"},
			},
			wantMessage: voucher.MsgRequiredFields,
		},
		{
			name: "vouchers already exist",
			form: completeForm(),
			check: func(model.CheckRequest) (int, any) {
				return http.StatusOK, model.CheckResponse{Exists: true}
			},
			wantMessage: voucher.MsgAlreadyGenerated,
			wantCheck:   1,
		},
		{
			name: "generation refused",
			form: completeForm(),
			generate: func(model.GenerateRequest) (int, any) {
				return http.StatusConflict, model.GenerateResponse{Success: false, Error: "Aircraft layout unavailable"}
			},
			wantMessage:  "Aircraft layout unavailable",
			wantCheck:    1,
			wantGenerate: 1,
		},
		{
			name: "generation refused without reason",
			form: completeForm(),
			generate: func(model.GenerateRequest) (int, any) {
				return http.StatusOK, map[string]any{"success": false}
			},
			wantMessage:  voucher.MsgUnknown,
			wantCheck:    1,
			wantGenerate: 1,
		},
		{
			name: "generation refused with null reason",
			form: completeForm(),
			generate: func(model.GenerateRequest) (int, any) {
				return http.StatusOK, map[string]any{"success": false, "error": nil}
			},
			wantMessage:  voucher.MsgUnknown,
			wantCheck:    1,
			wantGenerate: 1,
		},
		{
			name: "generation refused with markup-only reason",
			form: completeForm(),
			generate: func(model.GenerateRequest) (int, any) {
				return http.StatusOK, model.GenerateResponse{Success: false, Error: "<unavailable>"}
			},
			wantMessage:  voucher.MsgUnknown,
			wantCheck:    1,
			wantGenerate: 1,
		},
		{
			name: "malformed check response",
			form: completeForm(),
			check: func(model.CheckRequest) (int, any) {
				return http.StatusOK, map[string]any{"present": true}
			},
			wantMessage: voucher.MsgConnection,
			wantCheck:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t)
			if tt.check != nil {
				backend.checkFunc = tt.check
			}
			if tt.generate != nil {
				backend.generateFunc = tt.generate
			}
			h := newScreenHarness(t, backend.server.URL, 10)

			rec := h.do(http.MethodPost, "/submit", tt.form)
			require.Equal(t, http.StatusSeeOther, rec.Code)

			state := h.waitSettled()
			require.Equal(t, tt.wantMessage, state.ErrorMessage)
			require.Empty(t, state.AssignedSeats)
			require.Equal(t, tt.wantCheck, backend.checkCalls.Load())
			require.Equal(t, tt.wantGenerate, backend.generateCalls.Load())

			body := h.do(http.MethodGet, "/", nil).Body.String()
			require.Contains(t, body, `class="message error"`)
			require.NotContains(t, body, `class="seat-list"`)
		})
	}
}

func TestSubmit_BackendUnreachable(t *testing.T) {
	backend := newFakeBackend(t)
	backendURL := backend.server.URL
	backend.server.Close()

	h := newScreenHarness(t, backendURL, 10)
	h.do(http.MethodPost, "/submit", completeForm())

	state := h.waitSettled()
	require.Equal(t, voucher.MsgConnection, state.ErrorMessage)
	require.Empty(t, state.AssignedSeats)
}

func TestSubmit_BackendMarkupIsStripped(t *testing.T) {
	backend := newFakeBackend(t)
	backend.generateFunc = func(model.GenerateRequest) (int, any) {
		return http.StatusOK, model.GenerateResponse{Success: false, Error: `<img src=x onerror=alert(1)><b>Flight</b> closed`}
	}
	h := newScreenHarness(t, backend.server.URL, 10)

	h.do(http.MethodPost, "/submit", completeForm())
	h.waitSettled()

	body := h.do(http.MethodGet, "/", nil).Body.String()
	require.Contains(t, body, "Flight closed")
	require.NotContains(t, body, "<b>Flight</b>")
	require.NotContains(t, body, "onerror")
}

func TestSubmit_InFlightRendersSubmittingState(t *testing.T) {
	release := make(chan struct{})
	backend := newFakeBackend(t)
	backend.checkFunc = func(model.CheckRequest) (int, any) {
		<-release
		return http.StatusOK, model.CheckResponse{Exists: false}
	}
	h := newScreenHarness(t, backend.server.URL, 10)

	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)

	h.do(http.MethodPost, "/submit", completeForm())

	body := h.do(http.MethodGet, "/", nil).Body.String()
	require.Contains(t, body, "Generating...")
	require.Contains(t, body, `class="btn-submit" disabled`)
	require.Contains(t, body, `http-equiv="refresh"`)
	require.True(t, h.state().IsSubmitting)

	rec := h.do(http.MethodPost, "/submit", completeForm())
	require.Equal(t, http.StatusSeeOther, rec.Code)

	unblock()
	state := h.waitSettled()

	require.Equal(t, []string{"1A", "1B"}, state.AssignedSeats)
	require.Equal(t, int32(1), backend.checkCalls.Load())
	require.Equal(t, int32(1), backend.generateCalls.Load())
}

func TestSubmit_RateLimited(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 1)

	rec := h.do(http.MethodPost, "/submit", url.Values{"name": {""}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	h.waitSettled()

	rec = h.do(http.MethodPost, "/submit", url.Values{"name": {"Dana Levi"}})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "Too many submissions")
	require.Empty(t, h.state().Form.CrewName)
}

func TestCloseSession(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 10)

	h.do(http.MethodGet, "/", nil)
	stale := h.cookies

	rec := h.do(http.MethodPost, "/session/close", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Empty(t, h.cookies)
	require.Zero(t, h.store.Len())

	h.cookies = stale
	rec = h.do(http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestState_WithoutSession(t *testing.T) {
	backend := newFakeBackend(t)
	h := newScreenHarness(t, backend.server.URL, 10)

	rec := h.do(http.MethodGet, "/api/state", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "NOT_FOUND", resp["code"])
	require.Zero(t, h.store.Len())
}
