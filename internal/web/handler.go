package web

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"voucherdesk/internal/voucher"
	apperrors "voucherdesk/pkg/errors"
	"voucherdesk/pkg/formdef"
	httputil "voucherdesk/pkg/http"
	"voucherdesk/pkg/logger"
	"voucherdesk/pkg/middleware"
	"voucherdesk/pkg/sealer"
)

type RateLimiter interface {
	Allow(key string) bool
}

// ScreenHandler serves the voucher screen. Each browser gets its own page
// session, carried in a sealed cookie.
type ScreenHandler struct {
	store    *SessionStore
	cookies  *cookieCodec
	limiter  RateLimiter
	renderer *Renderer
	def      *formdef.Definition
	log      *logger.Logger
}

func NewScreenHandler(
	store *SessionStore,
	cookieSealer *sealer.Sealer,
	limiter RateLimiter,
	def *formdef.Definition,
	log *logger.Logger,
) (*ScreenHandler, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	return &ScreenHandler{
		store:    store,
		cookies:  &cookieCodec{sealer: cookieSealer, ttl: store.ttl},
		limiter:  limiter,
		renderer: renderer,
		def:      def,
		log:      log,
	}, nil
}

// SecureCookies marks the session cookie Secure. Enable it behind TLS.
func (h *ScreenHandler) SecureCookies(secure bool) {
	h.cookies.secure = secure
}

func (h *ScreenHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/", h.Show)
	router.POST("/form", h.UpdateForm)
	router.POST("/submit", h.Submit)
	router.POST("/session/close", h.CloseSession)
	router.GET("/api/state", h.State)
}

func (h *ScreenHandler) Show(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	screen, err := h.mount(w, r)
	if err != nil {
		h.writeErrorPage(w, r, err)
		return
	}

	h.writePage(w, r, http.StatusOK, screen)
}

func (h *ScreenHandler) UpdateForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	screen, err := h.mount(w, r)
	if err != nil {
		h.writeErrorPage(w, r, err)
		return
	}

	if err := h.applyFields(r, screen); err != nil {
		h.writeErrorPage(w, r, err)
		return
	}

	h.writePage(w, r, http.StatusOK, screen)
}

func (h *ScreenHandler) Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	screen, err := h.mount(w, r)
	if err != nil {
		h.writeErrorPage(w, r, err)
		return
	}

	if !h.limiter.Allow(screen.ID()) {
		h.writeErrorPage(w, r, apperrors.RateLimited("Too many submissions. Please wait a moment and try again."))
		return
	}

	if err := h.applyFields(r, screen); err != nil {
		h.writeErrorPage(w, r, err)
		return
	}

	if _, err := screen.Start(r.Context()); err != nil {
		switch {
		case errors.Is(err, voucher.ErrSubmissionInProgress):
			h.log.Info("Submission ignored while another is in flight",
				"session_id", screen.ID(),
				"request_id", middleware.RequestIDFromContext(r.Context()),
			)
		default:
			h.writeErrorPage(w, r, apperrors.Internal("Could not start the submission", err))
			return
		}
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ScreenHandler) CloseSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if id := h.cookies.sessionID(r); id != "" {
		h.store.Close(id)
	}
	h.cookies.clear(w)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ScreenHandler) State(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	screen, ok := h.lookup(r)
	if !ok {
		if err := httputil.WriteError(w, apperrors.NotFound("Screen")); err != nil {
			h.log.Error("failed to write JSON response", "handler", "State", "operation", "WriteError", "error", err)
		}
		return
	}

	if err := h.cookies.set(w, screen.ID()); err != nil {
		h.log.Warn("Failed to refresh session cookie", "session_id", screen.ID(), "error", err)
	}

	if err := httputil.WriteJSON(w, http.StatusOK, screen.Snapshot()); err != nil {
		h.log.Error("failed to write JSON response", "handler", "State", "operation", "WriteJSON", "error", err)
	}
}

func (h *ScreenHandler) lookup(r *http.Request) (*voucher.Screen, bool) {
	id := h.cookies.sessionID(r)
	if id == "" {
		return nil, false
	}
	return h.store.Get(id)
}

// mount returns the caller's screen, mounting a new one when the session is
// missing or expired. The cookie is re-issued on every call so its lifetime
// follows the server-side idle timer.
func (h *ScreenHandler) mount(w http.ResponseWriter, r *http.Request) (*voucher.Screen, error) {
	if screen, ok := h.lookup(r); ok {
		if err := h.cookies.set(w, screen.ID()); err != nil {
			return nil, apperrors.Internal("Could not refresh the page session", err)
		}
		return screen, nil
	}

	screen := h.store.Create()
	if err := h.cookies.set(w, screen.ID()); err != nil {
		h.store.Close(screen.ID())
		return nil, apperrors.Internal("Could not start a page session", err)
	}
	return screen, nil
}

// applyFields copies posted form controls into the screen. Every posted
// name must be a known field; nothing is applied otherwise.
func (h *ScreenHandler) applyFields(r *http.Request, screen *voucher.Screen) error {
	if err := r.ParseForm(); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apperrors.TooLarge(maxBytesErr.Limit)
		}
		return apperrors.InvalidInput("Could not read the submitted form")
	}

	for name := range r.PostForm {
		if _, ok := h.def.Field(name); !ok {
			return apperrors.InvalidInput("Unknown form field: " + name)
		}
	}

	for _, name := range voucher.Fields {
		values, posted := r.PostForm[name]
		if !posted {
			continue
		}
		if err := screen.SetField(name, values[0]); err != nil {
			if errors.Is(err, voucher.ErrScreenClosed) {
				return apperrors.NotFound("Screen")
			}
			return apperrors.InvalidInput(err.Error())
		}
	}
	return nil
}

func (h *ScreenHandler) writePage(w http.ResponseWriter, r *http.Request, status int, screen *voucher.Screen) {
	view := newPageView(h.def, screen.Snapshot())
	if err := h.renderer.Page(w, status, view); err != nil {
		h.log.Error("Failed to render page",
			"error", err,
			"session_id", screen.ID(),
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *ScreenHandler) writeErrorPage(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		h.log.Error("Screen request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
	}

	if renderErr := h.renderer.Error(w, appErr.StatusCode(), appErr.Message); renderErr != nil {
		h.log.Error("Failed to render error page", "error", renderErr)
		http.Error(w, appErr.Message, appErr.StatusCode())
	}
}
