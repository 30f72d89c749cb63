package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/eel-studio/storefront/internal/configurator"
	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/httputil"
	"github.com/eel-studio/storefront/internal/middleware"
	"github.com/eel-studio/storefront/internal/orders"
	"github.com/eel-studio/storefront/internal/session"
)

// stepView describes one wizard step.
type stepView struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Axis  string `json:"axis,omitempty"`
}

// stateView is the wizard state as the host renders it.
type stateView struct {
	Step           int                    `json:"step"`
	StepLabel      string                 `json:"stepLabel"`
	Steps          []stepView             `json:"steps"`
	Selection      configurator.Selection `json:"selection"`
	Price          int64                  `json:"price"`
	PriceFormatted string                 `json:"priceFormatted"`
	CanAdvance     bool                   `json:"canAdvance"`
	Completed      bool                   `json:"completed"`
	OrderID        string                 `json:"orderId,omitempty"`
	Missing        []catalog.Axis         `json:"missing"`
	Submitting     bool                   `json:"submitting"`
}

type sessionResponse struct {
	Token   string            `json:"token"`
	State   stateView         `json:"state"`
	Catalog *catalog.Snapshot `json:"catalog,omitempty"`
}

var steps = func() []stepView {
	out := make([]stepView, configurator.StepCount)
	for i, label := range configurator.StepLabels {
		out[i] = stepView{Index: i, Label: label}
		if axis, ok := configurator.AxisForStep(i); ok {
			out[i].Axis = string(axis)
		}
	}
	return out
}()

func viewOf(eng *configurator.Engine, s configurator.State) stateView {
	price := configurator.Price(eng.Catalog(), s.Selection)
	missing := s.Selection.Missing()
	if missing == nil {
		missing = []catalog.Axis{}
	}
	return stateView{
		Step:           s.Step,
		StepLabel:      configurator.StepLabels[s.Step],
		Steps:          steps,
		Selection:      s.Selection,
		Price:          price,
		PriceFormatted: order.FormatKRW(price),
		CanAdvance:     configurator.CanAdvance(s),
		Completed:      s.Completed,
		OrderID:        s.OrderID,
		Missing:        missing,
		Submitting:     eng.Submitting(),
	}
}

func (h *handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/api/v1/configurator",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// lookup resolves the session named by the {id} path variable.
func (h *handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.Sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Create(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	snap := s.Engine.Catalog().Snapshot()
	h.setSessionCookie(w, s.Token, 0)
	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{
		Token:   s.Token,
		State:   viewOf(s.Engine, s.Engine.State()),
		Catalog: &snap,
	})
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		Token: s.Token,
		State: viewOf(s.Engine, s.Engine.State()),
	})
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.Sessions.Delete(mux.Vars(r)["id"]) {
		httputil.WriteError(w, r, errors.NotFound("session", ""))
		return
	}
	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// dispatch applies ev to the session's engine and writes the resulting state.
// Events that do not apply leave the state unchanged.
func (h *handler) dispatch(w http.ResponseWriter, r *http.Request, ev func(*configurator.Engine) configurator.State) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if s.Engine.Closed() {
		httputil.WriteError(w, r, errors.SessionClosed())
		return
	}
	state := ev(s.Engine)
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{Token: s.Token, State: viewOf(s.Engine, state)})
}

type selectRequest struct {
	Axis     string `json:"axis" validate:"required,oneof=size resin wood leg"`
	OptionID string `json:"optionId" validate:"required,max=64"`
}

func (h *handler) selectOption(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	axis, _ := catalog.ParseAxis(req.Axis)
	h.dispatch(w, r, func(e *configurator.Engine) configurator.State {
		return e.SelectOption(axis, req.OptionID)
	})
}

func (h *handler) advance(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, (*configurator.Engine).Advance)
}

func (h *handler) retreat(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, (*configurator.Engine).Retreat)
}

type jumpRequest struct {
	Step *int `json:"step" validate:"required"`
}

func (h *handler) jump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	h.dispatch(w, r, func(e *configurator.Engine) configurator.State {
		return e.JumpTo(*req.Step)
	})
}

type submitResponse struct {
	OrderID string        `json:"orderId"`
	Order   order.Order   `json:"order"`
	Summary order.Summary `json:"summary"`
	State   stateView     `json:"state"`
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	var buyer order.Buyer
	if id, ok := middleware.IdentityFrom(ctx); ok {
		buyer = order.Buyer{ID: id.UserID, Email: id.Email, Name: id.Name}
		ctx = orders.WithProfile(ctx, order.Profile{FullName: id.Name, Email: id.Email})
	}

	// Identity and completeness fail here, before the lock round trip.
	if err := s.Engine.Precheck(buyer); err != nil {
		h.rejectSubmit(w, r, s.ID, err)
		return
	}

	release, err := h.Locker.Acquire(ctx, s.ID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	defer release()

	start := time.Now()
	receipt, err := s.Engine.Submit(ctx, buyer)
	if err != nil {
		h.rejectSubmit(w, r, s.ID, err)
		return
	}

	h.Logger.WithContext(ctx).WithField("order_id", receipt.Order.ID).
		WithField("duration", time.Since(start).String()).Info("configurator order placed")
	httputil.WriteJSON(w, http.StatusCreated, submitResponse{
		OrderID: receipt.Order.ID,
		Order:   receipt.Order,
		Summary: receipt.Summary,
		State:   viewOf(s.Engine, receipt.State),
	})
}

func (h *handler) rejectSubmit(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	if errors.IsCode(err, errors.CodeUnauthenticated) && h.SignInURL != "" {
		err = errors.GetServiceError(err).WithDetails("sign_in_url", h.SignInURL)
	}
	h.Logger.WithContext(r.Context()).WithError(err).WithField("session_id", sessionID).Info("configurator submit rejected")
	httputil.WriteError(w, r, err)
}
