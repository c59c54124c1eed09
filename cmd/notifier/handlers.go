package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/dispatch"
	"github.com/harborline/freight-notifier/internal/events"
	"github.com/harborline/freight-notifier/pkg/apikey"
	"github.com/harborline/freight-notifier/pkg/jsonutil"
	"github.com/harborline/freight-notifier/pkg/observability"
)

// Dispatcher is the chain surface the handlers need.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (usedTransport string, detail string, err error)
	Candidates() []dispatch.CandidateStatus
}

// Handler serves the operator API: synchronous milestone sends and the
// delivery capability probe.
type Handler struct {
	chain      Dispatcher
	identities *dispatch.Directory
	apiSecret  string
	apiKeyHash string
	logger     *observability.Logger
}

// AuthMiddleware checks the X-API-Key header against the configured hash.
// An empty configured hash disables auth for local development.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKeyHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" || !apikey.Verify(key, h.apiSecret, h.apiKeyHash) {
			jsonutil.WriteErrorJSON(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "active",
		"service": "notifier",
	})
}

// MilestoneEmail sends a shipped-on-board notification synchronously.
// The payload must be fully formed; the notifier looks nothing up.
func (h *Handler) MilestoneEmail(w http.ResponseWriter, r *http.Request) {
	var data events.MilestoneEventData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if data.BookingNo == "" {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "booking_no is required")
		return
	}
	to := booking.SplitEmails(data.CustomerEmails)
	if len(to) == 0 {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "customer_emails is required")
		return
	}

	identity := h.identities.SelectByLocation(data.LocationTag)
	content, err := events.RenderMilestone(&data, identity)
	if err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "failed to render notification")
		return
	}

	h.deliver(w, r, dispatch.Request{
		Identity:  identity,
		To:        to,
		Cc:        booking.SplitEmails(data.SalesEmails),
		Subject:   content.Subject,
		PlainBody: content.Plain,
		HTMLBody:  content.HTML,
	})
}

// SellingEmail sends the internal selling-rate notification to the sales
// desk.
func (h *Handler) SellingEmail(w http.ResponseWriter, r *http.Request) {
	var data events.RateEventData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if data.BookingNo == "" {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "booking_no is required")
		return
	}
	to := booking.SplitEmails(data.SalesEmails)
	if len(to) == 0 {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "sales_emails is required")
		return
	}

	identity := h.identities.SelectByLocation(data.LocationTag)
	content, err := events.RenderSellingRate(&data, identity)
	if err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "failed to render notification")
		return
	}

	h.deliver(w, r, dispatch.Request{
		Identity:  identity,
		To:        to,
		Subject:   content.Subject,
		PlainBody: content.Plain,
		HTMLBody:  content.HTML,
	})
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request, req dispatch.Request) {
	used, detail, err := h.chain.Dispatch(r.Context(), req)
	if err != nil {
		h.logger.Error("operator send failed", "subject", req.Subject, "detail", detail)
		jsonutil.WriteErrorJSON(w, http.StatusBadGateway, detail)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "sent",
		"transport": used,
	})
}

// DeliveryStatus reports which transports are configured and which one the
// chain will try first.
func (h *Handler) DeliveryStatus(w http.ResponseWriter, r *http.Request) {
	candidates := h.chain.Candidates()

	preferred := ""
	for _, c := range candidates {
		if c.Configured {
			preferred = c.Name
			break
		}
	}

	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{
		"candidates": candidates,
		"preferred":  preferred,
	})
}
