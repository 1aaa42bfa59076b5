package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/pos-sync/internal/core/domain"
	"github.com/rl1809/pos-sync/internal/core/service"
	"github.com/rl1809/pos-sync/internal/port"
)

type HTTPHandler struct {
	capture    *service.CaptureService
	reconciler *service.Reconciler
	projection *service.StockProjection
	queue      port.LocalQueue
	monitor    port.ConnectivityMonitor
	branchID   string
	log        *logrus.Logger
}

func NewHTTPHandler(capture *service.CaptureService, reconciler *service.Reconciler, projection *service.StockProjection, queue port.LocalQueue, monitor port.ConnectivityMonitor, branchID string, log *logrus.Logger) *HTTPHandler {
	return &HTTPHandler{
		capture:    capture,
		reconciler: reconciler,
		projection: projection,
		queue:      queue,
		monitor:    monitor,
		branchID:   branchID,
		log:        log,
	}
}

type CheckoutRequest struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	BranchID  string `json:"branch_id"`
	Lines     []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"lines"`
}

type CheckoutResponse struct {
	Disposition string `json:"disposition,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, CheckoutResponse{Message: "invalid request body"})
		return
	}
	if req.ActorID == "" {
		writeJSON(w, http.StatusBadRequest, CheckoutResponse{Message: "actor_id is required"})
		return
	}

	branchID := req.BranchID
	if branchID == "" {
		branchID = h.branchID
	}

	cart := domain.Cart{
		ActorID:   req.ActorID,
		ActorName: req.ActorName,
		BranchID:  branchID,
	}
	for _, l := range req.Lines {
		cart.Lines = append(cart.Lines, domain.CartLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	disposition, err := h.capture.CompleteSale(r.Context(), cart)
	if err != nil {
		var persistence *domain.PersistenceError
		switch {
		case errors.Is(err, service.ErrEmptyCart),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInsufficientStock):
			writeJSON(w, http.StatusUnprocessableEntity, CheckoutResponse{Message: err.Error()})
		case errors.As(err, &persistence):
			writeJSON(w, http.StatusServiceUnavailable, CheckoutResponse{Message: "sale not saved, retry"})
		default:
			h.log.WithError(err).Error("checkout failed")
			writeJSON(w, http.StatusInternalServerError, CheckoutResponse{Message: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{Disposition: string(disposition)})
}

type StockResponse struct {
	ProductID string `json:"product_id"`
	BranchID  string `json:"branch_id"`
	Projected int    `json:"projected"`
}

func (h *HTTPHandler) Stock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	productID := strings.TrimPrefix(r.URL.Path, "/api/stock/")
	if productID == "" || strings.Contains(productID, "/") {
		http.Error(w, "product id required", http.StatusBadRequest)
		return
	}

	branchID := r.URL.Query().Get("branch")
	if branchID == "" {
		branchID = h.branchID
	}

	projected, err := h.projection.Projected(r.Context(), productID, branchID)
	if err != nil {
		h.log.WithError(err).WithField("product_id", productID).Warn("projection unavailable")
		http.Error(w, "stock unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, StockResponse{ProductID: productID, BranchID: branchID, Projected: projected})
}

type DrainStatus struct {
	Succeeded int    `json:"succeeded"`
	FailedSeq uint64 `json:"failed_seq,omitempty"`
	Error     string `json:"error,omitempty"`
}

type SyncStatusResponse struct {
	Online       bool         `json:"online"`
	State        string       `json:"state"`
	PendingSales int          `json:"pending_sales"`
	LastDrain    *DrainStatus `json:"last_drain,omitempty"`
}

func (h *HTTPHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pending, err := h.queue.Len(r.Context())
	if err != nil {
		h.log.WithError(err).Warn("pending count unavailable")
	}

	resp := SyncStatusResponse{
		Online:       h.monitor.Online(),
		State:        string(h.reconciler.State()),
		PendingSales: pending,
	}
	if last := h.reconciler.LastDrainResult(); last != nil {
		status := DrainStatus{Succeeded: last.Succeeded, FailedSeq: last.FailedSeq}
		if last.Err != nil {
			status.Error = last.Err.Error()
		}
		resp.LastDrain = &status
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) TriggerDrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.reconciler.Drain(r.Context())
	if errors.Is(err, service.ErrDrainInProgress) {
		writeJSON(w, http.StatusConflict, CheckoutResponse{Message: "drain already in progress"})
		return
	}

	status := DrainStatus{Succeeded: result.Succeeded, FailedSeq: result.FailedSeq}
	if err != nil {
		status.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
