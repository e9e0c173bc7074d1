package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/BearBump/courierlive/internal/services/orders"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type ordersHandler struct {
	svc *orders.Service
}

// createOrderRequest accepts items as a list or as "Pizza:1, Coke:2".
type createOrderRequest struct {
	Customer      models.Customer  `json:"customer"`
	Items         json.RawMessage  `json:"items"`
	ItemsText     string           `json:"itemsText"`
	PreferredTime string           `json:"preferredTime"`
	Status        models.Status    `json:"status"`
	StoreLocation *models.Location `json:"storeLocation"`
}

func (req createOrderRequest) toInput() (models.OrderCreateInput, error) {
	in := models.OrderCreateInput{
		Customer:      req.Customer,
		ItemsText:     req.ItemsText,
		PreferredTime: req.PreferredTime,
		Status:        req.Status,
		StoreLocation: req.StoreLocation,
	}
	raw := bytes.TrimSpace(req.Items)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &in.ItemsText); err != nil {
			return in, errors.Wrap(models.ErrValidation, "items must be a list or a string")
		}
	default:
		if err := json.Unmarshal(raw, &in.Items); err != nil {
			return in, errors.Wrap(models.ErrValidation, "items must be a list or a string")
		}
	}
	return in, nil
}

func (h ordersHandler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h ordersHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h ordersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.svc.CreateOrder(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h ordersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h ordersHandler) assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssignedAgentID *string `json:"assignedAgentId"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	agentID := ""
	if req.AssignedAgentID != nil {
		agentID = *req.AssignedAgentID
	}
	o, err := h.svc.AssignAgent(r.Context(), chi.URLParam(r, "id"), agentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h ordersHandler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OTP json.RawMessage `json:"otp"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.svc.VerifyOTP(r.Context(), chi.URLParam(r, "orderId"), otpString(req.OTP))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "order": o})
}

// otpString accepts the code as a JSON string or number.
func otpString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}
