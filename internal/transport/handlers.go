package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pasal-be/internal/checkout"
	"pasal-be/internal/logger"
	"pasal-be/internal/order"
	"pasal-be/internal/payment"
	"pasal-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	checkoutSvc checkout.Service
	orderSvc    order.Service
}

func NewHandler(checkoutSvc checkout.Service, orderSvc order.Service) *Handler {
	return &Handler{checkoutSvc: checkoutSvc, orderSvc: orderSvc}
}

// ---- request/response DTOs ----

type addressDTO struct {
	ReceiverName string  `json:"receiverName"`
	Phone        string  `json:"phone"`
	Line1        string  `json:"line1"`
	Line2        *string `json:"line2,omitempty"`
	City         string  `json:"city"`
	District     string  `json:"district"`
	PostalCode   string  `json:"postalCode"`
}

type itemDTO struct {
	ProductRef  string `json:"productRef"`
	Name        string `json:"name"`
	VariantName string `json:"variantName,omitempty"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal,omitempty"`
}

type createSessionRequest struct {
	Items           []itemDTO  `json:"checkoutItems"`
	ShippingAddress addressDTO `json:"shippingAddress"`
	PaymentMethod   string     `json:"paymentMethod"`
}

type sessionResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Items           []itemDTO  `json:"checkoutItems"`
	ShippingAddress addressDTO `json:"shippingAddress"`
	PaymentMethod   string     `json:"paymentMethod"`
	TotalPrice      int64      `json:"totalPrice"`
	PaymentRef      *string    `json:"paymentRef,omitempty"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`
	FinalizedAt     *time.Time `json:"finalizedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type initiateResponse struct {
	PaymentRef  string `json:"paymentRef"`
	RedirectURL string `json:"redirectUrl"`
}

type verifyRequest struct {
	PaymentRef string `json:"pidx"`
}

type verifyResponse struct {
	Status string     `json:"status"`
	PaidAt *time.Time `json:"paidAt,omitempty"`
}

type orderResponse struct {
	ID            string     `json:"id"`
	SessionID     string     `json:"sessionId"`
	Items         []itemDTO  `json:"orderItems"`
	Address       addressDTO `json:"shippingAddress"`
	PaymentMethod string     `json:"paymentMethod"`
	TotalPrice    int64      `json:"totalPrice"`
	IsPaid        bool       `json:"isPaid"`
	PaidAt        time.Time  `json:"paidAt"`
	IsDelivered   bool       `json:"isDelivered"`
	PaymentStatus string     `json:"paymentStatus"`
	PaymentRef    string     `json:"paymentRef"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// ---- handlers ----

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := utils.OwnerIDFromContext(r.Context())
	if !ok {
		utils.WriteJSONError(w, "not authorized", http.StatusUnauthorized)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	params := checkout.CreateSessionParams{
		OwnerID:         ownerID,
		ShippingAddress: addressFromDTO(req.ShippingAddress),
		PaymentMethod:   checkout.PaymentMethod(req.PaymentMethod),
	}
	for _, it := range req.Items {
		params.Items = append(params.Items, checkout.ItemParams{
			ProductRef:  it.ProductRef,
			Name:        it.Name,
			VariantName: it.VariantName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}

	session, err := h.checkoutSvc.CreateSession(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, sessionToResponse(session))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ownerID, sessionID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	session, err := h.checkoutSvc.GetSession(r.Context(), sessionID, ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, sessionToResponse(session))
}

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	ownerID, sessionID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	// Ownership gate before any gateway traffic.
	if _, err := h.checkoutSvc.GetSession(r.Context(), sessionID, ownerID); err != nil {
		h.writeError(w, r, err)
		return
	}

	initiation, err := h.checkoutSvc.InitiatePayment(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, initiateResponse{
		PaymentRef:  initiation.PaymentRef,
		RedirectURL: initiation.RedirectURL,
	})
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ownerID, sessionID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.PaymentRef == "" {
		utils.WriteJSONError(w, "please provide pidx", http.StatusBadRequest)
		return
	}

	if _, err := h.checkoutSvc.GetSession(r.Context(), sessionID, ownerID); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.checkoutSvc.VerifyPayment(r.Context(), sessionID, req.PaymentRef)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, verifyResponse{
		Status: string(result.Status),
		PaidAt: result.PaidAt,
	})
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	ownerID, sessionID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	o, err := h.orderSvc.Finalize(r.Context(), sessionID, ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, orderToResponse(o))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ownerID, orderID, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	o, err := h.orderSvc.GetOrder(r.Context(), orderID, ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, orderToResponse(o))
}

// ---- helpers ----

func (h *Handler) ownerAndID(w http.ResponseWriter, r *http.Request) (uint, uuid.UUID, bool) {
	ownerID, ok := utils.OwnerIDFromContext(r.Context())
	if !ok {
		utils.WriteJSONError(w, "not authorized", http.StatusUnauthorized)
		return 0, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteJSONError(w, "invalid id", http.StatusBadRequest)
		return 0, uuid.Nil, false
	}

	return ownerID, id, true
}

// writeError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkout.ErrNoItems),
		errors.Is(err, checkout.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrInvalidMethod):
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)

	case errors.Is(err, order.ErrUnauthorized):
		utils.WriteJSONError(w, err.Error(), http.StatusForbidden)

	case errors.Is(err, checkout.ErrCorrelationMismatch):
		utils.WriteJSONError(w, err.Error(), http.StatusForbidden)

	case errors.Is(err, checkout.ErrInvalidState),
		errors.Is(err, checkout.ErrConflict):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)

	case errors.Is(err, payment.ErrGatewayRejected):
		utils.WriteJSONError(w, "payment rejected by gateway", http.StatusPaymentRequired)

	case errors.Is(err, payment.ErrGatewayUnavailable):
		utils.WriteJSONError(w, "payment gateway unavailable, try again", http.StatusBadGateway)

	default:
		logger.FromCtx(r.Context()).Error("unhandled error", zap.Error(err))
		utils.WriteJSONError(w, "server error", http.StatusInternalServerError)
	}
}

func addressFromDTO(a addressDTO) checkout.Address {
	return checkout.Address{
		ReceiverName: a.ReceiverName,
		Phone:        a.Phone,
		Line1:        a.Line1,
		Line2:        a.Line2,
		City:         a.City,
		District:     a.District,
		PostalCode:   a.PostalCode,
	}
}

func addressToDTO(a checkout.Address) addressDTO {
	return addressDTO{
		ReceiverName: a.ReceiverName,
		Phone:        a.Phone,
		Line1:        a.Line1,
		Line2:        a.Line2,
		City:         a.City,
		District:     a.District,
		PostalCode:   a.PostalCode,
	}
}

func sessionToResponse(s *checkout.Session) sessionResponse {
	resp := sessionResponse{
		ID:              s.ID.String(),
		Status:          string(s.Status),
		ShippingAddress: addressToDTO(s.ShippingAddress),
		PaymentMethod:   string(s.PaymentMethod),
		TotalPrice:      s.TotalPrice,
		PaymentRef:      s.PaymentRef,
		PaidAt:          s.PaidAt,
		FinalizedAt:     s.FinalizedAt,
		CreatedAt:       s.CreatedAt,
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, itemDTO{
			ProductRef:  it.ProductRef,
			Name:        it.Name,
			VariantName: it.VariantName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}
	return resp
}

func orderToResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID.String(),
		SessionID:     o.SessionID.String(),
		Address:       addressToDTO(o.ShippingAddress),
		PaymentMethod: string(o.PaymentMethod),
		TotalPrice:    o.TotalPrice,
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		IsDelivered:   o.IsDelivered,
		PaymentStatus: o.PaymentStatus,
		PaymentRef:    o.PaymentRef,
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, itemDTO{
			ProductRef:  it.ProductRef,
			Name:        it.Name,
			VariantName: it.VariantName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}
	return resp
}
