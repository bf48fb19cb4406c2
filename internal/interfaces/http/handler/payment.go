package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/interfaces/http/dto"
)

// PaymentHandler serves the payment lifecycle endpoints
type PaymentHandler struct {
	BaseHandler
	payments *appledger.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *appledger.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Create records a payment against a booking, optionally auto-allocating it to a PNR
func (h *PaymentHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.CreatePaymentRequest
	if !h.bind(c, &req) {
		return
	}

	appReq := appledger.CreatePaymentRequest{
		BookingID:   uuid.MustParse(req.BookingID),
		Amount:      req.Amount,
		Mode:        ledger.PaymentMode(req.Mode),
		ReferenceNo: req.ReferenceNo,
		Breakdown:   req.Breakdown.ToDomain(),
		Remarks:     req.Remarks,
		ActorID:     actor,
	}
	if req.PaymentDate != nil {
		appReq.PaymentDate = req.PaymentDate.UTC()
	}
	if req.PNRID != nil {
		pnrID := uuid.MustParse(*req.PNRID)
		appReq.TravelRecordID = &pnrID
	}

	result, err := h.payments.CreatePayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.CreatePaymentResponse{
		Payment:    dto.NewPaymentResponse(result.Payment),
		Allocation: dto.NewAllocationResponse(result.Allocation),
		Advance:    dto.NewAdvanceResponse(result.Advance),
	})
}

// Get returns a payment by id
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewPaymentResponse(payment))
}

// Update changes the status, date or remarks of a payment
func (h *PaymentHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePaymentRequest
	if !h.bind(c, &req) {
		return
	}

	update := req.ToDomain()
	if update.PaymentDate != nil {
		utc := update.PaymentDate.UTC()
		update.PaymentDate = &utc
	}
	payment, err := h.payments.UpdatePayment(c.Request.Context(), appledger.UpdatePaymentRequest{
		PaymentID:     id,
		PaymentUpdate: update,
		ActorID:       actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewPaymentResponse(payment))
}

// Delete soft-deletes a payment that has no allocations
func (h *PaymentHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.DeletePayment(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewPaymentResponse(payment))
}

// Refund refunds part or all of a payment and reverses its allocations
func (h *PaymentHandler) Refund(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RefundRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.payments.RefundPayment(c.Request.Context(), appledger.RefundPaymentRequest{
		PaymentID: id,
		Amount:    req.Amount,
		Remarks:   req.Remarks,
		ActorID:   actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewRefundResponse(result))
}

// ListRefunds lists the refund rows issued against a payment
func (h *PaymentHandler) ListRefunds(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	refunds, err := h.payments.ListRefunds(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.PaymentResponse, 0, len(refunds))
	for i := range refunds {
		out = append(out, *dto.NewPaymentResponse(&refunds[i]))
	}
	h.Success(c, out)
}
