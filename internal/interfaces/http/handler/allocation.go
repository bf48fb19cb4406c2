package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/interfaces/http/dto"
)

// AllocationHandler serves allocation, PNR and financial year endpoints
type AllocationHandler struct {
	BaseHandler
	allocations *appledger.AllocationService
	store       *appledger.LedgerStore
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocations *appledger.AllocationService, store *appledger.LedgerStore) *AllocationHandler {
	return &AllocationHandler{allocations: allocations, store: store}
}

// Allocate applies a batch of allocation lines from one payment
func (h *AllocationHandler) Allocate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AllocateRequest
	if !h.bind(c, &req) {
		return
	}

	lines := make([]appledger.AllocationLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, appledger.AllocationLine{
			TravelRecordID: uuid.MustParse(l.PNRID),
			Amount:         l.Amount,
			Remarks:        l.Remarks,
		})
	}

	result, err := h.allocations.Allocate(c.Request.Context(), appledger.AllocateRequest{
		PaymentID: id,
		Lines:     lines,
		Type:      ledger.AllocationType(req.Type),
		ActorID:   actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewAllocateResponse(result))
}

// ListByPayment lists a payment's allocations, reversals included
func (h *AllocationHandler) ListByPayment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	allocations, err := h.allocations.ListPaymentAllocations(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewAllocationResponses(allocations))
}

// ListPNRPayments lists the allocations on a PNR with their payments
func (h *AllocationHandler) ListPNRPayments(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.allocations.ListPNRPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewPNRPaymentResponses(items))
}

// PNRLedger returns a PNR's ledger entries with a running balance
func (h *AllocationHandler) PNRLedger(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	statement, err := h.store.Statement(c.Request.Context(), ledger.EntryReference{
		Kind: ledger.ReferenceTravelRecord,
		ID:   id,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewStatementResponse(statement))
}

// CloseFinancialYear marks every PNR of a financial year closed
func (h *AllocationHandler) CloseFinancialYear(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	fy := c.Param("fy")
	closed, err := h.allocations.CloseFinancialYear(c.Request.Context(), fy)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.CloseFinancialYearResponse{FinancialYear: fy, ClosedRecords: closed})
}
