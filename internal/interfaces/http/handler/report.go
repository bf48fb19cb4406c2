package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/interfaces/http/dto"
)

// ReportHandler serves customer advances and the outstanding report
type ReportHandler struct {
	BaseHandler
	reports  *appledger.ReportService
	advances *appledger.AdvanceTracker
	now      func() time.Time
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *appledger.ReportService, advances *appledger.AdvanceTracker) *ReportHandler {
	return &ReportHandler{reports: reports, advances: advances, now: time.Now}
}

// CustomerAdvance returns a customer's unallocated balance. The financial
// year defaults to the current one.
func (h *ReportHandler) CustomerAdvance(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var query dto.AdvanceQuery
	if !h.bindQuery(c, &query) {
		return
	}
	fy := query.FinancialYear
	if fy == "" {
		fy = ledger.FinancialYear(h.now())
	}

	advance, err := h.advances.Advance(c.Request.Context(), id, fy)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewAdvanceResponse(advance))
}

// Outstanding lists PNRs with a pending balance, oldest first unless order_by says otherwise
func (h *ReportHandler) Outstanding(c *gin.Context) {
	var query dto.OutstandingQuery
	if !h.bindQuery(c, &query) {
		return
	}

	filter := ledger.OutstandingFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
		},
		FinancialYear: query.FinancialYear,
	}
	if query.CustomerID != "" {
		id := uuid.MustParse(query.CustomerID)
		filter.CustomerID = &id
	}
	if query.BookingID != "" {
		id := uuid.MustParse(query.BookingID)
		filter.BookingID = &id
	}

	page, err := h.reports.Outstanding(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items := make([]dto.PNRResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewPNRResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}
