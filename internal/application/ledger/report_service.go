package ledger

import (
	"context"

	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/telemetry"
)

// ReportService serves read-only projections over PNRs
type ReportService struct {
	reader TransactionalRepositories
	serviceConfig
}

// NewReportService creates a new ReportService
func NewReportService(reader TransactionalRepositories, opts ...Option) *ReportService {
	return &ReportService{reader: reader, serviceConfig: newServiceConfig("ledger.report", opts)}
}

// Outstanding lists PNRs with a pending balance, optionally for one financial year
func (s *ReportService) Outstanding(ctx context.Context, filter ledger.OutstandingFilter) (page *shared.Paginated[ledger.TravelRecord], err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "outstanding")
	defer func() { endSpan(span, err) }()

	if filter.FinancialYear != "" {
		if _, err = ledger.ParseFinancialYear(filter.FinancialYear); err != nil {
			return nil, err
		}
		telemetry.SetAttribute(span, telemetry.SpanAttrFinancialYear, filter.FinancialYear)
	}
	filter.Filter = filter.Normalize()

	records, total, err := s.reader.TravelRecordRepo().FindOutstanding(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := shared.NewPaginated(records, total, filter.Page, filter.PageSize)
	return &result, nil
}
