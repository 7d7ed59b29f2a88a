package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	rundomain "github.com/smallbiznis/waterworks/internal/billingrun/domain"
	customerdomain "github.com/smallbiznis/waterworks/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	meterdomain "github.com/smallbiznis/waterworks/internal/meter/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	BillSvc      billdomain.Service
	InvoiceSvc   invoicedomain.Service
	CustomerRepo customerdomain.Repository
	MeterRepo    meterdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	billSvc      billdomain.Service
	invoiceSvc   invoicedomain.Service
	customerRepo customerdomain.Repository
	meterRepo    meterdomain.Repository
}

func NewService(p Params) rundomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("billingrun.service"),
		billSvc:      p.BillSvc,
		invoiceSvc:   p.InvoiceSvc,
		customerRepo: p.CustomerRepo,
		meterRepo:    p.MeterRepo,
	}
}

// ProcessBatchForCustomers fans bill creation out across customers.
// Each customer is processed independently: a lookup failure, missing
// assignments or a bill error is recorded and the batch moves on.
// Customers that already hold a bill for the run's reference are
// skipped so re-running a batch is idempotent.
func (s *Service) ProcessBatchForCustomers(ctx context.Context, tenantID, actorID snowflake.ID, customerIDs []snowflake.ID, template rundomain.BillTemplate, reference string, createInvoice bool) (*rundomain.BatchResult, error) {
	if reference == "" {
		ref, err := s.billSvc.GenerateReference(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("generate reference: %w", err)
		}
		reference = ref
	} else if !billdomain.ValidateReferenceFormat(reference) {
		return nil, billdomain.ErrInvalidReference
	}

	result := &rundomain.BatchResult{Reference: reference}

	for _, customerID := range customerIDs {
		customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, customerID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Customer %s: %v", customerID, err))
			continue
		}
		if customer == nil {
			// Also covers IDs belonging to another tenant.
			result.Errors = append(result.Errors, fmt.Sprintf("Customer %s not found", customerID))
			continue
		}

		exists, err := s.billSvc.CheckForDuplicate(ctx, tenantID, customerID, reference)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Customer %s: %v", customerID, err))
			continue
		}
		if exists {
			result.Skipped++
			result.SkippedCustomers = append(result.SkippedCustomers, customerID)
			continue
		}

		assignments, err := s.meterRepo.ActiveAssignmentsByCustomer(ctx, s.db, tenantID, customerID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Customer %s: %v", customerID, err))
			continue
		}
		if len(assignments) == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("No active meter assignments found for customer %s", customerID))
			continue
		}

		for _, assignment := range assignments {
			bill, err := s.billSvc.CreateSingleBill(ctx, tenantID, actorID, billdomain.CreateBillInput{
				CustomerID:        customerID,
				MeterAssignmentID: assignment.ID,
				BillType:          template.BillType,
				Amount:            template.Amount,
				RateUsed:          template.RateUsed,
				TotalAmount:       template.TotalAmount,
				Reference:         reference,
				Description:       template.Description,
			})
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Customer %s: %v", customerID, err))
				continue
			}
			result.Created++
			result.CreatedBills = append(result.CreatedBills, *bill)
		}
	}

	if createInvoice && len(result.CreatedBills) > 0 {
		gen, err := s.invoiceSvc.GenerateFromBills(ctx, tenantID, actorID, result.CreatedBills)
		if err != nil {
			result.InvoiceErrors = append(result.InvoiceErrors, err.Error())
		} else {
			result.InvoicesCreated = gen.InvoicesCreated
			result.InvoiceErrors = append(result.InvoiceErrors, gen.Errors...)
		}
	}

	s.log.Info("batch run complete",
		zap.String("reference", reference),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
		zap.Int("invoices_created", result.InvoicesCreated),
	)
	return result, nil
}

// GenerateBatchSummary computes the success rate over attempted bill
// creations. A run with no failures reports 100 even when nothing was
// created.
func (s *Service) GenerateBatchSummary(result *rundomain.BatchResult) rundomain.Summary {
	attempts := result.Created + len(result.Errors)
	rate := 100.0
	if attempts > 0 {
		rate = float64(result.Created) / float64(attempts) * 100
	}
	return rundomain.Summary{
		Reference:       result.Reference,
		Created:         result.Created,
		Skipped:         result.Skipped,
		Failed:          len(result.Errors),
		InvoicesCreated: result.InvoicesCreated,
		InvoiceErrors:   result.InvoiceErrors,
		SuccessRate:     rate,
	}
}
