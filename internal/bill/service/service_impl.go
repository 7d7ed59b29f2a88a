package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	billrepo "github.com/smallbiznis/waterworks/internal/bill/repository"
	"github.com/smallbiznis/waterworks/internal/clock"
	"github.com/smallbiznis/waterworks/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  billrepo.Repository

	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    billrepo.Repository
	metrics *telemetry.Metrics
}

func NewService(p Params) billdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("bill.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// GenerateReference mints the next reference for the tenant's current
// period. The sequence row keeps numbering contiguous under concurrent
// batch submissions; when no row exists yet the seed comes from the
// highest valid reference already on file, malformed ones are ignored.
func (s *Service) GenerateReference(ctx context.Context, tenantID snowflake.ID) (string, error) {
	if tenantID == 0 {
		return "", &billdomain.ValidationError{Field: "tenant_id", Message: "tenant is required"}
	}

	period := billdomain.ReferencePeriod(s.clock.Now())

	var reference string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refs, err := s.repo.ReferencesForPeriod(ctx, tx, tenantID, period)
		if err != nil {
			return err
		}
		seed := 0
		for _, ref := range refs {
			if seq, ok := billdomain.ParseReferenceSeq(ref, period); ok && seq > seed {
				seed = seq
			}
		}

		seq, err := s.repo.NextSequence(ctx, tx, tenantID, period, seed)
		if err != nil {
			return err
		}
		reference = fmt.Sprintf("%s-%03d", period, seq)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate bill reference: %w", err)
	}
	return reference, nil
}

func (s *Service) CreateSingleBill(ctx context.Context, tenantID, actorID snowflake.ID, input billdomain.CreateBillInput) (*billdomain.Bill, error) {
	if tenantID == 0 {
		return nil, &billdomain.ValidationError{Field: "tenant_id", Message: "tenant is required"}
	}
	if input.CustomerID == 0 {
		return nil, &billdomain.ValidationError{Field: "customer_id", Message: "customer is required"}
	}
	if !input.BillType.Valid() {
		return nil, &billdomain.ValidationError{Field: "bill_type", Message: fmt.Sprintf("unknown bill type %q", input.BillType)}
	}
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return nil, &billdomain.ValidationError{Field: "amount", Message: "must be a positive number"}
	}
	if input.RateUsed.IsNegative() {
		return nil, &billdomain.ValidationError{Field: "rate_used", Message: "must be a non-negative number"}
	}
	if input.TotalAmount.IsNegative() || input.TotalAmount.IsZero() {
		return nil, &billdomain.ValidationError{Field: "total_amount", Message: "must be a positive number"}
	}

	reference := input.Reference
	if reference == "" {
		generated, err := s.GenerateReference(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		reference = generated
	} else if !billdomain.ValidateReferenceFormat(reference) {
		return nil, billdomain.ErrInvalidReference
	}

	bill := &billdomain.Bill{
		ID:                s.genID.Generate(),
		TenantID:          tenantID,
		CustomerID:        input.CustomerID,
		MeterAssignmentID: input.MeterAssignmentID,
		BillType:          input.BillType,
		Amount:            input.Amount,
		RateUsed:          input.RateUsed,
		TotalAmount:       input.TotalAmount,
		Status:            billdomain.BillStatusPending,
		BillRef:           reference,
		Description:       input.Description,
		GenerationDate:    s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, bill); err != nil {
		return nil, fmt.Errorf("insert bill: %w", err)
	}

	s.metrics.ObserveBillCreated(tenantID.String(), string(bill.BillType))
	s.log.Info("bill created",
		zap.String("bill_ref", bill.BillRef),
		zap.String("bill_type", string(bill.BillType)),
		zap.String("customer_id", bill.CustomerID.String()),
		zap.String("actor_id", actorID.String()),
	)
	return bill, nil
}

func (s *Service) CheckForDuplicate(ctx context.Context, tenantID, customerID snowflake.ID, reference string) (bool, error) {
	return s.repo.ExistsByCustomerReference(ctx, s.db, tenantID, customerID, reference)
}

func (s *Service) FindPending(ctx context.Context, tenantID snowflake.ID) ([]billdomain.Bill, error) {
	return s.repo.FindPending(ctx, s.db, tenantID)
}
