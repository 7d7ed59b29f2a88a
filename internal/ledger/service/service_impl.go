package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	"github.com/smallbiznis/waterworks/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	AccountRepo accountdomain.Repository
	Instruments *telemetry.LedgerInstruments `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	accountRepo accountdomain.Repository
	instruments *telemetry.LedgerInstruments
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		genID:       p.GenID,
		accountRepo: p.AccountRepo,
		instruments: p.Instruments,
	}
}

// Post validates and writes one balanced journal group inside the caller's
// transaction, then rolls the posted amounts into the cached account balances.
func (s *Service) Post(ctx context.Context, tx *gorm.DB, entry ledgerdomain.Entry) error {
	if entry.TenantID == 0 {
		return ledgerdomain.ErrInvalidTenant
	}
	if entry.TransactionID == 0 {
		return ledgerdomain.ErrInvalidTransaction
	}
	if strings.TrimSpace(entry.Reference) == "" {
		return ledgerdomain.ErrInvalidReference
	}
	if len(entry.Lines) < 2 {
		return ledgerdomain.ErrInvalidEntryLines
	}
	for _, line := range entry.Lines {
		if line.Amount.IsNegative() {
			return ledgerdomain.ErrInvalidLineAmount
		}
	}
	if err := ledgerdomain.ValidateBalanced(entry.Lines); err != nil {
		return err
	}

	codes := make([]accountdomain.Code, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		codes = append(codes, line.AccountCode)
	}
	accounts, err := s.accountRepo.FindByCodes(ctx, tx, entry.TenantID, codes)
	if err != nil {
		return fmt.Errorf("load ledger accounts: %w", err)
	}

	for _, line := range entry.Lines {
		acct, ok := accounts[line.AccountCode]
		if !ok {
			return fmt.Errorf("%w: %s", ledgerdomain.ErrAccountNotFound, line.AccountCode)
		}

		description := line.Description
		if description == "" {
			description = entry.Description
		}
		transactionType := line.TransactionType
		if transactionType == "" {
			transactionType = entry.TransactionType
		}

		row := ledgerdomain.Journal{
			ID:              s.genID.Generate(),
			TenantID:        entry.TenantID,
			AccountID:       acct.ID,
			TransactionID:   entry.TransactionID,
			TransactionType: transactionType,
			Amount:          line.Amount,
			Type:            line.Type,
			Reference:       entry.Reference,
			Description:     description,
		}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("insert journal row: %w", err)
		}

		delta := line.Amount
		if (line.Type == ledgerdomain.EntryTypeDebit) != acct.Type.DebitIncreases() {
			delta = delta.Neg()
		}
		if err := s.accountRepo.AdjustBalance(ctx, tx, acct.ID, delta); err != nil {
			return fmt.Errorf("adjust account balance: %w", err)
		}

		s.instruments.RecordEntry(ctx, string(transactionType))
	}

	s.log.Debug("journal group posted",
		zap.String("transaction_type", string(entry.TransactionType)),
		zap.String("reference", entry.Reference),
		zap.Int("lines", len(entry.Lines)),
	)
	return nil
}

func (s *Service) FindByTransaction(ctx context.Context, tenantID, transactionID snowflake.ID) ([]ledgerdomain.Journal, error) {
	var rows []ledgerdomain.Journal
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND transaction_id = ?", tenantID, transactionID).
		Order("created_at").
		Find(&rows).Error
	return rows, err
}
