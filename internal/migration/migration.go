// Package migration creates the relational schema on startup so the
// service is usable out of the box for local and self-hosted setups.
package migration

import (
	"errors"

	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	auditdomain "github.com/smallbiznis/waterworks/internal/audit/domain"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	customerdomain "github.com/smallbiznis/waterworks/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	meterdomain "github.com/smallbiznis/waterworks/internal/meter/domain"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	return db.AutoMigrate(
		&accountdomain.Account{},
		&ledgerdomain.Journal{},
		&customerdomain.Customer{},
		&meterdomain.Meter{},
		&meterdomain.MeterAssignment{},
		&billdomain.Bill{},
		&billdomain.ReferenceSequence{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceBill{},
		&paymentdomain.Payment{},
		&auditdomain.Entry{},
	)
}
