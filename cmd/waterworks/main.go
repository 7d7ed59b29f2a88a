package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/waterworks/internal/account"
	"github.com/smallbiznis/waterworks/internal/audit"
	"github.com/smallbiznis/waterworks/internal/bill"
	"github.com/smallbiznis/waterworks/internal/billingrun"
	"github.com/smallbiznis/waterworks/internal/clock"
	"github.com/smallbiznis/waterworks/internal/config"
	"github.com/smallbiznis/waterworks/internal/customer"
	"github.com/smallbiznis/waterworks/internal/finance"
	"github.com/smallbiznis/waterworks/internal/invoice"
	"github.com/smallbiznis/waterworks/internal/invoiceaction"
	"github.com/smallbiznis/waterworks/internal/ledger"
	"github.com/smallbiznis/waterworks/internal/logger"
	"github.com/smallbiznis/waterworks/internal/meter"
	"github.com/smallbiznis/waterworks/internal/migration"
	"github.com/smallbiznis/waterworks/internal/payment"
	"github.com/smallbiznis/waterworks/internal/providers/pdf"
	"github.com/smallbiznis/waterworks/internal/providers/sms"
	"github.com/smallbiznis/waterworks/internal/ratelimit"
	"github.com/smallbiznis/waterworks/internal/scheduler"
	"github.com/smallbiznis/waterworks/internal/server"
	"github.com/smallbiznis/waterworks/pkg/db"
	"github.com/smallbiznis/waterworks/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		account.Module,
		ledger.Module,
		customer.Module,
		meter.Module,
		bill.Module,
		invoice.Module,
		payment.Module,
		finance.Module,
		invoiceaction.Module,
		billingrun.Module,
		audit.Module,
		sms.Module,
		pdf.Module,

		telemetry.Module,
		ratelimit.Module,
		scheduler.Module,

		migration.Module,
		server.Module,
	)

	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
