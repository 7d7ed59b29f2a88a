// Package sms defines the outbound notification contract. The core only
// hands over identifiers and amounts; formatting and transport belong to
// the messaging subsystem.
package sms

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// Message carries template substitution values for one notification.
type Message struct {
	TenantID   snowflake.ID
	CustomerID snowflake.ID
	Kind       string
	Params     map[string]string
}

const (
	KindPaymentReceived    = "payment_received"
	KindPaymentReversed    = "payment_reversed"
	KindInvoiceReversed    = "invoice_reversed"
	KindInvoiceCorrected   = "invoice_corrected"
	KindOverpaymentApplied = "overpayment_applied"
)

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier is the default transport-less notifier. It records the
// notification and succeeds, keeping core flows testable without an SMS
// provider.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) Notifier {
	return &LogNotifier{log: log.Named("sms.notifier")}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	_ = ctx
	n.log.Info("sms notification queued",
		zap.String("kind", msg.Kind),
		zap.String("customer_id", msg.CustomerID.String()),
		zap.Any("params", msg.Params),
	)
	return nil
}
