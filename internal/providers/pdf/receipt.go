package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

func (p *MarotoProvider) GenerateReceipt(ctx context.Context, doc ReceiptDocument) (io.Reader, error) {
	_ = ctx

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Payment Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Receipt number: "+doc.ReceiptNumber, props.Text{Top: 0}),
			text.New("Date paid: "+doc.PaymentDate, props.Text{Top: 4}),
			text.New("Method: "+doc.Method, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Invoice: "+doc.InvoiceNumber, props.Text{Top: 0}),
			text.New("Meter: "+doc.MeterNumber, props.Text{Top: 4}),
		),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New(doc.UtilityName, props.Text{Style: fontstyle.Bold}),
			text.New(doc.UtilityAddress, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Received from", props.Text{Style: fontstyle.Bold}),
			text.New(doc.CustomerName, props.Text{Top: 5}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, doc.AmountPaid+" paid on "+doc.PaymentDate, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		col.New(7),
		text.NewCol(3, "Applied to invoice", props.Text{Size: 9}),
		text.NewCol(2, doc.AppliedToInvoice, props.Text{Size: 9, Align: align.Right}),
	)
	if doc.CreditRetained != "" {
		m.AddRow(10,
			col.New(7),
			text.NewCol(3, "Credit retained", props.Text{Size: 9}),
			text.NewCol(2, doc.CreditRetained, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(7),
		text.NewCol(3, "Balance after payment", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, doc.BalanceAfter, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	rendered, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(rendered.GetBytes()), nil
}
