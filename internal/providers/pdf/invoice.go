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

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) GenerateInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error) {
	_ = ctx

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Water Bill", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+doc.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+doc.InvoiceDate, props.Text{Top: 4}),
			text.New("Due date: "+doc.DueDate, props.Text{Top: 8}),
			text.New("Meter: "+doc.MeterNumber, props.Text{Top: 12}),
		),
		col.New(6),
	)

	m.AddRow(35,
		col.New(6).Add(
			text.New(doc.UtilityName, props.Text{Style: fontstyle.Bold}),
			text.New(doc.UtilityAddress, props.Text{Top: 5}),
			text.New(doc.UtilityPhone, props.Text{Top: 13}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(doc.CustomerName, props.Text{Top: 5}),
			text.New(doc.CustomerAddress, props.Text{Top: 9}),
			text.New(doc.CustomerPhone, props.Text{Top: 17}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, doc.BalanceDue+" due "+doc.DueDate, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Reference", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if doc.BalanceBroughtForward != "" {
		m.AddRow(12,
			text.NewCol(6, "Balance brought forward", props.Text{Size: 9}),
			col.New(3),
			text.NewCol(3, doc.BalanceBroughtForward, props.Text{Size: 9, Align: align.Right}),
		)
	}
	for _, line := range doc.Lines {
		m.AddRow(12,
			text.NewCol(6, line.Description, props.Text{Size: 9}),
			text.NewCol(3, line.Reference, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(7),
		text.NewCol(3, "Current charges", props.Text{Size: 9}),
		text.NewCol(2, doc.CurrentCharges, props.Text{Size: 9, Align: align.Right}),
	)
	if doc.CreditApplied != "" {
		m.AddRow(10,
			col.New(7),
			text.NewCol(3, "Credit applied", props.Text{Size: 9}),
			text.NewCol(2, doc.CreditApplied, props.Text{Size: 9, Align: align.Right}),
		)
	}
	if doc.AmountPaid != "" {
		m.AddRow(10,
			col.New(7),
			text.NewCol(3, "Paid to date", props.Text{Size: 9}),
			text.NewCol(2, doc.AmountPaid, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(7),
		text.NewCol(3, "Balance due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, doc.BalanceDue, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	rendered, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(rendered.GetBytes()), nil
}
