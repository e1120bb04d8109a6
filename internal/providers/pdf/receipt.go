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

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(15,
		text.NewCol(12, "Settlement receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	// Receipt Meta
	m.AddRow(20,
		col.New(6).Add(
			text.New("Receipt number: "+data.ReceiptNumber, props.Text{Top: 0}),
			text.New("Date paid: "+data.DatePaid, props.Text{Top: 4}),
			text.New("Currency: "+data.Currency, props.Text{Top: 8}),
		),
		col.New(6),
	)

	// Parties
	m.AddRow(40,
		col.New(4).Add(
			text.New(data.PlatformName, props.Text{Style: fontstyle.Bold}),
			text.New(data.PlatformEmail, props.Text{Top: 5}),
		),
		col.New(4).Add(
			text.New("Freelance", props.Text{Style: fontstyle.Bold}),
			text.New(data.FreelanceName, props.Text{Top: 5}),
		),
		col.New(4).Add(
			text.New("Client", props.Text{Style: fontstyle.Bold}),
			text.New(data.ClientName, props.Text{Top: 5}),
		),
	)

	// Payment Confirmation Title
	m.AddRow(15,
		text.NewCol(12, data.GrossAmount+" paid on "+data.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(12, data.ProductTitle, props.Text{
			Size: 9,
			Top:  0,
		}),
	)

	// Table Header
	m.AddRow(10,
		text.NewCol(8, "Party", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	// Split lines
	for _, line := range data.Lines {
		m.AddRow(15,
			text.NewCol(8, line.Label, props.Text{Size: 9}),
			text.NewCol(2, line.Rate, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	// Footer Totals
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Gross", props.Text{Size: 9}),
		text.NewCol(2, data.GrossAmount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Net to freelance", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, data.FreelanceNet, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
