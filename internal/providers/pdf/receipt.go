// Package pdf renders printable receipts for approved payment batches.
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

// ReceiptData carries the already formatted fields for one receipt. Amounts
// arrive as display strings so the renderer stays ignorant of money math.
type ReceiptData struct {
	SchoolName    string
	AcYear        string
	ReceiptNumber string
	BatchNo       string
	ApprovedDate  string
	Mode          string
	ReferenceNo   string

	Items []ReceiptItem

	TotalAmount string
}

// ReceiptItem is one settled invoice line on the receipt.
type ReceiptItem struct {
	InvoiceNo string
	Student   string
	Status    string
	Amount    string
}

// Renderer produces receipt PDFs.
type Renderer interface {
	RenderReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

type marotoRenderer struct{}

func New() Renderer {
	return &marotoRenderer{}
}

func (r *marotoRenderer) RenderReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
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

	m.AddRow(24,
		col.New(6).Add(
			text.New("Receipt number: "+data.ReceiptNumber, props.Text{Top: 0}),
			text.New("Batch number: "+data.BatchNo, props.Text{Top: 4}),
			text.New("Approved on: "+data.ApprovedDate, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New(data.SchoolName, props.Text{Style: fontstyle.Bold}),
			text.New("Academic year: "+data.AcYear, props.Text{Top: 5}),
			text.New("Mode: "+data.Mode, props.Text{Top: 9}),
		),
	)

	if data.ReferenceNo != "" {
		m.AddRow(8,
			text.NewCol(12, "Reference: "+data.ReferenceNo, props.Text{Size: 9}),
		)
	}

	m.AddRow(10,
		text.NewCol(4, "Invoice", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Student", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Status", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range data.Items {
		m.AddRow(10,
			text.NewCol(4, item.InvoiceNo, props.Text{Size: 9}),
			text.NewCol(4, item.Student, props.Text{Size: 9}),
			text.NewCol(2, item.Status, props.Text{Size: 9}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(12,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, data.TotalAmount, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
