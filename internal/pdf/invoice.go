// Package pdf renders invoices to PDF.
package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

// InvoiceItem is one rendered line.
type InvoiceItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// ClientData is the billed party.
type ClientData struct {
	Name    string
	Email   string
	Address string
	City    string
	Country string
}

// CompanyData is the issuing party shown in the header.
type CompanyData struct {
	Name    string
	Email   string
	Address string
	VAT     string
}

// InvoiceData carries everything the renderer needs; it holds no model
// types so it can be built from any source.
type InvoiceData struct {
	Number      string
	IssueDate   string
	DueDate     string
	Status      string
	Currency    string
	Subtotal    decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
	Notes       string
	Terms       string
	Items       []InvoiceItem
	Client      ClientData
	Company     CompanyData
}

// InvoicePDF renders the invoice and returns the PDF bytes.
func InvoicePDF(data InvoiceData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, data.Company.Name, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, "INVOICE "+data.Number, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(5,
		text.NewCol(8, data.Company.Address, props.Text{Size: 8}),
		text.NewCol(4, "Issue date: "+data.IssueDate, props.Text{Size: 8, Align: align.Right}),
	)
	m.AddRow(5,
		text.NewCol(8, data.Company.Email, props.Text{Size: 8}),
		text.NewCol(4, "Due date: "+data.DueDate, props.Text{Size: 8, Align: align.Right}),
	)
	if data.Company.VAT != "" {
		m.AddRow(5, text.NewCol(12, "VAT "+data.Company.VAT, props.Text{Size: 8}))
	}

	m.AddRow(8)
	m.AddRow(5, text.NewCol(12, "Bill to", props.Text{Size: 8, Style: fontstyle.Bold}))
	m.AddRow(5, text.NewCol(12, data.Client.Name, props.Text{Size: 9}))
	for _, l := range []string{data.Client.Address, data.Client.City, data.Client.Country, data.Client.Email} {
		if l != "" {
			m.AddRow(4, text.NewCol(12, l, props.Text{Size: 8}))
		}
	}

	m.AddRow(8)
	m.AddRow(6,
		text.NewCol(6, "Description", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, "Qty", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRows(row.New(1).Add(col.New(12).Add(line.New())))
	for _, it := range data.Items {
		m.AddRow(6,
			text.NewCol(6, it.Description, props.Text{Size: 9}),
			text.NewCol(2, it.Quantity.String(), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(it.UnitPrice, data.Currency), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(it.TotalPrice, data.Currency), props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRows(row.New(1).Add(col.New(12).Add(line.New())))

	m.AddRow(6,
		text.NewCol(10, "Subtotal", props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, money(data.Subtotal, data.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(10, fmt.Sprintf("VAT %s%%", data.TaxRate.StringFixed(0)), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, money(data.TaxAmount, data.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		text.NewCol(10, "Total", props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, money(data.TotalAmount, data.Currency), props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
	)

	if data.Notes != "" {
		m.AddRow(8)
		m.AddRow(5, text.NewCol(12, "Notes", props.Text{Size: 8, Style: fontstyle.Bold}))
		m.AddRow(5, text.NewCol(12, data.Notes, props.Text{Size: 8}))
	}
	if data.Terms != "" {
		m.AddRow(5, text.NewCol(12, "Terms", props.Text{Size: 8, Style: fontstyle.Bold}))
		m.AddRow(5, text.NewCol(12, data.Terms, props.Text{Size: 8}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func money(d decimal.Decimal, currency string) string {
	symbol := currency
	if currency == "EUR" || currency == "" {
		symbol = "€"
	}
	return symbol + " " + d.StringFixed(2)
}
