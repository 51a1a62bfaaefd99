// Package pdf genera el extracto de billetera de una marca.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Marca + ID          │  Periodo + fecha de emisión   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Apertura / Abonos / Débitos / Cierre               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Tipo | Motivo | Referencia | Monto | Saldo   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR de verificación + estado de conciliación         │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

var _ wallet.StatementGenerator = (*StatementGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorDebit   = &props.Color{Red: 160, Green: 30, Blue: 30}
	colorCredit  = &props.Color{Red: 20, Green: 110, Blue: 50}
)

// StatementGenerator implementa wallet.StatementGenerator usando Maroto v2.
type StatementGenerator struct{}

// NewStatementGenerator construye el generador.
func NewStatementGenerator() *StatementGenerator { return &StatementGenerator{} }

// GenerateStatementPDF genera el PDF y devuelve sus bytes.
func (g *StatementGenerator) GenerateStatementPDF(_ context.Context, st wallet.Statement) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Extracto de billetera", true).
		WithAuthor(nonEmpty(st.BrandName, st.BrandID), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(st))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(st))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(st.Transactions)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(st))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(st wallet.Statement) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(st.BrandName, st.BrandID), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Marca: "+st.BrandID, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("EXTRACTO DE BILLETERA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(period(st), props.Text{Size: 9, Align: align.Right, Top: 7}),
			text.New("Emitido: "+st.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func summaryRow(st wallet.Statement) core.Row {
	cell := func(label string, amount decimal.Decimal, c *props.Color) core.Col {
		return col.New(3).Add(
			text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorGray, Top: 1, Align: align.Center}),
			text.New(formatMoney(amount), props.Text{Style: fontstyle.Bold, Size: 11, Color: c, Top: 6, Align: align.Center}),
		)
	}
	return row.New(14).Add(
		cell("Saldo inicial", st.OpeningBalance, colorPrimary),
		cell("Abonos", st.TotalCredited, colorCredit),
		cell("Débitos", st.TotalDebited, colorDebit),
		cell("Saldo final", st.ClosingBalance, colorPrimary),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Tipo", 1, align.Center),
		h("Motivo", 2, align.Left),
		h("Referencia", 3, align.Left),
		h("Monto", 2, align.Right),
		h("Saldo", 2, align.Right),
	)
}

func tableRows(txs []entity.WalletTransaction) []core.Row {
	if len(txs) == 0 {
		return []core.Row{row.New(8).Add(col.New(12).Add(
			text.New("Sin movimientos en el periodo.", props.Text{Size: 8, Align: align.Center, Color: colorGray, Top: 2}),
		))}
	}
	rows := make([]core.Row, 0, len(txs))
	for _, tx := range txs {
		amount, c := formatMoney(tx.Amount), colorCredit
		if tx.Type == entity.WalletTxDebit {
			amount, c = "-"+amount, colorDebit
		}
		rows = append(rows, row.New(6).Add(
			col.New(2).Add(text.New(tx.CreatedAt.Format("02/01/2006 15:04"), props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(1).Add(text.New(tx.Type, props.Text{Size: 7, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(nonEmpty(tx.Reason, "—"), props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(3).Add(text.New(nonEmpty(tx.ReferenceID, "—"), props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(2).Add(text.New(amount, props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1, Color: c})),
			col.New(2).Add(text.New(formatMoney(tx.ResultingBalance), props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

// footerRow QR con el resumen verificable y el estado de conciliación.
func footerRow(st wallet.Statement) core.Row {
	status := "Conciliado: el saldo coincide con el replay del historial."
	if !st.Consistent {
		status = "ATENCIÓN: el saldo no coincide con el replay del historial. Contacte a soporte."
	}
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(verificationPayload(st), props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New(status, props.Text{Style: fontstyle.Bold, Size: 8, Top: 4, Left: 3, Color: colorPrimary}),
			text.New(fmt.Sprintf("%d movimientos, %d compensaciones por fallos del transportador.",
				len(st.Transactions), st.Compensations), props.Text{Size: 8, Top: 12, Left: 3, Color: colorGray}),
			text.New("Los débitos corresponden a envíos confirmados; las compensaciones devuelven "+
				"el monto de envíos que el transportador no pudo reservar.",
				props.Text{Size: 7, Top: 20, Left: 3, Color: colorGray}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func verificationPayload(st wallet.Statement) string {
	return strings.Join([]string{
		st.BrandID,
		st.OpeningBalance.StringFixed(2),
		st.ClosingBalance.StringFixed(2),
		fmt.Sprint(len(st.Transactions)),
		st.GeneratedAt.Format("20060102T150405Z"),
	}, "|")
}

func period(st wallet.Statement) string {
	from, to := "inicio", "hoy"
	if st.From != nil {
		from = st.From.Format("02/01/2006")
	}
	if st.To != nil {
		to = st.To.Format("02/01/2006")
	}
	return "Periodo: " + from + " - " + to
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney dos decimales con separador de miles. Ej: 1234567.5 → "1,234,567.50"
func formatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	out := string(buf) + frac
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}
