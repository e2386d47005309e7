package infra

// pdf.go renders the purchase offer handed to a seller at the end of a
// valuation session: client, date, one line per item with the offered price
// per modality, and the totals.

import (
	"fmt"
	"os"
	"path/filepath"

	"entrepeques/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// OfertaLinea is one printable row of the offer.
type OfertaLinea struct {
	Descripcion   string
	Modalidad     string
	Cantidad      int
	PrecioCompra  decimal.Decimal
	PrecioConsig  *decimal.Decimal
	CreditoTienda decimal.Decimal
}

// GenerateOfertaPDF writes oferta_{id}.pdf under storagePath (created if
// needed) and returns its path.
func GenerateOfertaPDF(v *model.Valuacion, lineas []OfertaLinea, tienda, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("oferta_%s.pdf", v.ID))

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr(tienda), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, tr("Oferta de compra"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	cliente := ""
	if v.Cliente != nil {
		cliente = v.Cliente.Nombre
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW/2, 5, tr("Cliente: "+cliente), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 5, "Fecha: "+v.CreatedAt.Format("02/01/2006"), "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW, 5, tr("Folio: ")+v.ID.String(), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// ── Items ────────────────────────────────────────────────────────────────
	cols := []float64{contentW * 0.38, contentW * 0.14, contentW * 0.08, contentW * 0.14, contentW * 0.13, contentW * 0.13}
	headers := []string{"Artículo", "Modalidad", "Cant", "Compra", "Consignación", "Crédito"}
	pdf.SetFont("Helvetica", "B", 8)
	for i, h := range headers {
		ln := 0
		if i == len(headers)-1 {
			ln = 1
		}
		pdf.CellFormat(cols[i], 6, tr(h), "B", ln, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 8)
	for _, l := range lineas {
		desc := l.Descripcion
		if len([]rune(desc)) > 40 {
			desc = string([]rune(desc)[:39]) + "…"
		}
		consig := "-"
		if l.PrecioConsig != nil {
			consig = "$" + l.PrecioConsig.StringFixed(2)
		}
		pdf.CellFormat(cols[0], 5, tr(desc), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 5, tr(l.Modalidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(cols[2], 5, fmt.Sprintf("%d", l.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(cols[3], 5, "$"+l.PrecioCompra.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[4], 5, consig, "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[5], 5, "$"+l.CreditoTienda.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	if v.TotalCompra != nil {
		pdf.CellFormat(contentW*0.7, 6, tr("Total compra directa:"), "", 0, "R", false, 0, "")
		pdf.CellFormat(contentW*0.3, 6, "$"+v.TotalCompra.StringFixed(2), "", 1, "R", false, 0, "")
	}
	if v.TotalConsignacion != nil && !v.TotalConsignacion.IsZero() {
		pdf.CellFormat(contentW*0.7, 6, tr("Total consignación:"), "", 0, "R", false, 0, "")
		pdf.CellFormat(contentW*0.3, 6, "$"+v.TotalConsignacion.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(contentW, 4, tr("Precios válidos el día de la valuación. El crédito en tienda aplica solo en compras dentro de la tienda."), "", "C", false)

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
