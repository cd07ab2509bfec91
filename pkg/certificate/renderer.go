package certificate

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Document carries everything the renderer needs to draw one certificate.
type Document struct {
	StudentName   string
	TrainingTitle string
	CompletedDate time.Time
	Number        string
}

// Renderer draws completion certificates as landscape A4 PDFs.
type Renderer struct {
	organization string
	address      string
}

// NewRenderer constructs a certificate renderer with the organization
// identity printed in the header and footer.
func NewRenderer(organization, address string) *Renderer {
	return &Renderer{organization: organization, address: address}
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

func formatDate(d time.Time) string {
	return fmt.Sprintf("%d %s %d", d.Day(), frenchMonths[d.Month()-1], d.Year())
}

// Render produces the PDF bytes for one certificate.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificat - "+doc.StudentName, true)
	pdf.SetAuthor(r.organization, true)
	pdf.SetCreator("ASTBA Training Platform", true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()

	// Double-line decorative border.
	pdf.SetDrawColor(51, 102, 179)
	pdf.SetLineWidth(1.2)
	pdf.Rect(6, 6, pageW-12, pageH-12, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(9, 9, pageW-18, pageH-18, "D")

	y := 24.0

	pdf.SetTextColor(38, 89, 166)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, 10, tr("ASTBA"), "", 1, "C", false, 0, "")
	y += 11

	pdf.SetTextColor(77, 77, 77)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, 6, tr(r.organization), "", 1, "C", false, 0, "")
	y += 6

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, 5, tr(r.address), "", 1, "C", false, 0, "")
	y += 12

	pdf.SetDrawColor(51, 102, 179)
	pdf.SetLineWidth(0.6)
	pdf.Line(pageW/2-65, y, pageW/2+65, y)
	y += 14

	pdf.SetTextColor(38, 89, 166)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, 10, tr("CERTIFICAT DE FORMATION"), "", 1, "C", false, 0, "")
	y += 16

	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "", 13)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, 6, tr("Nous certifions que"), "", 1, "C", false, 0, "")
	y += 12

	pdf.SetTextColor(26, 26, 26)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, 9, tr(doc.StudentName), "", 1, "C", false, 0, "")
	nameW := pdf.GetStringWidth(tr(doc.StudentName))
	pdf.SetLineWidth(0.4)
	pdf.Line(pageW/2-nameW/2-4, y+10.5, pageW/2+nameW/2+4, y+10.5)
	y += 15

	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "", 13)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, 6, tr("a complété avec succès les 4 niveaux de la formation"), "", 1, "C", false, 0, "")
	y += 11

	pdf.SetTextColor(38, 89, 166)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, 8, tr(doc.TrainingTitle), "", 1, "C", false, 0, "")
	y += 12

	pdf.SetTextColor(77, 77, 77)
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, 6, tr("Délivré le "+formatDate(doc.CompletedDate)), "", 1, "C", false, 0, "")
	y += 16

	// Signature columns.
	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "I", 11)
	leftX := pageW * 0.25
	rightX := pageW * 0.75
	pdf.SetXY(leftX-45, y)
	pdf.CellFormat(90, 5, tr("Le Responsable de la Formation"), "", 0, "C", false, 0, "")
	pdf.SetXY(rightX-45, y)
	pdf.CellFormat(90, 5, tr("Le Président de l'ASTBA"), "", 1, "C", false, 0, "")
	pdf.SetDrawColor(102, 102, 102)
	pdf.Line(leftX-30, y+16, leftX+30, y+16)
	pdf.Line(rightX-30, y+16, rightX+30, y+16)

	pdf.SetTextColor(128, 128, 128)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetXY(0, pageH-22)
	pdf.CellFormat(pageW, 4, tr("N° "+doc.Number), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 7)
	pdf.SetXY(0, pageH-17)
	pdf.CellFormat(pageW, 4, tr("Ce certificat est délivré par "+r.organization), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
