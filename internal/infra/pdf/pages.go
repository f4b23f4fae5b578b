package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// A4 portrait layout in millimetres.
const (
	pageWidth     = 210.0
	pageHeight    = 297.0
	pageMargin    = 15.0
	captionHeight = 10.0

	// naturalDPI bounds image size on the page so small photos are not blown up.
	naturalDPI = 150.0
	mmPerInch  = 25.4
)

func newDocument() *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreator("expense-claim-bfa", true)
	return doc
}

func output(doc *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// imagePage renders one JPEG centered on an A4 page, scaled to fit the
// margins, with caption printed at the foot.
func imagePage(jpegData []byte, widthPx, heightPx int, caption string) ([]byte, error) {
	if widthPx <= 0 || heightPx <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", widthPx, heightPx)
	}

	doc := newDocument()
	doc.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	doc.RegisterImageOptionsReader("receipt", opts, bytes.NewReader(jpegData))
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("embedding image: %w", err)
	}

	availW := pageWidth - 2*pageMargin
	availH := pageHeight - 2*pageMargin - captionHeight
	w := float64(widthPx) / naturalDPI * mmPerInch
	h := float64(heightPx) / naturalDPI * mmPerInch
	scale := min(availW/w, availH/h, 1)
	w, h = w*scale, h*scale

	x := (pageWidth - w) / 2
	y := pageMargin + (availH-h)/2
	doc.ImageOptions("receipt", x, y, w, h, false, opts, 0, "")

	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(90, 90, 90)
	doc.SetXY(pageMargin, pageHeight-pageMargin-captionHeight+2)
	doc.CellFormat(availW, captionHeight-2, tr(caption), "", 0, "C", false, 0, "")

	return output(doc)
}

// placeholderPage records a file that could not be embedded.
func placeholderPage(fileName, title, detail string) ([]byte, error) {
	doc := newDocument()
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetDrawColor(200, 200, 200)
	doc.Rect(pageMargin, pageMargin, pageWidth-2*pageMargin, 70, "D")

	doc.SetXY(pageMargin+8, pageMargin+10)
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")

	doc.SetX(pageMargin + 8)
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 8, tr("File: "+fileName), "", 1, "L", false, 0, "")

	if detail != "" {
		doc.SetX(pageMargin + 8)
		doc.SetFont("Helvetica", "", 10)
		doc.SetTextColor(120, 30, 30)
		doc.MultiCell(pageWidth-2*pageMargin-16, 6, tr(detail), "", "L", false)
	}

	return output(doc)
}

func unsupportedPage(fileName, mimeType string) ([]byte, error) {
	return placeholderPage(fileName, "Attachment could not be embedded",
		fmt.Sprintf("Files of type %q cannot be included in the receipts PDF. The original file was not sent.", mimeType))
}

func errorPage(fileName string, cause error) ([]byte, error) {
	return placeholderPage(fileName, "Attachment failed to process", "Error: "+cause.Error())
}
