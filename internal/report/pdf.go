package report

import (
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
)

// writePDF renders a one-page summary with an up/down bar. The core fonts
// are Latin-1 only, so other runes are replaced.
func writePDF(path string, v recordView) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 14)
	pdf.SetTitle("checkit - "+ascii(v.Domain), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, ascii(v.Domain), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 6, "Generated at: "+v.GeneratedAt.UTC().Format("2006-01-02 15:04:05")+" UTC", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// uptime bar: green share over a red background
	const barW, barH = 120.0, 8.0
	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetFillColor(231, 76, 60)
	pdf.Rect(x, y, barW, barH, "F")
	if v.TotalScans > 0 {
		pdf.SetFillColor(46, 204, 113)
		pdf.Rect(x, y, barW*v.Uptime/100, barH, "F")
	}
	pdf.Ln(barH + 3)

	pdf.SetTextColor(20, 20, 20)
	rows := [][2]string{
		{"URL", v.URL},
		{"Scan ID", v.ID},
		{"Status", v.Status},
		{"Started", stamp(v.StartTime)},
		{"Last scan", stamp(v.LastScanTime)},
		{"Duration", fmt.Sprintf("%dh", v.DurationHours)},
		{"Progress", fmt.Sprintf("%.2f%%", v.Progress)},
		{"Total scans", fmt.Sprintf("%d", v.TotalScans)},
		{"Successful", fmt.Sprintf("%d (%.2f%%)", v.SuccessfulScans, v.Uptime)},
		{"Failed", fmt.Sprintf("%d (%.2f%%)", v.FailedScans, v.Downtime())},
		{"Last result", v.Details},
	}
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, r[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, ascii(r[1]), "", "L", false)
	}

	return pdf.OutputFileAndClose(path)
}

func ascii(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, s)
}
