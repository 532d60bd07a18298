package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"cellbench/backend/services/bench-server/internal/models"
)

// SessionData bundles everything one report needs. Callers assemble it
// from the repositories so the generator stays storage-free; optional
// fields are simply left out of the rendered table.
type SessionData struct {
	Session       models.BenchSession
	Recipe        models.Recipe
	Battery       *models.BatteryConfig
	Tasks         []models.JobTask
	Measurements  []models.Measurement
	Customer      *models.Customer
	WorkOrder     *models.WorkOrder
	WorkOrderItem *models.WorkOrderItem
	Technician    string
}

// Generator renders CMM-style session reports as PDF.
type Generator struct{}

// NewGenerator creates a report generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate produces an A4 PDF for a finished bench session.
func (g *Generator) Generate(data SessionData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	g.addHeader(pdf, data)
	g.addResultBanner(pdf, data.Session)
	g.addSessionInfo(pdf, data)
	g.addTaskTable(pdf, data.Tasks)
	g.addMeasurementSummary(pdf, data.Measurements)
	g.addSignature(pdf, data)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: generate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) addHeader(pdf *gofpdf.Fpdf, data SessionData) {
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 14, "Battery Test Report", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(100, 100, 100)
	if data.Recipe.CMMReference != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("CMM %s", data.Recipe.CMMReference), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(120, 120, 120)
	generated := fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2006-01-02 15:04 MST"))
	pdf.CellFormat(0, 6, generated, "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func (g *Generator) addResultBanner(pdf *gofpdf.Fpdf, session models.BenchSession) {
	r, gr, b := resultColor(session.OverallResult)
	y := pdf.GetY()

	pdf.SetFillColor(r, gr, b)
	pdf.Rect(10, y, 190, 18, "F")

	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(15, y+3)
	pdf.CellFormat(100, 12, bannerText(session), "", 0, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.SetXY(120, y+5)
	pdf.CellFormat(75, 8, fmt.Sprintf("Session #%d", session.ID), "", 0, "R", false, 0, "")

	pdf.SetY(y + 22)
	pdf.Ln(3)
}

func bannerText(session models.BenchSession) string {
	switch {
	case session.OverallResult != "":
		return strings.ToUpper(session.OverallResult)
	case session.Status == models.SessionRunning:
		return "IN PROGRESS"
	default:
		return strings.ToUpper(session.Status)
	}
}

func resultColor(result string) (r, g, b int) {
	switch result {
	case "pass":
		return 52, 168, 83
	case "fail":
		return 217, 48, 37
	default:
		return 120, 124, 126
	}
}

func (g *Generator) addSessionInfo(pdf *gofpdf.Fpdf, data SessionData) {
	type row struct {
		label string
		value string
	}

	rows := []row{
		{"Station", fmt.Sprintf("%d", data.Session.StationID)},
		{"Recipe", data.Recipe.Name},
		{"Started", data.Session.StartedAt.Format("2006-01-02 15:04:05")},
		{"Completed", formatTimePtr(data.Session.CompletedAt)},
		{"Status", data.Session.Status},
	}
	if data.Customer != nil {
		rows = append(rows, row{"Customer", data.Customer.Name})
	}
	if data.WorkOrder != nil {
		rows = append(rows, row{"Work Order", data.WorkOrder.OrderNumber})
	} else if data.Session.WorkOrderItemID != nil {
		rows = append(rows, row{"Work Order Item", fmt.Sprintf("#%d", *data.Session.WorkOrderItemID)})
	}
	if item := data.WorkOrderItem; item != nil && item.BatterySerial != "" {
		rows = append(rows, row{"Battery S/N", item.BatterySerial})
	}
	if data.Technician != "" {
		rows = append(rows, row{"Technician", data.Technician})
	}
	if cfg := data.Battery; cfg != nil {
		rows = append(rows,
			row{"Battery P/N", cfg.PartNumber},
			row{"Battery Model", cfg.ModelDescription},
			row{"Nominal Capacity", fmt.Sprintf("%d mAh", cfg.NominalCapacityMAH)},
			row{"Cells", fmt.Sprintf("%d x %.1f V nominal", cfg.CellCount, float64(cfg.NominalVoltageMV)/float64(cfg.CellCount)/1000)},
		)
	}
	if data.Session.Notes != "" {
		rows = append(rows, row{"Notes", data.Session.Notes})
	}

	pdf.SetFont("Arial", "B", 13)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 9, "Session", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Arial", "", 10)
	for _, r := range rows {
		pdf.SetFillColor(235, 235, 235)
		pdf.SetTextColor(60, 60, 60)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(45, 7, r.label, "1", 0, "L", true, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(145, 7, r.value, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (g *Generator) addTaskTable(pdf *gofpdf.Fpdf, tasks []models.JobTask) {
	pdf.SetFont("Arial", "B", 13)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 9, "Test Steps", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	if len(tasks) == 0 {
		pdf.SetFont("Arial", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No steps recorded", "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}

	pdf.SetFillColor(51, 77, 128)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(10, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 7, "Step", "1", 0, "L", true, 0, "")
	pdf.CellFormat(28, 7, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "Result", "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 7, "Duration", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Notes", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 8)
	for _, t := range tasks {
		if pdf.GetY() > 265 {
			pdf.AddPage()
		}

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(10, 6, fmt.Sprintf("%d", t.TaskNumber), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, truncate(t.Label, 42), "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 6, t.StepType, "1", 0, "L", false, 0, "")

		result := strings.ToUpper(t.StepResult)
		if result == "" {
			result = "-"
		}
		r, gr, b := stepResultColor(t.StepResult)
		pdf.SetTextColor(r, gr, b)
		pdf.CellFormat(20, 6, result, "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(22, 6, taskDuration(t), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, truncate(t.ResultNotes, 36), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func stepResultColor(result string) (r, g, b int) {
	switch result {
	case "pass":
		return 52, 168, 83
	case "fail":
		return 217, 48, 37
	default:
		return 60, 60, 60
	}
}

func taskDuration(t models.JobTask) string {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return "-"
	}
	mins := t.CompletedAt.Sub(*t.StartedAt).Minutes()
	return fmt.Sprintf("%.0f min", mins)
}

func (g *Generator) addMeasurementSummary(pdf *gofpdf.Fpdf, samples []models.Measurement) {
	if len(samples) == 0 {
		return
	}

	if pdf.GetY() > 230 {
		pdf.AddPage()
	}

	pdf.SetFont("Arial", "B", 13)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 9, "Recorded Telemetry", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	minV, maxV := samples[0].VoltageMV, samples[0].VoltageMV
	minI, maxI := samples[0].CurrentMA, samples[0].CurrentMA
	minT, maxT := samples[0].TemperatureC, samples[0].TemperatureC
	for _, s := range samples[1:] {
		if s.VoltageMV < minV {
			minV = s.VoltageMV
		}
		if s.VoltageMV > maxV {
			maxV = s.VoltageMV
		}
		if s.CurrentMA < minI {
			minI = s.CurrentMA
		}
		if s.CurrentMA > maxI {
			maxI = s.CurrentMA
		}
		if s.TemperatureC < minT {
			minT = s.TemperatureC
		}
		if s.TemperatureC > maxT {
			maxT = s.TemperatureC
		}
	}

	rows := [][2]string{
		{"Samples", fmt.Sprintf("%d", len(samples))},
		{"Window", fmt.Sprintf("%s to %s",
			samples[0].RecordedAt.Format("15:04:05"),
			samples[len(samples)-1].RecordedAt.Format("15:04:05"))},
		{"Voltage", fmt.Sprintf("%.3f V min / %.3f V max", float64(minV)/1000, float64(maxV)/1000)},
		{"Current", fmt.Sprintf("%.3f A min / %.3f A max", float64(minI)/1000, float64(maxI)/1000)},
		{"Temperature", fmt.Sprintf("%.1f C min / %.1f C max", minT, maxT)},
	}

	pdf.SetFont("Arial", "", 9)
	for _, r := range rows {
		pdf.SetFillColor(235, 235, 235)
		pdf.SetTextColor(60, 60, 60)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(45, 7, r[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(145, 7, r[1], "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (g *Generator) addSignature(pdf *gofpdf.Fpdf, data SessionData) {
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
	pdf.Ln(8)

	pdf.SetDrawColor(60, 60, 60)
	y := pdf.GetY()
	pdf.Line(15, y+10, 90, y+10)
	pdf.Line(120, y+10, 195, y+10)

	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(15, y+11)
	pdf.CellFormat(75, 5, "Technician Signature", "", 0, "L", false, 0, "")
	pdf.SetXY(120, y+11)
	pdf.CellFormat(75, 5, "Date", "", 1, "L", false, 0, "")

	pdf.SetY(-18)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	footer := fmt.Sprintf("cellbench session %d | recipe %q", data.Session.ID, data.Recipe.Name)
	pdf.CellFormat(0, 5, footer, "", 1, "C", false, 0, "")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
