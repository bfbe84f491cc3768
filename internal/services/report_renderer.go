package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/jszwec/csvutil"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// RenderReport serialises report content into the requested format.
func RenderReport(content models.ReportContent, format models.ReportFormat) ([]byte, error) {
	switch format {
	case models.ReportFormatJSON:
		return json.MarshalIndent(content, "", "  ")
	case models.ReportFormatCSV:
		return renderCSV(content)
	case models.ReportFormatPDF:
		return renderPDF(content)
	}
	return nil, models.NewValidationError("format", fmt.Sprintf("unsupported report format %q", format))
}

// ============================================================================
// CSV
// ============================================================================

type observationCSVRow struct {
	ID                   string   `csv:"id"`
	Date                 string   `csv:"date"`
	Timestamp            string   `csv:"timestamp"`
	Latitude             float64  `csv:"latitude"`
	Longitude            float64  `csv:"longitude"`
	VegetationIndex      float64  `csv:"vegetation_index"`
	SoilMoisture         float64  `csv:"soil_moisture"`
	Rainfall             float64  `csv:"rainfall"`
	LandDegradationIndex float64  `csv:"land_degradation_index"`
	Temperature          *float64 `csv:"temperature,omitempty"`
	WindSpeed            *float64 `csv:"wind_speed,omitempty"`
	Humidity             *float64 `csv:"humidity,omitempty"`
	Source               string   `csv:"source"`
	QualityScore         float64  `csv:"quality_score"`
}

func renderCSV(content models.ReportContent) ([]byte, error) {
	rows := make([]observationCSVRow, 0, len(content.Observations))
	for _, obs := range content.Observations {
		row := observationCSVRow{
			ID:                   obs.ID.String(),
			Date:                 obs.Date.Format(utils.DateLayout),
			Timestamp:            obs.Timestamp.UTC().Format(time.RFC3339),
			VegetationIndex:      obs.VegetationIndex,
			SoilMoisture:         obs.SoilMoisture,
			Rainfall:             obs.Rainfall,
			LandDegradationIndex: obs.LandDegradationIndex,
			Temperature:          obs.Temperature,
			WindSpeed:            obs.WindSpeed,
			Humidity:             obs.Humidity,
			Source:               string(obs.Source),
			QualityScore:         obs.QualityScore,
		}
		if obs.Location != nil {
			row.Latitude = obs.Location.Lat()
			row.Longitude = obs.Location.Lon()
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		header, err := csvutil.Header(observationCSVRow{}, "csv")
		if err != nil {
			return nil, fmt.Errorf("failed to build csv header: %w", err)
		}
		var buf bytes.Buffer
		for i, h := range header {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(h)
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}

	out, err := csvutil.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode csv report: %w", err)
	}
	return out, nil
}

// ============================================================================
// PDF
// ============================================================================

const (
	pdfLinesPerPage = 48
	pdfLeftMargin   = 50
	pdfTopY         = 800
	pdfLineHeight   = 15
)

type pdfFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type pdfText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  pdfFont    `json:"font"`
}

type pdfPage struct {
	Content struct {
		Text []pdfText `json:"text"`
	} `json:"content"`
}

type pdfDocument struct {
	Paper  string             `json:"paper"`
	Origin string             `json:"origin"`
	Pages  map[string]pdfPage `json:"pages"`
}

func renderPDF(content models.ReportContent) ([]byte, error) {
	lines := reportLines(content)

	doc := pdfDocument{Paper: "A4P", Origin: "LowerLeft", Pages: map[string]pdfPage{}}
	for start := 0; start < len(lines); start += pdfLinesPerPage {
		end := min(start+pdfLinesPerPage, len(lines))
		var page pdfPage
		for i, line := range lines[start:end] {
			size := 10
			if start == 0 && i == 0 {
				size = 16
			}
			page.Content.Text = append(page.Content.Text, pdfText{
				Value: line,
				Pos:   [2]float64{pdfLeftMargin, float64(pdfTopY - i*pdfLineHeight)},
				Font:  pdfFont{Name: "Helvetica", Size: size},
			})
		}
		doc.Pages[strconv.Itoa(start/pdfLinesPerPage+1)] = page
	}

	layout, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build pdf layout: %w", err)
	}

	var out bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(layout), &out, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to render pdf report: %w", err)
	}
	return out.Bytes(), nil
}

func reportLines(content models.ReportContent) []string {
	r := content.Report
	s := content.Statistics
	lines := []string{
		r.Title,
		fmt.Sprintf("Region: %s (%s)", content.Region.Name, content.Region.Code),
		fmt.Sprintf("Period: %s to %s", r.StartDate.Format(utils.DateLayout), r.EndDate.Format(utils.DateLayout)),
		fmt.Sprintf("Generated: %s", r.GeneratedAt.UTC().Format(time.RFC1123)),
		"",
		"Summary",
		fmt.Sprintf("Observations: %d", s.Count),
		"Average vegetation index: " + formatOptional(s.AvgVegetationIndex),
		"Average soil moisture (%): " + formatOptional(s.AvgSoilMoisture),
		"Average rainfall (mm): " + formatOptional(s.AvgRainfall),
		"Average degradation index: " + formatOptional(s.AvgDegradation),
		"Degradation range: " + formatOptional(s.MinDegradation) + " - " + formatOptional(s.MaxDegradation),
	}

	if len(content.Predictions) > 0 {
		lines = append(lines, "", "Risk predictions")
		for _, p := range content.Predictions {
			lines = append(lines, fmt.Sprintf("%s  risk %.3f  confidence %.2f",
				p.PredictionDate.Format(utils.DateLayout), p.RiskScore, p.Confidence))
		}
	}

	if len(content.Observations) > 0 {
		lines = append(lines, "", "Observations (date, source, NDVI, soil %, rain mm, degradation)")
		for _, o := range content.Observations {
			lines = append(lines, fmt.Sprintf("%s  %-9s  %.3f  %.1f  %.1f  %.3f",
				o.Date.Format(utils.DateLayout), o.Source, o.VegetationIndex, o.SoilMoisture, o.Rainfall, o.LandDegradationIndex))
		}
	}
	return lines
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}
