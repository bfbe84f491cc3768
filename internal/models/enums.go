package models

// Source identifies where an observation came from.
type Source string

const (
	SourceSatellite Source = "satellite"
	SourceGround    Source = "ground"
	SourceModel     Source = "model"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceSatellite, SourceGround, SourceModel:
		return true
	}
	return false
}

type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

type FileType string

const (
	FileTypeCSV     FileType = "csv"
	FileTypeGeoJSON FileType = "geojson"
)

func (f FileType) IsValid() bool {
	return f == FileTypeCSV || f == FileTypeGeoJSON
}

type ReportType string

const (
	ReportTypeRiskAssessment ReportType = "risk_assessment"
	ReportTypeTrendAnalysis  ReportType = "trend_analysis"
	ReportTypeComparative    ReportType = "comparative"
	ReportTypePrediction     ReportType = "prediction"
)

func (r ReportType) IsValid() bool {
	switch r {
	case ReportTypeRiskAssessment, ReportTypeTrendAnalysis, ReportTypeComparative, ReportTypePrediction:
		return true
	}
	return false
}

// DisplayName is the human label used in report titles.
func (r ReportType) DisplayName() string {
	switch r {
	case ReportTypeRiskAssessment:
		return "Risk Assessment"
	case ReportTypeTrendAnalysis:
		return "Trend Analysis"
	case ReportTypeComparative:
		return "Comparative Analysis"
	case ReportTypePrediction:
		return "Prediction"
	}
	return string(r)
}

type ReportFormat string

const (
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
)

func (f ReportFormat) IsValid() bool {
	switch f {
	case ReportFormatPDF, ReportFormatCSV, ReportFormatJSON:
		return true
	}
	return false
}

func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatCSV:
		return "text/csv"
	}
	return "application/json"
}

// TimeRange is a statistics window preset. Anything other than the known presets is unbounded.
type TimeRange string

const (
	TimeRange7Days  TimeRange = "7d"
	TimeRange30Days TimeRange = "30d"
	TimeRange1Year  TimeRange = "1y"
	TimeRangeAll    TimeRange = "all"

	DefaultTimeRange = TimeRange30Days
)

// Normalize maps empty input to DefaultTimeRange and anything unrecognised to TimeRangeAll.
func (t TimeRange) Normalize() TimeRange {
	switch t {
	case "":
		return DefaultTimeRange
	case TimeRange7Days, TimeRange30Days, TimeRange1Year, TimeRangeAll:
		return t
	}
	return TimeRangeAll
}

// Days returns the window length, or 0 for an unbounded window.
func (t TimeRange) Days() int {
	switch t {
	case TimeRange7Days:
		return 7
	case TimeRange30Days:
		return 30
	case TimeRange1Year:
		return 365
	}
	return 0
}
