package event

const (
	UploadReceivedQueue  = "monitoring_upload_received"
	ReportGeneratedQueue = "monitoring_report_generated"
)

// uploadJobMaxRetries bounds how often a failed upload job is retried by the pool.
const uploadJobMaxRetries = 2
