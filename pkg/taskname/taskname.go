package taskname

const (
	// Target tasks
	TargetSummaryRefresh = "target:summary:refresh"

	// Audit tasks
	AuditArchive = "audit:archive"
)
