package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOwner     = "owner"
	FieldFile      = "file"
	FieldFileHash  = "file_hash"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldProcessed = "processed"
	FieldInserted  = "inserted"
	FieldUpdated   = "updated"
	FieldDeleted   = "deleted"
	FieldSkipped   = "skipped"
	FieldPeriod    = "period"
	FieldCategory  = "category"
	FieldAnomalies = "anomalies"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentImport    = "import"
	ComponentReconcile = "reconcile"
	ComponentAnalytics = "analytics"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSource    = "source"
)

// Operations defines standard operation names
const (
	OpImport    = "import"
	OpReconcile = "reconcile"
	OpSweep     = "sweep"
	OpAnalytics = "analytics_refresh"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
