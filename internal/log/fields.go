package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldAccountID   = "account_id"
	FieldAccountName = "account_name"
	FieldTxnID       = "transaction_id"
	FieldTxnKind     = "transaction_kind"
	FieldAmount      = "amount"
	FieldDate        = "date"
	FieldNetWorth    = "net_worth"
	FieldCount       = "count"
)

// Standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentImporter = "importer"
	ComponentSheets   = "sheets"
	ComponentRecalc   = "recalc"
)
