package log

// Field names shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldEntity        = "entity"
	FieldEntityID      = "entity_id"
	FieldTransactionID = "transaction_id"
	FieldTxType        = "transaction_type"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldCacheKey      = "cache_key"
	FieldSheetsRef     = "sheets_ref"
)

const (
	ComponentHTTP        = "http"
	ComponentAuth        = "auth"
	ComponentPocket      = "pocket"
	ComponentTransaction = "transaction"
	ComponentBudget      = "budget"
	ComponentAnalytics   = "analytics"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentCache       = "cache"
	ComponentSecurity    = "security"
	ComponentRateLimit   = "rate_limit"
	ComponentBackend     = "backend"
)

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Fields collects attributes for one log line.
type Fields map[string]any

func (f Fields) withHTTPRequest(r requestInfo) Fields {
	f[FieldMethod] = r.method
	f[FieldPath] = r.path
	if r.query != "" {
		f[FieldQuery] = r.query
	}
	if r.userAgent != "" {
		f[FieldUserAgent] = r.userAgent
	}
	return f
}

func (f Fields) withTransaction(id int64, txType, amount, category string) Fields {
	f[FieldTransactionID] = id
	f[FieldTxType] = txType
	f[FieldAmount] = amount
	f[FieldCategory] = category
	return f
}

// Args flattens f into slog key/value arguments.
func (f Fields) Args() []any {
	args := make([]any, 0, len(f)*2)
	for k, v := range f {
		args = append(args, k, v)
	}
	return args
}
