package domain

// Usage event actions recorded for lightweight local analytics.
// Recording failures are logged and never propagate to callers.
const (
	UsageAppStart   = "app_start"
	UsageAppExit    = "app_exit"
	UsageNext       = "next"
	UsageRelated    = "related"
	UsageContext    = "context"
	UsageSave       = "save"
	UsageIndexBatch = "index_batch"
)
