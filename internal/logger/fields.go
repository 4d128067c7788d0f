package logger

// Log field names used across the service so log queries stay stable.
const (
	FieldRequestID  = "requestId"
	FieldContactID  = "contactId"
	FieldPrimaryID  = "primaryId"
	FieldDemotedIDs = "demotedIds"
	FieldPlan       = "plan"
	FieldOp         = "op"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDuration   = "duration"
	FieldError      = "error"
)
