package http

// APIResponse is the envelope every API endpoint writes. The HTTP status is
// always 200; Status carries the logical outcome.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"Symbol"`
	Message string                 `json:"message,omitempty" example:"Symbol is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListDataResponse wraps a bounded list. Limit is the cap the query ran with,
// so Total == Limit hints that more rows exist.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
	Limit int         `json:"limit,omitempty"`
}

// HealthStatus is written by liveness endpoints outside the envelope.
type HealthStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
