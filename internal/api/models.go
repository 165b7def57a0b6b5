package api

// APIResponse is the standardized response structure for ALL JSON endpoints
type APIResponse struct {
	OK      bool        `json:"ok"`               // true if successful, false if error
	Code    int         `json:"code"`             // positive (success), negative (error)
	Message string      `json:"message"`          // Human-readable message
	Result  interface{} `json:"result,omitempty"` // Response data (optional)
	Meta    interface{} `json:"meta,omitempty"`   // Metadata (optional)
}

// NewSuccessResponse creates a successful API response
func NewSuccessResponse(code int, message string, result interface{}) *APIResponse {
	return &APIResponse{
		OK:      true,
		Code:    code,
		Message: message,
		Result:  result,
	}
}

// NewSuccessResponseWithMeta creates a successful API response with metadata
func NewSuccessResponseWithMeta(code int, message string, result interface{}, meta interface{}) *APIResponse {
	return &APIResponse{
		OK:      true,
		Code:    code,
		Message: message,
		Result:  result,
		Meta:    meta,
	}
}

// NewErrorResponse creates an error API response
func NewErrorResponse(code int, message string) *APIResponse {
	return &APIResponse{
		OK:      false,
		Code:    code,
		Message: message,
	}
}

// Response codes
// Positive codes = Success operations
// Negative codes = Error operations
const (
	// Success codes (1-999)
	CodeSuccess        = 1  // Generic success
	CodeDataRetrieved  = 10 // Data retrieved successfully
	CodeConfigResolved = 40 // Configuration record resolved

	// Error codes (-1 to -999)
	CodeErrorGeneric    = -1  // Generic error
	CodeErrorBadRequest = -10 // Invalid request parameters
	CodeErrorNotFound   = -13 // Resource not found
	CodeErrorUnknownApp = -14 // Application name is not admin, kds or pos
	CodeErrorInternal   = -99 // Internal server error
)

// Common response messages
const (
	MessageUnknownApp = "Unknown application"
)

// HealthCheck represents the health check response
type HealthCheck struct {
	Healthy    bool   `json:"healthy"`
	Version    string `json:"version"`
	Timestamp  string `json:"timestamp"`
	DatabaseOK bool   `json:"database_ok"`
	ConfigOK   bool   `json:"config_ok"`
}

// ConfigMeta describes where a served record came from
type ConfigMeta struct {
	App     string `json:"app"`
	Version string `json:"version"`
}
