package probe

// Error type labels recorded in network.error_type.
const (
	ErrorInvalidRequest  = "invalid_request_error"
	ErrorAuthentication  = "authentication_error"
	ErrorPermission      = "permission_error"
	ErrorNotFound        = "not_found_error"
	ErrorRequestTooLarge = "request_too_large"
	ErrorRateLimit       = "rate_limit_error"
	ErrorAPI             = "api_error"
	ErrorServer          = "server_error"
	ErrorSocketHangUp    = "socket_hang_up"
	ErrorOverloaded      = "overloaded_error"
	ErrorClient          = "client_error"
	ErrorConnection      = "connection_error"
	ErrorUnknown         = "unknown_error"
)

// ClassifyStatus maps an HTTP status to an error label. 2xx maps to "".
// Status 0 stands for a connection-level failure.
func ClassifyStatus(code int) string {
	switch {
	case code == 0:
		return ErrorConnection
	case code >= 200 && code <= 299:
		return ""
	case code == 400:
		return ErrorInvalidRequest
	case code == 401:
		return ErrorAuthentication
	case code == 403:
		return ErrorPermission
	case code == 404:
		return ErrorNotFound
	case code == 413:
		return ErrorRequestTooLarge
	case code == 429:
		return ErrorRateLimit
	case code == 500:
		return ErrorAPI
	case code == 504:
		return ErrorSocketHangUp
	case code == 529:
		return ErrorOverloaded
	case code >= 501 && code <= 599:
		return ErrorServer
	case code >= 400 && code <= 499:
		return ErrorClient
	}
	return ErrorUnknown
}
