// Package exitcode provides standardized exit codes for otapublish
package exitcode

// Exit codes for the otapublish CLI
const (
	Success             = 0
	GeneralError        = 1
	ConfigError         = 2
	ValidationError     = 3
	NotFoundError       = 4
	NetworkError        = 5
	ProtocolError       = 6
	ConfirmationTimeout = 7
	TransferError       = 8
	Interrupted         = 130
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case ValidationError:
		return "Validation error"
	case NotFoundError:
		return "Not found"
	case NetworkError:
		return "Network error"
	case ProtocolError:
		return "Asset store protocol error"
	case ConfirmationTimeout:
		return "Asset confirmation timed out"
	case TransferError:
		return "Asset upload failed"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
