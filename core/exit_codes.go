package core

// Exit codes used when the process terminates.
// Signal-based codes follow the Unix convention of 128 + signal number.
const (
	// ExitCodeSuccess indicates every cleanup callback settled before the deadline (exit code 0)
	ExitCodeSuccess = 0

	// ExitCodeError indicates a startup failure (exit code 1)
	ExitCodeError = 1

	// ExitCodeTimeout is the default code used when the shutdown deadline fires first
	ExitCodeTimeout = 1

	// ExitCodeSIGINT indicates termination due to SIGINT (Ctrl+C)
	// Convention: 128 + 2 (SIGINT) = 130
	ExitCodeSIGINT = 130

	// ExitCodeSIGTERM indicates termination due to SIGTERM
	// Convention: 128 + 15 (SIGTERM) = 143
	ExitCodeSIGTERM = 143
)

// ExitCodeName returns a human-readable name for an exit code.
// ExitCodeTimeout shares its value with ExitCodeError and is reported as "error".
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}
