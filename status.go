package taskgraph

// StatusKind classifies the terminal or informational outcome of a task.
//
// Ordering is not meaningful beyond SUCCESS vs. non-success; callers should
// not compare the kind strings for ordering.
type StatusKind string

const (
	StatusSuccess StatusKind = "SUCCESS"
	StatusInfo    StatusKind = "INFO"
	StatusWarn    StatusKind = "WARN"
	StatusFail    StatusKind = "FAIL"
	StatusError   StatusKind = "ERROR"
	StatusPending StatusKind = "PENDING"
	StatusCancel  StatusKind = "CANCEL"
)

// Status is the sum-typed outcome of a task or an internal operation.
//
// Kind carries the classification; Message is a human-readable detail.
// Status is a value type and is safe to copy and compare with ==.
type Status struct {
	Kind    StatusKind
	Message string
}

// Success builds a SUCCESS status.
func Success(message string) Status { return Status{Kind: StatusSuccess, Message: message} }

// Fail builds a FAIL status.
func Fail(message string) Status { return Status{Kind: StatusFail, Message: message} }

// Cancel builds a CANCEL status.
func Cancel(message string) Status { return Status{Kind: StatusCancel, Message: message} }

// ErrorStatus builds an ERROR status, used for unrecoverable internal conditions
// such as graph construction failures.
func ErrorStatus(message string) Status { return Status{Kind: StatusError, Message: message} }

// Info builds an INFO status.
func Info(message string) Status { return Status{Kind: StatusInfo, Message: message} }

// Warn builds a WARN status.
func Warn(message string) Status { return Status{Kind: StatusWarn, Message: message} }

// IsSuccess reports whether the status represents a successful outcome.
func (s Status) IsSuccess() bool { return s.Kind == StatusSuccess }

// IsTerminal reports whether the status is one the scheduler treats as final
// for a task (as opposed to WARN/INFO/PENDING, which are non-terminal and
// ignored by the scheduler per spec.md §7).
func (s Status) IsTerminal() bool {
	switch s.Kind {
	case StatusSuccess, StatusFail, StatusError, StatusCancel:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	if s.Message == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ": " + s.Message
}
