package report

// Status is the outcome label of a report entry or log line.
type Status int

// Statuses in increasing severity. An entry takes the most severe status
// logged to it.
const (
	StatusInfo Status = iota
	StatusPass
	StatusSkip
	StatusWarning
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusSkip:
		return "SKIP"
	case StatusWarning:
		return "WARNING"
	case StatusFail:
		return "FAIL"
	default:
		return "INFO"
	}
}

func (s Status) icon() string {
	switch s {
	case StatusPass:
		return "✅"
	case StatusSkip:
		return "⏭️"
	case StatusWarning:
		return "⚠️"
	case StatusFail:
		return "❌"
	default:
		return "ℹ️"
	}
}
