package models

// OutcomeKind classifies how a submission ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeLocalValidation
	OutcomeAuthFailure
	OutcomeDestroyed
	OutcomeTransportError
	OutcomeServiceError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeLocalValidation:
		return "local_validation_error"
	case OutcomeAuthFailure:
		return "auth_failure"
	case OutcomeDestroyed:
		return "destroyed"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeServiceError:
		return "service_error"
	}
	return "unknown"
}

// RecordOutcome maps the kind onto the audit vocabulary. Local validation
// failures never reach the service and have no audit counterpart.
func (k OutcomeKind) RecordOutcome() (Outcome, bool) {
	switch k {
	case OutcomeSuccess:
		return OutcomeRecordSuccess, true
	case OutcomeAuthFailure:
		return OutcomeRecordFailed, true
	case OutcomeDestroyed:
		return OutcomeRecordDestroyed, true
	case OutcomeTransportError, OutcomeServiceError:
		return OutcomeRecordError, true
	}
	return "", false
}

// OperationOutcome is what a submission produced. Result holds the encoded
// media on a successful encode, Secret the recovered payload on a successful
// decode. Stale is set when a newer submission or a reset superseded this
// one before it finished; stale outcomes are never applied to the session.
type OperationOutcome struct {
	Kind       OutcomeKind
	Direction  Direction
	MediaKind  MediaKind
	FileName   string
	Message    string
	StatusCode int

	Result     []byte
	ResultName string
	ResultType string
	SavedTo    string
	Secret     string

	Stale bool
}

func (o OperationOutcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}
