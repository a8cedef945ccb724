package circuitbreaker

// State of a breaker as reported on the system endpoints
type State string

const (
	// dispatches reach the target
	StateClosed State = "closed"

	// dispatches fail fast and are logged as failed calls
	StateOpen State = "open"

	// dispatches are let through until enough trial calls succeed
	StateHalfOpen State = "half-open"
)
