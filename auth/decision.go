package auth

// Outcome of a single authorization step.
type Outcome int

const (
	Skipped Outcome = iota
	Allowed
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	}
	return "skipped"
}

// Decision is returned by every guard. Err is only set on denial and is the
// error presented to the caller.
type Decision struct {
	Outcome Outcome
	Reason  string
	Err     error
}

func Skip() Decision {
	return Decision{Outcome: Skipped}
}

func Allow() Decision {
	return Decision{Outcome: Allowed}
}

func Deny(reason string, err error) Decision {
	return Decision{Outcome: Denied, Reason: reason, Err: err}
}

func (d Decision) IsDenied() bool {
	return d.Outcome == Denied
}
