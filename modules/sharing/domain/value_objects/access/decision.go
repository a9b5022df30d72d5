package access

// Result is the outcome of one authorization decision.
type Result string

const (
	ResultGranted Result = "GRANTED"
	ResultDenied  Result = "DENIED"
)

func (r Result) String() string {
	return string(r)
}

// Decision is a single allow/deny outcome plus a human-readable denial reason.
// There is no third state: every check resolves to GRANTED or DENIED.
type Decision struct {
	Result Result
	Reason string
}

func Granted() Decision {
	return Decision{Result: ResultGranted}
}

func Denied(reason string) Decision {
	return Decision{Result: ResultDenied, Reason: reason}
}

func (d Decision) Allowed() bool {
	return d.Result == ResultGranted
}
