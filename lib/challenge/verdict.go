package challenge

// Verdict is the outcome of a verification. Every value is a normal answer;
// an unknown challenge is not an error.
type Verdict int

const (
	// MissingParameters: the ID or the answer was empty.
	MissingParameters Verdict = iota + 1
	// UnknownChallenge: nothing is recorded under the ID.
	UnknownChallenge
	// IncompleteChallenge: the challenge exists but its image or solution is
	// missing.
	IncompleteChallenge
	// Correct: the answer matches the recorded solution.
	Correct
	// Wrong: the answer does not match.
	Wrong
)

// String returns the status string clients receive for v.
func (v Verdict) String() string {
	switch v {
	case MissingParameters:
		return "wrong-parameters"
	case UnknownChallenge:
		return "requestId-unknown"
	case IncompleteChallenge:
		return "no-captcha-found"
	case Correct:
		return "correct"
	case Wrong:
		return "wrong"
	default:
		return "unknown"
	}
}

// Checked reports whether the answer was actually compared against a
// solution, i.e. the verdict is Correct or Wrong.
func (v Verdict) Checked() bool {
	return v == Correct || v == Wrong
}
