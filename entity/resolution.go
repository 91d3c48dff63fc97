package entity

// Outcome classifies the result of one reconciliation run.
type Outcome string

const (
	// OutcomeResolved means exactly one invite was identified as used.
	OutcomeResolved Outcome = "resolved"
	// OutcomeNone means no invite showed an increment; the join stays
	// unattributed and no role action is taken.
	OutcomeNone Outcome = "none"
)

// Resolution is the decision a reconciliation run emits for a join event.
// When several invites incremented inside the same window, Code holds the
// first match in fetch order and Candidates lists every incremented code so
// callers can see the ambiguity.
type Resolution struct {
	Outcome    Outcome
	Code       string
	Uses       int
	Candidates []string
}

// Resolved reports whether the run identified a used invite.
func (r Resolution) Resolved() bool {
	return r.Outcome == OutcomeResolved
}

// Ambiguous reports whether more than one invite incremented in the same
// window, i.e. the pick in Code relied on fetch order.
func (r Resolution) Ambiguous() bool {
	return len(r.Candidates) > 1
}
