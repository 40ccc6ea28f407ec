package enums

// Decision is a moderator verdict on a case in review. The first four apply
// to infringement and image_review cases, the last two to appeal cases.
type Decision string

const (
	DecisionIgnore       Decision = "ignore"
	DecisionWarn         Decision = "warn"
	DecisionDeleteStrike Decision = "delete_strike"
	DecisionExpel        Decision = "expel"
	DecisionAccept       Decision = "accept"
	DecisionReject       Decision = "reject"
)

// ResolutionExpired marks appeal cases closed by the session expiry sweep
// rather than by a moderator decision.
const ResolutionExpired = "expired"

func (d Decision) AppliesTo(caseType CaseType) bool {
	switch d {
	case DecisionIgnore, DecisionWarn, DecisionDeleteStrike, DecisionExpel:
		return caseType != CaseTypeAppeal
	case DecisionAccept, DecisionReject:
		return caseType == CaseTypeAppeal
	}
	return false
}
