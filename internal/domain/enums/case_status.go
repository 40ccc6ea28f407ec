package enums

type CaseStatus string

const (
	CaseStatusPending  CaseStatus = "pending"
	CaseStatusInReview CaseStatus = "in_review"
	CaseStatusResolved CaseStatus = "resolved"
)
