package enums

type CaseType string

const (
	CaseTypeInfringement CaseType = "infringement"
	CaseTypeImageReview  CaseType = "image_review"
	CaseTypeAppeal       CaseType = "appeal"
)
