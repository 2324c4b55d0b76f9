package models

// Requests for the analysis read API. Defined in domain for consistency and reuse.

type PhasesRequest struct {
	From string `query:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To   string `query:"to" json:"to" validate:"required,datetime=2006-01-02"`
}

type ReturnsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,alphanum,max=10"`
	Limit  int    `query:"limit" json:"limit" default:"8" validate:"gte=1,lte=800"`
}

type SummaryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,alphanum,max=10"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}
