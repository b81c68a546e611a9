package models

// Requests for the market HTTP endpoints. Defined in domain for consistency and reuse.

type QuoteRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type QuotesRequest struct {
	Symbols []string `query:"symbols" json:"symbols" validate:"required,min=1,max=50,dive,required"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Range  string `query:"range" json:"range" default:"1mo" validate:"oneof=1w 1mo 3mo 1y max"`
}

type AnalysisRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type SignalHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=200"`
}
