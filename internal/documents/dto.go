package documents

// uploadResponse is the aggregate body for the batch upload endpoint.
type uploadResponse struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	LoanID    string        `json:"loanId,omitempty"`
	FullName  string        `json:"fullName,omitempty"`
	Documents []FileResult  `json:"documents"`
	Results   *batchSummary `json:"results,omitempty"`
}

// batchSummary is attached whenever at least one file failed.
type batchSummary struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Errors     []FileFailure `json:"errors"`
}

// listResponse is the body for loan-scoped document listings.
type listResponse struct {
	Success         bool                         `json:"success"`
	Documents       []LocatedDocument            `json:"documents"`
	GroupedByFolder map[string][]LocatedDocument `json:"groupedByFolder,omitempty"`
}

// searchResponse is the body for term searches over document records.
type searchResponse struct {
	Success   bool       `json:"success"`
	Documents []Document `json:"documents"`
}
