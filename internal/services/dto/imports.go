package dto

// ImportSummary counts the outcome of a best-effort bulk import.
type ImportSummary struct {
	TotalRecords int `json:"totalRecords"`
	SuccessCount int `json:"successCount"`
	ErrorCount   int `json:"errorCount"`
}

type ImportSuccess struct {
	Row   int         `json:"row"`
	ID    interface{} `json:"id"`
	NatID string      `json:"nat_id,omitempty"`
}

type ImportRowError struct {
	Row   int               `json:"row"`
	Error string            `json:"error"`
	Data  map[string]string `json:"data,omitempty"`
}

// ImportResult is returned by every best-effort import; one bad row never aborts the rest.
type ImportResult struct {
	Summary        ImportSummary    `json:"summary"`
	SuccessRecords []ImportSuccess  `json:"successRecords"`
	Errors         []ImportRowError `json:"errors"`
}

func NewImportResult() *ImportResult {
	return &ImportResult{
		SuccessRecords: []ImportSuccess{},
		Errors:         []ImportRowError{},
	}
}

func (r *ImportResult) AddSuccess(row int, id interface{}, natID string) {
	r.Summary.TotalRecords++
	r.Summary.SuccessCount++
	r.SuccessRecords = append(r.SuccessRecords, ImportSuccess{Row: row, ID: id, NatID: natID})
}

func (r *ImportResult) AddError(row int, msg string, data map[string]string) {
	r.Summary.TotalRecords++
	r.Summary.ErrorCount++
	r.Errors = append(r.Errors, ImportRowError{Row: row, Error: msg, Data: data})
}
