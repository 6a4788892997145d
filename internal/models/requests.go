package models

// AnalysisRequest carries one collector table into the service facade.
type AnalysisRequest struct {
	// Source names where the CSV came from (path or URL); informational only.
	Source string
	CSV    []byte
}
