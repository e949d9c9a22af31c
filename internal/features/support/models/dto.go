package models

// RecordSupportRequest represents the request body for recording support
type RecordSupportRequest struct {
	Amount      int64  `json:"amount"`
	DonorName   string `json:"donor_name"`
	IsAnonymous bool   `json:"is_anonymous"`
	Message     string `json:"message"`
}
