package dto

// ReviewRequest payload for the metered code-review action.
type ReviewRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// ReviewResponse carries the generated review.
type ReviewResponse struct {
	Review   string `json:"review"`
	Language string `json:"language"`
	Model    string `json:"model"`
}
