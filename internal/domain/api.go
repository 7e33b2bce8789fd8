package domain

type ApiResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	Status  int    `json:"status"`
}

type CreateSessionRequest struct {
	MerchantID  string `json:"merchant_id" binding:"required"`
	Email       string `json:"email" binding:"required"`
	PlanID      string `json:"plan_id" binding:"required"`
	Chain       string `json:"chain" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	TokenSymbol string `json:"token_symbol" binding:"required"`
}

type CreateSessionResponse struct {
	SessionID    string `json:"session_id"`
	PayAddress   string `json:"pay_address"`
	ExpiresAt    int64  `json:"expires_at"`
	SessionToken string `json:"session_token"`
}

type SubmitProofRequest struct {
	Proof string `json:"proof" binding:"required"`
}

type SubmitProofResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Retryable bool   `json:"retryable"`
}
