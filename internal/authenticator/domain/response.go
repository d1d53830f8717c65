package domain

// ResultCode is the closed set of result codes the identity provider returns
// for an authentication submission.
type ResultCode string

const (
	ResultSuccess          ResultCode = "SUCCESS"
	ResultInvalidResponse  ResultCode = "INVALID_RESPONSE"
	ResultInvalidRequest   ResultCode = "INVALID_REQUEST"
	ResultInvalidChallenge ResultCode = "INVALID_CHALLENGE"
	ResultAccountBlocked   ResultCode = "ACCOUNT_BLOCKED"
	ResultInvalidUserID    ResultCode = "INVALID_USER_ID"
)

// Valid reports whether c is one of the enumerated result codes.
func (c ResultCode) Valid() bool {
	switch c {
	case ResultSuccess, ResultInvalidResponse, ResultInvalidRequest,
		ResultInvalidChallenge, ResultAccountBlocked, ResultInvalidUserID:
		return true
	}
	return false
}

// ServerResponse is the decoded body of an authentication submission.
// AttemptsLeft accompanies INVALID_RESPONSE; Duration (minutes) accompanies
// a temporary ACCOUNT_BLOCKED. The server is authoritative for both.
type ServerResponse struct {
	Code         ResultCode `json:"responseCode"`
	AttemptsLeft *int       `json:"attemptsLeft,omitempty"`
	Duration     *int       `json:"duration,omitempty"`
}
