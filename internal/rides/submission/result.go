package submission

import (
	"fmt"
	"net/http"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Failure codes.
const (
	CodeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	CodeInvalidPhone        = "INVALID_PHONE"
	CodeInvalidSchedule     = "INVALID_SCHEDULE"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeRateLimit           = "RATE_LIMIT"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	CodeWebhookError        = "WEBHOOK_ERROR"
	CodeInvalidResponse     = "INVALID_RESPONSE"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeDispatchRejected    = "DISPATCH_REJECTED"
	CodeLockUnavailable     = "LOCK_UNAVAILABLE"
)

const (
	msgDuplicate       = "This ride is already being submitted. Please wait for the first submission to finish."
	msgInvalidPhone    = "Invalid phone number format"
	msgRateLimit       = "Too many requests. Please wait a moment and try again."
	msgInvalidRequest  = "The dispatch service rejected the ride request as invalid."
	msgUnauthorized    = "The dispatch service rejected our credentials. Please contact support."
	msgUnavailable     = "The dispatch service is temporarily unavailable. Please try again later."
	msgInvalidResponse = "The dispatch service returned a response that could not be read."
	msgNetwork         = "Could not reach the dispatch service. Please check the connection and try again."
	msgAccepted        = "Ride submitted successfully."
	msgRejected        = "The dispatch service did not accept the ride."
	msgLockUnavailable = "Could not verify that this ride is not already being submitted. Please try again."
)

const maxDetailBody = 512

// Details carries the raw upstream answer for caller-side diagnostics.
type Details struct {
	HTTPStatus int    `json:"httpStatus,omitempty"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result is the uniform outcome of a submission.
type Result struct {
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	WebhookStatus  string   `json:"webhookStatus,omitempty"`
	WebhookMessage string   `json:"webhookMessage,omitempty"`
	Code           string   `json:"code,omitempty"`
	Details        *Details `json:"details,omitempty"`
}

// Succeeded reports whether the dispatch service accepted the ride.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

func failure(code, message string) Result {
	return Result{Status: StatusFailure, Code: code, Message: message}
}

// failureForStatus maps a non-2xx dispatch response to a failure result.
func failureForStatus(status int, body []byte) Result {
	var r Result
	switch {
	case status == http.StatusBadRequest:
		r = failure(CodeInvalidRequest, msgInvalidRequest)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		r = failure(CodeUnauthorized, msgUnauthorized)
	case status == http.StatusTooManyRequests:
		r = failure(CodeRateLimit, msgRateLimit)
	case status >= 500:
		r = failure(CodeServiceUnavailable, msgUnavailable)
	default:
		r = failure(CodeWebhookError, fmt.Sprintf("The dispatch service returned an unexpected error (status %d).", status))
	}
	r.Details = &Details{HTTPStatus: status, Body: truncate(string(body), maxDetailBody)}
	return r
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
