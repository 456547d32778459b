package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

// StatusOverloaded is the status Anthropic answers with when it sheds load
const StatusOverloaded = 529

var (
	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded indicates the API quota was exceeded
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// APIError represents an error from the AI provider API
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	RetryAfter  *time.Duration
	IsPermanent bool // true for quota errors, false for rate limits
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// Is lets errors.Is match the rate limit and quota sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return e.IsPermanent
	case ErrRateLimited:
		return !e.IsPermanent && isThrottleStatus(e.StatusCode)
	}
	return false
}

func isThrottleStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == StatusOverloaded
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return isThrottleStatus(apiErr.StatusCode) && !apiErr.IsPermanent
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "overloaded")
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "insufficient_quota") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "billing")
}

// statusOf returns the HTTP status carried by an SDK error, or 0
func statusOf(err error) int {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode
	}
	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode
	}
	if strings.Contains(err.Error(), "429") {
		return http.StatusTooManyRequests
	}
	if strings.Contains(err.Error(), "529") {
		return StatusOverloaded
	}
	return 0
}

// ExtractAPIError extracts throttling details from a provider error.
// Errors that are not rate limits or quota exhaustion return nil.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	status := statusOf(err)
	if !isThrottleStatus(status) {
		return nil
	}

	errStr := err.Error()
	apiErr := &APIError{
		StatusCode: status,
		Message:    errStr,
		Type:       "rate_limit_error",
	}
	if status == StatusOverloaded {
		apiErr.Type = "overloaded_error"
	}

	// SDK errors include the JSON body in their message
	if jsonStart := strings.Index(errStr, "{"); jsonStart != -1 {
		jsonStr := errStr[jsonStart:]
		if jsonEnd := strings.LastIndex(jsonStr, "}"); jsonEnd != -1 {
			jsonStr = jsonStr[:jsonEnd+1]
			var body struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
				Error   *struct {
					Message string `json:"message"`
					Type    string `json:"type"`
				} `json:"error"`
			}
			if json.Unmarshal([]byte(jsonStr), &body) == nil {
				if body.Error != nil {
					body.Message, body.Type = body.Error.Message, body.Error.Type
				}
				if body.Message != "" {
					apiErr.Message = body.Message
				}
				if body.Type != "" {
					apiErr.Type = body.Type
				}
				apiErr.Code = body.Code
				apiErr.IsPermanent = body.Code == "insufficient_quota"
			}
		}
	}

	retryAfter := 60 * time.Second
	if apiErr.IsPermanent {
		retryAfter = time.Hour
	}
	apiErr.RetryAfter = &retryAfter
	return apiErr
}

// GetRetryDelay calculates the delay before retrying based on error type
func GetRetryDelay(err error, attempt int) time.Duration {
	shift := uint(min(max(attempt, 0), 10))

	if IsQuotaError(err) {
		return min(time.Hour*time.Duration(1<<shift), 24*time.Hour)
	}

	if IsRateLimitError(err) {
		delay := min(60*time.Second*time.Duration(1<<shift), 15*time.Minute)
		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay
	}

	return min(5*time.Second*time.Duration(1<<shift), 5*time.Minute)
}
