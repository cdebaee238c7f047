package retry

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// throttlingCodes are API error codes returned when a store sheds load.
var throttlingCodes = map[string]struct{}{
	"ProvisionedThroughputExceededException": {},
	"LimitExceededException":                 {},
	"RequestLimitExceeded":                   {},
	"ThrottlingException":                    {},
	"Throttling":                             {},
	"RequestThrottled":                       {},
	"RequestThrottledException":              {},
	"TooManyRequestsException":               {},
	"SlowDown":                               {},
}

// serverErrorCodes are API error codes for failures on the service side.
// The request may or may not have been applied.
var serverErrorCodes = map[string]struct{}{
	"InternalServerError": {},
	"InternalError":       {},
	"ServiceUnavailable":  {},
}

// IsThrottling reports whether err carries one of the throttling codes.
func IsThrottling(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := throttlingCodes[apiErr.ErrorCode()]
		return ok
	}
	return false
}

// IsTransient reports whether err is worth retrying: throttling codes and
// HTTP 5xx/429 responses. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsThrottling(err) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := serverErrorCodes[apiErr.ErrorCode()]; ok {
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == 429 || code >= 500
	}
	return false
}
