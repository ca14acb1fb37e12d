package apierrors

type ErrorCode = string

const (
	// ErrorCodeUnknown should not be used directly, it only indicates a failure in the error handling system in such a way that an error code was not assigned properly.
	ErrorCodeUnknown ErrorCode = "unknown"

	// ErrorCodeUnexpectedFailure signals an unexpected failure such as a 500 Internal Server Error.
	ErrorCodeUnexpectedFailure ErrorCode = "unexpected_failure"

	ErrorCodeValidationFailed     ErrorCode = "validation_failed"
	ErrorCodeBadJSON              ErrorCode = "bad_json"
	ErrorCodeProviderDisabled     ErrorCode = "provider_disabled"
	ErrorCodeProviderNotFound     ErrorCode = "provider_not_found"
	ErrorCodeOAuthProviderError   ErrorCode = "oauth_provider_error"
	ErrorCodeBadOAuthState        ErrorCode = "bad_oauth_state"
	ErrorCodeBadOAuthCallback     ErrorCode = "bad_oauth_callback"
	ErrorCodeCredentialsNotFound  ErrorCode = "credentials_not_found"
	ErrorCodeBadCredentials       ErrorCode = "bad_credentials"
	ErrorCodeNoAccessToken        ErrorCode = "no_access_token"
	ErrorCodeProviderUnavailable  ErrorCode = "provider_unavailable"
	ErrorCodeOverRequestRateLimit ErrorCode = "over_request_rate_limit"
	ErrorCodeRequestTimeout       ErrorCode = "request_timeout"
)
