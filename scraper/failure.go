package scraper

import "errors"

// FailureKind classifies why an extraction attempt produced no price
type FailureKind string

const (
	FailureNetworkError FailureKind = "network_error"
	FailureRateLimited  FailureKind = "rate_limited"
	FailureCaptcha      FailureKind = "captcha"
	FailureNoPriceFound FailureKind = "no_price_found"
	FailureParseError   FailureKind = "parse_error"

	// FailureIdentityUnavailable marks hostile URLs skipped because every
	// identity was burned; no fetch was attempted
	FailureIdentityUnavailable FailureKind = "identity_unavailable"
)

// FetchError wraps a fetch failure with its classification
type FetchError struct {
	Kind FailureKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyError maps an error to a FailureKind, defaulting to network_error
func ClassifyError(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FailureNetworkError
}
