package types

// SuccessEnvelope wraps every 2xx JSON body so clients can rely on a
// stable top-level shape.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error payload. Details carries optional
// structured context, for example the coupon validation result attached
// to a rejected checkout.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx JSON body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
