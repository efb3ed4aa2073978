package prediction

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrDecode          = errors.New("decode failed")
	ErrModelNotReady   = errors.New("model not ready")
	ErrInference       = errors.New("inference failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrRead            = errors.New("read failed")
)

// Kind returns a short label for err used in logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrModelNotReady):
		return "model_not_ready"
	case errors.Is(err, ErrInference):
		return "inference"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrRead):
		return "read"
	default:
		return "unknown"
	}
}
