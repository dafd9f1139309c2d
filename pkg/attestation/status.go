package attestation

import (
	"encoding/json"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
)

// Status is the caller-facing verification result. Code 0 means success;
// non-zero codes follow the attestation error kinds (1 argument error,
// 2 invalid format, 3 internal error).
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// StatusOK is the success status.
func StatusOK() Status {
	return Status{Code: 0, Message: "success", Details: ""}
}

// StatusFromError classifies err into a Status.
func StatusFromError(err error) Status {
	code, message, details := atterrors.Classify(err)
	return Status{Code: code, Message: message, Details: details}
}

// OK reports whether the status is a success.
func (s Status) OK() bool {
	return s.Code == 0
}

// String renders the status as JSON for logs and CLI output.
func (s Status) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return s.Message
	}
	return string(b)
}
