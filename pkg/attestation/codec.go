package attestation

import (
	"encoding/json"
	"unicode/utf8"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
)

// DecodeReport parses a unified report envelope from its JSON text form.
// Unknown fields are ignored; absent fields default to the empty string.
func DecodeReport(text string) (*UnifiedReport, error) {
	var report UnifiedReport
	if err := decode(text, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// EncodeReport renders a unified report envelope as JSON text.
func EncodeReport(report *UnifiedReport) (string, error) {
	return encode(report)
}

// DecodePolicy parses a verification policy from its JSON text form.
func DecodePolicy(text string) (*Policy, error) {
	var policy Policy
	if err := decode(text, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

// EncodePolicy renders a verification policy as JSON text.
func EncodePolicy(policy *Policy) (string, error) {
	return encode(policy)
}

// DecodeAttributes parses a canonical attribute record from JSON text.
func DecodeAttributes(text string) (*UnifiedAttributes, error) {
	var attrs UnifiedAttributes
	if err := decode(text, &attrs); err != nil {
		return nil, err
	}
	return &attrs, nil
}

// EncodeAttributes renders a canonical attribute record as JSON text.
func EncodeAttributes(attrs *UnifiedAttributes) (string, error) {
	return encode(attrs)
}

func decode(text string, v interface{}) error {
	if !utf8.ValidString(text) {
		return atterrors.New(atterrors.InvalidFormat, "input is not valid UTF-8")
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return atterrors.Wrap(err, atterrors.InvalidFormat, "json decode failed")
	}
	return nil
}

func encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", atterrors.Wrap(err, atterrors.InternalError, "json encode failed")
	}
	return string(b), nil
}
