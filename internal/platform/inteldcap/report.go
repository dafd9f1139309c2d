package inteldcap

import (
	"encoding/base64"
	"encoding/json"

	"github.com/sirupsen/logrus"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/pkg/attestation"
)

// DecodeReportBody parses the json_report of an SGX/TDX report into the
// raw quote bytes and the optional collateral.
func DecodeReportBody(jsonReport string) ([]byte, *attestation.QlQveCollateral, error) {
	var body attestation.DcapReport
	if err := json.Unmarshal([]byte(jsonReport), &body); err != nil {
		return nil, nil, atterrors.Wrap(err, atterrors.InvalidFormat, "json decode failed")
	}
	if body.B64Quote == "" {
		return nil, nil, atterrors.New(atterrors.InvalidFormat, "missing required field b64_quote")
	}
	rawQuote, err := base64.StdEncoding.DecodeString(body.B64Quote)
	if err != nil {
		return nil, nil, atterrors.Wrap(err, atterrors.InvalidFormat, "base64 decode failed for b64_quote")
	}

	var collateral *attestation.QlQveCollateral
	if body.JSONCollateral != "" {
		collateral = &attestation.QlQveCollateral{}
		if err := json.Unmarshal([]byte(body.JSONCollateral), collateral); err != nil {
			return nil, nil, atterrors.Wrap(err, atterrors.InvalidFormat, "json decode failed for json_collateral")
		}
	}
	return rawQuote, collateral, nil
}

// CheckVerifyResult maps a vendor result code onto the verification
// outcome: OK passes, the warn-class codes pass with a logged warning,
// everything else fails.
func CheckVerifyResult(result QvResult, log *logrus.Entry) error {
	switch {
	case result == QvResultOK:
		return nil
	case result.Warning():
		log.WithField("result", result.String()).Warn("dcap quote verification passed with warning")
		return nil
	default:
		return atterrors.Newf(atterrors.InternalError,
			"fail to verify dcap quote, quote verification result: %s", result.String())
	}
}
