// Package tdx verifies Intel TDX attestation reports, quote format v4 and
// v5: the vendor quote verification library checks the chain against the
// embedded collateral, then the TD report body is parsed into canonical
// attributes.
package tdx

import (
	"encoding/hex"
	"strings"
	"time"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/common/logger"
	"github.com/teeverse/attestation/internal/platform/inteldcap"
	"github.com/teeverse/attestation/pkg/attestation"
)

var log = logger.New("tdx-verifier")

// VerifyQuoteFunc is the vendor entry point used by this verifier.
type VerifyQuoteFunc = func(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (uint32, error)

// Verifier holds one TDX verification session.
type Verifier struct {
	report     *attestation.UnifiedReport
	rawQuote   []byte
	quote      *inteldcap.TdxQuote
	collateral *attestation.QlQveCollateral
	at         time.Time
	verify     VerifyQuoteFunc
}

// New decodes the DCAP body of the report and locates the TD report body
// via the v4 or v5 layout.
func New(report *attestation.UnifiedReport, at time.Time, verify VerifyQuoteFunc) (*Verifier, error) {
	if err := report.Validate(attestation.PlatformTdx); err != nil {
		return nil, err
	}
	rawQuote, collateral, err := inteldcap.DecodeReportBody(report.JSONReport)
	if err != nil {
		return nil, err
	}
	quote, err := inteldcap.ParseTdxQuote(rawQuote)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		report:     report,
		rawQuote:   rawQuote,
		quote:      quote,
		collateral: collateral,
		at:         at,
		verify:     verify,
	}, nil
}

// VerifyPlatform runs the vendor quote verification against the embedded
// collateral. Degraded-but-acceptable results succeed with a warning.
func (v *Verifier) VerifyPlatform() error {
	if v.collateral == nil {
		return atterrors.New(atterrors.InvalidFormat, "missing required field json_collateral")
	}
	code, err := v.verify(v.rawQuote, v.collateral, v.at)
	if err != nil {
		return atterrors.Wrap(err, atterrors.InternalError, "dcap quote verification failed")
	}
	return inteldcap.CheckVerifyResult(inteldcap.QvResult(code), log)
}

// ParseUnifiedReport extracts the canonical attributes from the TD report
// body. Platform, boot and TA measurements are concatenations of the TD
// measurement registers.
func (v *Verifier) ParseUnifiedReport() (*attestation.UnifiedAttributes, error) {
	body := &v.quote.Body
	half := inteldcap.ReportDataSize / 2

	return &attestation.UnifiedAttributes{
		TeePlatform: v.report.TeePlatform,
		PlatformMeasurement: concatHex(
			body.MrSeam[:], body.MrSignerSeam[:], body.MrTd[:],
			body.MrConfigID[:], body.MrOwner[:], body.MrOwnerConfig[:]),
		BootMeasurement: concatHex(body.RtMr[0][:], body.RtMr[1][:]),
		TaMeasurement:   concatHex(body.RtMr[2][:], body.RtMr[3][:]),
		UserData:        hex.EncodeToString(body.ReportData[:half]),
		HashOrPemPubkey: hex.EncodeToString(body.ReportData[half:]),
		DebugDisabled:   debugDisabled(body.TdAttributes),
	}, nil
}

func concatHex(parts ...[]byte) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(hex.EncodeToString(p))
	}
	return sb.String()
}

func debugDisabled(tdAttributes uint64) string {
	if tdAttributes&inteldcap.SgxFlagsDebug == inteldcap.SgxFlagsDebug {
		return "false"
	}
	return "true"
}
