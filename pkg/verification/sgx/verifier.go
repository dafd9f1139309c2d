// Package sgx verifies SGX-DCAP attestation reports: the vendor quote
// verification library checks the ECDSA chain against the embedded
// collateral, then the quote body is parsed into canonical attributes.
package sgx

import (
	"encoding/hex"
	"strconv"
	"time"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/common/logger"
	"github.com/teeverse/attestation/internal/platform/inteldcap"
	"github.com/teeverse/attestation/pkg/attestation"
)

var log = logger.New("sgx-verifier")

// VerifyQuoteFunc is the vendor entry point used by this verifier.
type VerifyQuoteFunc = func(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (uint32, error)

// Verifier holds one SGX verification session.
type Verifier struct {
	report     *attestation.UnifiedReport
	rawQuote   []byte
	quote      *inteldcap.Quote3
	collateral *attestation.QlQveCollateral
	at         time.Time
	verify     VerifyQuoteFunc
}

// New decodes the DCAP body of the report.
func New(report *attestation.UnifiedReport, at time.Time, verify VerifyQuoteFunc) (*Verifier, error) {
	if err := report.Validate(attestation.PlatformSgxDcap); err != nil {
		return nil, err
	}
	rawQuote, collateral, err := inteldcap.DecodeReportBody(report.JSONReport)
	if err != nil {
		return nil, err
	}
	quote, err := inteldcap.ParseQuote3(rawQuote)
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

// ParseUnifiedReport extracts the canonical attributes from the quote
// body. The lower half of report data is caller user data, the upper half
// the bound public key hash.
func (v *Verifier) ParseUnifiedReport() (*attestation.UnifiedAttributes, error) {
	body := &v.quote.Body
	half := inteldcap.ReportDataSize / 2

	return &attestation.UnifiedAttributes{
		TeePlatform:     v.report.TeePlatform,
		TaMeasurement:   hex.EncodeToString(body.MrEnclave[:]),
		Signer:          hex.EncodeToString(body.MrSigner[:]),
		ProdID:          strconv.Itoa(int(body.IsvProdID)),
		MinIsvSvn:       strconv.Itoa(int(body.IsvSvn)),
		UserData:        hex.EncodeToString(body.ReportData[:half]),
		HashOrPemPubkey: hex.EncodeToString(body.ReportData[half:]),
		DebugDisabled:   debugDisabled(body.AttributesFlags),
	}, nil
}

func debugDisabled(flags uint64) string {
	if flags&inteldcap.SgxFlagsDebug == inteldcap.SgxFlagsDebug {
		return "false"
	}
	return "true"
}
