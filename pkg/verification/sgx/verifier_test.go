package sgx

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/platform/inteldcap"
	"github.com/teeverse/attestation/internal/testutil/dcaptest"
	"github.com/teeverse/attestation/pkg/attestation"
)

func fixtureBody() *inteldcap.ReportBody {
	body := &inteldcap.ReportBody{IsvProdID: 9, IsvSvn: 5}
	for i := range body.MrEnclave {
		body.MrEnclave[i] = byte(i)
	}
	for i := range body.MrSigner {
		body.MrSigner[i] = byte(0x40 + i)
	}
	copy(body.ReportData[:], "lower-half-user-data")
	copy(body.ReportData[32:], "upper-half-pubkey-hash")
	return body
}

func newVerifier(t *testing.T, body *inteldcap.ReportBody, result inteldcap.QvResult) *Verifier {
	t.Helper()
	quote := dcaptest.BuildSgxQuote(t, body)
	report := dcaptest.Report(t, attestation.PlatformSgxDcap, quote,
		dcaptest.Collateral(inteldcap.TeeTypeSgx))
	v, err := New(report, time.Now(), dcaptest.VerifyResult(result))
	require.NoError(t, err)
	return v
}

func TestVerifyPlatformOK(t *testing.T) {
	v := newVerifier(t, fixtureBody(), inteldcap.QvResultOK)
	assert.NoError(t, v.VerifyPlatform())
}

func TestVerifyPlatformWarningResultsPass(t *testing.T) {
	for _, result := range []inteldcap.QvResult{
		inteldcap.QvResultConfigNeeded,
		inteldcap.QvResultOutOfDate,
		inteldcap.QvResultOutOfDateConfigNeeded,
		inteldcap.QvResultSwHardeningNeeded,
		inteldcap.QvResultConfigAndSwHardeningNeeded,
	} {
		v := newVerifier(t, fixtureBody(), result)
		assert.NoError(t, v.VerifyPlatform(), result.String())
	}
}

func TestVerifyPlatformFailureResults(t *testing.T) {
	for _, result := range []inteldcap.QvResult{
		inteldcap.QvResultInvalidSignature,
		inteldcap.QvResultRevoked,
		inteldcap.QvResultUnspecified,
	} {
		v := newVerifier(t, fixtureBody(), result)
		err := v.VerifyPlatform()
		require.Error(t, err, result.String())
		assert.True(t, atterrors.IsKind(err, atterrors.InternalError))
		assert.Contains(t, err.Error(), result.String())
	}
}

func TestVerifyPlatformVendorError(t *testing.T) {
	quote := dcaptest.BuildSgxQuote(t, fixtureBody())
	report := dcaptest.Report(t, attestation.PlatformSgxDcap, quote,
		dcaptest.Collateral(inteldcap.TeeTypeSgx))
	v, err := New(report, time.Now(),
		func([]byte, *attestation.QlQveCollateral, time.Time) (uint32, error) {
			return uint32(inteldcap.QvResultUnspecified), errors.New("supplemental data size mismatch")
		})
	require.NoError(t, err)

	err = v.VerifyPlatform()
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InternalError))
}

func TestVerifyPlatformMissingCollateral(t *testing.T) {
	quote := dcaptest.BuildSgxQuote(t, fixtureBody())
	report := dcaptest.Report(t, attestation.PlatformSgxDcap, quote, nil)
	v, err := New(report, time.Now(), dcaptest.VerifyResult(inteldcap.QvResultOK))
	require.NoError(t, err)

	err = v.VerifyPlatform()
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}

func TestParseUnifiedReport(t *testing.T) {
	body := fixtureBody()
	v := newVerifier(t, body, inteldcap.QvResultOK)

	attrs, err := v.ParseUnifiedReport()
	require.NoError(t, err)
	assert.Equal(t, attestation.PlatformSgxDcap, attrs.TeePlatform)
	assert.Equal(t, hex.EncodeToString(body.MrEnclave[:]), attrs.TaMeasurement)
	assert.Equal(t, hex.EncodeToString(body.MrSigner[:]), attrs.Signer)
	assert.Equal(t, "9", attrs.ProdID)
	assert.Equal(t, "5", attrs.MinIsvSvn)
	assert.Equal(t, hex.EncodeToString(body.ReportData[:32]), attrs.UserData)
	assert.Equal(t, hex.EncodeToString(body.ReportData[32:]), attrs.HashOrPemPubkey)
	assert.Equal(t, "true", attrs.DebugDisabled)
}

func TestDebugFlag(t *testing.T) {
	body := fixtureBody()
	body.AttributesFlags = inteldcap.SgxFlagsDebug
	v := newVerifier(t, body, inteldcap.QvResultOK)

	attrs, err := v.ParseUnifiedReport()
	require.NoError(t, err)
	assert.Equal(t, "false", attrs.DebugDisabled)
}

func TestNewRejectsShortQuote(t *testing.T) {
	report := dcaptest.Report(t, attestation.PlatformSgxDcap,
		make([]byte, inteldcap.QuoteHeaderSize), dcaptest.Collateral(inteldcap.TeeTypeSgx))
	_, err := New(report, time.Now(), dcaptest.VerifyResult(inteldcap.QvResultOK))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}

func TestNewRejectsWrongPlatform(t *testing.T) {
	quote := dcaptest.BuildSgxQuote(t, fixtureBody())
	report := dcaptest.Report(t, attestation.PlatformTdx, quote, nil)
	_, err := New(report, time.Now(), dcaptest.VerifyResult(inteldcap.QvResultOK))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.ArgumentError))
}
