package tdx

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/platform/inteldcap"
	"github.com/teeverse/attestation/internal/testutil/dcaptest"
	"github.com/teeverse/attestation/pkg/attestation"
)

func fixtureBody() *inteldcap.Report2Body {
	body := &inteldcap.Report2Body{}
	fill := func(b []byte, seed byte) {
		for i := range b {
			b[i] = seed + byte(i)
		}
	}
	fill(body.MrSeam[:], 0x10)
	fill(body.MrSignerSeam[:], 0x20)
	fill(body.MrTd[:], 0x30)
	fill(body.MrConfigID[:], 0x40)
	fill(body.MrOwner[:], 0x50)
	fill(body.MrOwnerConfig[:], 0x60)
	fill(body.RtMr[0][:], 0x70)
	fill(body.RtMr[1][:], 0x80)
	fill(body.RtMr[2][:], 0x90)
	fill(body.RtMr[3][:], 0xa0)
	copy(body.ReportData[:], "td-user-data")
	copy(body.ReportData[32:], "td-pubkey-hash")
	return body
}

func newVerifier(t *testing.T, version uint16, body *inteldcap.Report2Body) *Verifier {
	t.Helper()
	quote := dcaptest.BuildTdxQuote(t, version, body)
	report := dcaptest.Report(t, attestation.PlatformTdx, quote,
		dcaptest.Collateral(inteldcap.TeeTypeTdx))
	v, err := New(report, time.Now(), dcaptest.VerifyResult(inteldcap.QvResultOK))
	require.NoError(t, err)
	return v
}

func expectedPlatformMeasurement(body *inteldcap.Report2Body) string {
	return hex.EncodeToString(body.MrSeam[:]) +
		hex.EncodeToString(body.MrSignerSeam[:]) +
		hex.EncodeToString(body.MrTd[:]) +
		hex.EncodeToString(body.MrConfigID[:]) +
		hex.EncodeToString(body.MrOwner[:]) +
		hex.EncodeToString(body.MrOwnerConfig[:])
}

func TestParseUnifiedReportV4(t *testing.T) {
	body := fixtureBody()
	v := newVerifier(t, 4, body)
	require.NoError(t, v.VerifyPlatform())

	attrs, err := v.ParseUnifiedReport()
	require.NoError(t, err)
	assert.Equal(t, attestation.PlatformTdx, attrs.TeePlatform)
	assert.Equal(t, expectedPlatformMeasurement(body), attrs.PlatformMeasurement)
	assert.Equal(t, hex.EncodeToString(body.RtMr[0][:])+hex.EncodeToString(body.RtMr[1][:]), attrs.BootMeasurement)
	assert.Equal(t, hex.EncodeToString(body.RtMr[2][:])+hex.EncodeToString(body.RtMr[3][:]), attrs.TaMeasurement)
	assert.Equal(t, hex.EncodeToString(body.ReportData[:32]), attrs.UserData)
	assert.Equal(t, hex.EncodeToString(body.ReportData[32:]), attrs.HashOrPemPubkey)
	assert.Equal(t, "true", attrs.DebugDisabled)
}

func TestParseUnifiedReportV5(t *testing.T) {
	body := fixtureBody()
	v := newVerifier(t, 5, body)

	attrs, err := v.ParseUnifiedReport()
	require.NoError(t, err)
	assert.Equal(t, expectedPlatformMeasurement(body), attrs.PlatformMeasurement)
}

func TestDebugFlag(t *testing.T) {
	body := fixtureBody()
	body.TdAttributes = inteldcap.SgxFlagsDebug
	v := newVerifier(t, 4, body)

	attrs, err := v.ParseUnifiedReport()
	require.NoError(t, err)
	assert.Equal(t, "false", attrs.DebugDisabled)
}

func TestNewRejectsWrongTeeType(t *testing.T) {
	quote := dcaptest.BuildTdxQuote(t, 4, fixtureBody())
	// Clear the tee_type word: the quote claims to be SGX.
	quote[4], quote[5], quote[6], quote[7] = 0, 0, 0, 0

	report := dcaptest.Report(t, attestation.PlatformTdx, quote,
		dcaptest.Collateral(inteldcap.TeeTypeTdx))
	_, err := New(report, time.Now(), dcaptest.VerifyResult(inteldcap.QvResultOK))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InternalError))
}

func TestNewRejectsShortQuote(t *testing.T) {
	report := dcaptest.Report(t, attestation.PlatformTdx,
		make([]byte, inteldcap.QuoteHeaderSize), dcaptest.Collateral(inteldcap.TeeTypeTdx))
	_, err := New(report, time.Now(), dcaptest.VerifyResult(inteldcap.QvResultOK))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}

func TestVerifyPlatformFailureResult(t *testing.T) {
	quote := dcaptest.BuildTdxQuote(t, 4, fixtureBody())
	report := dcaptest.Report(t, attestation.PlatformTdx, quote,
		dcaptest.Collateral(inteldcap.TeeTypeTdx))
	v, err := New(report, time.Now(), dcaptest.VerifyResult(inteldcap.QvResultRevoked))
	require.NoError(t, err)

	err = v.VerifyPlatform()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVOKED")
}
