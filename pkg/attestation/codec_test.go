package attestation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
)

func TestReportRoundTrip(t *testing.T) {
	report := &UnifiedReport{
		ReportVersion: ReportVersion,
		ReportType:    ReportTypePassport,
		TeePlatform:   PlatformCsv,
		JSONReport:    `{"b64_quote":"AAEC","str_chip_id":"NULK0X123"}`,
	}

	text, err := EncodeReport(report)
	require.NoError(t, err)

	decoded, err := DecodeReport(text)
	require.NoError(t, err)
	assert.Equal(t, report, decoded)
}

func TestDecodeReportIgnoresUnknownFields(t *testing.T) {
	text := `{"str_report_version":"1.0","str_report_type":"Passport",` +
		`"str_tee_platform":"TDX","json_report":"{}","str_future_field":"x"}`

	report, err := DecodeReport(text)
	require.NoError(t, err)
	assert.Equal(t, PlatformTdx, report.TeePlatform)
}

func TestDecodeReportDefaultsAbsentFields(t *testing.T) {
	report, err := DecodeReport(`{"str_tee_platform":"CSV"}`)
	require.NoError(t, err)
	assert.Equal(t, PlatformCsv, report.TeePlatform)
	assert.Empty(t, report.ReportVersion)
	assert.Empty(t, report.JSONReport)
}

func TestDecodeReportSyntaxError(t *testing.T) {
	_, err := DecodeReport(`{"str_report_version":`)
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}

func TestDecodeReportRejectsInvalidUTF8(t *testing.T) {
	_, err := DecodeReport(string([]byte{'{', 0xff, 0xfe, '}'}))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}

func TestPolicyRoundTrip(t *testing.T) {
	policy := &Policy{
		MainAttributes: []UnifiedAttributes{
			{TeePlatform: PlatformSgxDcap, MinIsvSvn: "3", DebugDisabled: "true"},
			{TeePlatform: PlatformCsv, UserData: "75736572"},
		},
	}

	text, err := EncodePolicy(policy)
	require.NoError(t, err)

	decoded, err := DecodePolicy(text)
	require.NoError(t, err)
	assert.Equal(t, policy, decoded)
}

func TestAttributesRoundTrip(t *testing.T) {
	attrs := &UnifiedAttributes{
		TeePlatform:     PlatformTdx,
		UserData:        "00112233",
		HashOrPemPubkey: "aabbccdd",
		Nonce:           "deadbeef",
		DebugDisabled:   "true",
	}

	text, err := EncodeAttributes(attrs)
	require.NoError(t, err)

	decoded, err := DecodeAttributes(text)
	require.NoError(t, err)
	assert.Equal(t, attrs, decoded)
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, StatusOK(), StatusFromError(nil))

	err := atterrors.New(atterrors.ArgumentError, "unknown platform").
		WithDetails("supported platform list: CSV, SGX_DCAP, TDX")
	status := StatusFromError(err)
	assert.Equal(t, 1, status.Code)
	assert.Equal(t, "unknown platform", status.Message)
	assert.Contains(t, status.Details, "SGX_DCAP")
	assert.False(t, status.OK())
}
