// Package dcaptest builds Intel SGX/TDX quote and report fixtures for
// tests, together with fake vendor verification entry points.
package dcaptest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teeverse/attestation/internal/platform/inteldcap"
	"github.com/teeverse/attestation/pkg/attestation"
)

// Collateral returns a fully populated collateral fixture.
func Collateral(teeType uint32) *attestation.QlQveCollateral {
	return &attestation.QlQveCollateral{
		Version:               3,
		TeeType:               teeType,
		PckCrlIssuerChain:     "-----BEGIN CERTIFICATE-----fixture-----END CERTIFICATE-----",
		RootCaCrl:             "308201...fixture",
		PckCrl:                "308202...fixture",
		TcbInfoIssuerChain:    "-----BEGIN CERTIFICATE-----fixture-----END CERTIFICATE-----",
		TcbInfo:               `{"tcbInfo":{}}`,
		QeIdentityIssuerChain: "-----BEGIN CERTIFICATE-----fixture-----END CERTIFICATE-----",
		QeIdentity:            `{"enclaveIdentity":{}}`,
	}
}

func marshalBody(t *testing.T, v interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	return buf.Bytes()
}

// BuildSgxQuote assembles a v3 SGX quote around the given report body.
func BuildSgxQuote(t *testing.T, body *inteldcap.ReportBody) []byte {
	t.Helper()
	header := make([]byte, inteldcap.QuoteHeaderSize)
	binary.LittleEndian.PutUint16(header[0:2], 3)
	binary.LittleEndian.PutUint16(header[2:4], 2)
	raw := append(header, marshalBody(t, body)...)
	return append(raw, 0, 0, 0, 0)
}

// BuildTdxQuote assembles a TDX quote of the given header version around
// the given report body.
func BuildTdxQuote(t *testing.T, version uint16, body *inteldcap.Report2Body) []byte {
	t.Helper()
	header := make([]byte, inteldcap.QuoteHeaderSize)
	binary.LittleEndian.PutUint16(header[0:2], version)
	binary.LittleEndian.PutUint32(header[4:8], inteldcap.TeeTypeTdx)

	bodyBytes := marshalBody(t, body)
	if version == 5 {
		mid := make([]byte, 6)
		binary.LittleEndian.PutUint16(mid[0:2], 2)
		binary.LittleEndian.PutUint32(mid[2:6], uint32(len(bodyBytes)))
		return append(append(header, mid...), bodyBytes...)
	}
	raw := append(header, bodyBytes...)
	return append(raw, 0, 0, 0, 0)
}

// Report wraps a quote and collateral into a Passport report envelope for
// the given platform tag.
func Report(t *testing.T, platform string, quote []byte, collateral *attestation.QlQveCollateral) *attestation.UnifiedReport {
	t.Helper()
	body := attestation.DcapReport{
		B64Quote: base64.StdEncoding.EncodeToString(quote),
	}
	if collateral != nil {
		b, err := json.Marshal(collateral)
		require.NoError(t, err)
		body.JSONCollateral = string(b)
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return &attestation.UnifiedReport{
		ReportVersion: attestation.ReportVersion,
		ReportType:    attestation.ReportTypePassport,
		TeePlatform:   platform,
		JSONReport:    string(b),
	}
}

// ReportJSON is Report rendered as the envelope JSON text.
func ReportJSON(t *testing.T, platform string, quote []byte, collateral *attestation.QlQveCollateral) string {
	t.Helper()
	text, err := attestation.EncodeReport(Report(t, platform, quote, collateral))
	require.NoError(t, err)
	return text
}

// VerifyResult returns a fake vendor entry point answering with the given
// result code.
func VerifyResult(code inteldcap.QvResult) func([]byte, *attestation.QlQveCollateral, time.Time) (uint32, error) {
	return func([]byte, *attestation.QlQveCollateral, time.Time) (uint32, error) {
		return uint32(code), nil
	}
}
