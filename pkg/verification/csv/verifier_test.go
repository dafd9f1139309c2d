package csv

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/platform/hygon"
	"github.com/teeverse/attestation/internal/testutil/csvtest"
	"github.com/teeverse/attestation/pkg/attestation"
)

var quoteParams = csvtest.QuoteParams{
	UserData:  []byte("user_data"),
	Mnonce:    []byte("0123456789abcdef"),
	Measure:   []byte("boot-measurement-fixture-bytes"),
	VMID:      []byte("vm-0001"),
	VMVersion: []byte("1.2"),
	Policy:    0x11223344,
	Anonce:    0xa5a5f0f0,
	ChipID:    "NULK0X123456",
}

func newVerifier(t *testing.T) (*csvtest.Chain, *Verifier) {
	t.Helper()
	chain := csvtest.NewChain(t)
	quote := chain.BuildQuote(t, quoteParams)
	report := chain.Report(t, quote, quoteParams.ChipID)

	v, err := New(report, chain.RootPub)
	require.NoError(t, err)
	return chain, v
}

func TestVerifyPlatformHappyPath(t *testing.T) {
	_, v := newVerifier(t)
	require.NoError(t, v.VerifyPlatform())
}

func TestParseUnifiedReport(t *testing.T) {
	_, v := newVerifier(t)
	require.NoError(t, v.VerifyPlatform())

	attrs, err := v.ParseUnifiedReport()
	require.NoError(t, err)

	assert.Equal(t, attestation.PlatformCsv, attrs.TeePlatform)

	userData := make([]byte, hygon.HashLen)
	copy(userData, "user_data")
	assert.Equal(t, hex.EncodeToString(userData), attrs.UserData)

	// Upper 32 bytes of the user-data block export as the pubkey hash.
	assert.Equal(t, hex.EncodeToString(make([]byte, hygon.HashLen)), attrs.HashOrPemPubkey)

	mnonce := make([]byte, hygon.NonceSize)
	copy(mnonce, quoteParams.Mnonce)
	assert.Equal(t, hex.EncodeToString(mnonce), attrs.Nonce)

	measure := make([]byte, hygon.HashLen)
	copy(measure, quoteParams.Measure)
	assert.Equal(t, hex.EncodeToString(measure), attrs.BootMeasurement)

	policy := make([]byte, 4)
	binary.LittleEndian.PutUint32(policy, quoteParams.Policy)
	assert.Equal(t, hex.EncodeToString(policy), attrs.SecureFlags)

	vmID := make([]byte, hygon.VMIDSize)
	copy(vmID, quoteParams.VMID)
	assert.Equal(t, hex.EncodeToString(vmID), attrs.ProdID)

	assert.Empty(t, attrs.DebugDisabled)
}

func TestHskUsageMismatch(t *testing.T) {
	chain := csvtest.NewChain(t)
	chain.Hsk.KeyUsage = hygon.KeyUsageCEK
	quote := chain.BuildQuote(t, quoteParams)
	report := chain.Report(t, quote, quoteParams.ChipID)

	v, err := New(report, chain.RootPub)
	require.NoError(t, err)

	err = v.VerifyPlatform()
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InternalError))
	_, _, details := atterrors.Classify(err)
	assert.Contains(t, details, "VerifyHskCertWithHrkPubkey")
	assert.Contains(t, details, "HSK cert usage type err")
}

func TestTamperedCekSignature(t *testing.T) {
	chain := csvtest.NewChain(t)
	chain.Cek.Sig1.SigR[0] ^= 0x01
	quote := chain.BuildQuote(t, quoteParams)
	report := chain.Report(t, quote, quoteParams.ChipID)

	v, err := New(report, chain.RootPub)
	require.NoError(t, err)

	err = v.VerifyPlatform()
	require.Error(t, err)
	_, _, details := atterrors.Classify(err)
	assert.Contains(t, details, "VerifyCekCertWithHskCert")
}

func TestTamperedQuoteBody(t *testing.T) {
	chain := csvtest.NewChain(t)
	quote := chain.BuildQuote(t, quoteParams)
	quote[40] ^= 0x80 // inside vm_id, part of the signed span
	report := chain.Report(t, quote, quoteParams.ChipID)

	v, err := New(report, chain.RootPub)
	require.NoError(t, err)

	err = v.VerifyPlatform()
	require.Error(t, err)
	_, _, details := atterrors.Classify(err)
	assert.Contains(t, details, "VerifyQuoteSignature")
}

func TestWrongRootKey(t *testing.T) {
	chain := csvtest.NewChain(t)
	other := csvtest.NewChain(t)
	quote := chain.BuildQuote(t, quoteParams)
	report := chain.Report(t, quote, quoteParams.ChipID)

	v, err := New(report, other.RootPub)
	require.NoError(t, err)

	err = v.VerifyPlatform()
	require.Error(t, err)
	_, _, details := atterrors.Classify(err)
	assert.Contains(t, details, "VerifyHskCertWithHrkPubkey")
}

func TestWrongQuoteSize(t *testing.T) {
	chain := csvtest.NewChain(t)
	quote := chain.BuildQuote(t, quoteParams)
	report := chain.Report(t, quote[:len(quote)-1], quoteParams.ChipID)

	_, err := New(report, chain.RootPub)
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}

func TestMissingCertChain(t *testing.T) {
	chain := csvtest.NewChain(t)
	quote := chain.BuildQuote(t, quoteParams)

	body := attestation.HygonCsvReport{
		B64Quote: base64.StdEncoding.EncodeToString(quote),
		ChipID:   quoteParams.ChipID,
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	report := &attestation.UnifiedReport{
		ReportVersion: attestation.ReportVersion,
		ReportType:    attestation.ReportTypePassport,
		TeePlatform:   attestation.PlatformCsv,
		JSONReport:    string(b),
	}

	_, err = New(report, chain.RootPub)
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}

func TestWrongEnvelope(t *testing.T) {
	chain := csvtest.NewChain(t)
	quote := chain.BuildQuote(t, quoteParams)

	report := chain.Report(t, quote, quoteParams.ChipID)
	report.ReportVersion = "2.0"
	_, err := New(report, chain.RootPub)
	assert.True(t, atterrors.IsKind(err, atterrors.ArgumentError))

	report = chain.Report(t, quote, quoteParams.ChipID)
	report.ReportType = attestation.ReportTypeBgcheck
	_, err = New(report, chain.RootPub)
	assert.True(t, atterrors.IsKind(err, atterrors.ArgumentError))

	report = chain.Report(t, quote, quoteParams.ChipID)
	report.TeePlatform = attestation.PlatformTdx
	_, err = New(report, chain.RootPub)
	assert.True(t, atterrors.IsKind(err, atterrors.ArgumentError))
}

func TestBadBase64Quote(t *testing.T) {
	chain := csvtest.NewChain(t)
	body := attestation.HygonCsvReport{
		B64Quote:      "!!!not-base64!!!",
		ChipID:        quoteParams.ChipID,
		JSONCertChain: chain.CertChainJSON(t),
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	report := &attestation.UnifiedReport{
		ReportVersion: attestation.ReportVersion,
		ReportType:    attestation.ReportTypePassport,
		TeePlatform:   attestation.PlatformCsv,
		JSONReport:    string(b),
	}

	_, err = New(report, chain.RootPub)
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}
