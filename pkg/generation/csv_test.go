package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/platform/hygon"
	"github.com/teeverse/attestation/internal/testutil/csvtest"
	"github.com/teeverse/attestation/pkg/attestation"
	"github.com/teeverse/attestation/pkg/verification/csv"
)

const fakeChipID = "NULK0GEN12345"

// fakeCsvDevice emulates the csv-guest firmware: it echoes the caller's
// user-data block into a freshly signed quote.
type fakeCsvDevice struct {
	t         *testing.T
	chain     *csvtest.Chain
	tamperMac bool
}

func (d *fakeCsvDevice) Quote(block []byte) ([]byte, error) {
	quote := d.chain.BuildQuote(d.t, csvtest.QuoteParams{
		UserData: block[:hygon.UserDataSize],
		Mnonce:   block[hygon.UserDataSize : hygon.UserDataSize+hygon.NonceSize],
		Anonce:   0x2468ace0,
		ChipID:   fakeChipID,
	})
	if d.tamperMac {
		quote[hygon.ReportMACOffset] ^= 0x01
	}
	page := make([]byte, 4096)
	copy(page, quote)
	return page, nil
}

type fakeFetcher struct {
	chain  *csvtest.Chain
	t      *testing.T
	chipID string
}

func (f *fakeFetcher) CertChain(_ context.Context, chipID string) (*attestation.HygonCsvCertChain, error) {
	f.chipID = chipID
	var chain attestation.HygonCsvCertChain
	require.NoError(f.t, json.Unmarshal([]byte(f.chain.CertChainJSON(f.t)), &chain))
	return &chain, nil
}

func TestCsvGeneratePassport(t *testing.T) {
	chain := csvtest.NewChain(t)
	fetcher := &fakeFetcher{chain: chain, t: t}
	gen := NewCsvGenerator(&fakeCsvDevice{t: t, chain: chain}, fetcher)

	report, err := gen.GenerateReport(&attestation.GenerationParams{
		ReportType:   attestation.ReportTypePassport,
		ReportParams: attestation.ReportParams{HexUserData: "75736572"},
	})
	require.NoError(t, err)

	assert.Equal(t, attestation.ReportVersion, report.ReportVersion)
	assert.Equal(t, attestation.ReportTypePassport, report.ReportType)
	assert.Equal(t, attestation.PlatformCsv, report.TeePlatform)
	assert.Equal(t, fakeChipID, fetcher.chipID)

	var body attestation.HygonCsvReport
	require.NoError(t, json.Unmarshal([]byte(report.JSONReport), &body))
	assert.Equal(t, fakeChipID, body.ChipID)
	assert.NotEmpty(t, body.JSONCertChain)

	raw, err := base64.StdEncoding.DecodeString(body.B64Quote)
	require.NoError(t, err)
	require.Len(t, raw, hygon.ReportSize)

	// reserved2 is zeroed before the quote leaves the host.
	for i := hygon.ReportReserved2Offset; i < hygon.ReportMACOffset; i++ {
		require.Zero(t, raw[i])
	}

	// The generated report verifies against its own chain root.
	verifier, err := csv.New(report, chain.RootPub)
	require.NoError(t, err)
	assert.NoError(t, verifier.VerifyPlatform())

	attrs, err := verifier.ParseUnifiedReport()
	require.NoError(t, err)
	assert.Equal(t, "75736572", attrs.UserData[:8])
}

func TestCsvGenerateBackgroundCheck(t *testing.T) {
	chain := csvtest.NewChain(t)
	gen := NewCsvGenerator(&fakeCsvDevice{t: t, chain: chain}, nil)

	report, err := gen.GenerateReport(&attestation.GenerationParams{
		ReportType:     attestation.ReportTypeBgcheck,
		ReportHexNonce: "deadbeefdeadbeefdeadbeefdeadbeef",
	})
	require.NoError(t, err)

	var body attestation.HygonCsvReport
	require.NoError(t, json.Unmarshal([]byte(report.JSONReport), &body))
	assert.Empty(t, body.JSONCertChain)
}

func TestCsvGenerateMacMismatch(t *testing.T) {
	chain := csvtest.NewChain(t)
	gen := NewCsvGenerator(&fakeCsvDevice{t: t, chain: chain, tamperMac: true}, nil)

	_, err := gen.GenerateReport(&attestation.GenerationParams{
		ReportType: attestation.ReportTypeBgcheck,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hmac verify failed")
}

func TestCsvGenerateRejectsNonceAndUserData(t *testing.T) {
	chain := csvtest.NewChain(t)
	gen := NewCsvGenerator(&fakeCsvDevice{t: t, chain: chain}, nil)

	_, err := gen.GenerateReport(&attestation.GenerationParams{
		ReportType:     attestation.ReportTypeBgcheck,
		ReportHexNonce: "00",
		ReportParams:   attestation.ReportParams{HexUserData: "11"},
	})
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.ArgumentError))
}

func TestCsvGenerateRejectsUnknownReportType(t *testing.T) {
	chain := csvtest.NewChain(t)
	gen := NewCsvGenerator(&fakeCsvDevice{t: t, chain: chain}, nil)

	_, err := gen.GenerateReport(&attestation.GenerationParams{ReportType: "Express"})
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.ArgumentError))
}

func TestCsvGeneratePassportNeedsFetcher(t *testing.T) {
	chain := csvtest.NewChain(t)
	gen := NewCsvGenerator(&fakeCsvDevice{t: t, chain: chain}, nil)

	_, err := gen.GenerateReport(&attestation.GenerationParams{
		ReportType: attestation.ReportTypePassport,
	})
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.ArgumentError))
}
