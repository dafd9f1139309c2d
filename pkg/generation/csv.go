package generation

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/sirupsen/logrus"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/common/logger"
	"github.com/teeverse/attestation/internal/crypto/smx"
	"github.com/teeverse/attestation/internal/platform/hygon"
	"github.com/teeverse/attestation/pkg/attestation"
)

// CertChainFetcher supplies the HSK/CEK chain for a chip id when building
// Passport reports.
type CertChainFetcher interface {
	CertChain(ctx context.Context, chipID string) (*attestation.HygonCsvCertChain, error)
}

// CsvGenerator produces Hygon CSV reports.
type CsvGenerator struct {
	device  Device
	fetcher CertChainFetcher
	log     *logrus.Entry
}

// NewCsvGenerator returns a generator reading quotes from device. fetcher
// may be nil if only BackgroundCheck reports are generated.
func NewCsvGenerator(device Device, fetcher CertChainFetcher) *CsvGenerator {
	return &CsvGenerator{device: device, fetcher: fetcher, log: logger.New("csv-generator")}
}

// GenerateReport obtains a quote binding the caller material, checks the
// chip MAC, and wraps the quote into the report envelope.
//
// The MAC check happens only here, on the fresh quote: reserved2 is zeroed
// before the quote leaves the host, so the CSV verifier does not re-check
// the MAC.
func (g *CsvGenerator) GenerateReport(params *attestation.GenerationParams) (*attestation.UnifiedReport, error) {
	if err := checkReportType(params.ReportType); err != nil {
		return nil, err
	}

	userData, mnonce, err := buildCsvUserData(params)
	if err != nil {
		return nil, err
	}

	raw, err := g.device.Quote(userData)
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.InternalError, "csv quote generation failed")
	}
	if len(raw) < hygon.ReportSize {
		return nil, atterrors.Newf(atterrors.InternalError,
			"csv quote size err, expect at least %d, got %d", hygon.ReportSize, len(raw))
	}
	raw = raw[:hygon.ReportSize]

	quote, err := hygon.ParseReport(raw)
	if err != nil {
		return nil, err
	}

	// The chip ties the PEK certificate and chip id to our mnonce. A
	// mismatch means the quote does not answer this request.
	mac := smx.HmacSM3(mnonce, raw[hygon.ReportPEKCertOffset:hygon.ReportMACOffset])
	if !bytes.Equal(mac, quote.MAC[:]) {
		return nil, atterrors.New(atterrors.InternalError, "PEK cert and chip id hmac verify failed")
	}

	// reserved2 served its purpose in the MAC; it does not leave the host.
	for i := hygon.ReportReserved2Offset; i < hygon.ReportMACOffset; i++ {
		raw[i] = 0
	}

	chipID := quote.ChipID()
	body := attestation.HygonCsvReport{
		B64Quote: base64.StdEncoding.EncodeToString(raw),
		ChipID:   chipID,
	}

	if params.ReportType == attestation.ReportTypePassport {
		if g.fetcher == nil {
			return nil, atterrors.New(atterrors.ArgumentError, "passport report needs a cert chain fetcher")
		}
		chain, err := g.fetcher.CertChain(context.Background(), chipID)
		if err != nil {
			return nil, atterrors.Wrap(err, atterrors.InternalError, "get csv collateral failed")
		}
		b, err := json.Marshal(chain)
		if err != nil {
			return nil, atterrors.Wrap(err, atterrors.InternalError, "json encode failed")
		}
		body.JSONCertChain = string(b)
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.InternalError, "json encode failed")
	}

	g.log.WithField("chip_id", chipID).Info("generate csv report succeed")
	return &attestation.UnifiedReport{
		ReportVersion: attestation.ReportVersion,
		ReportType:    params.ReportType,
		TeePlatform:   attestation.PlatformCsv,
		JSONReport:    string(b),
	}, nil
}

// buildCsvUserData fills the 112-byte user-data block handed to the chip:
// 64 bytes of caller data, a random mnonce, and the SM3 hash over both.
// The returned mnonce keys the chip MAC check.
func buildCsvUserData(params *attestation.GenerationParams) (block []byte, mnonce []byte, err error) {
	caller, err := decodeCallerData(params, hygon.HashLen)
	if err != nil {
		return nil, nil, err
	}
	if params.ReportHexNonce != "" && len(params.ReportHexNonce) > hygon.NonceSize*2 {
		return nil, nil, atterrors.Newf(atterrors.ArgumentError,
			"report_hex_nonce length should not be greater than %d, got %d",
			hygon.NonceSize*2, len(params.ReportHexNonce))
	}

	block = make([]byte, hygon.UserDataSize+hygon.NonceSize+hygon.HashLen)
	copy(block, caller)

	if pem := params.ReportParams.PemPublicKey; pem != "" {
		sum := sha256.Sum256([]byte(pem))
		copy(block[hygon.HashLen:], sum[:])
	}

	mnonce = block[hygon.UserDataSize : hygon.UserDataSize+hygon.NonceSize]
	if _, err := rand.Read(mnonce); err != nil {
		return nil, nil, atterrors.Wrap(err, atterrors.InternalError, "mnonce generation failed")
	}

	hash := smx.SM3(block[:hygon.UserDataSize+hygon.NonceSize])
	copy(block[hygon.UserDataSize+hygon.NonceSize:], hash)
	return block, mnonce, nil
}
