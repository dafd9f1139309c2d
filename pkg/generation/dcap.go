package generation

import (
	"encoding/base64"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/teeverse/attestation/internal/collateral"
	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/common/logger"
	"github.com/teeverse/attestation/internal/platform/inteldcap"
	"github.com/teeverse/attestation/pkg/attestation"
)

const sgxHashSize = 32

// IntelCollateralFunc fetches the DCAP collateral for a quote. The default
// goes through the vendor library.
type IntelCollateralFunc func(quote []byte) (*attestation.QlQveCollateral, error)

// dcapGenerator is the shared shape of the SGX and TDX generators: bind
// caller material into 64 bytes of report data, quote it, attach
// collateral for Passport reports.
type dcapGenerator struct {
	platform   string
	device     Device
	collateral IntelCollateralFunc
	log        *logrus.Entry
}

// NewSgxGenerator returns a generator producing SGX_DCAP reports.
func NewSgxGenerator(device Device, collateralFn IntelCollateralFunc) Generator {
	return newDcapGenerator(attestation.PlatformSgxDcap, device, collateralFn)
}

// NewTdxGenerator returns a generator producing TDX reports.
func NewTdxGenerator(device Device, collateralFn IntelCollateralFunc) Generator {
	return newDcapGenerator(attestation.PlatformTdx, device, collateralFn)
}

func newDcapGenerator(platform string, device Device, collateralFn IntelCollateralFunc) Generator {
	if collateralFn == nil {
		collateralFn = collateral.GetIntelCollateral
	}
	return &dcapGenerator{
		platform:   platform,
		device:     device,
		collateral: collateralFn,
		log:        logger.New("dcap-generator"),
	}
}

// GenerateReport obtains a quote binding the caller material and wraps it
// into the report envelope.
func (g *dcapGenerator) GenerateReport(params *attestation.GenerationParams) (*attestation.UnifiedReport, error) {
	if err := checkReportType(params.ReportType); err != nil {
		return nil, err
	}

	reportData, err := BuildReportData(params)
	if err != nil {
		return nil, err
	}

	quote, err := g.device.Quote(reportData)
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.InternalError, "dcap quote generation failed")
	}

	body := attestation.DcapReport{
		B64Quote: base64.StdEncoding.EncodeToString(quote),
	}
	if params.ReportType == attestation.ReportTypePassport {
		coll, err := g.collateral(quote)
		if err != nil {
			return nil, atterrors.Wrap(err, atterrors.InternalError, "get dcap collateral failed")
		}
		b, err := json.Marshal(coll)
		if err != nil {
			return nil, atterrors.Wrap(err, atterrors.InternalError, "json encode failed")
		}
		body.JSONCollateral = string(b)
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.InternalError, "json encode failed")
	}

	g.log.WithField("platform", g.platform).Info("generate dcap report succeed")
	return &attestation.UnifiedReport{
		ReportVersion: attestation.ReportVersion,
		ReportType:    params.ReportType,
		TeePlatform:   g.platform,
		JSONReport:    string(b),
	}, nil
}

// BuildReportData fills the 64-byte report data: caller nonce or user data
// in the lower half, the SHA-256 of the bound public key in the upper.
func BuildReportData(params *attestation.GenerationParams) ([]byte, error) {
	caller, err := decodeCallerData(params, sgxHashSize)
	if err != nil {
		return nil, err
	}
	reportData := make([]byte, inteldcap.ReportDataSize)
	copy(reportData, caller)
	if pem := params.ReportParams.PemPublicKey; pem != "" {
		sum := sha256Sum(pem)
		copy(reportData[sgxHashSize:], sum)
	}
	return reportData, nil
}
