package generation

import (
	"encoding/base64"
	"encoding/json"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/pkg/attestation"
)

// HyperEnclaveGenerator produces HyperEnclave reports. Peers generate
// these, but no verifier exists for the platform; verification rejects the
// tag until a specification is available.
type HyperEnclaveGenerator struct {
	device Device
}

// NewHyperEnclaveGenerator returns a generator reading quotes from device.
func NewHyperEnclaveGenerator(device Device) *HyperEnclaveGenerator {
	return &HyperEnclaveGenerator{device: device}
}

// GenerateReport obtains a quote binding the caller material and wraps it
// into the report envelope.
func (g *HyperEnclaveGenerator) GenerateReport(params *attestation.GenerationParams) (*attestation.UnifiedReport, error) {
	if err := checkReportType(params.ReportType); err != nil {
		return nil, err
	}
	reportData, err := BuildReportData(params)
	if err != nil {
		return nil, err
	}
	quote, err := g.device.Quote(reportData)
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.InternalError, "hyperenclave quote generation failed")
	}

	body := attestation.DcapReport{B64Quote: base64.StdEncoding.EncodeToString(quote)}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.InternalError, "json encode failed")
	}
	return &attestation.UnifiedReport{
		ReportVersion: attestation.ReportVersion,
		ReportType:    params.ReportType,
		TeePlatform:   attestation.PlatformHyperEnclave,
		JSONReport:    string(b),
	}, nil
}
