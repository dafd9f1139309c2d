// Package collateral fetches the certificate material a Passport report
// embeds: the Hygon HSK/CEK chain from the Hygon certificate service, and
// the Intel DCAP collateral from the vendor library.
package collateral

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/teeverse/attestation/internal/common/logger"
	"github.com/teeverse/attestation/internal/platform/hygon"
	"github.com/teeverse/attestation/pkg/attestation"
)

var log = logger.New("collateral")

const (
	// DefaultHygonBaseURL is the Hygon certificate service.
	DefaultHygonBaseURL = "https://cert.hygon.cn"

	hygonHskCekPath = "/hsk_cek?snumber="

	defaultRetries = 3
)

// HygonFetcher downloads the HSK/CEK certificate chain for a chip id.
type HygonFetcher struct {
	BaseURL string
	Client  *http.Client
	Retries int
}

// NewHygonFetcher returns a fetcher against the Hygon certificate service.
func NewHygonFetcher() *HygonFetcher {
	return &HygonFetcher{
		BaseURL: DefaultHygonBaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Retries: defaultRetries,
	}
}

// CertChain fetches the HSK and CEK certificates for the chip id. The
// response body is the HSK certificate immediately followed by the CEK
// certificate; anything else is rejected.
func (f *HygonFetcher) CertChain(ctx context.Context, chipID string) (*attestation.HygonCsvCertChain, error) {
	if chipID == "" {
		return nil, errors.New("chip id is required")
	}

	url := f.BaseURL + hygonHskCekPath + chipID

	var body []byte
	var lastErr error
	for i := 0; i < f.retries(); i++ {
		body, lastErr = f.get(ctx, url)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, errors.Wrap(lastErr, "get hygon csv hsk and cek failed")
	}

	want := hygon.ChipRootCertSize + hygon.CsvCertSize
	if len(body) != want {
		return nil, errors.Errorf("hsk and cek length should be %d, but got %d", want, len(body))
	}

	log.WithField("chip_id", chipID).Info("get hygon csv hsk and cek succeed")
	return &attestation.HygonCsvCertChain{
		B64HskCert: base64.StdEncoding.EncodeToString(body[:hygon.ChipRootCertSize]),
		B64CekCert: base64.StdEncoding.EncodeToString(body[hygon.ChipRootCertSize:]),
	}, nil
}

func (f *HygonFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (f *HygonFetcher) retries() int {
	if f.Retries <= 0 {
		return 1
	}
	return f.Retries
}
