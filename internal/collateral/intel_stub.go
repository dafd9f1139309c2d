//go:build !dcap

package collateral

import (
	"github.com/pkg/errors"

	"github.com/teeverse/attestation/pkg/attestation"
)

// GetIntelCollateral fetches the DCAP collateral for a quote through the
// vendor library. This build carries no DCAP library.
func GetIntelCollateral(quote []byte) (*attestation.QlQveCollateral, error) {
	return nil, errors.New("built without DCAP support, rebuild with -tags dcap and the Intel QVL installed")
}
