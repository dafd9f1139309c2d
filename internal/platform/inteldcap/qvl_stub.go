//go:build !dcap

package inteldcap

import (
	"time"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/pkg/attestation"
)

func errNoDcap() error {
	return atterrors.New(atterrors.InternalError,
		"built without DCAP support, rebuild with -tags dcap and the Intel QVL installed")
}

// SgxVerifyQuote is the SGX vendor entry point. This build carries no DCAP
// library; verification always fails until rebuilt with the dcap tag.
func SgxVerifyQuote(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (QvResult, error) {
	if err := ValidateCollateral(collateral); err != nil {
		return QvResultUnspecified, atterrors.Wrap(err, atterrors.InvalidFormat, "dcap collateral check failed")
	}
	return QvResultUnspecified, errNoDcap()
}

// TdxVerifyQuote is the TDX vendor entry point. This build carries no DCAP
// library; verification always fails until rebuilt with the dcap tag.
func TdxVerifyQuote(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (QvResult, error) {
	if err := ValidateCollateral(collateral); err != nil {
		return QvResultUnspecified, atterrors.Wrap(err, atterrors.InvalidFormat, "dcap collateral check failed")
	}
	return QvResultUnspecified, errNoDcap()
}
