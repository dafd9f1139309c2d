// Package generation builds unified attestation reports on TEE hosts. The
// kernel interface that produces raw quotes is abstracted behind Device;
// generators bind caller material (nonce or user data, and an optional
// public key) into the quote's report data and wrap the result into the
// report envelope, attaching collateral for Passport reports.
package generation

import (
	"crypto/sha256"
	"encoding/hex"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/pkg/attestation"
)

// Generator produces a unified attestation report for one platform.
type Generator interface {
	GenerateReport(params *attestation.GenerationParams) (*attestation.UnifiedReport, error)
}

// Device returns a raw quote binding the given report data. It models the
// platform kernel interface (/dev/csv-guest, /dev/sgx, the TSM report
// interface) and is the only side-effecting dependency of a generator.
type Device interface {
	Quote(reportData []byte) ([]byte, error)
}

// checkReportType rejects unknown report types up front.
func checkReportType(reportType string) error {
	if reportType != attestation.ReportTypeBgcheck && reportType != attestation.ReportTypePassport {
		return atterrors.Newf(atterrors.ArgumentError, "unsupported report_type: %s", reportType)
	}
	return nil
}

// decodeCallerData validates and decodes the nonce/user-data inputs. Both
// occupy the same report-data bytes, so supplying both is an error.
func decodeCallerData(params *attestation.GenerationParams, maxLen int) ([]byte, error) {
	nonce := params.ReportHexNonce
	userData := params.ReportParams.HexUserData

	if len(nonce) > maxLen*2 {
		return nil, atterrors.Newf(atterrors.ArgumentError,
			"report_hex_nonce length should not be greater than %d, got %d", maxLen*2, len(nonce))
	}
	if len(userData) > maxLen*2 {
		return nil, atterrors.Newf(atterrors.ArgumentError,
			"hex_user_data length should not be greater than %d, got %d", maxLen*2, len(userData))
	}
	if nonce != "" && userData != "" {
		return nil, atterrors.New(atterrors.ArgumentError, "not support both nonce and user data")
	}

	value := nonce
	if userData != "" {
		value = userData
	}
	if value == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.ArgumentError, "hex decode failed")
	}
	return b, nil
}

func sha256Sum(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}
