package inteldcap

import (
	"fmt"
	"time"

	"github.com/teeverse/attestation/pkg/attestation"
)

// QvResult is the quote verification result code returned by the vendor
// library (sgx_ql_qv_result_t).
type QvResult uint32

// Vendor result codes.
const (
	QvResultOK                         QvResult = 0x0000
	QvResultConfigNeeded               QvResult = 0xA001
	QvResultOutOfDate                  QvResult = 0xA002
	QvResultOutOfDateConfigNeeded      QvResult = 0xA003
	QvResultInvalidSignature           QvResult = 0xA004
	QvResultRevoked                    QvResult = 0xA005
	QvResultUnspecified                QvResult = 0xA006
	QvResultSwHardeningNeeded          QvResult = 0xA007
	QvResultConfigAndSwHardeningNeeded QvResult = 0xA008
)

// Warning reports whether the result is a degraded-but-acceptable outcome:
// verification succeeds, with a warning logged.
func (r QvResult) Warning() bool {
	switch r {
	case QvResultConfigNeeded,
		QvResultOutOfDate,
		QvResultOutOfDateConfigNeeded,
		QvResultSwHardeningNeeded,
		QvResultConfigAndSwHardeningNeeded:
		return true
	}
	return false
}

// String returns the vendor constant name.
func (r QvResult) String() string {
	switch r {
	case QvResultOK:
		return "OK"
	case QvResultConfigNeeded:
		return "CONFIG_NEEDED"
	case QvResultOutOfDate:
		return "OUT_OF_DATE"
	case QvResultOutOfDateConfigNeeded:
		return "OUT_OF_DATE_CONFIG_NEEDED"
	case QvResultInvalidSignature:
		return "INVALID_SIGNATURE"
	case QvResultRevoked:
		return "REVOKED"
	case QvResultUnspecified:
		return "UNSPECIFIED"
	case QvResultSwHardeningNeeded:
		return "SW_HARDENING_NEEDED"
	case QvResultConfigAndSwHardeningNeeded:
		return "CONFIG_AND_SW_HARDENING_NEEDED"
	default:
		return fmt.Sprintf("QV_RESULT(%#x)", uint32(r))
	}
}

// VerifyFunc is the vendor quote-verification entry point: it checks the
// quote against the supplied collateral at the given time and returns the
// vendor result code. Implementations must validate every collateral field
// and must not retain references to the inputs past the call.
type VerifyFunc func(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (QvResult, error)

// ValidateCollateral rejects collateral with empty members before it
// reaches the vendor ABI, which would otherwise fault on NULL pointers.
func ValidateCollateral(collateral *attestation.QlQveCollateral) error {
	if collateral == nil {
		return fmt.Errorf("missing collateral")
	}
	fields := map[string]string{
		"pck_crl_issuer_chain":     collateral.PckCrlIssuerChain,
		"root_ca_crl":              collateral.RootCaCrl,
		"pck_crl":                  collateral.PckCrl,
		"tcb_info_issuer_chain":    collateral.TcbInfoIssuerChain,
		"tcb_info":                 collateral.TcbInfo,
		"qe_identity_issuer_chain": collateral.QeIdentityIssuerChain,
		"qe_identity":              collateral.QeIdentity,
	}
	for name, value := range fields {
		if value == "" {
			return fmt.Errorf("invalid collateral data: %s", name)
		}
	}
	return nil
}
