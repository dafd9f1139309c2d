//go:build dcap

package inteldcap

/*
#cgo LDFLAGS: -lsgx_dcap_quoteverify

#include <stdlib.h>
#include <string.h>
#include <time.h>

#include "sgx_dcap_quoteverify.h"
#include "sgx_ql_lib_common.h"
#include "sgx_ql_quote.h"
*/
import "C"

import (
	"time"
	"unsafe"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/pkg/attestation"
)

// cCollateral owns the C copies of the collateral strings for the duration
// of one vendor call. The vendor ABI requires every member to be
// NUL-terminated with the terminator counted in the size.
type cCollateral struct {
	data C.sgx_ql_qve_collateral_t
	ptrs []unsafe.Pointer
}

func newCCollateral(collateral *attestation.QlQveCollateral) *cCollateral {
	cc := &cCollateral{}
	cc.data.version = C.uint32_t(collateral.Version)
	cc.data.tee_type = C.uint32_t(collateral.TeeType)

	set := func(value string, dest **C.char, size *C.uint32_t) {
		p := C.CString(value)
		cc.ptrs = append(cc.ptrs, unsafe.Pointer(p))
		*dest = p
		*size = C.uint32_t(len(value) + 1)
	}
	set(collateral.PckCrlIssuerChain, &cc.data.pck_crl_issuer_chain, &cc.data.pck_crl_issuer_chain_size)
	set(collateral.RootCaCrl, &cc.data.root_ca_crl, &cc.data.root_ca_crl_size)
	set(collateral.PckCrl, &cc.data.pck_crl, &cc.data.pck_crl_size)
	set(collateral.TcbInfoIssuerChain, &cc.data.tcb_info_issuer_chain, &cc.data.tcb_info_issuer_chain_size)
	set(collateral.TcbInfo, &cc.data.tcb_info, &cc.data.tcb_info_size)
	set(collateral.QeIdentityIssuerChain, &cc.data.qe_identity_issuer_chain, &cc.data.qe_identity_issuer_chain_size)
	set(collateral.QeIdentity, &cc.data.qe_identity, &cc.data.qe_identity_size)
	return cc
}

func (cc *cCollateral) free() {
	for _, p := range cc.ptrs {
		C.free(p)
	}
	cc.ptrs = nil
}

// SgxVerifyQuote calls sgx_qv_verify_quote in QVL mode.
func SgxVerifyQuote(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (QvResult, error) {
	return vendorVerify(quote, collateral, at, false)
}

// TdxVerifyQuote calls tdx_qv_verify_quote in QVL mode.
func TdxVerifyQuote(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (QvResult, error) {
	return vendorVerify(quote, collateral, at, true)
}

func vendorVerify(quote []byte, collateral *attestation.QlQveCollateral, at time.Time, tdx bool) (QvResult, error) {
	if err := ValidateCollateral(collateral); err != nil {
		return QvResultUnspecified, atterrors.Wrap(err, atterrors.InvalidFormat, "dcap collateral check failed")
	}
	if len(quote) == 0 {
		return QvResultUnspecified, atterrors.New(atterrors.InvalidFormat, "empty quote")
	}

	var supplementalSize C.uint32_t
	var ret C.quote3_error_t
	if tdx {
		ret = C.tdx_qv_get_quote_supplemental_data_size(&supplementalSize)
	} else {
		ret = C.sgx_qv_get_quote_supplemental_data_size(&supplementalSize)
	}
	if ret != C.SGX_QL_SUCCESS {
		return QvResultUnspecified, atterrors.Newf(atterrors.InternalError,
			"fail to get supplemental data size, error code: %#x", uint32(ret))
	}
	if supplementalSize != C.sizeof_sgx_ql_qv_supplemental_t {
		return QvResultUnspecified, atterrors.New(atterrors.InternalError,
			"supplemental data size is not same with header definition, QVL and SDK versions mismatch")
	}

	cc := newCCollateral(collateral)
	defer cc.free()

	supplemental := make([]byte, int(supplementalSize))
	expirationStatus := C.uint32_t(1)
	result := C.sgx_ql_qv_result_t(C.SGX_QL_QV_RESULT_UNSPECIFIED)

	if tdx {
		ret = C.tdx_qv_verify_quote(
			(*C.uint8_t)(unsafe.Pointer(&quote[0])), C.uint32_t(len(quote)),
			&cc.data, C.time_t(at.Unix()), &expirationStatus, &result,
			nil, supplementalSize, (*C.uint8_t)(unsafe.Pointer(&supplemental[0])))
	} else {
		ret = C.sgx_qv_verify_quote(
			(*C.uint8_t)(unsafe.Pointer(&quote[0])), C.uint32_t(len(quote)),
			&cc.data, C.time_t(at.Unix()), &expirationStatus, &result,
			nil, supplementalSize, (*C.uint8_t)(unsafe.Pointer(&supplemental[0])))
	}
	if ret != C.SGX_QL_SUCCESS {
		return QvResultUnspecified, atterrors.Newf(atterrors.InternalError,
			"fail to verify dcap quote, error code: %#x", uint32(ret))
	}
	return QvResult(result), nil
}
