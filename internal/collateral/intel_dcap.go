//go:build dcap

package collateral

/*
#cgo LDFLAGS: -lsgx_dcap_quoteverify

#include <stdlib.h>
#include "sgx_dcap_quoteverify.h"
#include "sgx_ql_lib_common.h"
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/teeverse/attestation/pkg/attestation"
)

// GetIntelCollateral fetches the DCAP collateral for a quote through
// tee_qv_get_collateral. A trailing NUL in any member is dropped so the
// strings survive a JSON round trip.
func GetIntelCollateral(quote []byte) (*attestation.QlQveCollateral, error) {
	if len(quote) == 0 {
		return nil, errors.New("empty quote")
	}

	var raw *C.uint8_t
	var size C.uint32_t
	ret := C.tee_qv_get_collateral(
		(*C.uint8_t)(unsafe.Pointer(&quote[0])), C.uint32_t(len(quote)), &raw, &size)
	if ret != C.SGX_QL_SUCCESS || raw == nil {
		return nil, errors.Errorf("tee_qv_get_collateral err: %#x", uint32(ret))
	}
	defer C.tee_qv_free_collateral(raw)

	data := (*C.sgx_ql_qve_collateral_t)(unsafe.Pointer(raw))
	return &attestation.QlQveCollateral{
		Version:               uint32(data.version),
		TeeType:               uint32(data.tee_type),
		PckCrlIssuerChain:     charArrayToString(data.pck_crl_issuer_chain, data.pck_crl_issuer_chain_size),
		RootCaCrl:             charArrayToString(data.root_ca_crl, data.root_ca_crl_size),
		PckCrl:                charArrayToString(data.pck_crl, data.pck_crl_size),
		TcbInfoIssuerChain:    charArrayToString(data.tcb_info_issuer_chain, data.tcb_info_issuer_chain_size),
		TcbInfo:               charArrayToString(data.tcb_info, data.tcb_info_size),
		QeIdentityIssuerChain: charArrayToString(data.qe_identity_issuer_chain, data.qe_identity_issuer_chain_size),
		QeIdentity:            charArrayToString(data.qe_identity, data.qe_identity_size),
	}, nil
}

func charArrayToString(buf *C.char, size C.uint32_t) string {
	if buf == nil || size == 0 {
		return ""
	}
	s := C.GoStringN(buf, C.int(size))
	// The vendor counts the terminating NUL in the size.
	if len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return s
}
