package hygon

import (
	"bytes"
	"encoding/binary"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
)

// RetrievePlainData XOR-de-obfuscates src with anonce in 32-bit words and
// returns the plain copy. Applying it twice yields the original bytes.
func RetrievePlainData(src []byte, anonce uint32) ([]byte, error) {
	if len(src)%4 != 0 {
		return nil, atterrors.Newf(atterrors.InternalError,
			"data size in bytes must be times of 4, but got %d", len(src))
	}
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += 4 {
		w := binary.LittleEndian.Uint32(src[i:i+4]) ^ anonce
		binary.LittleEndian.PutUint32(dst[i:i+4], w)
	}
	return dst, nil
}

// mustRetrieve is RetrievePlainData for buffers whose length is a compile
// time constant multiple of four.
func mustRetrieve(src []byte, anonce uint32) []byte {
	dst, err := RetrievePlainData(src, anonce)
	if err != nil {
		panic(err)
	}
	return dst
}

// PlainVMID returns the de-obfuscated vm_id.
func (r *AttestationReport) PlainVMID() []byte {
	return mustRetrieve(r.VMID[:], r.Anonce)
}

// PlainVMVersion returns the de-obfuscated vm_version.
func (r *AttestationReport) PlainVMVersion() []byte {
	return mustRetrieve(r.VMVersion[:], r.Anonce)
}

// PlainUserData returns the de-obfuscated 64-byte user data block.
func (r *AttestationReport) PlainUserData() []byte {
	return mustRetrieve(r.UserData[:], r.Anonce)
}

// PlainMnonce returns the de-obfuscated mnonce.
func (r *AttestationReport) PlainMnonce() []byte {
	return mustRetrieve(r.Mnonce[:], r.Anonce)
}

// PlainMeasure returns the de-obfuscated measurement.
func (r *AttestationReport) PlainMeasure() []byte {
	return mustRetrieve(r.Measure[:], r.Anonce)
}

// PlainPolicy returns the de-obfuscated policy word.
func (r *AttestationReport) PlainPolicy() uint32 {
	return r.Policy ^ r.Anonce
}

// PlainSN returns the de-obfuscated chip serial number field.
func (r *AttestationReport) PlainSN() []byte {
	return mustRetrieve(r.SN[:], r.Anonce)
}

// ChipID returns the chip serial number as an ASCII string.
func (r *AttestationReport) ChipID() string {
	sn := r.PlainSN()
	if i := bytes.IndexByte(sn, 0); i >= 0 {
		sn = sn[:i]
	}
	return string(sn)
}
