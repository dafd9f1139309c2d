// Package smx wraps the SM2/SM3 primitives used by the Hygon CSV chain
// verifier: public-key and signature import from the vendor's reversed
// field-element encoding, SM2 verification with an explicit user id, and
// HMAC-SM3.
//
// The vendor stores Qx, Qy, sig_r and sig_s reverse-endian relative to the
// encodings crypto libraries expect. Each import reverses the element
// exactly once; callers never pre-reverse.
package smx

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"encoding/asn1"
	"math/big"

	"github.com/emmansun/gmsm/sm2"
	"github.com/emmansun/gmsm/sm3"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
)

// FieldSize is the SM2-256 field element size in bytes.
const FieldSize = 32

type ecdsaSignature struct {
	R, S *big.Int
}

// ImportPublicKey builds an SM2 public key from reversed-order field
// elements. qx and qy must hold at least FieldSize bytes; only the first
// FieldSize bytes of each are significant.
func ImportPublicKey(qx, qy []byte) (*ecdsa.PublicKey, error) {
	if len(qx) < FieldSize || len(qy) < FieldSize {
		return nil, atterrors.Newf(atterrors.InvalidFormat,
			"sm2 pubkey field size err, expect at least %d, got %d/%d",
			FieldSize, len(qx), len(qy))
	}

	// Uncompressed point: 04 || Qx_be || Qy_be.
	point := make([]byte, 1+2*FieldSize)
	point[0] = 4
	copy(point[1:1+FieldSize], reversed(qx[:FieldSize]))
	copy(point[1+FieldSize:], reversed(qy[:FieldSize]))

	pub, err := sm2.NewPublicKey(point)
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.InternalError, "sm2 pubkey import failed")
	}
	return pub, nil
}

// ExportPublicKey renders an SM2 public key back into the vendor's
// reversed field-element encoding. It is the inverse of ImportPublicKey on
// valid keys.
func ExportPublicKey(pub *ecdsa.PublicKey) (qx, qy []byte) {
	xb := make([]byte, FieldSize)
	yb := make([]byte, FieldSize)
	pub.X.FillBytes(xb)
	pub.Y.FillBytes(yb)
	return reversed(xb), reversed(yb)
}

// ImportSignature builds an ASN.1 DER ECDSA signature from reversed r and
// s. r and s must hold at least FieldSize bytes; only the first FieldSize
// bytes of each are significant.
func ImportSignature(r, s []byte) ([]byte, error) {
	if len(r) < FieldSize || len(s) < FieldSize {
		return nil, atterrors.Newf(atterrors.InvalidFormat,
			"sm2 signature field size err, expect at least %d, got %d/%d",
			FieldSize, len(r), len(s))
	}
	der, err := asn1.Marshal(ecdsaSignature{
		R: new(big.Int).SetBytes(reversed(r[:FieldSize])),
		S: new(big.Int).SetBytes(reversed(s[:FieldSize])),
	})
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.InternalError, "sm2 signature encode failed")
	}
	return der, nil
}

// ExportSignature splits an ASN.1 DER ECDSA signature into the vendor's
// reversed r and s encoding.
func ExportSignature(der []byte) (r, s []byte, err error) {
	var sig ecdsaSignature
	if _, err := asn1.Unmarshal(der, &sig); err != nil {
		return nil, nil, atterrors.Wrap(err, atterrors.InvalidFormat, "sm2 signature decode failed")
	}
	rb := make([]byte, FieldSize)
	sb := make([]byte, FieldSize)
	sig.R.FillBytes(rb)
	sig.S.FillBytes(sb)
	return reversed(rb), reversed(sb), nil
}

// VerifyWithUID verifies an SM2 signature over message with the given user
// id (not the SM2 default). The hash function is SM3; the message is used
// exactly as passed, with no additional framing.
func VerifyWithUID(pub *ecdsa.PublicKey, uid, message, sigDER []byte) bool {
	if pub == nil {
		return false
	}
	return sm2.VerifyASN1WithSM2(pub, uid, message, sigDER)
}

// SM3 hashes the concatenation of the given chunks.
func SM3(chunks ...[]byte) []byte {
	h := sm3.New()
	for _, c := range chunks {
		h.Write(c)
	}
	return h.Sum(nil)
}

// HmacSM3 computes HMAC-SM3 over the concatenation of the given chunks.
func HmacSM3(key []byte, chunks ...[]byte) []byte {
	mac := hmac.New(sm3.New, key)
	for _, c := range chunks {
		mac.Write(c)
	}
	return mac.Sum(nil)
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
