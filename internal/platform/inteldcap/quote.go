// Package inteldcap defines the Intel quote binary layouts (SGX quote v3,
// TDX quote v4/v5) and the binding to the vendor DCAP quote verification
// library. Layouts are fixed by the vendor ABI; all integers are
// little-endian.
package inteldcap

import (
	"bytes"
	"encoding/binary"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
)

// Sizes and constants fixed by the vendor ABI.
const (
	QuoteHeaderSize = 48
	ReportBodySize  = 384
	Report2BodySize = 584

	// Quote3MinSize is sizeof(sgx_quote3_t): header, report body and the
	// signature-data length word.
	Quote3MinSize = QuoteHeaderSize + ReportBodySize + 4
	// Quote4MinSize is sizeof(sgx_quote4_t).
	Quote4MinSize = QuoteHeaderSize + Report2BodySize + 4
	// Quote5BodyOffset locates the report body in a v5 quote: header,
	// body type (u16) and body size (u32) precede it.
	Quote5BodyOffset = QuoteHeaderSize + 6
	Quote5MinSize    = Quote5BodyOffset + Report2BodySize

	TeeTypeSgx = 0x00000000
	TeeTypeTdx = 0x00000081

	// SgxFlagsDebug marks a debug-launched enclave in attributes.flags;
	// the same bit is applied to TD attributes.
	SgxFlagsDebug = 0x2

	MeasurementSize = 48
	ReportDataSize  = 64
)

// ReportBody is sgx_report_body_t.
type ReportBody struct {
	CPUSvn          [16]byte
	MiscSelect      uint32
	Reserved1       [12]byte
	IsvExtProdID    [16]byte
	AttributesFlags uint64
	AttributesXfrm  uint64
	MrEnclave       [32]byte
	Reserved2       [32]byte
	MrSigner        [32]byte
	Reserved3       [32]byte
	ConfigID        [64]byte
	IsvProdID       uint16
	IsvSvn          uint16
	ConfigSvn       uint16
	Reserved4       [42]byte
	IsvFamilyID     [16]byte
	ReportData      [ReportDataSize]byte
}

// Quote3 is the parsed prefix of an SGX ECDSA quote (sgx_quote3_t).
type Quote3 struct {
	Version     uint16
	AttKeyType  uint16
	AttKeyData0 uint32
	QeSvn       uint16
	PceSvn      uint16
	QeVendorID  [16]byte
	UserData    [20]byte
	Body        ReportBody
}

// ParseQuote3 decodes the fixed prefix of an SGX quote. The signature
// section that follows is consumed only by the vendor library.
func ParseQuote3(b []byte) (*Quote3, error) {
	if len(b) < Quote3MinSize {
		return nil, atterrors.Newf(atterrors.InvalidFormat,
			"quote size %d is less than sgx_quote3_t %d", len(b), Quote3MinSize)
	}
	var quote Quote3
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &quote); err != nil {
		return nil, atterrors.Wrap(err, atterrors.InvalidFormat, "sgx quote decode failed")
	}
	return &quote, nil
}

// Report2Body is sgx_report2_body_t, shared by TDX quote v4 and v5.
type Report2Body struct {
	TeeTcbSvn      [16]byte
	MrSeam         [MeasurementSize]byte
	MrSignerSeam   [MeasurementSize]byte
	SeamAttributes uint64
	TdAttributes   uint64
	Xfam           uint64
	MrTd           [MeasurementSize]byte
	MrConfigID     [MeasurementSize]byte
	MrOwner        [MeasurementSize]byte
	MrOwnerConfig  [MeasurementSize]byte
	RtMr           [4][MeasurementSize]byte
	ReportData     [ReportDataSize]byte
}

// TdxQuote is the parsed prefix of a TDX quote, v4 or v5. The header's
// version field selects the body location.
type TdxQuote struct {
	Version uint16
	TeeType uint32
	Body    Report2Body
}

// ParseTdxQuote decodes a TDX quote. Undersized buffers are format errors;
// a wrong tee_type or an unknown header version is an internal error, the
// quote being well-formed but not a TDX quote this verifier understands.
func ParseTdxQuote(b []byte) (*TdxQuote, error) {
	if len(b) < Quote4MinSize {
		return nil, atterrors.Newf(atterrors.InvalidFormat,
			"quote size %d is less than sgx_quote4_t %d", len(b), Quote4MinSize)
	}

	quote := &TdxQuote{
		Version: binary.LittleEndian.Uint16(b[0:2]),
		TeeType: binary.LittleEndian.Uint32(b[4:8]),
	}
	if quote.TeeType != TeeTypeTdx {
		return nil, atterrors.Newf(atterrors.InternalError,
			"error tee_type in quote: %#x", quote.TeeType)
	}

	var body []byte
	switch quote.Version {
	case 4:
		body = b[QuoteHeaderSize : QuoteHeaderSize+Report2BodySize]
	case 5:
		if len(b) < Quote5MinSize {
			return nil, atterrors.Newf(atterrors.InvalidFormat,
				"quote size %d is less than sgx_quote5_t %d", len(b), Quote5MinSize)
		}
		body = b[Quote5BodyOffset : Quote5BodyOffset+Report2BodySize]
	default:
		return nil, atterrors.Newf(atterrors.InternalError,
			"error version in TDX quote: %d", quote.Version)
	}

	if err := binary.Read(bytes.NewReader(body), binary.LittleEndian, &quote.Body); err != nil {
		return nil, atterrors.Wrap(err, atterrors.InvalidFormat, "tdx report body decode failed")
	}
	return quote, nil
}
