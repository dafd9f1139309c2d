// Package hygon defines the Hygon CSV attestation binary layouts: the
// attestation report, the PEK/CEK certificate and the chip root (HRK/HSK)
// certificate, as fixed by the vendor ABI. All multi-byte integers are
// little-endian on the wire.
//
// SM2 field elements (Qx, Qy, sig_r, sig_s) are stored reverse-endian
// relative to the uncompressed-point and DER encodings expected by crypto
// libraries; only the first SM2FieldSize bytes of each element slot are
// significant. Reversal is applied by the crypto layer, exactly once.
package hygon

import (
	"bytes"
	"encoding/binary"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
)

// Sizes fixed by the vendor ABI.
const (
	HashLen       = 32
	VMIDSize      = 16
	VMVersionSize = 16
	UserDataSize  = 64
	NonceSize     = 16
	SNLen         = 64

	// EccPointSize is the on-wire slot size for one SM2 field element;
	// SM2FieldSize is the number of significant bytes within a slot.
	EccPointSize = 72
	SM2FieldSize = 32
	UserIDSize   = 256

	EccPubkeySize    = 4 + 2*EccPointSize + UserIDSize
	EccSignatureSize = 2 * EccPointSize

	ChipRootCertSize = 832
	CsvCertSize      = 2084
	ReportSize       = 2548

	// Signed spans: the prefix of each record covered by its signature.
	ChipRootCertSignedLen = 576
	CsvCertSignedLen      = 1044
	ReportSignedLen       = 180
)

// Offsets into the raw attestation report.
const (
	ReportAnonceOffset    = 188
	ReportSigOffset       = 192
	ReportPEKCertOffset   = 336
	ReportSNOffset        = ReportPEKCertOffset + CsvCertSize
	ReportReserved2Offset = ReportSNOffset + SNLen
	ReportMACOffset       = ReportReserved2Offset + 32
)

// Key usage tags carried in certificates. Part of the on-wire contract.
const (
	KeyUsageHRK     = 0x0
	KeyUsageHSK     = 0x13
	KeyUsageInvalid = 0x1000
	KeyUsageOCA     = 0x1001
	KeyUsagePEK     = 0x1002
	KeyUsagePDH     = 0x1003
	KeyUsageCEK     = 0x1004
)

// CurveIDSM2256 identifies the SM2-256 curve in ecc_pubkey.curve_id.
const CurveIDSM2256 = 0x3

// EccPubkey is the on-wire SM2 public key of a CSV certificate.
type EccPubkey struct {
	CurveID uint32
	Qx      [EccPointSize]byte
	Qy      [EccPointSize]byte
	UserID  [UserIDSize]byte
}

// UID returns the SM2 user id carried in the key: the user_id field is a
// union of a little-endian u16 length followed by the id bytes.
func (p *EccPubkey) UID() []byte {
	n := int(binary.LittleEndian.Uint16(p.UserID[:2]))
	if n > UserIDSize-2 {
		n = UserIDSize - 2
	}
	return p.UserID[2 : 2+n]
}

// SetUID stores uid with its length prefix.
func (p *EccPubkey) SetUID(uid []byte) {
	for i := range p.UserID {
		p.UserID[i] = 0
	}
	binary.LittleEndian.PutUint16(p.UserID[:2], uint16(len(uid)))
	copy(p.UserID[2:], uid)
}

// EccSignature is the on-wire SM2 signature (r, s reversed, in oversized
// slots).
type EccSignature struct {
	SigR [EccPointSize]byte
	SigS [EccPointSize]byte
}

// ChipRootCert is the HRK/HSK certificate (CHIP_ROOT_CERT_t). The signature
// covers the first ChipRootCertSignedLen bytes.
type ChipRootCert struct {
	Version      uint32
	KeyID        [16]byte
	CertifyingID [16]byte
	KeyUsage     uint32
	Reserved1    [24]byte
	Pubkey       EccPubkey
	Reserved2    [108]byte
	Sig          EccSignature
	Reserved3    [112]byte
}

// CsvCert is the CEK/PEK certificate (CSV_CERT_t). The first signature
// covers the first CsvCertSignedLen bytes.
type CsvCert struct {
	Version     uint32
	APIMajor    uint8
	APIMinor    uint8
	Reserved1   uint8
	Reserved2   uint8
	PubkeyUsage uint32
	PubkeyAlgo  uint32
	Pubkey      EccPubkey
	Reserved3   [624]byte
	Sig1Usage   uint32
	Sig1Algo    uint32
	Sig1        EccSignature
	Sig2Usage   uint32
	Sig2Algo    uint32
	Sig2        EccSignature
	Reserved4   [736]byte
}

// AttestationReport is the raw CSV quote (csv_attestation_report). The
// fields vm_id through policy, plus pek_cert, sn and reserved2, are
// XOR-obfuscated with Anonce in 32-bit words on the wire; the quote
// signature covers the first ReportSignedLen bytes in obfuscated form.
type AttestationReport struct {
	UserPubkeyDigest [HashLen]byte
	VMID             [VMIDSize]byte
	VMVersion        [VMVersionSize]byte
	UserData         [UserDataSize]byte
	Mnonce           [NonceSize]byte
	Measure          [HashLen]byte
	Policy           uint32
	SigUsage         uint32
	SigAlgo          uint32
	Anonce           uint32
	Sig1             EccSignature
	PEKCert          CsvCert
	SN               [SNLen]byte
	Reserved2        [32]byte
	MAC              [HashLen]byte
}

// ParseChipRootCert decodes a CHIP_ROOT_CERT_t record.
func ParseChipRootCert(b []byte) (*ChipRootCert, error) {
	var cert ChipRootCert
	if err := parseExact(b, ChipRootCertSize, "chip root cert", &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

// ParseCsvCert decodes a CSV_CERT_t record.
func ParseCsvCert(b []byte) (*CsvCert, error) {
	var cert CsvCert
	if err := parseExact(b, CsvCertSize, "csv cert", &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

// ParseReport decodes a csv_attestation_report. The caller keeps the raw
// bytes: signature inputs are taken from the on-wire form, not from the
// decoded struct.
func ParseReport(b []byte) (*AttestationReport, error) {
	var report AttestationReport
	if err := parseExact(b, ReportSize, "csv quote", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func parseExact(b []byte, size int, name string, v interface{}) error {
	if len(b) != size {
		return atterrors.Newf(atterrors.InvalidFormat,
			"%s size err, expect %d, got %d", name, size, len(b))
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return atterrors.Wrap(err, atterrors.InvalidFormat, name+" decode failed")
	}
	return nil
}

// Marshal renders the certificate in its on-wire form.
func (c *ChipRootCert) Marshal() []byte { return marshal(c) }

// Marshal renders the certificate in its on-wire form.
func (c *CsvCert) Marshal() []byte { return marshal(c) }

// Marshal renders the report in its on-wire form.
func (r *AttestationReport) Marshal() []byte { return marshal(r) }

func marshal(v interface{}) []byte {
	var buf bytes.Buffer
	// All fields are fixed-size; binary.Write cannot fail on them.
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}
