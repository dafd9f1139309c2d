// Package csvtest builds Hygon CSV attestation fixtures for tests: a full
// SM2 certificate chain rooted at a generated test key, and quotes signed
// by its PEK, byte-compatible with the vendor layouts.
package csvtest

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/emmansun/gmsm/sm2"
	"github.com/stretchr/testify/require"

	"github.com/teeverse/attestation/internal/crypto/smx"
	"github.com/teeverse/attestation/internal/platform/hygon"
	"github.com/teeverse/attestation/pkg/attestation"
)

// Chain is a generated HRK -> HSK -> CEK -> PEK key chain with its
// certificates.
type Chain struct {
	RootPriv *sm2.PrivateKey
	HskPriv  *sm2.PrivateKey
	CekPriv  *sm2.PrivateKey
	PekPriv  *sm2.PrivateKey

	RootPub *hygon.EccPubkey
	Hsk     *hygon.ChipRootCert
	Cek     *hygon.CsvCert
	Pek     *hygon.CsvCert
}

// QuoteParams parameterize one generated quote.
type QuoteParams struct {
	UserData  []byte // plain, at most 64 bytes; zero-padded
	Mnonce    []byte // plain, at most 16 bytes
	Measure   []byte // plain, at most 32 bytes
	VMID      []byte
	VMVersion []byte
	Policy    uint32
	Anonce    uint32
	ChipID    string
}

func genKey(t *testing.T) *sm2.PrivateKey {
	t.Helper()
	priv, err := sm2.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return priv
}

func toPubkey(t *testing.T, priv *sm2.PrivateKey, uid string) *hygon.EccPubkey {
	t.Helper()
	qx, qy := smx.ExportPublicKey(&priv.PublicKey)
	pub := &hygon.EccPubkey{CurveID: hygon.CurveIDSM2256}
	copy(pub.Qx[:], qx)
	copy(pub.Qy[:], qy)
	pub.SetUID([]byte(uid))
	return pub
}

func sign(t *testing.T, priv *sm2.PrivateKey, uid, message []byte) hygon.EccSignature {
	t.Helper()
	der, err := priv.Sign(rand.Reader, message, sm2.NewSM2SignerOption(true, uid))
	require.NoError(t, err)
	r, s, err := smx.ExportSignature(der)
	require.NoError(t, err)
	var sig hygon.EccSignature
	copy(sig.SigR[:], r)
	copy(sig.SigS[:], s)
	return sig
}

// NewChain generates a fresh chain. The returned root public key stands in
// for the pinned HRK in tests.
func NewChain(t *testing.T) *Chain {
	t.Helper()
	c := &Chain{
		RootPriv: genKey(t),
		HskPriv:  genKey(t),
		CekPriv:  genKey(t),
		PekPriv:  genKey(t),
	}
	c.RootPub = toPubkey(t, c.RootPriv, "TEST-SSD-HRK")

	hsk := &hygon.ChipRootCert{Version: 1, KeyUsage: hygon.KeyUsageHSK}
	hsk.Pubkey = *toPubkey(t, c.HskPriv, "TEST-SSD-HSK")
	hsk.Sig = sign(t, c.RootPriv, c.RootPub.UID(), hsk.Marshal()[:hygon.ChipRootCertSignedLen])
	c.Hsk = hsk

	cek := &hygon.CsvCert{Version: 1, PubkeyUsage: hygon.KeyUsageCEK, Sig1Usage: hygon.KeyUsageHSK}
	cek.Pubkey = *toPubkey(t, c.CekPriv, "TEST-CEK")
	cek.Sig1 = sign(t, c.HskPriv, hsk.Pubkey.UID(), cek.Marshal()[:hygon.CsvCertSignedLen])
	c.Cek = cek

	pek := &hygon.CsvCert{Version: 1, PubkeyUsage: hygon.KeyUsagePEK, Sig1Usage: hygon.KeyUsageCEK}
	pek.Pubkey = *toPubkey(t, c.PekPriv, "TEST-PEK")
	pek.Sig1 = sign(t, c.CekPriv, cek.Pubkey.UID(), pek.Marshal()[:hygon.CsvCertSignedLen])
	c.Pek = pek

	return c
}

func obfuscate(t *testing.T, plain []byte, anonce uint32) []byte {
	t.Helper()
	out, err := hygon.RetrievePlainData(plain, anonce)
	require.NoError(t, err)
	return out
}

// BuildQuote assembles a signed, obfuscated on-wire quote.
func (c *Chain) BuildQuote(t *testing.T, params QuoteParams) []byte {
	t.Helper()

	var report hygon.AttestationReport
	report.Anonce = params.Anonce
	report.Policy = params.Policy ^ params.Anonce

	var userData [hygon.UserDataSize]byte
	copy(userData[:], params.UserData)
	copy(report.UserData[:], obfuscate(t, userData[:], params.Anonce))

	var mnonce [hygon.NonceSize]byte
	copy(mnonce[:], params.Mnonce)
	copy(report.Mnonce[:], obfuscate(t, mnonce[:], params.Anonce))

	var measure [hygon.HashLen]byte
	copy(measure[:], params.Measure)
	copy(report.Measure[:], obfuscate(t, measure[:], params.Anonce))

	var vmID [hygon.VMIDSize]byte
	copy(vmID[:], params.VMID)
	copy(report.VMID[:], obfuscate(t, vmID[:], params.Anonce))

	var vmVersion [hygon.VMVersionSize]byte
	copy(vmVersion[:], params.VMVersion)
	copy(report.VMVersion[:], obfuscate(t, vmVersion[:], params.Anonce))

	pekPlain := c.Pek.Marshal()
	pekObf, err := hygon.ParseCsvCert(obfuscate(t, pekPlain, params.Anonce))
	require.NoError(t, err)
	report.PEKCert = *pekObf

	var sn [hygon.SNLen]byte
	copy(sn[:], params.ChipID)
	copy(report.SN[:], obfuscate(t, sn[:], params.Anonce))

	// Quote signature covers the on-wire obfuscated prefix.
	raw := report.Marshal()
	report.Sig1 = sign(t, c.PekPriv, c.Pek.Pubkey.UID(), raw[:hygon.ReportSignedLen])

	// Chip MAC ties the PEK certificate and chip id to the mnonce.
	raw = report.Marshal()
	mac := smx.HmacSM3(mnonce[:], raw[hygon.ReportPEKCertOffset:hygon.ReportMACOffset])
	copy(report.MAC[:], mac)

	return report.Marshal()
}

// CertChainJSON renders the HSK/CEK chain as the json_cert_chain document.
func (c *Chain) CertChainJSON(t *testing.T) string {
	t.Helper()
	chain := attestation.HygonCsvCertChain{
		B64HskCert: base64.StdEncoding.EncodeToString(c.Hsk.Marshal()),
		B64CekCert: base64.StdEncoding.EncodeToString(c.Cek.Marshal()),
	}
	b, err := json.Marshal(chain)
	require.NoError(t, err)
	return string(b)
}

// Report wraps a quote into a full Passport report envelope.
func (c *Chain) Report(t *testing.T, quote []byte, chipID string) *attestation.UnifiedReport {
	t.Helper()
	body := attestation.HygonCsvReport{
		B64Quote:      base64.StdEncoding.EncodeToString(quote),
		ChipID:        chipID,
		JSONCertChain: c.CertChainJSON(t),
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return &attestation.UnifiedReport{
		ReportVersion: attestation.ReportVersion,
		ReportType:    attestation.ReportTypePassport,
		TeePlatform:   attestation.PlatformCsv,
		JSONReport:    string(b),
	}
}

// ReportJSON is Report rendered as the envelope JSON text.
func (c *Chain) ReportJSON(t *testing.T, quote []byte, chipID string) string {
	t.Helper()
	text, err := attestation.EncodeReport(c.Report(t, quote, chipID))
	require.NoError(t, err)
	return text
}

// RootKeyQxQyUID exposes the test root key in the reversed on-wire
// encoding for root-key override options.
func (c *Chain) RootKeyQxQyUID() (qx, qy, uid []byte) {
	return c.RootPub.Qx[:hygon.SM2FieldSize], c.RootPub.Qy[:hygon.SM2FieldSize], c.RootPub.UID()
}
