// Package csv verifies Hygon CSV attestation reports: the SM2 certificate
// chain HRK -> HSK -> CEK -> PEK -> quote, followed by attribute
// extraction from the XOR-obfuscated quote body.
package csv

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/common/logger"
	"github.com/teeverse/attestation/internal/crypto/smx"
	"github.com/teeverse/attestation/internal/platform/hygon"
	"github.com/teeverse/attestation/pkg/attestation"
)

var log = logger.New("csv-verifier")

// Chain step names, reported in failure details.
const (
	stepHsk      = "VerifyHskCertWithHrkPubkey"
	stepCek      = "VerifyCekCertWithHskCert"
	stepPekPlain = "RetrievePekCert"
	stepPek      = "VerifyPekCertWithCekCert"
	stepQuote    = "VerifyQuoteSignature"
)

// Verifier holds one CSV verification session.
type Verifier struct {
	report  *attestation.UnifiedReport
	rootKey *hygon.EccPubkey

	rawQuote []byte
	rawHsk   []byte
	rawCek   []byte

	quote   *hygon.AttestationReport
	hskCert *hygon.ChipRootCert
	cekCert *hygon.CsvCert

	// De-obfuscated PEK certificate, available after VerifyPlatform.
	rawPek  []byte
	pekCert *hygon.CsvCert
}

// New decodes the CSV body of the report and returns a verifier rooted at
// rootKey. Production callers pass the pinned HRK public key.
func New(report *attestation.UnifiedReport, rootKey *hygon.EccPubkey) (*Verifier, error) {
	if err := report.Validate(attestation.PlatformCsv); err != nil {
		return nil, err
	}

	var body attestation.HygonCsvReport
	if err := decodeJSON(report.JSONReport, &body); err != nil {
		return nil, err
	}

	rawQuote, err := decodeB64("b64_quote", body.B64Quote)
	if err != nil {
		return nil, err
	}
	quote, err := hygon.ParseReport(rawQuote)
	if err != nil {
		return nil, err
	}

	if body.JSONCertChain == "" {
		return nil, atterrors.New(atterrors.InvalidFormat, "missing required field json_cert_chain")
	}
	var chain attestation.HygonCsvCertChain
	if err := decodeJSON(body.JSONCertChain, &chain); err != nil {
		return nil, err
	}

	rawHsk, err := decodeB64("b64_hsk_cert", chain.B64HskCert)
	if err != nil {
		return nil, err
	}
	hskCert, err := hygon.ParseChipRootCert(rawHsk)
	if err != nil {
		return nil, err
	}

	rawCek, err := decodeB64("b64_cek_cert", chain.B64CekCert)
	if err != nil {
		return nil, err
	}
	cekCert, err := hygon.ParseCsvCert(rawCek)
	if err != nil {
		return nil, err
	}

	return &Verifier{
		report:   report,
		rootKey:  rootKey,
		rawQuote: rawQuote,
		rawHsk:   rawHsk,
		rawCek:   rawCek,
		quote:    quote,
		hskCert:  hskCert,
		cekCert:  cekCert,
	}, nil
}

// VerifyPlatform runs the certificate chain checks in strict order. The
// first failing step aborts with its name in the error details.
func (v *Verifier) VerifyPlatform() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{stepHsk, v.verifyHskCert},
		{stepCek, v.verifyCekCert},
		{stepPekPlain, v.retrievePekCert},
		{stepPek, v.verifyPekCert},
		{stepQuote, v.verifyQuoteSignature},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return atterrors.Wrap(err, atterrors.InternalError, step.name+" failed").
				WithDetails(step.name + ": " + err.Error())
		}
		log.WithField("step", step.name).Info("csv chain step succeed")
	}
	log.Info("csv report's platform verification passed")
	return nil
}

// verifyHskCert checks the HSK certificate against the root key.
func (v *Verifier) verifyHskCert() error {
	if v.hskCert.KeyUsage != hygon.KeyUsageHSK {
		return atterrors.Newf(atterrors.InternalError,
			"HSK cert usage type err, expect %#x, got %#x",
			uint32(hygon.KeyUsageHSK), v.hskCert.KeyUsage)
	}
	return verifySig(v.rootKey, &v.hskCert.Sig,
		v.rawHsk[:hygon.ChipRootCertSignedLen], v.rootKey.UID())
}

// verifyCekCert checks the CEK certificate against the HSK key.
func (v *Verifier) verifyCekCert() error {
	if v.cekCert.PubkeyUsage != hygon.KeyUsageCEK {
		return atterrors.Newf(atterrors.InternalError,
			"CEK cert pubkey_usage type err, expect %#x, got %#x",
			uint32(hygon.KeyUsageCEK), v.cekCert.PubkeyUsage)
	}
	if v.cekCert.Sig1Usage != hygon.KeyUsageHSK {
		return atterrors.Newf(atterrors.InternalError,
			"CEK cert sig1 usage type err, expect %#x, got %#x",
			uint32(hygon.KeyUsageHSK), v.cekCert.Sig1Usage)
	}
	return verifySig(&v.hskCert.Pubkey, &v.cekCert.Sig1,
		v.rawCek[:hygon.CsvCertSignedLen], v.hskCert.Pubkey.UID())
}

// retrievePekCert de-obfuscates the PEK certificate embedded in the quote.
func (v *Verifier) retrievePekCert() error {
	obfuscated := v.rawQuote[hygon.ReportPEKCertOffset : hygon.ReportPEKCertOffset+hygon.CsvCertSize]
	plain, err := hygon.RetrievePlainData(obfuscated, v.quote.Anonce)
	if err != nil {
		return err
	}
	cert, err := hygon.ParseCsvCert(plain)
	if err != nil {
		return err
	}
	v.rawPek = plain
	v.pekCert = cert
	return nil
}

// verifyPekCert checks the de-obfuscated PEK certificate against the CEK
// key.
func (v *Verifier) verifyPekCert() error {
	if v.pekCert.PubkeyUsage != hygon.KeyUsagePEK {
		return atterrors.Newf(atterrors.InternalError,
			"PEK cert pubkey_usage type err, expect %#x, got %#x",
			uint32(hygon.KeyUsagePEK), v.pekCert.PubkeyUsage)
	}
	if v.pekCert.Sig1Usage != hygon.KeyUsageCEK {
		return atterrors.Newf(atterrors.InternalError,
			"PEK cert sig1 usage type err, expect %#x, got %#x",
			uint32(hygon.KeyUsageCEK), v.pekCert.Sig1Usage)
	}
	return verifySig(&v.cekCert.Pubkey, &v.pekCert.Sig1,
		v.rawPek[:hygon.CsvCertSignedLen], v.cekCert.Pubkey.UID())
}

// verifyQuoteSignature checks the quote body against the PEK key. The
// signed span is taken from the on-wire obfuscated form.
func (v *Verifier) verifyQuoteSignature() error {
	return verifySig(&v.pekCert.Pubkey, &v.quote.Sig1,
		v.rawQuote[:hygon.ReportSignedLen], v.pekCert.Pubkey.UID())
}

// ParseUnifiedReport extracts the canonical attributes from the
// de-obfuscated quote body.
func (v *Verifier) ParseUnifiedReport() (*attestation.UnifiedAttributes, error) {
	quote := v.quote
	userData := quote.PlainUserData()

	policy := make([]byte, 4)
	binary.LittleEndian.PutUint32(policy, quote.PlainPolicy())

	attrs := &attestation.UnifiedAttributes{
		TeePlatform:       v.report.TeePlatform,
		ProdID:            hex.EncodeToString(quote.PlainVMID()),
		PlatformSwVersion: hex.EncodeToString(quote.PlainVMVersion()),
		UserData:          hex.EncodeToString(userData[:hygon.HashLen]),
		HashOrPemPubkey:   hex.EncodeToString(userData[hygon.HashLen:]),
		Nonce:             hex.EncodeToString(quote.PlainMnonce()),
		BootMeasurement:   hex.EncodeToString(quote.PlainMeasure()),
		SecureFlags:       hex.EncodeToString(policy),
	}
	return attrs, nil
}

func verifySig(pub *hygon.EccPubkey, sig *hygon.EccSignature, message, uid []byte) error {
	key, err := smx.ImportPublicKey(pub.Qx[:], pub.Qy[:])
	if err != nil {
		return err
	}
	der, err := smx.ImportSignature(sig.SigR[:], sig.SigS[:])
	if err != nil {
		return err
	}
	if !smx.VerifyWithUID(key, uid, message, der) {
		return atterrors.New(atterrors.InternalError, "sm2 verify failed")
	}
	return nil
}

func decodeJSON(text string, v interface{}) error {
	if text == "" {
		return atterrors.New(atterrors.InvalidFormat, "missing required field")
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return atterrors.Wrap(err, atterrors.InvalidFormat, "json decode failed")
	}
	return nil
}

func decodeB64(name, value string) ([]byte, error) {
	if value == "" {
		return nil, atterrors.New(atterrors.InvalidFormat, "missing required field "+name)
	}
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, atterrors.Wrap(err, atterrors.InvalidFormat, "base64 decode failed for "+name)
	}
	return b, nil
}
