// Package attestation defines the unified attestation wire types shared by
// report generation and verification: the report envelope, the canonical
// attribute record, the verification policy and the caller-facing status.
//
// Field names in JSON are part of the cross-language wire contract and must
// not change.
package attestation

// Report version and type values carried in the envelope.
const (
	ReportVersion = "1.0"

	ReportTypeBgcheck  = "BackgroundCheck"
	ReportTypePassport = "Passport"
)

// TEE platform tags. The values are bit-exact identifiers used by all
// language bindings.
const (
	PlatformSgxDcap      = "SGX_DCAP"
	PlatformTdx          = "TDX"
	PlatformCsv          = "CSV"
	PlatformHyperEnclave = "HyperEnclave"
)

// UnifiedReport is the self-describing attestation report envelope. The
// platform-specific body is carried as an opaque JSON document in JSONReport
// and decoded lazily by the platform verifier.
type UnifiedReport struct {
	ReportVersion string `json:"str_report_version"`
	ReportType    string `json:"str_report_type"`
	TeePlatform   string `json:"str_tee_platform"`
	JSONReport    string `json:"json_report"`
}

// UnifiedAttributes is the canonical attribute record produced by every
// platform verifier. Binary fields are lowercase hex; absent fields are the
// empty string.
type UnifiedAttributes struct {
	TeePlatform         string `json:"str_tee_platform"`
	PlatformHwVersion   string `json:"hex_platform_hw_version"`
	PlatformSwVersion   string `json:"hex_platform_sw_version"`
	SecureFlags         string `json:"hex_secure_flags"`
	PlatformMeasurement string `json:"hex_platform_measurement"`
	BootMeasurement     string `json:"hex_boot_measurement"`
	TaMeasurement       string `json:"hex_ta_measurement"`
	TaDynMeasurement    string `json:"hex_ta_dyn_measurement"`
	Signer              string `json:"hex_signer"`
	ProdID              string `json:"hex_prod_id"`
	MinIsvSvn           string `json:"str_min_isvsvn"`
	DebugDisabled       string `json:"bool_debug_disabled"`
	UserData            string `json:"hex_user_data"`
	HashOrPemPubkey     string `json:"hex_hash_or_pem_pubkey"`
	Nonce               string `json:"hex_nonce"`
	Spid                string `json:"hex_spid"`
}

// Policy is an ordered list of expected attribute sets. Verification
// succeeds if any element matches the actual attributes.
type Policy struct {
	MainAttributes []UnifiedAttributes `json:"main_attributes"`
}

// DcapReport is the SGX_DCAP/TDX platform body: the raw quote plus the DCAP
// collateral needed for offline verification.
type DcapReport struct {
	B64Quote       string `json:"b64_quote"`
	JSONCollateral string `json:"json_collateral,omitempty"`
}

// QlQveCollateral mirrors the vendor sgx_ql_qve_collateral_t as strings.
type QlQveCollateral struct {
	Version               uint32 `json:"version"`
	TeeType               uint32 `json:"tee_type"`
	PckCrlIssuerChain     string `json:"pck_crl_issuer_chain"`
	RootCaCrl             string `json:"root_ca_crl"`
	PckCrl                string `json:"pck_crl"`
	TcbInfoIssuerChain    string `json:"tcb_info_issuer_chain"`
	TcbInfo               string `json:"tcb_info"`
	QeIdentityIssuerChain string `json:"qe_identity_issuer_chain"`
	QeIdentity            string `json:"qe_identity"`
}

// HygonCsvReport is the CSV platform body.
type HygonCsvReport struct {
	B64Quote      string `json:"b64_quote"`
	ChipID        string `json:"str_chip_id"`
	JSONCertChain string `json:"json_cert_chain,omitempty"`
}

// HygonCsvCertChain carries the HSK and CEK certificates of a Passport
// report. The HRK public key is compiled into the verifier and never
// transported.
type HygonCsvCertChain struct {
	B64HskCert string `json:"b64_hsk_cert"`
	B64CekCert string `json:"b64_cek_cert"`
}

// GenerationParams are the caller inputs to report generation. Nonce and
// user data are mutually exclusive; the public key, when present, is bound
// into the upper half of the report data as its SHA-256 digest.
type GenerationParams struct {
	ReportType     string       `json:"str_report_type"`
	ReportHexNonce string       `json:"report_hex_nonce,omitempty"`
	ReportParams   ReportParams `json:"report_params"`
}

// ReportParams is the inner parameter block of GenerationParams.
type ReportParams struct {
	HexUserData  string `json:"hex_user_data,omitempty"`
	PemPublicKey string `json:"pem_public_key,omitempty"`
}
