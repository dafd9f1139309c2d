// Package verification implements the platform-agnostic attestation
// verification pipeline: a registry of per-platform verifiers, the policy
// matcher, and the caller-facing dispatch that turns any failure into a
// Status.
package verification

import (
	"sort"
	"strings"
	"time"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/platform/hygon"
	"github.com/teeverse/attestation/internal/platform/inteldcap"
	"github.com/teeverse/attestation/pkg/attestation"
	"github.com/teeverse/attestation/pkg/verification/csv"
	"github.com/teeverse/attestation/pkg/verification/sgx"
	"github.com/teeverse/attestation/pkg/verification/tdx"
)

// Verifier is one platform verification session. Instances are constructed
// per request, used once in order (VerifyPlatform, then
// ParseUnifiedReport), and discarded.
type Verifier interface {
	// VerifyPlatform checks that the report was produced by genuine TEE
	// hardware of the verifier's platform.
	VerifyPlatform() error
	// ParseUnifiedReport extracts the canonical attribute record from the
	// decoded quote.
	ParseUnifiedReport() (*attestation.UnifiedAttributes, error)
}

// DcapVerifyFunc is the vendor quote-verification entry point as seen by
// this package: raw quote, collateral, verification time in, raw vendor
// result code out.
type DcapVerifyFunc = func(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (uint32, error)

// CsvRootKey overrides the pinned Hygon Root Key. Qx and Qy are in the
// vendor's reversed byte order.
type CsvRootKey struct {
	Qx     []byte
	Qy     []byte
	UserID []byte
}

// Options configure verifier construction. The zero value selects the
// production defaults: wall-clock time, the vendor DCAP library and the
// pinned HRK.
type Options struct {
	// Now is the verification time handed to the DCAP library. The library
	// never consults the system clock on its own; a zero Now is resolved
	// by the dispatch wrapper, not here.
	Now time.Time

	// SgxQuoteVerify and TdxQuoteVerify replace the vendor entry points.
	SgxQuoteVerify DcapVerifyFunc
	TdxQuoteVerify DcapVerifyFunc

	// CsvRootKey replaces the pinned Hygon Root Key.
	CsvRootKey *CsvRootKey
}

// Constructor builds a platform verifier from a decoded report envelope.
type Constructor func(report *attestation.UnifiedReport, opts *Options) (Verifier, error)

// Factory is the verifier registry keyed by platform tag.
type Factory struct {
	creators map[string]Constructor
}

// NewFactory returns a registry with the built-in platform verifiers
// registered. HyperEnclave reports are generated by peers but have no
// verifier; the lookup rejects the tag like any other unknown platform.
func NewFactory() *Factory {
	f := &Factory{creators: make(map[string]Constructor)}
	f.Register(attestation.PlatformCsv, newCsvVerifier)
	f.Register(attestation.PlatformSgxDcap, newSgxVerifier)
	f.Register(attestation.PlatformTdx, newTdxVerifier)
	return f
}

// Register adds a constructor for a platform tag, replacing any previous
// registration.
func (f *Factory) Register(platform string, constructor Constructor) {
	f.creators[platform] = constructor
}

// Create builds the verifier for the report's platform tag.
func (f *Factory) Create(report *attestation.UnifiedReport, opts *Options) (Verifier, error) {
	if opts == nil {
		opts = &Options{}
	}
	constructor, ok := f.creators[report.TeePlatform]
	if !ok {
		supported := make([]string, 0, len(f.creators))
		for name := range f.creators {
			supported = append(supported, name)
		}
		sort.Strings(supported)
		return nil, atterrors.Newf(atterrors.ArgumentError,
			"supported platform list: %s, but not include %s",
			strings.Join(supported, ", "), report.TeePlatform)
	}
	return constructor(report, opts)
}

func newCsvVerifier(report *attestation.UnifiedReport, opts *Options) (Verifier, error) {
	rootKey := hygon.HRKPubkey()
	if opts.CsvRootKey != nil {
		if len(opts.CsvRootKey.Qx) < hygon.SM2FieldSize || len(opts.CsvRootKey.Qy) < hygon.SM2FieldSize {
			return nil, atterrors.New(atterrors.ArgumentError, "csv root key override is malformed")
		}
		rootKey = &hygon.EccPubkey{CurveID: hygon.CurveIDSM2256}
		copy(rootKey.Qx[:], opts.CsvRootKey.Qx)
		copy(rootKey.Qy[:], opts.CsvRootKey.Qy)
		rootKey.SetUID(opts.CsvRootKey.UserID)
	}
	v, err := csv.New(report, rootKey)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func newSgxVerifier(report *attestation.UnifiedReport, opts *Options) (Verifier, error) {
	verify := opts.SgxQuoteVerify
	if verify == nil {
		verify = func(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (uint32, error) {
			result, err := inteldcap.SgxVerifyQuote(quote, collateral, at)
			return uint32(result), err
		}
	}
	v, err := sgx.New(report, opts.Now, verify)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func newTdxVerifier(report *attestation.UnifiedReport, opts *Options) (Verifier, error) {
	verify := opts.TdxQuoteVerify
	if verify == nil {
		verify = func(quote []byte, collateral *attestation.QlQveCollateral, at time.Time) (uint32, error) {
			result, err := inteldcap.TdxVerifyQuote(quote, collateral, at)
			return uint32(result), err
		}
	}
	v, err := tdx.New(report, opts.Now, verify)
	if err != nil {
		return nil, err
	}
	return v, nil
}
