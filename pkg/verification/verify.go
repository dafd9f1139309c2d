package verification

import (
	"time"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/internal/common/logger"
	"github.com/teeverse/attestation/pkg/attestation"
)

var log = logger.New("verification")

// Verify checks a unified attestation report against a policy, both in
// their JSON text form, and returns the outcome as a Status. The current
// wall-clock time is supplied to the platform verifier; use VerifyAt to
// pass a trusted time instead.
func Verify(reportJSON, policyJSON string) attestation.Status {
	return VerifyWithOptions(Options{Now: time.Now()}, reportJSON, policyJSON)
}

// VerifyAt is Verify with an explicit verification time.
func VerifyAt(at time.Time, reportJSON, policyJSON string) attestation.Status {
	return VerifyWithOptions(Options{Now: at}, reportJSON, policyJSON)
}

// VerifyWithOptions is Verify with full control over verifier construction.
func VerifyWithOptions(opts Options, reportJSON, policyJSON string) attestation.Status {
	err := run(func() error {
		policy, err := attestation.DecodePolicy(policyJSON)
		if err != nil {
			return err
		}
		verifier, report, err := createVerifier(&opts, reportJSON)
		if err != nil {
			return err
		}
		if err := verifier.VerifyPlatform(); err != nil {
			return err
		}
		attrs, err := verifier.ParseUnifiedReport()
		if err != nil {
			return err
		}
		if err := VerifyAttributes(attrs, policy); err != nil {
			return err
		}
		log.WithField("platform", report.TeePlatform).Info("report verification passed")
		return nil
	})
	return attestation.StatusFromError(err)
}

// ParseAttributes extracts the canonical attributes from a report without
// matching any policy. Platform verification is not performed.
func ParseAttributes(reportJSON string) (*attestation.UnifiedAttributes, attestation.Status) {
	var attrs *attestation.UnifiedAttributes
	err := run(func() error {
		verifier, _, err := createVerifier(&Options{Now: time.Now()}, reportJSON)
		if err != nil {
			return err
		}
		attrs, err = verifier.ParseUnifiedReport()
		return err
	})
	if err != nil {
		return nil, attestation.StatusFromError(err)
	}
	return attrs, attestation.StatusOK()
}

func createVerifier(opts *Options, reportJSON string) (Verifier, *attestation.UnifiedReport, error) {
	report, err := attestation.DecodeReport(reportJSON)
	if err != nil {
		return nil, nil, err
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	verifier, err := NewFactory().Create(report, opts)
	if err != nil {
		return nil, nil, err
	}
	return verifier, report, nil
}

// run executes fn and converts any panic into an internal error: the
// library never propagates a panic to the caller.
func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = atterrors.Newf(atterrors.InternalError, "verification panic: %v", r)
		}
	}()
	return fn()
}
