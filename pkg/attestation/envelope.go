package attestation

import (
	atterrors "github.com/teeverse/attestation/internal/common/errors"
)

// Validate checks the envelope header against the platform a verifier
// serves. Only Passport reports are self-contained enough to verify;
// BackgroundCheck reports require collateral the verifier does not have.
func (r *UnifiedReport) Validate(platform string) error {
	if r.ReportVersion != ReportVersion {
		return atterrors.Newf(atterrors.ArgumentError,
			"report version not match, expect %s, got %s", ReportVersion, r.ReportVersion)
	}
	if r.ReportType != ReportTypePassport {
		return atterrors.Newf(atterrors.ArgumentError,
			"unsupported report type %s, only %s is supported", r.ReportType, ReportTypePassport)
	}
	if r.TeePlatform != platform {
		return atterrors.Newf(atterrors.ArgumentError,
			"report platform not match, expect %s, got %s", platform, r.TeePlatform)
	}
	return nil
}
