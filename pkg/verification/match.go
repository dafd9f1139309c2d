package verification

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
	"github.com/teeverse/attestation/pkg/attestation"
)

// Attribute names used in match diagnostics. The strings are part of the
// diagnostic contract consumed by operators and tests of peer
// implementations.
const (
	attrPlatform      = "PLATFORM"
	attrPlatformHwVer = "PLATFORMHWVERSION"
	attrPlatformSwVer = "PLATFORMSWVERSION"
	attrSecureFlags   = "SECUREFLAGS"
	attrMrPlatform    = "MRPLATFORM"
	attrMrBoot        = "MRBOOT"
	attrMrTa          = "MRTRUSTAPP"
	attrMrTaDyn       = "MRTRUSTAPPDYN"
	attrSigner        = "SIGNER"
	attrProdID        = "PRODID"
	attrIsvSvn        = "ISVSVN"
	attrDebugDisabled = "DEBUGDISABLED"
	attrUserData      = "USERDATA"
	attrPublickey     = "PUBLICKEY"
	attrNonce         = "NONCE"
)

// isStrEqual implements the wildcard string comparison: an empty expected
// value matches anything; otherwise comparison is case-insensitive.
func isStrEqual(name, actual, expected string) (bool, string) {
	if expected == "" || strings.EqualFold(expected, actual) {
		return true, ""
	}
	return false, fmt.Sprintf("%s is not match: actual %s vs expected %s.", name, actual, expected)
}

func strToBool(s string) bool {
	return strings.EqualFold(s, "true") || s == "1"
}

func isBoolEqual(name, actual, expected string) (bool, string) {
	if expected == "" || strToBool(expected) == strToBool(actual) {
		return true, ""
	}
	return false, fmt.Sprintf("%s is not match: actual %s vs expected %s.", name, actual, expected)
}

// isGreaterEqual implements the numeric SVN comparison: pass when the
// actual value is at least the expected one. A side that fails to parse
// makes the expected entry non-matching without aborting the policy walk.
func isGreaterEqual(name, actual, expected string) (bool, string) {
	if expected == "" {
		return true, ""
	}
	expectedN, err := strconv.Atoi(expected)
	if err != nil {
		return false, fmt.Sprintf("invalid number, actual %s or expected %s", actual, expected)
	}
	actualN, err := strconv.Atoi(actual)
	if err != nil {
		return false, fmt.Sprintf("invalid number, actual %s or expected %s", actual, expected)
	}
	if expectedN <= actualN {
		return true, ""
	}
	return false, fmt.Sprintf("%s is not match: actual %s is not large than expected %s.", name, actual, expected)
}

// pubkeyMatch compares the SHA-256 of the expected public key material
// against the hash bound into the report data.
func pubkeyMatch(actual, expected *attestation.UnifiedAttributes) (bool, string) {
	if expected.HashOrPemPubkey == "" {
		return true, ""
	}
	sum := sha256.Sum256([]byte(expected.HashOrPemPubkey))
	return isStrEqual(attrPublickey, actual.HashOrPemPubkey, hex.EncodeToString(sum[:]))
}

// attrsMatch compares the actual attributes against one expected set and
// reports the first mismatching field.
func attrsMatch(actual, expected *attestation.UnifiedAttributes) (bool, string) {
	if ok, msg := isStrEqual(attrPlatform, actual.TeePlatform, expected.TeePlatform); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrPlatformHwVer, actual.PlatformHwVersion, expected.PlatformHwVersion); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrPlatformSwVer, actual.PlatformSwVersion, expected.PlatformSwVersion); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrSecureFlags, actual.SecureFlags, expected.SecureFlags); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrMrPlatform, actual.PlatformMeasurement, expected.PlatformMeasurement); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrMrBoot, actual.BootMeasurement, expected.BootMeasurement); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrMrTa, actual.TaMeasurement, expected.TaMeasurement); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrMrTaDyn, actual.TaDynMeasurement, expected.TaDynMeasurement); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrSigner, actual.Signer, expected.Signer); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrProdID, actual.ProdID, expected.ProdID); !ok {
		return false, msg
	}
	if ok, msg := isGreaterEqual(attrIsvSvn, actual.MinIsvSvn, expected.MinIsvSvn); !ok {
		return false, msg
	}
	if ok, msg := isBoolEqual(attrDebugDisabled, actual.DebugDisabled, expected.DebugDisabled); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrUserData, actual.UserData, expected.UserData); !ok {
		return false, msg
	}
	if ok, msg := pubkeyMatch(actual, expected); !ok {
		return false, msg
	}
	if ok, msg := isStrEqual(attrNonce, actual.Nonce, expected.Nonce); !ok {
		return false, msg
	}
	return true, ""
}

// VerifyAttributes checks the actual attributes against the policy. The
// policy matches when any expected entry matches; otherwise the error
// details carry one line per entry with the first mismatching field, the
// whole policy having been evaluated.
func VerifyAttributes(actual *attestation.UnifiedAttributes, policy *attestation.Policy) error {
	var mismatches []string
	for i := range policy.MainAttributes {
		ok, msg := attrsMatch(actual, &policy.MainAttributes[i])
		if ok {
			return nil
		}
		mismatches = append(mismatches, fmt.Sprintf("#%d: %s", i, msg))
	}
	return atterrors.New(atterrors.InternalError, "verify attributes failed").
		WithDetails(strings.Join(mismatches, "\n"))
}
