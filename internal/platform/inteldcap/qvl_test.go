package inteldcap

import "github.com/teeverse/attestation/pkg/attestation"

var fullCollateral = attestation.QlQveCollateral{
	Version:               3,
	TeeType:               TeeTypeSgx,
	PckCrlIssuerChain:     "pck-crl-issuer-chain",
	RootCaCrl:             "root-ca-crl",
	PckCrl:                "pck-crl",
	TcbInfoIssuerChain:    "tcb-info-issuer-chain",
	TcbInfo:               "tcb-info",
	QeIdentityIssuerChain: "qe-identity-issuer-chain",
	QeIdentity:            "qe-identity",
}
