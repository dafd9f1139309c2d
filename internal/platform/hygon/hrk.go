package hygon

// Hygon Root Key public key, parsed from the binary published at
// https://cert.hygon.cn/hrk. The verifier pins this key in source; it is
// never fetched at run time.
var (
	hrkQx = [SM2FieldSize]byte{
		0x2d, 0xf6, 0xc2, 0x92, 0x1d, 0xf2, 0xf5, 0x2a,
		0x50, 0x1f, 0xcd, 0x85, 0xe7, 0x35, 0x09, 0xc8,
		0x75, 0x3a, 0x56, 0x09, 0xdb, 0x02, 0xd7, 0xf3,
		0x4c, 0xf1, 0xa4, 0x62, 0x4d, 0xe1, 0x62, 0xbe,
	}
	hrkQy = [SM2FieldSize]byte{
		0x46, 0xb9, 0x1e, 0xb4, 0x68, 0x4d, 0x74, 0x38,
		0x47, 0x88, 0xbe, 0xb9, 0x10, 0x0c, 0x64, 0x4a,
		0x38, 0x95, 0x4e, 0x16, 0x97, 0x8b, 0x4f, 0x58,
		0x15, 0x70, 0xbb, 0x57, 0x3a, 0x12, 0xab, 0x3b,
	}
	hrkUserID = []byte("HYGON-SSD-HRK")
)

// HRKPubkey returns a fresh copy of the pinned Hygon Root Key public key.
func HRKPubkey() *EccPubkey {
	var pub EccPubkey
	pub.CurveID = CurveIDSM2256
	copy(pub.Qx[:], hrkQx[:])
	copy(pub.Qy[:], hrkQy[:])
	pub.SetUID(hrkUserID)
	return &pub
}
