package inteldcap

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atterrors "github.com/teeverse/attestation/internal/common/errors"
)

func marshalBody(t *testing.T, v interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	return buf.Bytes()
}

func buildQuote3(t *testing.T, body *ReportBody) []byte {
	t.Helper()
	header := make([]byte, QuoteHeaderSize)
	binary.LittleEndian.PutUint16(header[0:2], 3)
	raw := append(header, marshalBody(t, body)...)
	return append(raw, 0, 0, 0, 0)
}

func buildTdxQuote(t *testing.T, version uint16, teeType uint32, body *Report2Body) []byte {
	t.Helper()
	header := make([]byte, QuoteHeaderSize)
	binary.LittleEndian.PutUint16(header[0:2], version)
	binary.LittleEndian.PutUint32(header[4:8], teeType)

	bodyBytes := marshalBody(t, body)
	require.Len(t, bodyBytes, Report2BodySize)

	switch version {
	case 5:
		// v5 carries a body type and size between header and body.
		mid := make([]byte, 6)
		binary.LittleEndian.PutUint16(mid[0:2], 2)
		binary.LittleEndian.PutUint32(mid[2:6], uint32(len(bodyBytes)))
		return append(append(header, mid...), bodyBytes...)
	default:
		raw := append(header, bodyBytes...)
		return append(raw, 0, 0, 0, 0)
	}
}

func TestBodySizes(t *testing.T) {
	assert.Len(t, marshalBody(t, &ReportBody{}), ReportBodySize)
	assert.Len(t, marshalBody(t, &Report2Body{}), Report2BodySize)
}

func TestParseQuote3(t *testing.T) {
	body := &ReportBody{IsvProdID: 7, IsvSvn: 5, AttributesFlags: SgxFlagsDebug}
	body.MrEnclave[0] = 0xaa
	body.MrSigner[0] = 0xbb
	body.ReportData[0] = 0xcc

	quote, err := ParseQuote3(buildQuote3(t, body))
	require.NoError(t, err)
	assert.Equal(t, uint16(3), quote.Version)
	assert.Equal(t, uint16(7), quote.Body.IsvProdID)
	assert.Equal(t, uint16(5), quote.Body.IsvSvn)
	assert.Equal(t, uint64(SgxFlagsDebug), quote.Body.AttributesFlags)
	assert.Equal(t, byte(0xaa), quote.Body.MrEnclave[0])
	assert.Equal(t, byte(0xbb), quote.Body.MrSigner[0])
	assert.Equal(t, byte(0xcc), quote.Body.ReportData[0])
}

func TestParseQuote3TooShort(t *testing.T) {
	// A bare header is not a quote.
	_, err := ParseQuote3(make([]byte, QuoteHeaderSize))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))

	_, err = ParseQuote3(make([]byte, Quote3MinSize-1))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}

func TestParseTdxQuoteV4(t *testing.T) {
	body := &Report2Body{TdAttributes: SgxFlagsDebug}
	body.MrTd[0] = 0x01
	body.RtMr[2][0] = 0x02

	quote, err := ParseTdxQuote(buildTdxQuote(t, 4, TeeTypeTdx, body))
	require.NoError(t, err)
	assert.Equal(t, uint16(4), quote.Version)
	assert.Equal(t, byte(0x01), quote.Body.MrTd[0])
	assert.Equal(t, byte(0x02), quote.Body.RtMr[2][0])
}

func TestParseTdxQuoteV5BodyLocation(t *testing.T) {
	body := &Report2Body{}
	body.MrSeam[0] = 0x5e
	body.ReportData[63] = 0x99

	quote, err := ParseTdxQuote(buildTdxQuote(t, 5, TeeTypeTdx, body))
	require.NoError(t, err)
	assert.Equal(t, uint16(5), quote.Version)
	assert.Equal(t, byte(0x5e), quote.Body.MrSeam[0])
	assert.Equal(t, byte(0x99), quote.Body.ReportData[63])
}

func TestParseTdxQuoteWrongTeeType(t *testing.T) {
	_, err := ParseTdxQuote(buildTdxQuote(t, 4, TeeTypeSgx, &Report2Body{}))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InternalError))
	assert.Contains(t, err.Error(), "tee_type")
}

func TestParseTdxQuoteUnknownVersion(t *testing.T) {
	_, err := ParseTdxQuote(buildTdxQuote(t, 6, TeeTypeTdx, &Report2Body{}))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InternalError))
	assert.Contains(t, err.Error(), "version")
}

func TestParseTdxQuoteTooShort(t *testing.T) {
	_, err := ParseTdxQuote(make([]byte, QuoteHeaderSize))
	require.Error(t, err)
	assert.True(t, atterrors.IsKind(err, atterrors.InvalidFormat))
}

func TestQvResultWarning(t *testing.T) {
	warn := []QvResult{
		QvResultConfigNeeded, QvResultOutOfDate, QvResultOutOfDateConfigNeeded,
		QvResultSwHardeningNeeded, QvResultConfigAndSwHardeningNeeded,
	}
	for _, r := range warn {
		assert.True(t, r.Warning(), r.String())
	}
	for _, r := range []QvResult{QvResultOK, QvResultInvalidSignature, QvResultRevoked, QvResultUnspecified} {
		assert.False(t, r.Warning(), r.String())
	}
}

func TestValidateCollateral(t *testing.T) {
	coll := &fullCollateral
	assert.NoError(t, ValidateCollateral(coll))

	missing := fullCollateral
	missing.TcbInfo = ""
	err := ValidateCollateral(&missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tcb_info")

	assert.Error(t, ValidateCollateral(nil))
}
