//go:build linux

package generation

import (
	"os"
	"path/filepath"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/teeverse/attestation/internal/platform/hygon"
)

// Kernel interface paths.
const (
	CsvDevicePath = "/dev/csv-guest"
	SgxDevicePath = "/dev/sgx"
	TdxTsmPath    = "/sys/kernel/config/tsm/report"
)

// ioctl request codes, mirroring the vendor SDK definitions.
const (
	// _IOWR('D', 1, csv_guest_mem) with sizeof(csv_guest_mem) == 16.
	csvGetAttestationReport = 0xc0104401

	// _IOR('s', 7, uint32): quote size.
	sgxGetDcapQuoteSize = 0x80047307
	// _IOWR('s', 8, sgxioc_gen_dcap_quote_arg) with three pointers.
	sgxGenDcapQuote = 0xc0187308

	csvPageSize = 4096
)

type csvGuestMem struct {
	va   uint64
	size int32
	_    [4]byte
}

type csvDevice struct {
	path string
}

// NewCsvDevice returns the /dev/csv-guest quote device.
func NewCsvDevice(path string) Device {
	if path == "" {
		path = CsvDevicePath
	}
	return &csvDevice{path: path}
}

// Quote writes the user-data block into a page-sized buffer, asks the
// firmware to fill in the attestation report, and returns the page.
func (d *csvDevice) Quote(reportData []byte) ([]byte, error) {
	if len(reportData) > hygon.ReportSize {
		return nil, errors.Errorf("user data size %d exceeds report size %d", len(reportData), hygon.ReportSize)
	}

	f, err := os.OpenFile(d.path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to open %s", d.path)
	}
	defer f.Close()

	page := make([]byte, csvPageSize)
	copy(page, reportData)

	mem := csvGuestMem{
		va:   uint64(uintptr(unsafe.Pointer(&page[0]))),
		size: csvPageSize,
	}
	if err := ioctl(f.Fd(), csvGetAttestationReport, unsafe.Pointer(&mem)); err != nil {
		return nil, errors.Wrap(err, "csv ioctl GET_ATTESTATION_REPORT failed")
	}
	return page, nil
}

type sgxDevice struct {
	path string
}

// NewSgxDevice returns the occlum /dev/sgx quote device.
func NewSgxDevice(path string) Device {
	if path == "" {
		path = SgxDevicePath
	}
	return &sgxDevice{path: path}
}

type sgxGenQuoteArg struct {
	reportData unsafe.Pointer
	quoteLen   *uint32
	quoteBuf   unsafe.Pointer
}

// Quote asks the enclave runtime for a DCAP quote over the report data.
func (d *sgxDevice) Quote(reportData []byte) ([]byte, error) {
	if len(reportData) != 64 {
		return nil, errors.Errorf("sgx report data must be 64 bytes, got %d", len(reportData))
	}

	f, err := os.OpenFile(d.path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to open %s", d.path)
	}
	defer f.Close()

	var quoteSize uint32
	if err := ioctl(f.Fd(), sgxGetDcapQuoteSize, unsafe.Pointer(&quoteSize)); err != nil {
		return nil, errors.Wrap(err, "fail to get quote size")
	}

	quote := make([]byte, quoteSize)
	arg := sgxGenQuoteArg{
		reportData: unsafe.Pointer(&reportData[0]),
		quoteLen:   &quoteSize,
		quoteBuf:   unsafe.Pointer(&quote[0]),
	}
	if err := ioctl(f.Fd(), sgxGenDcapQuote, unsafe.Pointer(&arg)); err != nil {
		return nil, errors.Wrap(err, "fail to get quote")
	}
	return quote[:quoteSize], nil
}

type tdxDevice struct {
	tsmPath string
}

// NewTdxDevice returns a quote device backed by the Linux TSM report
// interface.
func NewTdxDevice(tsmPath string) Device {
	if tsmPath == "" {
		tsmPath = TdxTsmPath
	}
	return &tdxDevice{tsmPath: tsmPath}
}

// Quote obtains a TD quote through a configfs TSM report entry.
func (d *tdxDevice) Quote(reportData []byte) ([]byte, error) {
	if len(reportData) != 64 {
		return nil, errors.Errorf("tdx report data must be 64 bytes, got %d", len(reportData))
	}

	entry := filepath.Join(d.tsmPath, "attestation")
	if err := os.Mkdir(entry, 0o700); err != nil && !os.IsExist(err) {
		return nil, errors.Wrap(err, "fail to create tsm report entry")
	}
	defer os.Remove(entry)

	if err := os.WriteFile(filepath.Join(entry, "inblob"), reportData, 0o600); err != nil {
		return nil, errors.Wrap(err, "fail to write tsm inblob")
	}
	quote, err := os.ReadFile(filepath.Join(entry, "outblob"))
	if err != nil {
		return nil, errors.Wrap(err, "fail to read tsm outblob")
	}
	return quote, nil
}

func ioctl(fd uintptr, request uint, arg unsafe.Pointer) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, uintptr(request), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
