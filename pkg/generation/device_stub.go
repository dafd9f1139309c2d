//go:build !linux

package generation

import "github.com/pkg/errors"

// Kernel interface paths, for configuration parity with linux builds.
const (
	CsvDevicePath = "/dev/csv-guest"
	SgxDevicePath = "/dev/sgx"
	TdxTsmPath    = "/sys/kernel/config/tsm/report"
)

type unsupportedDevice struct {
	name string
}

func (d *unsupportedDevice) Quote([]byte) ([]byte, error) {
	return nil, errors.Errorf("%s quote device is only available on linux", d.name)
}

// NewCsvDevice returns the /dev/csv-guest quote device.
func NewCsvDevice(string) Device { return &unsupportedDevice{name: "csv"} }

// NewSgxDevice returns the occlum /dev/sgx quote device.
func NewSgxDevice(string) Device { return &unsupportedDevice{name: "sgx"} }

// NewTdxDevice returns a quote device backed by the Linux TSM report
// interface.
func NewTdxDevice(string) Device { return &unsupportedDevice{name: "tdx"} }
