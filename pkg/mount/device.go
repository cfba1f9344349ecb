package mount

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/twpayne/go-vfs/v4"
	"golang.org/x/sys/unix"
)

// ErrNotBlockDevice is returned when a path exists but is not a block device.
var ErrNotBlockDevice = errors.New("not a block device")

// DeviceResolver returns the major and minor numbers of the block device at path.
type DeviceResolver func(path string) (uint32, uint32, error)

// DeviceNumber stats path on fs and extracts the device numbers.
func DeviceNumber(fs vfs.FS, path string) (uint32, uint32, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	if fi.Mode()&os.ModeDevice == 0 || fi.Mode()&os.ModeCharDevice != 0 {
		return 0, 0, fmt.Errorf("Not a device: %s: %w", path, ErrNotBlockDevice)
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, fmt.Errorf("no raw stat information for %s", path)
	}
	rdev := uint64(st.Rdev) //nolint:unconvert // Rdev is 32 bits on some arches
	return unix.Major(rdev), unix.Minor(rdev), nil
}

// FSDeviceResolver binds DeviceNumber to a filesystem.
func FSDeviceResolver(fs vfs.FS) DeviceResolver {
	return func(path string) (uint32, uint32, error) {
		return DeviceNumber(fs, path)
	}
}
