package mount

import (
	"fmt"
	"strings"

	"github.com/deniswernert/go-fstab"
	internalUtils "github.com/kairos-io/rollerderby/internal/utils"
	"github.com/twpayne/go-vfs/v4"
)

// FstabIndex maps "major:minor" to the fstab entry configured for that device.
// It is only used as a hint for volumes that are not mounted right now.
type FstabIndex struct {
	entries map[string]*fstab.Mount
}

// BuildFstabIndex reads the fstab at path and keys every entry whose device can be
// resolved by resolve. Swap, pseudo filesystems and unresolvable specs are left out.
func BuildFstabIndex(fs vfs.FS, path string, resolve DeviceResolver) (*FstabIndex, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	idx := &FstabIndex{entries: map[string]*fstab.Mount{}}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m, err := fstab.ParseLine(line)
		if err != nil || m == nil {
			internalUtils.Log.Debug().Err(err).Str("line", line).Msg("Skipping fstab line")
			continue
		}
		if m.IsSwap() {
			continue
		}
		major, minor, err := resolve(specToPath(m.Spec))
		if err != nil {
			internalUtils.Log.Debug().Err(err).Str("spec", m.Spec).Msg("Cannot resolve fstab device")
			continue
		}
		idx.entries[deviceKey(major, minor)] = m
	}
	return idx, nil
}

// Lookup returns the configured mount point and filesystem of a device.
func (f *FstabIndex) Lookup(major, minor uint32) (string, string, bool) {
	if f == nil {
		return "", "", false
	}
	m, ok := f.entries[deviceKey(major, minor)]
	if !ok {
		return "", "", false
	}
	return m.File, m.VfsType, true
}

// specToPath turns UUID= and LABEL= specs into their /dev/disk symlinks.
func specToPath(spec string) string {
	switch {
	case strings.HasPrefix(spec, "UUID="):
		return fmt.Sprintf("/dev/disk/by-uuid/%s", strings.TrimPrefix(spec, "UUID="))
	case strings.HasPrefix(spec, "LABEL="):
		return fmt.Sprintf("/dev/disk/by-label/%s", strings.TrimPrefix(spec, "LABEL="))
	case strings.HasPrefix(spec, "PARTUUID="):
		return fmt.Sprintf("/dev/disk/by-partuuid/%s", strings.TrimPrefix(spec, "PARTUUID="))
	default:
		return spec
	}
}
