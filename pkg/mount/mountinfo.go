package mount

import (
	"fmt"
	"strconv"
	"strings"

	internalUtils "github.com/kairos-io/rollerderby/internal/utils"
	"github.com/moby/sys/mountinfo"
	"github.com/twpayne/go-vfs/v4"
)

// minMountinfoFields is the shortest row we try to parse. Shorter rows are skipped.
const minMountinfoFields = 8

// Entry is the part of a mountinfo row we care about.
type Entry struct {
	Mountpoint string
	FSType     string
	Source     string
}

// Index maps "major:minor" to where that device is mounted.
type Index struct {
	entries map[string]Entry
}

func deviceKey(major, minor uint32) string {
	return fmt.Sprintf("%d:%d", major, minor)
}

// BuildIndex reads the mount table at path, usually /proc/self/mountinfo.
func BuildIndex(fs vfs.FS, path string) (*Index, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseIndex(string(content)), nil
}

// ParseIndex builds an index from mountinfo text. Rows that cannot be parsed are
// skipped. When a device shows up more than once the last row wins.
func ParseIndex(content string) *Index {
	idx := &Index{entries: map[string]Entry{}}
	for _, line := range strings.Split(content, "\n") {
		if len(strings.Fields(line)) < minMountinfoFields {
			continue
		}
		key, entry, err := parseRow(line)
		if err != nil {
			internalUtils.Log.Debug().Err(err).Str("line", line).Msg("Skipping mountinfo line")
			continue
		}
		idx.entries[key] = entry
	}
	return idx
}

// parseRow locates the fs type after the "-" separator, so a variable number of
// optional fields is handled. mountinfo wants the source and super options too,
// rows lacking them go through parseShortRow.
func parseRow(line string) (string, Entry, error) {
	infos, err := mountinfo.GetMountsFromReader(strings.NewReader(line), nil)
	if err == nil && len(infos) == 1 {
		info := infos[0]
		return deviceKey(uint32(info.Major), uint32(info.Minor)), Entry{
			Mountpoint: info.Mountpoint,
			FSType:     info.FSType,
			Source:     info.Source,
		}, nil
	}
	return parseShortRow(line)
}

func parseShortRow(line string) (string, Entry, error) {
	fields := strings.Fields(line)
	sep := -1
	for i := 6; i < len(fields); i++ {
		if fields[i] == "-" {
			sep = i
			break
		}
	}
	if sep < 0 || sep+1 >= len(fields) {
		return "", Entry{}, fmt.Errorf("no fs type after separator")
	}

	majorStr, minorStr, ok := strings.Cut(fields[2], ":")
	if !ok {
		return "", Entry{}, fmt.Errorf("bad device number %q", fields[2])
	}
	major, err := strconv.ParseUint(majorStr, 10, 32)
	if err != nil {
		return "", Entry{}, fmt.Errorf("bad major %q: %w", majorStr, err)
	}
	minor, err := strconv.ParseUint(minorStr, 10, 32)
	if err != nil {
		return "", Entry{}, fmt.Errorf("bad minor %q: %w", minorStr, err)
	}

	entry := Entry{Mountpoint: unescape(fields[4]), FSType: unescape(fields[sep+1])}
	if sep+2 < len(fields) {
		entry.Source = unescape(fields[sep+2])
	}
	return deviceKey(uint32(major), uint32(minor)), entry, nil
}

// unescape decodes the octal escapes (\040 and friends) the kernel uses in mountinfo.
func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Lookup returns the mount point and filesystem of a device, or two empty
// strings when it is not mounted.
func (i *Index) Lookup(major, minor uint32) (string, string) {
	if i == nil {
		return "", ""
	}
	e, ok := i.entries[deviceKey(major, minor)]
	if !ok {
		return "", ""
	}
	return e.Mountpoint, e.FSType
}

// Len returns the number of indexed devices.
func (i *Index) Len() int {
	return len(i.entries)
}
