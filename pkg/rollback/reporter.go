package rollback

import (
	"context"
	"errors"

	"github.com/kairos-io/rollerderby/internal/constants"
	internalUtils "github.com/kairos-io/rollerderby/internal/utils"
	"github.com/kairos-io/rollerderby/pkg/lvm"
	"github.com/kairos-io/rollerderby/pkg/mount"
	"github.com/kairos-io/rollerderby/pkg/schema"
)

// Reporter correlates logical volumes with the live mount table.
type Reporter struct {
	backend lvm.Backend
	mounts  *mount.Index
	fstab   *mount.FstabIndex
	resolve mount.DeviceResolver
}

// NewReporter returns a Reporter. fstab may be nil, in which case unmounted
// volumes carry no fstab hint.
func NewReporter(b lvm.Backend, mounts *mount.Index, fstab *mount.FstabIndex, resolve mount.DeviceResolver) *Reporter {
	return &Reporter{backend: b, mounts: mounts, fstab: fstab, resolve: resolve}
}

// Report builds the status of one "vg/lv".
func (r *Reporter) Report(ctx context.Context, qualifiedName string) (schema.StatusRecord, error) {
	record := schema.StatusRecord{Name: qualifiedName}

	device, err := r.devicePath(ctx, qualifiedName)
	if err != nil {
		return record, err
	}
	record.Device = device

	major, minor, err := r.resolve(device)
	if err != nil {
		if errors.Is(err, mount.ErrNotBlockDevice) {
			return record, newError(IOFailure, nil, "Not a device: %s", device)
		}
		return record, newError(IOFailure, err, "stat %s", device)
	}
	record.Major, record.Minor = major, minor

	mountpoint, fs := r.mounts.Lookup(major, minor)
	if mountpoint != "" {
		record.Mounted = true
		record.Mountpoint = mountpoint
		record.Filesystem = fs
	} else if file, vfsType, ok := r.fstab.Lookup(major, minor); ok {
		record.FstabMountpoint = file
		record.FstabFilesystem = vfsType
	}

	internalUtils.Log.Debug().Str("lv", qualifiedName).Str("device", device).Bool("mounted", record.Mounted).Msg("Volume status")
	return record, nil
}

// ReportAll reports every name in order, stopping at the first failure.
func (r *Reporter) ReportAll(ctx context.Context, names []string) ([]schema.StatusRecord, error) {
	records := make([]schema.StatusRecord, 0, len(names))
	for _, name := range names {
		record, err := r.Report(ctx, name)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// devicePath opens the volume read-only to read its lv_path.
func (r *Reporter) devicePath(ctx context.Context, qualifiedName string) (path string, err error) {
	vgName, lvName, err := SplitQualifiedName(qualifiedName)
	if err != nil {
		return "", err
	}

	vg, err := r.backend.OpenVolumeGroup(ctx, vgName, lvm.ReadOnly)
	if err != nil {
		return "", newError(CollaboratorFailure, err, "opening volume group %s", vgName)
	}
	defer release(vg, &err)

	lv, found := lvm.LookupLogicalVolume(vg, lvName)
	if !found {
		return "", newError(NotFound, nil, "No such LV '%s/%s'", vgName, lvName)
	}

	path, err = lv.StringProperty(constants.LvPathProperty)
	if err != nil {
		return "", newError(CollaboratorFailure, err, "reading %s of %s", constants.LvPathProperty, qualifiedName)
	}
	return path, nil
}
