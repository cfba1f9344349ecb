package lvm

import (
	"context"
	"errors"
)

// Mode is the access mode a volume group is opened with.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "w"
	}
	return "r"
}

// ErrReadOnly is returned when mutating a handle opened with ReadOnly.
var ErrReadOnly = errors.New("volume group opened read-only")

// ErrClosed is returned when using a handle after Close.
var ErrClosed = errors.New("volume group handle is closed")

// Tagged is anything carrying a tag set: volume groups and logical volumes.
type Tagged interface {
	Name() string
	Tags() []string
	AddTag(tag string) error
	RemoveTag(tag string) error
}

// LogicalVolume is a handle to a logical volume, valid while its group is open.
type LogicalVolume interface {
	Tagged
	// StringProperty returns a report field such as lv_path.
	StringProperty(name string) (string, error)
}

// VolumeGroup is an open volume group handle.
// Tag changes on the group or its volumes are staged until Commit.
type VolumeGroup interface {
	Tagged
	Mode() Mode
	LogicalVolumes() []LogicalVolume
	Commit(ctx context.Context) error
	Close() error
}

// Backend is the volume manager session.
type Backend interface {
	// VolumeGroupNames returns the known groups in the order the volume manager reports them.
	VolumeGroupNames(ctx context.Context) ([]string, error)
	OpenVolumeGroup(ctx context.Context, name string, mode Mode) (VolumeGroup, error)
}

// LookupLogicalVolume finds a volume by name within an open group.
func LookupLogicalVolume(vg VolumeGroup, name string) (LogicalVolume, bool) {
	for _, lv := range vg.LogicalVolumes() {
		if lv.Name() == name {
			return lv, true
		}
	}
	return nil, false
}

// HasTag reports whether t carries tag.
func HasTag(t Tagged, tag string) bool {
	for _, existing := range t.Tags() {
		if existing == tag {
			return true
		}
	}
	return false
}
