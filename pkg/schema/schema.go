package schema

// StatusRecord is the report line for one included logical volume.
type StatusRecord struct {
	// Name is the qualified "vg/lv" name
	Name string `json:"name" yaml:"name"`
	// Device is the block device, e.g. /dev/data/lv1
	Device     string `json:"device" yaml:"device"`
	Major      uint32 `json:"major" yaml:"major"`
	Minor      uint32 `json:"minor" yaml:"minor"`
	Mounted    bool   `json:"mounted" yaml:"mounted"`
	Mountpoint string `json:"mountpoint,omitempty" yaml:"mountpoint,omitempty"`
	Filesystem string `json:"filesystem,omitempty" yaml:"filesystem,omitempty"`

	// From /etc/fstab, only filled when the volume is not mounted
	FstabMountpoint string `json:"fstabMountpoint,omitempty" yaml:"fstabMountpoint,omitempty"`
	FstabFilesystem string `json:"fstabFilesystem,omitempty" yaml:"fstabFilesystem,omitempty"`
}

// Report is the full output of a listing.
type Report struct {
	Volumes []StatusRecord `json:"volumes" yaml:"volumes"`
}
