package constants

const (
	// RollbackTag marks a volume group or logical volume for rollback.
	RollbackTag = "rollback_include"

	DefaultMountinfo = "/proc/self/mountinfo"
	DefaultFstab     = "/etc/fstab"
	DefaultConfig    = "/etc/rollerderby/rollerderby.env"
	DefaultLVMPath   = "/sbin:/usr/sbin"

	// LvPathProperty is the lvm report field holding the volume's block device.
	LvPathProperty = "lv_path"

	NothingIncludedMsg = "No LVs tagged with '" + RollbackTag + "'; use --tag or --tag-vg to add them"
)

// Step names in the run graph
const (
	OpIndexMounts  = "index-mounts"
	OpIndexFstab   = "index-fstab"
	OpApplyTags    = "apply-tags"
	OpListIncluded = "list-included"
	OpReportStatus = "report-status"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

func OutputFormats() []string {
	return []string{OutputText, OutputJSON, OutputYAML}
}
