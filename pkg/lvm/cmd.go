package lvm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// lvFields are the columns requested for every logical volume. They become
// the properties served by StringProperty.
var lvFields = []string{"lv_name", "vg_name", "lv_uuid", "lv_tags", "lv_path", "lv_dm_path", "lv_attr", "lv_size"}

// report is the shape of `--reportformat json` output of vgs and lvs.
type report struct {
	Report []struct {
		VG []map[string]string `json:"vg"`
		LV []map[string]string `json:"lv"`
	} `json:"report"`
}

// CommandBackend talks to lvm through its command line tools.
type CommandBackend struct {
	exec Executor
}

func NewCommandBackend(e Executor) *CommandBackend {
	return &CommandBackend{exec: e}
}

func (c *CommandBackend) query(ctx context.Context, name string, args ...string) (*report, error) {
	args = append([]string{"--reportformat", "json", "--units", "b", "--nosuffix"}, args...)
	out, err := c.exec.Run(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	r := &report{}
	if err := json.Unmarshal(out, r); err != nil {
		return nil, fmt.Errorf("parsing %s report: %w", name, err)
	}
	return r, nil
}

func (c *CommandBackend) VolumeGroupNames(ctx context.Context) ([]string, error) {
	r, err := c.query(ctx, "vgs", "-o", "vg_name")
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, section := range r.Report {
		for _, row := range section.VG {
			names = append(names, row["vg_name"])
		}
	}
	return names, nil
}

func (c *CommandBackend) OpenVolumeGroup(ctx context.Context, name string, mode Mode) (VolumeGroup, error) {
	vgReport, err := c.query(ctx, "vgs", "-o", "vg_name,vg_tags", name)
	if err != nil {
		return nil, err
	}
	var vgRow map[string]string
	for _, section := range vgReport.Report {
		for _, row := range section.VG {
			if row["vg_name"] == name {
				vgRow = row
			}
		}
	}
	if vgRow == nil {
		return nil, fmt.Errorf("volume group %q not found", name)
	}

	lvReport, err := c.query(ctx, "lvs", "-o", strings.Join(lvFields, ","), name)
	if err != nil {
		return nil, err
	}

	vg := &cmdVolumeGroup{
		backend: c,
		name:    name,
		mode:    mode,
		tags:    newTagSet(splitTags(vgRow["vg_tags"])),
	}
	for _, section := range lvReport.Report {
		for _, row := range section.LV {
			vg.lvs = append(vg.lvs, &cmdLogicalVolume{
				vg:    vg,
				name:  row["lv_name"],
				props: row,
				tags:  newTagSet(splitTags(row["lv_tags"])),
			})
		}
	}
	return vg, nil
}

type cmdVolumeGroup struct {
	backend *CommandBackend
	name    string
	mode    Mode
	tags    *tagSet
	lvs     []*cmdLogicalVolume
	closed  bool
}

func (v *cmdVolumeGroup) Name() string   { return v.name }
func (v *cmdVolumeGroup) Mode() Mode     { return v.mode }
func (v *cmdVolumeGroup) Tags() []string { return v.tags.list() }

func (v *cmdVolumeGroup) writable() error {
	if v.closed {
		return ErrClosed
	}
	if v.mode != ReadWrite {
		return ErrReadOnly
	}
	return nil
}

func (v *cmdVolumeGroup) AddTag(tag string) error {
	if err := v.writable(); err != nil {
		return err
	}
	v.tags.add(tag)
	return nil
}

func (v *cmdVolumeGroup) RemoveTag(tag string) error {
	if err := v.writable(); err != nil {
		return err
	}
	v.tags.remove(tag)
	return nil
}

func (v *cmdVolumeGroup) LogicalVolumes() []LogicalVolume {
	lvs := make([]LogicalVolume, 0, len(v.lvs))
	for _, lv := range v.lvs {
		lvs = append(lvs, lv)
	}
	return lvs
}

// Commit writes staged tag changes, group first and then each changed volume.
func (v *cmdVolumeGroup) Commit(ctx context.Context) error {
	if err := v.writable(); err != nil {
		return err
	}
	if v.tags.dirty() {
		if _, err := v.backend.exec.Run(ctx, "vgchange", append(tagArgs(v.tags), v.name)...); err != nil {
			return err
		}
		v.tags.settle()
	}
	for _, lv := range v.lvs {
		if !lv.tags.dirty() {
			continue
		}
		if _, err := v.backend.exec.Run(ctx, "lvchange", append(tagArgs(lv.tags), v.name+"/"+lv.name)...); err != nil {
			return err
		}
		lv.tags.settle()
	}
	return nil
}

func (v *cmdVolumeGroup) Close() error {
	if v.closed {
		return ErrClosed
	}
	v.closed = true
	return nil
}

func tagArgs(t *tagSet) []string {
	args := []string{}
	added, deleted := t.diff()
	for _, tag := range added {
		args = append(args, "--addtag", tag)
	}
	for _, tag := range deleted {
		args = append(args, "--deltag", tag)
	}
	return args
}

type cmdLogicalVolume struct {
	vg    *cmdVolumeGroup
	name  string
	props map[string]string
	tags  *tagSet
}

func (l *cmdLogicalVolume) Name() string   { return l.name }
func (l *cmdLogicalVolume) Tags() []string { return l.tags.list() }

func (l *cmdLogicalVolume) AddTag(tag string) error {
	if err := l.vg.writable(); err != nil {
		return err
	}
	l.tags.add(tag)
	return nil
}

func (l *cmdLogicalVolume) RemoveTag(tag string) error {
	if err := l.vg.writable(); err != nil {
		return err
	}
	l.tags.remove(tag)
	return nil
}

func (l *cmdLogicalVolume) StringProperty(name string) (string, error) {
	value, ok := l.props[name]
	if !ok {
		return "", fmt.Errorf("invalid LVM property '%s'", name)
	}
	return value, nil
}
