package lvm

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// MemoryBackend is an in-process volume manager. Groups and volumes keep their
// insertion order. Failures can be injected per group or per "vg/lv".
type MemoryBackend struct {
	mu     sync.Mutex
	groups []*memGroup

	failOpen   map[string]error
	failClose  map[string]error
	failCommit map[string]error
	failTag    map[string]error

	calls int
	open  int
}

type memGroup struct {
	name string
	tags []string
	lvs  []*memVolume
}

type memVolume struct {
	name  string
	tags  []string
	props map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		failOpen:   map[string]error{},
		failClose:  map[string]error{},
		failCommit: map[string]error{},
		failTag:    map[string]error{},
	}
}

// AddVolumeGroup registers an empty group.
func (m *MemoryBackend) AddVolumeGroup(name string, tags ...string) *MemoryBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = append(m.groups, &memGroup{name: name, tags: slices.Clone(tags)})
	return m
}

// AddLogicalVolume registers a volume in an existing group. The device path
// is served as the lv_path property.
func (m *MemoryBackend) AddLogicalVolume(vg, name, devicePath string, tags ...string) *MemoryBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.group(vg)
	if g == nil {
		panic(fmt.Sprintf("no volume group %q", vg))
	}
	g.lvs = append(g.lvs, &memVolume{
		name: name,
		tags: slices.Clone(tags),
		props: map[string]string{
			"lv_name": name,
			"vg_name": vg,
			"lv_path": devicePath,
		},
	})
	return m
}

func (m *MemoryBackend) FailOpen(vg string, err error)   { m.inject(m.failOpen, vg, err) }
func (m *MemoryBackend) FailClose(vg string, err error)  { m.inject(m.failClose, vg, err) }
func (m *MemoryBackend) FailCommit(vg string, err error) { m.inject(m.failCommit, vg, err) }

// FailTag makes AddTag and RemoveTag fail on a group ("vg") or a volume ("vg/lv").
func (m *MemoryBackend) FailTag(target string, err error) { m.inject(m.failTag, target, err) }

func (m *MemoryBackend) inject(where map[string]error, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	where[key] = err
}

// Calls returns how many backend operations were made.
func (m *MemoryBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// OpenHandles returns the number of group handles opened and not yet closed.
func (m *MemoryBackend) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// CommittedTags returns the persisted tags of "vg" or "vg/lv".
func (m *MemoryBackend) CommittedTags(target string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	vgName, lvName, isLV := strings.Cut(target, "/")
	g := m.group(vgName)
	if g == nil {
		return nil
	}
	if !isLV {
		return slices.Clone(g.tags)
	}
	for _, lv := range g.lvs {
		if lv.name == lvName {
			return slices.Clone(lv.tags)
		}
	}
	return nil
}

func (m *MemoryBackend) group(name string) *memGroup {
	for _, g := range m.groups {
		if g.name == name {
			return g
		}
	}
	return nil
}

func (m *MemoryBackend) VolumeGroupNames(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	names := make([]string, 0, len(m.groups))
	for _, g := range m.groups {
		names = append(names, g.name)
	}
	return names, nil
}

func (m *MemoryBackend) OpenVolumeGroup(_ context.Context, name string, mode Mode) (VolumeGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.failOpen[name]; err != nil {
		return nil, err
	}
	g := m.group(name)
	if g == nil {
		return nil, fmt.Errorf("volume group %q not found", name)
	}
	m.open++

	vg := &memVolumeGroup{backend: m, group: g, mode: mode, tags: newTagSet(g.tags)}
	for _, lv := range g.lvs {
		vg.lvs = append(vg.lvs, &memLogicalVolume{vg: vg, volume: lv, tags: newTagSet(lv.tags)})
	}
	return vg, nil
}

type memVolumeGroup struct {
	backend *MemoryBackend
	group   *memGroup
	mode    Mode
	tags    *tagSet
	lvs     []*memLogicalVolume
	closed  bool
}

func (v *memVolumeGroup) Name() string   { return v.group.name }
func (v *memVolumeGroup) Mode() Mode     { return v.mode }
func (v *memVolumeGroup) Tags() []string { return v.tags.list() }

func (v *memVolumeGroup) writable(target string) error {
	if v.closed {
		return ErrClosed
	}
	if v.mode != ReadWrite {
		return ErrReadOnly
	}
	v.backend.mu.Lock()
	defer v.backend.mu.Unlock()
	v.backend.calls++
	return v.backend.failTag[target]
}

func (v *memVolumeGroup) AddTag(tag string) error {
	if err := v.writable(v.group.name); err != nil {
		return err
	}
	v.tags.add(tag)
	return nil
}

func (v *memVolumeGroup) RemoveTag(tag string) error {
	if err := v.writable(v.group.name); err != nil {
		return err
	}
	v.tags.remove(tag)
	return nil
}

func (v *memVolumeGroup) LogicalVolumes() []LogicalVolume {
	lvs := make([]LogicalVolume, 0, len(v.lvs))
	for _, lv := range v.lvs {
		lvs = append(lvs, lv)
	}
	return lvs
}

func (v *memVolumeGroup) Commit(_ context.Context) error {
	if v.closed {
		return ErrClosed
	}
	if v.mode != ReadWrite {
		return ErrReadOnly
	}
	v.backend.mu.Lock()
	defer v.backend.mu.Unlock()
	v.backend.calls++
	if err := v.backend.failCommit[v.group.name]; err != nil {
		return err
	}
	v.group.tags = v.tags.list()
	v.tags.settle()
	for _, lv := range v.lvs {
		lv.volume.tags = lv.tags.list()
		lv.tags.settle()
	}
	return nil
}

func (v *memVolumeGroup) Close() error {
	if v.closed {
		return ErrClosed
	}
	v.closed = true
	v.backend.mu.Lock()
	defer v.backend.mu.Unlock()
	v.backend.calls++
	v.backend.open--
	return v.backend.failClose[v.group.name]
}

type memLogicalVolume struct {
	vg     *memVolumeGroup
	volume *memVolume
	tags   *tagSet
}

func (l *memLogicalVolume) Name() string   { return l.volume.name }
func (l *memLogicalVolume) Tags() []string { return l.tags.list() }

func (l *memLogicalVolume) AddTag(tag string) error {
	if err := l.vg.writable(l.vg.group.name + "/" + l.volume.name); err != nil {
		return err
	}
	l.tags.add(tag)
	return nil
}

func (l *memLogicalVolume) RemoveTag(tag string) error {
	if err := l.vg.writable(l.vg.group.name + "/" + l.volume.name); err != nil {
		return err
	}
	l.tags.remove(tag)
	return nil
}

func (l *memLogicalVolume) StringProperty(name string) (string, error) {
	value, ok := l.volume.props[name]
	if !ok {
		return "", fmt.Errorf("invalid LVM property '%s'", name)
	}
	return value, nil
}
