package lvm

import (
	"slices"
	"strings"
)

// tagSet keeps the committed tags of an object and the ones staged on top of them.
type tagSet struct {
	committed []string
	current   []string
}

func newTagSet(tags []string) *tagSet {
	return &tagSet{
		committed: slices.Clone(tags),
		current:   slices.Clone(tags),
	}
}

func (t *tagSet) list() []string {
	return slices.Clone(t.current)
}

func (t *tagSet) add(tag string) {
	if !slices.Contains(t.current, tag) {
		t.current = append(t.current, tag)
	}
}

func (t *tagSet) remove(tag string) {
	t.current = slices.DeleteFunc(t.current, func(s string) bool { return s == tag })
}

// diff returns the tags to add and delete to go from committed to current.
func (t *tagSet) diff() (added, deleted []string) {
	for _, tag := range t.current {
		if !slices.Contains(t.committed, tag) {
			added = append(added, tag)
		}
	}
	for _, tag := range t.committed {
		if !slices.Contains(t.current, tag) {
			deleted = append(deleted, tag)
		}
	}
	return added, deleted
}

func (t *tagSet) dirty() bool {
	added, deleted := t.diff()
	return len(added) > 0 || len(deleted) > 0
}

func (t *tagSet) settle() {
	t.committed = slices.Clone(t.current)
}

// splitTags parses the comma separated tag list lvm prints in vg_tags and lv_tags.
func splitTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
