package state

import (
	"fmt"
	"io"
	"sync"

	internalUtils "github.com/kairos-io/rollerderby/internal/utils"
	"github.com/kairos-io/rollerderby/pkg/lvm"
	"github.com/kairos-io/rollerderby/pkg/mount"
	"github.com/kairos-io/rollerderby/pkg/schema"
	"github.com/spectrocloud-labs/herd"
	"github.com/twpayne/go-vfs/v4"
)

// State carries the inputs of one rollerderby run and what its steps produce.
// Steps touching the volume manager depend on each other, so the backend is
// never used by two steps at once.
type State struct {
	Backend lvm.Backend
	FS      vfs.FS
	Resolve mount.DeviceResolver
	Out     io.Writer

	Mountinfo string // e.g. /proc/self/mountinfo
	Fstab     string // e.g. /etc/fstab, empty to skip fstab hints
	Output    string // text, json or yaml

	// Applied in this order before listing
	TagGroups   []string
	UntagGroups []string
	Tag         []string
	Untag       []string

	// AnnounceTags prints a line for every applied tag change
	AnnounceTags bool

	mu       sync.Mutex
	err      error
	mounts   *mount.Index
	fstab    *mount.FstabIndex
	included []string
	records  []schema.StatusRecord
}

// Err returns the first error recorded by a step.
func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Included returns the volumes found by the list step.
func (s *State) Included() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.included
}

// Records returns the report built by the report step.
func (s *State) Records() []schema.StatusRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// ChangesTags reports whether the run applies any tag change.
func (s *State) ChangesTags() bool {
	return len(s.TagGroups)+len(s.UntagGroups)+len(s.Tag)+len(s.Untag) > 0
}

func (s *State) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// WriteDAG writes the dag.
func (s *State) WriteDAG(g *herd.Graph) (out string) {
	for i, layer := range g.Analyze() {
		out += fmt.Sprintf("%d.\n", i+1)
		for _, op := range layer {
			if op.Error != nil {
				out += fmt.Sprintf(" <%s> (error: %s) (background: %t) (weak: %t) (run: %t)\n", op.Name, op.Error.Error(), op.Background, op.WeakDeps, op.Executed)
			} else {
				out += fmt.Sprintf(" <%s> (background: %t) (weak: %t) (run: %t)\n", op.Name, op.Background, op.WeakDeps, op.Executed)
			}
		}
	}
	return
}

// LogIfError will log if there is an error with the given context as message
// Context can be empty.
func (s *State) LogIfError(e error, msgContext string) {
	if e != nil {
		internalUtils.Log.Err(e).Msg(msgContext)
	}
}

// LogIfErrorAndReturn will log if there is an error with the given context as message
// Context can be empty
// Will also return the error.
func (s *State) LogIfErrorAndReturn(e error, msgContext string) error {
	if e != nil {
		internalUtils.Log.Err(e).Msg(msgContext)
	}
	return e
}
