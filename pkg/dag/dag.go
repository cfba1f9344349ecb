package dag

import (
	cnst "github.com/kairos-io/rollerderby/internal/constants"
	"github.com/kairos-io/rollerderby/pkg/state"
	"github.com/spectrocloud-labs/herd"
)

// RegisterStatus registers the default run: apply any requested tag changes,
// then list the included volumes and report where they are mounted.
// The mount table is read first so an unreadable table stops the run before
// anything is tagged.
func RegisterStatus(s *state.State, g *herd.Graph) error {
	var err error

	err = s.LogIfErrorAndReturn(s.IndexMountsDagStep(g), "index mounts")
	if err != nil {
		return err
	}
	s.LogIfError(s.IndexFstabDagStep(g), "index fstab")

	err = s.LogIfErrorAndReturn(s.ApplyTagsDagStep(g, herd.WithDeps(cnst.OpIndexMounts)), "apply tags")
	if err != nil {
		return err
	}
	err = s.LogIfErrorAndReturn(s.ListIncludedDagStep(g, herd.WithDeps(cnst.OpApplyTags)), "list included")
	if err != nil {
		return err
	}
	return s.LogIfErrorAndReturn(s.ReportStatusDagStep(g,
		herd.WithDeps(cnst.OpListIncluded, cnst.OpIndexMounts),
		herd.WithWeakDeps(cnst.OpIndexFstab)), "report status")
}

// RegisterTagging registers a run that only applies tag changes.
func RegisterTagging(s *state.State, g *herd.Graph) error {
	return s.LogIfErrorAndReturn(s.ApplyTagsDagStep(g), "apply tags")
}
