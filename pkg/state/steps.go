package state

import (
	"context"
	"fmt"
	"strings"

	cnst "github.com/kairos-io/rollerderby/internal/constants"
	internalUtils "github.com/kairos-io/rollerderby/internal/utils"
	"github.com/kairos-io/rollerderby/pkg/mount"
	"github.com/kairos-io/rollerderby/pkg/rollback"
	"github.com/spectrocloud-labs/herd"
)

// guard runs fn only if no earlier step failed and records its error.
// A failed step stops everything after it.
func (s *State) guard(name string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := s.Err(); err != nil {
			internalUtils.Log.Debug().Str("step", name).Msg("Skipping, an earlier step failed")
			return nil
		}
		if err := fn(ctx); err != nil {
			s.setErr(err)
			return err
		}
		return nil
	}
}

// IndexMountsDagStep reads the mount table so volumes can be matched to their mount points.
func (s *State) IndexMountsDagStep(g *herd.Graph, opts ...herd.OpOption) error {
	return g.Add(cnst.OpIndexMounts, append(opts, herd.WithCallback(s.guard(cnst.OpIndexMounts, func(_ context.Context) error {
		idx, err := mount.BuildIndex(s.FS, s.Mountinfo)
		if err != nil {
			return &rollback.Error{Kind: rollback.IOFailure, Msg: fmt.Sprintf("reading %s", s.Mountinfo), Err: err}
		}
		internalUtils.Log.Debug().Str("path", s.Mountinfo).Int("devices", idx.Len()).Msg("Mount table indexed")

		s.mu.Lock()
		s.mounts = idx
		s.mu.Unlock()
		return nil
	})))...)
}

// IndexFstabDagStep reads fstab for hints on unmounted volumes. A broken or
// missing fstab only costs the hints, it never fails the run.
func (s *State) IndexFstabDagStep(g *herd.Graph, opts ...herd.OpOption) error {
	return g.Add(cnst.OpIndexFstab, append(opts, herd.WithCallback(func(_ context.Context) error {
		if s.Fstab == "" {
			return nil
		}
		idx, err := mount.BuildFstabIndex(s.FS, s.Fstab, s.Resolve)
		if err != nil {
			internalUtils.Log.Warn().Err(err).Str("path", s.Fstab).Msg("Not using fstab hints")
			return nil
		}
		s.mu.Lock()
		s.fstab = idx
		s.mu.Unlock()
		return nil
	}))...)
}

// ApplyTagsDagStep tags and untags groups and volumes, in that order.
// Changes made before a failure stay applied.
func (s *State) ApplyTagsDagStep(g *herd.Graph, opts ...herd.OpOption) error {
	return g.Add(cnst.OpApplyTags, append(opts, herd.WithCallback(s.guard(cnst.OpApplyTags, func(ctx context.Context) error {
		mutator := rollback.NewMutator(s.Backend)

		for _, vg := range s.TagGroups {
			if err := mutator.SetGroupRollbackTag(ctx, vg, true); err != nil {
				return err
			}
			s.announce("Added volume group %s to rollback\n", vg)
		}
		for _, vg := range s.UntagGroups {
			if err := mutator.SetGroupRollbackTag(ctx, vg, false); err != nil {
				return err
			}
			s.announce("Removed volume group %s from rollback\n", vg)
		}
		for _, lv := range s.Tag {
			if err := mutator.SetRollbackTag(ctx, lv, true); err != nil {
				return err
			}
			s.announce("Added %s to rollback\n", lv)
		}
		for _, lv := range s.Untag {
			if err := mutator.SetRollbackTag(ctx, lv, false); err != nil {
				return err
			}
			s.announce("Removed %s from rollback\n", lv)
		}
		return nil
	})))...)
}

func (s *State) announce(format string, args ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	internalUtils.Log.Info().Msg(msg)
	internalUtils.KLog.Logger.Info().Msg(msg)
	if s.AnnounceTags && s.Out != nil {
		fmt.Fprintf(s.Out, format, args...)
	}
}

// ListIncludedDagStep resolves which volumes are included for rollback.
func (s *State) ListIncludedDagStep(g *herd.Graph, opts ...herd.OpOption) error {
	return g.Add(cnst.OpListIncluded, append(opts, herd.WithCallback(s.guard(cnst.OpListIncluded, func(ctx context.Context) error {
		included, err := rollback.NewResolver(s.Backend).ListIncludedVolumes(ctx)
		if err != nil {
			return err
		}
		internalUtils.Log.Debug().Strs("volumes", included).Msg("Included volumes")

		s.mu.Lock()
		s.included = included
		s.mu.Unlock()
		return nil
	})))...)
}

// ReportStatusDagStep reports every included volume and writes the report to Out.
func (s *State) ReportStatusDagStep(g *herd.Graph, opts ...herd.OpOption) error {
	return g.Add(cnst.OpReportStatus, append(opts, herd.WithCallback(s.guard(cnst.OpReportStatus, func(ctx context.Context) error {
		s.mu.Lock()
		reporter := rollback.NewReporter(s.Backend, s.mounts, s.fstab, s.Resolve)
		included := s.included
		s.mu.Unlock()

		records, err := reporter.ReportAll(ctx, included)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.records = records
		s.mu.Unlock()

		return WriteReport(s.Out, s.Output, records)
	})))...)
}
