package rollback

import (
	"context"
	"strings"

	"github.com/kairos-io/rollerderby/internal/constants"
	internalUtils "github.com/kairos-io/rollerderby/internal/utils"
	"github.com/kairos-io/rollerderby/pkg/lvm"
)

// Mutator adds and removes the rollback tag.
// Every call is its own transaction: a failure does not undo earlier calls.
type Mutator struct {
	backend lvm.Backend
}

func NewMutator(b lvm.Backend) *Mutator {
	return &Mutator{backend: b}
}

// SplitQualifiedName splits "VGNAME/LVNAME" on the first slash.
func SplitQualifiedName(qualifiedName string) (string, string, error) {
	vgName, lvName, found := strings.Cut(qualifiedName, "/")
	if !found || vgName == "" || lvName == "" {
		return "", "", newError(InvalidArgument, nil, "Invalid argument '%s' - expected VGNAME/LVNAME", qualifiedName)
	}
	return vgName, lvName, nil
}

// SetRollbackTag tags (enable) or untags a single logical volume and commits the group.
func (m *Mutator) SetRollbackTag(ctx context.Context, qualifiedName string, enable bool) (err error) {
	vgName, lvName, err := SplitQualifiedName(qualifiedName)
	if err != nil {
		return err
	}

	vg, err := m.openForWrite(ctx, vgName)
	if err != nil {
		return err
	}
	defer release(vg, &err)

	lv, found := lvm.LookupLogicalVolume(vg, lvName)
	if !found {
		return newError(NotFound, nil, "No such LV '%s/%s'", vgName, lvName)
	}
	return m.apply(ctx, vg, lv, qualifiedName, enable)
}

// SetGroupRollbackTag tags (enable) or untags a volume group, which includes
// every volume in it.
func (m *Mutator) SetGroupRollbackTag(ctx context.Context, vgName string, enable bool) (err error) {
	if vgName == "" || strings.Contains(vgName, "/") {
		return newError(InvalidArgument, nil, "Invalid argument '%s' - expected VGNAME", vgName)
	}

	vg, err := m.openForWrite(ctx, vgName)
	if err != nil {
		return err
	}
	defer release(vg, &err)

	return m.apply(ctx, vg, vg, vgName, enable)
}

func (m *Mutator) openForWrite(ctx context.Context, vgName string) (lvm.VolumeGroup, error) {
	vg, err := m.backend.OpenVolumeGroup(ctx, vgName, lvm.ReadWrite)
	if err != nil {
		return nil, newError(CollaboratorFailure, err, "opening volume group %s", vgName)
	}
	return vg, nil
}

// apply changes the tag on target, which is either vg itself or one of its volumes,
// and writes the group metadata back.
func (m *Mutator) apply(ctx context.Context, vg lvm.VolumeGroup, target lvm.Tagged, name string, enable bool) error {
	l := internalUtils.Log.With().Str("target", name).Str("tag", constants.RollbackTag).Bool("enable", enable).Logger()

	if vg.Mode() != lvm.ReadWrite {
		return newError(CollaboratorFailure, lvm.ErrReadOnly, "volume group %s opened with mode %s", vg.Name(), vg.Mode())
	}

	if enable {
		if err := target.AddTag(constants.RollbackTag); err != nil {
			return newError(CollaboratorFailure, err, "adding tag to %s", name)
		}
	} else {
		if err := target.RemoveTag(constants.RollbackTag); err != nil {
			return newError(CollaboratorFailure, err, "removing tag from %s", name)
		}
	}

	if err := vg.Commit(ctx); err != nil {
		l.Debug().Err(err).Msg("Writing volume group metadata failed")
		return newError(CollaboratorFailure, err, "writing volume group %s", vg.Name())
	}
	l.Debug().Msg("Tag updated")
	return nil
}
