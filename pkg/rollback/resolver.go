package rollback

import (
	"context"

	"github.com/kairos-io/rollerderby/internal/constants"
	internalUtils "github.com/kairos-io/rollerderby/internal/utils"
	"github.com/kairos-io/rollerderby/pkg/lvm"
)

// Resolver decides which logical volumes are included for rollback.
// A volume is included when its group carries the rollback tag or when it
// carries the tag itself.
type Resolver struct {
	backend lvm.Backend
}

func NewResolver(b lvm.Backend) *Resolver {
	return &Resolver{backend: b}
}

// ListIncludedVolumes returns "vg/lv" for every included volume, in the order
// the volume manager lists groups and volumes. Any group that cannot be opened
// or closed aborts the listing and nothing is returned.
func (r *Resolver) ListIncludedVolumes(ctx context.Context) ([]string, error) {
	names, err := r.backend.VolumeGroupNames(ctx)
	if err != nil {
		return nil, newError(CollaboratorFailure, err, "listing volume groups")
	}

	included := []string{}
	for _, name := range names {
		found, err := r.scanGroup(ctx, name)
		if err != nil {
			return nil, err
		}
		included = append(included, found...)
	}
	return included, nil
}

func (r *Resolver) scanGroup(ctx context.Context, name string) (included []string, err error) {
	vg, err := r.backend.OpenVolumeGroup(ctx, name, lvm.ReadOnly)
	if err != nil {
		return nil, newError(CollaboratorFailure, err, "opening volume group %s", name)
	}
	defer func() {
		release(vg, &err)
		if err != nil {
			included = nil
		}
	}()

	wholeGroup := lvm.HasTag(vg, constants.RollbackTag)
	internalUtils.Log.Debug().Str("vg", name).Bool("whole group", wholeGroup).Msg("Scanning volume group")

	for _, lv := range vg.LogicalVolumes() {
		if wholeGroup || lvm.HasTag(lv, constants.RollbackTag) {
			included = append(included, name+"/"+lv.Name())
		}
	}
	return included, nil
}
