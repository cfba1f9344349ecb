package lvm_test

import (
	"context"
	"errors"
	"strings"

	"github.com/kairos-io/rollerderby/pkg/lvm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeExecutor answers with canned output keyed by the tool name and records every call.
type fakeExecutor struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeExecutor) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return []byte(f.outputs[name]), nil
}

const vgsOutput = `{
  "report": [
    {
      "vg": [
        {"vg_name":"data", "vg_tags":"rollback_include,other"}
      ]
    }
  ]
}`

const lvsOutput = `{
  "report": [
    {
      "lv": [
        {"lv_name":"lv1", "vg_name":"data", "lv_tags":"", "lv_path":"/dev/data/lv1"},
        {"lv_name":"lv2", "vg_name":"data", "lv_tags":"rollback_include", "lv_path":"/dev/data/lv2"}
      ]
    }
  ]
}`

var _ = Describe("command backend", func() {
	var exec *fakeExecutor
	var backend *lvm.CommandBackend
	ctx := context.Background()

	BeforeEach(func() {
		exec = &fakeExecutor{
			outputs: map[string]string{"vgs": vgsOutput, "lvs": lvsOutput},
			errs:    map[string]error{},
		}
		backend = lvm.NewCommandBackend(exec)
	})

	Context("VolumeGroupNames", func() {
		It("keeps the order lvm reports", func() {
			exec.outputs["vgs"] = `{"report":[{"vg":[{"vg_name":"zeta"},{"vg_name":"alpha"}]}]}`
			names, err := backend.VolumeGroupNames(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(names).To(Equal([]string{"zeta", "alpha"}))
			Expect(exec.calls[0]).To(Equal("vgs --reportformat json --units b --nosuffix -o vg_name"))
		})
		It("surfaces the tool failure", func() {
			exec.errs["vgs"] = &lvm.CommandError{Command: "vgs", ExitCode: 5, Stderr: "  No volume groups found\n"}
			_, err := backend.VolumeGroupNames(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(Equal("vgs failed (exit code 5): No volume groups found"))
		})
		It("fails on garbage output", func() {
			exec.outputs["vgs"] = "not json"
			_, err := backend.VolumeGroupNames(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing vgs report"))
		})
	})

	Context("OpenVolumeGroup", func() {
		It("loads tags, volumes and properties", func() {
			vg, err := backend.OpenVolumeGroup(ctx, "data", lvm.ReadOnly)
			Expect(err).ToNot(HaveOccurred())
			Expect(vg.Name()).To(Equal("data"))
			Expect(vg.Tags()).To(Equal([]string{"rollback_include", "other"}))
			Expect(lvm.HasTag(vg, "rollback_include")).To(BeTrue())

			lvs := vg.LogicalVolumes()
			Expect(lvs).To(HaveLen(2))
			Expect(lvs[0].Name()).To(Equal("lv1"))
			Expect(lvs[0].Tags()).To(BeEmpty())
			Expect(lvs[1].Tags()).To(Equal([]string{"rollback_include"}))

			path, err := lvs[1].StringProperty("lv_path")
			Expect(err).ToNot(HaveOccurred())
			Expect(path).To(Equal("/dev/data/lv2"))

			_, err = lvs[1].StringProperty("lv_bogus")
			Expect(err).To(MatchError("invalid LVM property 'lv_bogus'"))
			Expect(vg.Close()).To(Succeed())
		})
		It("fails for a group missing from the report", func() {
			exec.outputs["vgs"] = `{"report":[{"vg":[]}]}`
			_, err := backend.OpenVolumeGroup(ctx, "data", lvm.ReadOnly)
			Expect(err).To(HaveOccurred())
		})
		It("refuses to tag a read-only handle", func() {
			vg, err := backend.OpenVolumeGroup(ctx, "data", lvm.ReadOnly)
			Expect(err).ToNot(HaveOccurred())
			lv, found := lvm.LookupLogicalVolume(vg, "lv1")
			Expect(found).To(BeTrue())
			Expect(lv.AddTag("rollback_include")).To(MatchError(lvm.ErrReadOnly))
			Expect(vg.AddTag("rollback_include")).To(MatchError(lvm.ErrReadOnly))
		})
	})

	Context("Commit", func() {
		It("only runs lvchange for volumes that changed", func() {
			vg, err := backend.OpenVolumeGroup(ctx, "data", lvm.ReadWrite)
			Expect(err).ToNot(HaveOccurred())
			lv1, _ := lvm.LookupLogicalVolume(vg, "lv1")
			lv2, _ := lvm.LookupLogicalVolume(vg, "lv2")
			Expect(lv1.AddTag("rollback_include")).To(Succeed())
			// already there, nothing to do
			Expect(lv2.AddTag("rollback_include")).To(Succeed())

			exec.calls = nil
			Expect(vg.Commit(ctx)).To(Succeed())
			Expect(exec.calls).To(Equal([]string{"lvchange --addtag rollback_include data/lv1"}))

			exec.calls = nil
			Expect(vg.Commit(ctx)).To(Succeed())
			Expect(exec.calls).To(BeEmpty())
		})
		It("removes group tags with vgchange", func() {
			vg, err := backend.OpenVolumeGroup(ctx, "data", lvm.ReadWrite)
			Expect(err).ToNot(HaveOccurred())
			Expect(vg.RemoveTag("rollback_include")).To(Succeed())
			exec.calls = nil
			Expect(vg.Commit(ctx)).To(Succeed())
			Expect(exec.calls).To(Equal([]string{"vgchange --deltag rollback_include data"}))
		})
		It("returns the tool error", func() {
			exec.errs["lvchange"] = errors.New("boom")
			vg, err := backend.OpenVolumeGroup(ctx, "data", lvm.ReadWrite)
			Expect(err).ToNot(HaveOccurred())
			lv1, _ := lvm.LookupLogicalVolume(vg, "lv1")
			Expect(lv1.AddTag("rollback_include")).To(Succeed())
			Expect(vg.Commit(ctx)).To(MatchError("boom"))
		})
	})

	It("rejects a second close", func() {
		vg, err := backend.OpenVolumeGroup(ctx, "data", lvm.ReadOnly)
		Expect(err).ToNot(HaveOccurred())
		Expect(vg.Close()).To(Succeed())
		Expect(vg.Close()).To(MatchError(lvm.ErrClosed))
	})
})
