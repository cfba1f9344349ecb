package state_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kairos-io/rollerderby/internal/utils"
	"github.com/kairos-io/rollerderby/pkg/dag"
	"github.com/kairos-io/rollerderby/pkg/lvm"
	"github.com/kairos-io/rollerderby/pkg/rollback"
	"github.com/kairos-io/rollerderby/pkg/schema"
	"github.com/kairos-io/rollerderby/pkg/state"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"github.com/spectrocloud-labs/herd"
	"github.com/twpayne/go-vfs/v4/vfst"
)

var _ = Describe("rollerderby run", func() {
	var g *herd.Graph
	var s *state.State
	var backend *lvm.MemoryBackend
	var out *bytes.Buffer
	var cleanup func()

	devices := map[string][2]uint32{
		"/dev/data/lv1":  {253, 1},
		"/dev/data/lv2":  {253, 2},
		"/dev/other/lv3": {253, 3},
	}
	resolve := func(path string) (uint32, uint32, error) {
		d, ok := devices[path]
		if !ok {
			return 0, 0, fmt.Errorf("no device %s", path)
		}
		return d[0], d[1], nil
	}

	BeforeEach(func() {
		fs, c, err := vfst.NewTestFS(map[string]interface{}{
			"/proc/self/mountinfo": "20 1 253:1 / /mnt/data rw - ext4 /dev/mapper/data-lv1 rw\n",
			"/etc/fstab":           "/dev/other/lv3 /srv xfs defaults 0 0\n",
		})
		Expect(err).ToNot(HaveOccurred())
		cleanup = c

		backend = lvm.NewMemoryBackend().
			AddVolumeGroup("data").
			AddLogicalVolume("data", "lv1", "/dev/data/lv1").
			AddLogicalVolume("data", "lv2", "/dev/data/lv2").
			AddVolumeGroup("other").
			AddLogicalVolume("other", "lv3", "/dev/other/lv3")
		out = &bytes.Buffer{}
		g = herd.DAG(herd.EnableInit)
		s = &state.State{
			Backend:   backend,
			FS:        fs,
			Resolve:   resolve,
			Out:       out,
			Mountinfo: "/proc/self/mountinfo",
			Fstab:     "/etc/fstab",
			Output:    "text",
		}
	})
	AfterEach(func() {
		cleanup()
		Expect(backend.OpenHandles()).To(Equal(0))
	})

	It("generates the status dag", func() {
		Expect(dag.RegisterStatus(s, g)).To(Succeed())
		var order []string
		for _, layer := range g.Analyze() {
			for _, op := range layer {
				if op.Name == "index-mounts" || op.Name == "apply-tags" || op.Name == "list-included" || op.Name == "report-status" {
					order = append(order, op.Name)
				}
			}
		}
		Expect(order).To(Equal([]string{"index-mounts", "apply-tags", "list-included", "report-status"}), s.WriteDAG(g))
	})

	It("prints guidance when nothing is tagged", func() {
		Expect(dag.RegisterStatus(s, g)).To(Succeed())
		_ = g.Run(context.Background())
		Expect(s.Err()).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal("No LVs tagged with 'rollback_include'; use --tag or --tag-vg to add them\n"))
	})

	It("tags and reports", func() {
		s.TagGroups = []string{"data"}
		s.Tag = []string{"other/lv3"}
		Expect(dag.RegisterStatus(s, g)).To(Succeed())
		_ = g.Run(context.Background())
		Expect(s.Err()).ToNot(HaveOccurred())
		Expect(s.Included()).To(Equal([]string{"data/lv1", "data/lv2", "other/lv3"}))
		Expect(out.String()).To(Equal("data/lv1\n" +
			"  mounted: /mnt/data\n" +
			"  fs: ext4\n" +
			"data/lv2\n" +
			"  (not mounted)\n" +
			"other/lv3\n" +
			"  (not mounted)\n" +
			"  fstab: /srv (xfs)\n"))
	})

	It("untags after tagging", func() {
		s.Tag = []string{"data/lv2"}
		s.Untag = []string{"data/lv2"}
		Expect(dag.RegisterStatus(s, g)).To(Succeed())
		_ = g.Run(context.Background())
		Expect(s.Err()).ToNot(HaveOccurred())
		Expect(s.Included()).To(BeEmpty())
	})

	It("stops before listing when tagging fails", func() {
		s.Tag = []string{"data/lv1", "data/ghost"}
		Expect(dag.RegisterStatus(s, g)).To(Succeed())
		_ = g.Run(context.Background())
		Expect(errors.Is(s.Err(), rollback.ErrNotFound)).To(BeTrue())
		Expect(s.Included()).To(BeNil())
		Expect(out.String()).To(BeEmpty())
		// the first tag was already committed
		Expect(backend.CommittedTags("data/lv1")).To(Equal([]string{"rollback_include"}))
	})

	It("does not tag anything when the mount table is unreadable", func() {
		s.Mountinfo = "/proc/none/mountinfo"
		s.Tag = []string{"data/lv1"}
		Expect(dag.RegisterStatus(s, g)).To(Succeed())
		_ = g.Run(context.Background())
		Expect(errors.Is(s.Err(), rollback.ErrIO)).To(BeTrue())
		Expect(backend.CommittedTags("data/lv1")).To(BeEmpty())
	})

	It("runs without fstab hints when fstab is missing", func() {
		s.Fstab = "/etc/nofstab"
		s.Tag = []string{"other/lv3"}
		Expect(dag.RegisterStatus(s, g)).To(Succeed())
		_ = g.Run(context.Background())
		Expect(s.Err()).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal("other/lv3\n  (not mounted)\n"))
	})

	It("keeps logs out of a json report", func() {
		utils.SetLogger(false)
		DeferCleanup(func() { utils.Log = zerolog.Nop() })
		s.Output = "json"
		s.Tag = []string{"data/lv1"}
		Expect(dag.RegisterStatus(s, g)).To(Succeed())
		_ = g.Run(context.Background())
		Expect(s.Err()).ToNot(HaveOccurred())

		report := schema.Report{}
		Expect(json.Unmarshal(out.Bytes(), &report)).To(Succeed(), out.String())
		Expect(report.Volumes).To(HaveLen(1))
		Expect(report.Volumes[0].Mountpoint).To(Equal("/mnt/data"))
	})

	It("announces changes when only tagging", func() {
		s.AnnounceTags = true
		s.Tag = []string{"data/lv1"}
		Expect(dag.RegisterTagging(s, g)).To(Succeed())
		_ = g.Run(context.Background())
		Expect(s.Err()).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal("Added data/lv1 to rollback\n"))
	})
})
