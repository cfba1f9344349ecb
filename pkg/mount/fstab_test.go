package mount_test

import (
	"errors"

	"github.com/kairos-io/rollerderby/pkg/mount"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4"
	"github.com/twpayne/go-vfs/v4/vfst"
)

var _ = Describe("fstab index", func() {
	var fs vfs.FS
	var cleanup func()

	resolve := func(path string) (uint32, uint32, error) {
		switch path {
		case "/dev/data/lv1":
			return 253, 1, nil
		case "/dev/disk/by-uuid/1234-abcd":
			return 253, 2, nil
		case "/dev/mapper/swap":
			return 253, 9, nil
		}
		return 0, 0, errors.New("no such device")
	}

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/etc/fstab": "# comment\n" +
				"\n" +
				"/dev/data/lv1 /mnt/data ext4 defaults 0 2\n" +
				"UUID=1234-abcd /srv xfs defaults 0 0\n" +
				"/dev/mapper/swap none swap sw 0 0\n" +
				"tmpfs /tmp tmpfs defaults 0 0\n",
		})
		Expect(err).ToNot(HaveOccurred())
	})
	AfterEach(func() {
		cleanup()
	})

	It("indexes resolvable devices", func() {
		idx, err := mount.BuildFstabIndex(fs, "/etc/fstab", resolve)
		Expect(err).ToNot(HaveOccurred())

		file, vfsType, ok := idx.Lookup(253, 1)
		Expect(ok).To(BeTrue())
		Expect(file).To(Equal("/mnt/data"))
		Expect(vfsType).To(Equal("ext4"))

		file, vfsType, ok = idx.Lookup(253, 2)
		Expect(ok).To(BeTrue())
		Expect(file).To(Equal("/srv"))
		Expect(vfsType).To(Equal("xfs"))
	})

	It("leaves out swap", func() {
		idx, err := mount.BuildFstabIndex(fs, "/etc/fstab", resolve)
		Expect(err).ToNot(HaveOccurred())
		_, _, ok := idx.Lookup(253, 9)
		Expect(ok).To(BeFalse())
	})

	It("is safe to query a nil index", func() {
		var idx *mount.FstabIndex
		_, _, ok := idx.Lookup(253, 1)
		Expect(ok).To(BeFalse())
	})

	It("fails when fstab is missing", func() {
		_, err := mount.BuildFstabIndex(fs, "/etc/missing", resolve)
		Expect(err).To(HaveOccurred())
	})
})
