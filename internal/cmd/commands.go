package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"

	cnst "github.com/kairos-io/rollerderby/internal/constants"
	"github.com/kairos-io/rollerderby/internal/utils"
	"github.com/kairos-io/rollerderby/internal/version"
	"github.com/kairos-io/rollerderby/pkg/dag"
	"github.com/kairos-io/rollerderby/pkg/lvm"
	"github.com/kairos-io/rollerderby/pkg/mount"
	"github.com/kairos-io/rollerderby/pkg/state"
	"github.com/spectrocloud-labs/herd"
	"github.com/twpayne/go-vfs/v4"
	"github.com/urfave/cli/v2"
)

// CommonFlags are accepted by the root command and every subcommand.
var CommonFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "report format: text, json or yaml",
		Value:   cnst.OutputText,
		EnvVars: []string{"ROLLERDERBY_OUTPUT"},
	},
	&cli.StringFlag{
		Name:    "mountinfo",
		Usage:   "mount table to match volumes against",
		Value:   cnst.DefaultMountinfo,
		EnvVars: []string{"ROLLERDERBY_MOUNTINFO"},
	},
	&cli.StringFlag{
		Name:    "fstab",
		Usage:   "fstab used for hints on unmounted volumes, empty to disable",
		Value:   cnst.DefaultFstab,
		EnvVars: []string{"ROLLERDERBY_FSTAB"},
	},
	&cli.StringFlag{
		Name:    "lvm-path",
		Usage:   "directories searched for the lvm tools",
		Value:   cnst.DefaultLVMPath,
		EnvVars: []string{"ROLLERDERBY_LVM_PATH"},
	},
	&cli.BoolFlag{
		Name:    "dry-run",
		Usage:   "print the steps that would run and exit",
		EnvVars: []string{"ROLLERDERBY_DRY_RUN"},
	},
	&cli.BoolFlag{
		Name:    "debug",
		Usage:   "enable debug logging",
		EnvVars: []string{"ROLLERDERBY_DEBUG"},
	},
}

// TagFlags select the tag changes applied before the report.
var TagFlags = []cli.Flag{
	&cli.StringSliceFlag{Name: "tag", Usage: "include VGNAME/LVNAME in rollback"},
	&cli.StringSliceFlag{Name: "untag", Usage: "exclude VGNAME/LVNAME from rollback"},
	&cli.StringSliceFlag{Name: "tag-vg", Usage: "include every volume of VGNAME in rollback"},
	&cli.StringSliceFlag{Name: "untag-vg", Usage: "stop including VGNAME as a whole"},
}

// Status is the root action: apply the tag flags, then report the included volumes.
func Status(c *cli.Context) error {
	s, err := newState(c)
	if err != nil {
		return err
	}
	s.TagGroups = utils.CleanupSlice(c.StringSlice("tag-vg"))
	s.UntagGroups = utils.CleanupSlice(c.StringSlice("untag-vg"))
	s.Tag = utils.CleanupSlice(c.StringSlice("tag"))
	s.Untag = utils.CleanupSlice(c.StringSlice("untag"))
	return run(c, s, dag.RegisterStatus)
}

var Commands = []*cli.Command{
	{
		Name:      "list",
		Usage:     "Report the volumes included in rollback",
		UsageText: "list [--output text|json|yaml]",
		Description: `
Lists every logical volume tagged with rollback_include, directly or through its
volume group, and shows where each one is mounted.
`,
		Flags: CommonFlags,
		Action: func(c *cli.Context) error {
			s, err := newState(c)
			if err != nil {
				return err
			}
			return run(c, s, dag.RegisterStatus)
		},
	},
	{
		Name:      "add",
		Usage:     "Include volumes in rollback",
		UsageText: "add VGNAME/LVNAME...",
		Flags:     CommonFlags,
		Action: func(c *cli.Context) error {
			return tagging(c, func(s *state.State, names []string) { s.Tag = names })
		},
	},
	{
		Name:      "remove",
		Usage:     "Exclude volumes from rollback",
		UsageText: "remove VGNAME/LVNAME...",
		Flags:     CommonFlags,
		Action: func(c *cli.Context) error {
			return tagging(c, func(s *state.State, names []string) { s.Untag = names })
		},
	},
	{
		Name:  "version",
		Usage: "Print the version",
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, version.Get().String())
			return nil
		},
	},
}

func tagging(c *cli.Context, set func(*state.State, []string)) error {
	names := utils.UniqueSlice(utils.CleanupSlice(c.Args().Slice()))
	if len(names) == 0 {
		return fmt.Errorf("%s: at least one VGNAME/LVNAME is required", c.Command.Name)
	}
	s, err := newState(c)
	if err != nil {
		return err
	}
	s.AnnounceTags = true
	set(s, names)
	return run(c, s, dag.RegisterTagging)
}

// newState builds the run state from the flags, talking to the host's lvm tools.
func newState(c *cli.Context) (*state.State, error) {
	utils.SetLogger(c.Bool("debug"))

	output := c.String("output")
	if !slices.Contains(cnst.OutputFormats(), output) {
		return nil, fmt.Errorf("invalid output format %q, expected one of %v", output, cnst.OutputFormats())
	}

	return &state.State{
		Backend:   lvm.NewCommandBackend(lvm.NewShellExecutor(c.String("lvm-path"))),
		FS:        vfs.OSFS,
		Resolve:   mount.FSDeviceResolver(vfs.OSFS),
		Out:       os.Stdout,
		Mountinfo: c.String("mountinfo"),
		Fstab:     c.String("fstab"),
		Output:    output,
	}, nil
}

func run(c *cli.Context, s *state.State, register func(*state.State, *herd.Graph) error) error {
	v := version.Get()
	utils.Log.Debug().Str("commit", v.GitCommit).Str("compiled with", v.GoVersion).Str("version", v.Version).Msg("Rollerderby")

	g := herd.DAG(herd.EnableInit)
	if err := register(s, g); err != nil {
		return err
	}
	utils.Log.Debug().Msg(s.WriteDAG(g))

	// Once we print the dag we can exit already
	if c.Bool("dry-run") {
		fmt.Fprint(c.App.Writer, s.WriteDAG(g))
		return nil
	}

	if s.ChangesTags() {
		utils.EnableAuditLog()
	}
	err := g.Run(context.Background())
	utils.Log.Debug().Msg(s.WriteDAG(g))
	if s.Err() != nil {
		return s.Err()
	}
	return err
}
