package main

import (
	"fmt"
	"os"

	cnst "github.com/kairos-io/rollerderby/internal/constants"
	"github.com/kairos-io/rollerderby/internal/cmd"
	"github.com/kairos-io/rollerderby/internal/utils"
	"github.com/kairos-io/rollerderby/internal/version"
	"github.com/urfave/cli/v2"
)

// Manage which logical volumes are included in rollback.
func main() {
	config := os.Getenv("ROLLERDERBY_CONFIG")
	if config == "" {
		config = cnst.DefaultConfig
	}
	if err := utils.LoadEnvFile(config); err != nil {
		fmt.Fprintf(os.Stderr, "loading %s: %s\n", config, err)
		os.Exit(1)
	}

	app := cli.NewApp()
	app.Name = "rollerderby"
	app.Usage = "Manage the rollback_include tag on LVM volumes"
	app.Version = version.GetVersion()
	app.Authors = []*cli.Author{{Name: "Kairos authors"}}
	app.Copyright = "kairos authors"
	app.Flags = append(append([]cli.Flag{}, cmd.TagFlags...), cmd.CommonFlags...)
	app.Action = cmd.Status
	app.Commands = cmd.Commands

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
