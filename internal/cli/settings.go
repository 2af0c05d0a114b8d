package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/labelpal/pkg/config"
	"github.com/matzehuels/labelpal/pkg/pal"
)

// starterLayer is written by "settings --init".
var starterLayer = config.Layer{
	Name:        "places",
	Source:      "places.geojson",
	Arrangement: pal.AroundPoint,
}

// settingsCommand creates the settings command.
func (c *CLI) settingsCommand() *cobra.Command {
	var initPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "settings [project.toml]",
		Short: "Print engine settings or write a starter project",
		Long: `Settings prints the engine tunables as TOML. Without arguments the defaults
are shown; with a project file its effective settings are shown.

--init writes a starter project with the default settings and one point layer.`,
		Example: `  labelpal settings
  labelpal settings project.toml
  labelpal settings --init project.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if initPath != "" {
				return writeStarter(initPath, force)
			}
			p := config.Default()
			if len(args) == 1 {
				loaded, err := config.Load(args[0])
				if err != nil {
					return err
				}
				p = loaded
			}
			return (&config.Project{Engine: p.Engine}).Encode(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&initPath, "init", "", "write a starter project to this file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file with --init")

	return cmd
}

// writeStarter writes a project with default settings and a single layer.
func writeStarter(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	p := config.Default()
	p.Layers = []config.Layer{starterLayer}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := p.Encode(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	printSuccess("Wrote starter project")
	printFile(path)
	printNewline()
	printNextStep("Place its labels", fmt.Sprintf("%s place %s", appName, path))
	return nil
}
