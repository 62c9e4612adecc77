package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lc/projset/internal/buildinfo"
	"github.com/lc/projset/internal/codec"
	"github.com/lc/projset/internal/config"
	"github.com/lc/projset/internal/project"
	"github.com/lc/projset/internal/settings"
	"github.com/lc/projset/internal/variant"
)

// maxValueWidth truncates long literals in listings.
const maxValueWidth = 60

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "projset",
		Short: "Inspect and edit project settings",
		Long: `projset reads and writes project settings files (project.cfg and
project.binary), applying feature overrides the way the runtime does.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfg.Discovery.Path, "path", "p", cfg.Discovery.Path, "directory to look for the project in")
	flags.StringVar(&cfg.Discovery.MainPack, "main-pack", cfg.Discovery.MainPack, "pack archive holding the project")
	flags.BoolVarP(&cfg.Discovery.Upwards, "upwards", "u", cfg.Discovery.Upwards, "search parent directories for the project")
	flags.BoolVar(&cfg.Discovery.IgnoreOverride, "ignore-override", cfg.Discovery.IgnoreOverride, "do not apply override.cfg")
	flags.BoolVar(&cfg.Discovery.Remote, "remote", cfg.Discovery.Remote, "read the project served by projsetd")
	root.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
		}
		return nil
	}

	// ---- get command ----
	getCmd := &cobra.Command{
		Use:     "get <key>",
		Short:   "Print the effective value of a setting",
		Example: "projset get application/config/name",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			v, err := p.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), variant.Write(v))
			return nil
		},
	}

	// ---- set command ----
	var noSave bool
	setCmd := &cobra.Command{
		Use:   "set <key> <literal>",
		Short: "Assign a setting and save project.cfg",
		Long: `Assign a setting and save project.cfg under the resource root.
The value is a settings literal; assigning null removes the setting.

Examples:
  projset set display/window/size/viewport_width 1920
  projset set application/config/name '"My Game"'
  projset set application/config/features 'PackedStringArray("4.2")'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := variant.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			p, err := openProject(cmd, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			switch res := p.Set(args[0], v); res {
			case settings.Applied:
			case settings.Shadowed:
				return fmt.Errorf("%s is shadowed by an active feature override", args[0])
			default:
				return fmt.Errorf("%s: write %s", args[0], res)
			}
			if noSave {
				return nil
			}
			if err := p.Save(); err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprint(cmd.OutOrStdout(), "✓ Set ")
			color.New(color.FgHiGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "%s ", args[0])
			color.New(color.FgGreen, color.Bold).Fprint(cmd.OutOrStdout(), "to ")
			color.New(color.FgHiYellow, color.Bold).Fprintln(cmd.OutOrStdout(), variant.Write(v))
			return nil
		},
	}
	setCmd.Flags().BoolVar(&noSave, "dry-run", false, "validate the assignment without saving")

	// ---- list command ----
	var showAll bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the project settings",
		Long: `List the settings an editor would show, in save order.
Use --all to include storage-only settings such as input maps and autoloads.`,
		Example: "projset list --all",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			var rows [][]string
			for _, pi := range p.Registry().List() {
				if !showAll && !pi.Usage.Has(settings.UsageEditor) {
					continue
				}
				v, _ := p.Get(pi.Name)
				rows = append(rows, []string{pi.Name, pi.Kind.String(), truncate(variant.Write(v)), pi.Hint.String()})
			}
			if len(rows) == 0 {
				color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "No settings found.")
				return nil
			}

			table := newTable(cmd, "Key", "Type", "Value", "Hint")
			table.AppendBulk(rows)
			color.New(color.Bold).Fprintf(cmd.OutOrStdout(), "SETTINGS (%s):\n", p.Registry().ResourcePath())
			table.Render()
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&showAll, "all", "a", false, "include storage-only settings")

	// ---- save command ----
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Rewrite project.cfg under the resource root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd, cfg)
			if err != nil {
				return err
			}
			defer p.Close()
			return p.Save()
		},
	}

	// ---- convert command ----
	var features []string
	var noMerge bool
	convertCmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Write the settings to a .cfg or .binary file",
		Long: `Write the project settings to another file. The format follows the
extension: .cfg writes text, .binary writes the binary format.`,
		Example: "projset convert build/project.binary --features mobile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, cfg)
			if err != nil {
				return err
			}
			defer p.Close()
			if err := p.SaveCustom(args[0], nil, features, !noMerge); err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", args[0])
			return nil
		},
	}
	convertCmd.Flags().StringSliceVar(&features, "features", nil, "custom feature tags to record in the file")
	convertCmd.Flags().BoolVar(&noMerge, "no-merge", false, "write nothing but the custom feature tags")

	// ---- autoloads command ----
	autoloadsCmd := &cobra.Command{
		Use:   "autoloads",
		Short: "List autoload records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			autoloads := p.Registry().Autoloads()
			if len(autoloads) == 0 {
				color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "No autoloads found.")
				return nil
			}
			table := newTable(cmd, "Name", "Path", "Singleton")
			for _, a := range autoloads {
				singleton := "No"
				if a.Singleton {
					singleton = "Yes"
				}
				table.Append([]string{a.Name, a.Path, singleton})
			}
			table.Render()
			return nil
		},
	}

	// ---- paths command ----
	pathsCmd := &cobra.Command{
		Use:   "paths",
		Short: "Show the resolved project paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			reg := p.Registry()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "resource:  %s\n", reg.ResourcePath())
			fmt.Fprintf(out, "data:      %s\n", reg.ProjectDataPath())
			fmt.Fprintf(out, "user:      %s\n", p.GlobalizePath(settings.UserPrefix))
			if unsupported := p.UnsupportedFeatures(); len(unsupported) > 0 {
				color.New(color.FgHiRed).Fprintf(out, "unsupported features: %s\n", strings.Join(unsupported, ", "))
			}
			return nil
		},
	}

	// ---- version command ----
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", buildinfo.Version)
			fmt.Fprintf(out, "commit: %s\n", buildinfo.Commit)
			fmt.Fprintf(out, "config version: %d\n", codec.ConfigVersion)
		},
	}
	versionCmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }

	root.AddCommand(getCmd, setCmd, listCmd, saveCmd, convertCmd, autoloadsCmd, pathsCmd, versionCmd)
	return root
}

// openProject loads the project selected by cfg.
func openProject(cmd *cobra.Command, cfg *config.Config) (*project.Project, error) {
	p, err := project.FromConfig(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Setup(project.SetupOptions(cfg)); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return p, nil
}

func newTable(cmd *cobra.Command, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	colors := make([]tablewriter.Colors, len(header))
	for i := range colors {
		colors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor}
	}
	table.SetHeaderColor(colors...)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	return table
}

func truncate(s string) string {
	if len(s) <= maxValueWidth {
		return s
	}
	return s[:maxValueWidth-3] + "..."
}
