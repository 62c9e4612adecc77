// Command `projset` is the end-user CLI for project settings files.
//
// It locates a project the same way the runtime does (remote daemon, packs
// next to the executable, resource directory, then the directory tree) and
// reads, edits or rewrites its settings.
//
// Usage:
//
//	projset get <key>                   - Print the effective value of a setting
//	projset set <key> <literal>         - Assign a setting and save project.cfg
//	projset list                        - List the editor-visible settings
//	projset save                        - Rewrite project.cfg
//	projset convert <file>              - Write the settings to a .cfg or .binary file
//	projset autoloads                   - List autoload records
//	projset paths                       - Show the resolved project paths
//
// Examples:
//
//	projset get application/config/name
//	projset set display/window/size/viewport_width 1920
//	projset set application/config/name '"My Game"'
//	projset convert build/project.binary
//
// Values use the settings literal syntax: strings are quoted, arrays are
// written [1, 2] and dictionaries {"k": v}.
package main

import (
	"os"

	"github.com/lc/projset/internal/config"
	"github.com/lc/projset/internal/log"
)

func main() {
	cfg, err := config.New().Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if os.Getenv(log.LevelEnvVar) == "" {
		log.SetLevel(cfg.Log.Level)
	}
	defer log.Sync()

	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}
