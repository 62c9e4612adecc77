// Package config provides configuration management for the projset tools.
//
// The package uses a Provider interface to abstract configuration loading, with the
// primary implementation being filesystem-based configuration via YAML files.
//
// # Configuration Structure
//
// Configuration is structured as follows:
//
//	socket:
//	  path: /tmp/projsetd.socket      # Unix domain socket of projsetd
//	discovery:
//	  path: .                         # where the project search starts
//	  main_pack: ""                   # explicit pack to mount
//	  upwards: true                   # walk parent directories
//	  ignore_override: false          # skip override.cfg
//	  disable_feature_overrides: false
//	  remote: false                   # read the project through projsetd
//	platform:
//	  profile: ""                     # YAML platform profile
//	  features: [steam]               # extra active feature tags
//	  resource_dir: ""
//	  user_data_dir: ""
//	  runtimes: [dotnet]              # runtimes reported present
//	daemon:
//	  root: .                         # project directory served by projsetd
//	  shutdown_timeout: 5s
//	log:
//	  level: info
//
// # Basic Usage
//
// Load configuration using the default path (~/.projset/config.yaml):
//
//	provider := config.New()
//	cfg, err := provider.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration Validation
//
// The package performs validation of loaded configuration:
//   - Socket path must not be empty
//   - A main pack cannot be combined with remote discovery
//   - Shutdown timeout must not be negative
//   - Platform features must be plain tags
//   - Log level must be one of debug, info, warn, error
//
// # Default Configuration
//
// If no configuration file exists, the defaults from Default are used.
// A file that sets only some fields keeps the defaults for the rest.
//
// # Error Handling
//
// The package defines several error types:
//   - ErrInvalidConfig: Configuration validation failed
//   - ErrNoConfig: Configuration file not found (returns defaults)
package config
