package engine

type ApplicationConfig struct {
	// Path of the TOML configuration file. Empty runs on the defaults.
	ConfigPath string
	// The application name used in windowing. Overrides the file when set.
	Name string
}
