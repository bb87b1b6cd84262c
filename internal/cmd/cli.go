// Package cmd defines the kong command structs for the guh CLI.
package cmd

// CLI is the root command-line interface.
type CLI struct {
	Config string    `help:"Path to a configuration file" env:"GUH_CONFIG"`
	Log    LogConfig `embed:"" prefix:"log."`

	Sim       Sim           `cmd:"" help:"Run a scripted simulation session against a fake device"`
	ConfigCmd ConfigCommand `cmd:"" name:"config" help:"Configuration file utilities"`
}

// LogConfig groups the logging flags shared by all commands.
type LogConfig struct {
	Level   string `help:"Log level (trace|debug|info|warn|error)" default:"info" env:"GUH_LOG_LEVEL"`
	File    string `help:"Log file path (defaults to stdout/stderr)" env:"GUH_LOG_FILE"`
	RawFile string `help:"Raw byte-stream dump file path" env:"GUH_LOG_RAW_FILE"`
}
