package log

import "github.com/spf13/pflag"

// Options contains configuration settings for the logger.
type Options struct {
	// Name is an optional name for the logger.
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Level is the minimum log level to output. Can be 'debug', 'info', 'warn', 'error'.
	Level string `json:"level,omitempty" mapstructure:"level"`

	// Format specifies the log output format. Can be 'json' or 'console'.
	Format string `json:"format,omitempty" mapstructure:"format"`

	// DisableCaller stops annotating logs with the calling file and line.
	DisableCaller bool `json:"disable-caller,omitempty" mapstructure:"disable-caller"`

	// OutputPaths is a list of paths to write logs to. Defaults to ["stderr"]
	// so command output on stdout stays clean.
	OutputPaths []string `json:"output-paths,omitempty" mapstructure:"output-paths"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	}
}

// AddFlags binds command-line flags to the Options fields.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log.level", o.Level, "The minimum log level to output (e.g., 'debug', 'info', 'warn', 'error').")
	fs.StringVar(&o.Format, "log.format", o.Format, "The log output format ('json' or 'console').")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Disable the caller field in logs.")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "A list of log output paths (e.g., 'stderr', '/var/log/advisor.log').")
}
