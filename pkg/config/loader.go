package config

import (
	"os"
	"path/filepath"

	"github.com/kkyr/fig"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix = "SOBELFARM"
	FileName  = "config.yaml"
)

// LoadConfig loads a configuration file into the given struct.
// The path param specifies a custom directory of the configuration file.
// Reads and puts environment variables with the prefix SOBELFARM_.
// Params from the config should be in uppercase separated with _.
func LoadConfig(config any, path string) error {
	dirs := []string{path}
	if path == "" {
		dirs = append(dirs, ".", "configs", "../../configs")
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".sobelfarm"))
		}
	}
	return fig.Load(config, fig.File(FileName), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
}

// Path picks the --conf value out of the command line before the
// full flag set is known.
func Path(args []string) string {
	fs := pflag.NewFlagSet("conf", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.String("conf", "", "")
	_ = fs.Parse(args)
	return *path
}
