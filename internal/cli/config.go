package cli

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every setting read from the environment, e.g. DRAFTCTL_SERVER
const EnvPrefix = "DRAFTCTL"

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:3000",
		Output:    "text",
		Verbose:   false,
	}
}

// newViper binds the global flags to DRAFTCTL_* environment variables.
// An explicitly set flag wins over the environment.
func newViper(flags *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)
	return v
}

// load fills c from viper
func (c *Config) load(v *viper.Viper) {
	c.ServerURL = strings.TrimSuffix(v.GetString("server"), "/")
	c.Output = v.GetString("output")
	c.Verbose = v.GetBool("verbose")
}
