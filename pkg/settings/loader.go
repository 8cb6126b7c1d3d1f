package settings

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Load reads the configuration file at path and overlays environment
// variables with the OAI_ prefix, e.g. OAI_ELASTICSEARCH_INDEX.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("OAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}
