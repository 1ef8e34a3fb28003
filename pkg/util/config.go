package util

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ReadConfig reads config.yaml from the given search paths into v. A missing file is not an error.
func ReadConfig(v *viper.Viper, paths ...string) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./data/", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}
