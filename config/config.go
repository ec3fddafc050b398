// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/where"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	if err := loadDotEnv(); err != nil {
		return err
	}

	viper.SetConfigName(constant.Anistream)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.Anistream)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// loadDotEnv exports variables from a .env file in the working directory and in the config directory.
// Variables already present in the environment win.
func loadDotEnv() error {
	for _, path := range []string{".env", filepath.Join(where.Config(), ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
