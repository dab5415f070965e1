package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem used for config, schema and fixture files.
var AppFs = afero.NewOsFs()

// FileName is the config file name, without extension.
const FileName = ".seedgraph"

// Config holds the application configuration
type Config struct {
	SchemaPath   string
	DatabaseURL  string
	Provider     string
	FixtureDirs  []string
	Commit       bool
	SkipExisting bool
	Debug        bool
}

// Load reads configuration from config files, .env files and SEEDGRAPH_*
// environment variables.
func Load() (*Config, error) {
	return LoadWith(viper.GetViper())
}

// LoadWith is Load using v, which callers may have bound flags to.
func LoadWith(v *viper.Viper) (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "seedgraph"))

	v.SetEnvPrefix("SEEDGRAPH")
	v.AutomaticEnv()

	v.SetDefault("schema_path", "schema.prisma")
	v.SetDefault("fixture_dirs", []string{"fixtures"})
	v.SetDefault("commit", true)
	v.SetDefault("skip_existing", false)
	v.SetDefault("debug", false)

	// A missing config file is fine.
	_ = v.ReadInConfig()

	// .env.local takes precedence over .env
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		SchemaPath:   v.GetString("schema_path"),
		DatabaseURL:  v.GetString("database_url"),
		Provider:     v.GetString("provider"),
		FixtureDirs:  v.GetStringSlice("fixture_dirs"),
		Commit:       v.GetBool("commit"),
		SkipExisting: v.GetBool("skip_existing"),
		Debug:        v.GetBool("debug"),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// Save writes cfg to FileName.yaml in dir.
func Save(v *viper.Viper, cfg *Config, dir string) (string, error) {
	v.Set("schema_path", cfg.SchemaPath)
	v.Set("provider", cfg.Provider)
	v.Set("fixture_dirs", cfg.FixtureDirs)
	v.Set("commit", cfg.Commit)
	v.Set("skip_existing", cfg.SkipExisting)
	if cfg.DatabaseURL != "" {
		v.Set("database_url", cfg.DatabaseURL)
	}

	if err := AppFs.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName+".yaml")
	v.SetFs(AppFs)
	return path, v.WriteConfigAs(path)
}
