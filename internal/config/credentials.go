package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// APIKeyEnv is the environment variable holding the AirNow API key.
const APIKeyEnv = "AIRNOWKEY"

// credentialFiles are checked in each search directory, in order.
var credentialFiles = []string{".airnow.yaml", ".airnow.json"}

// Credentials are the AirNow settings kept outside the command line.
type Credentials struct {
	APIKey string
	Shapes []string
}

// SearchDirs returns the working directory followed by the home directory.
func SearchDirs() []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return dirs
}

// LookupCredentials finds the AirNow API key and shapefile list. The key
// comes from AIRNOWKEY when set; otherwise both values come from the first
// .airnow.yaml or .airnow.json found in dirs. Missing values are left empty.
func LookupCredentials(logger *slog.Logger, dirs ...string) (Credentials, error) {
	var creds Credentials
	if key := os.Getenv(APIKeyEnv); key != "" {
		logger.Info("AirNow API key found in the environment")
		creds.APIKey = key
	}

	v, path, err := findCredentialFile(dirs)
	if err != nil || v == nil {
		return creds, err
	}
	if creds.APIKey == "" {
		if key := v.GetString("api key"); key != "" {
			logger.Info("AirNow API key found", "file", path)
			creds.APIKey = key
		}
	}
	creds.Shapes = v.GetStringSlice("shapes")
	for i, s := range creds.Shapes {
		if !filepath.IsAbs(s) {
			creds.Shapes[i] = filepath.Join(filepath.Dir(path), s)
		}
	}
	return creds, nil
}

func findCredentialFile(dirs []string) (*viper.Viper, string, error) {
	for _, dir := range dirs {
		for _, name := range credentialFiles {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, "", fmt.Errorf("stat %s: %w", path, err)
			}
			v := viper.New()
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, "", fmt.Errorf("read %s: %w", path, err)
			}
			return v, path, nil
		}
	}
	return nil, "", nil
}
