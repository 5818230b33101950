package utils

import (
	"fmt"
	"log"
	"os"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

// Settings is the portal configuration file (actportal.toml).
// All values are optional; flags and environment variables win.
type Settings struct {
	Token          string `toml:"token"`
	Repository     string `toml:"repository"`
	Ref            string `toml:"ref"`
	CatalogFile    string `toml:"catalog_file"`
	PollIntervalMs int    `toml:"poll_interval_ms"`
	MaxPollTicks   int    `toml:"max_poll_ticks"`
	SessionURL     string `toml:"session_url"`
}

var (
	// this is the map of all environment variables that were set via .env file
	dotEnvValues = map[string]string{}

	// values loaded from actportal.toml, lowest precedence
	settingsValues = map[string]string{}
)

func getEnvValue(envName, defaultValue string) (val string, dotEnvSource bool) {
	val = os.Getenv(envName)
	if val == "" {
		return defaultValue, false
	}

	_, exists := dotEnvValues[envName]
	return val, exists
}

func LoadEnvFile(envFilePath string) error {
	// sometimes users mix up yaml and .env files due to copy paste
	// so give them a better error message if they try to load
	// a yaml file here instead of an .env file
	content, err := os.ReadFile(envFilePath)
	if err != nil {
		return fmt.Errorf("unable to load env file: %s", envFilePath)
	}

	var yamlCheck map[string]any
	ext := path.Ext(envFilePath)
	err = yaml.Unmarshal(content, &yamlCheck)

	// double check, maybe the decoder failed due to syntax error but its still a yaml file
	if err == nil || ext == ".yaml" || ext == ".yml" {
		return fmt.Errorf("file %q appears to be a YAML file, but an .env file is required (KEY=VALUE format)", envFilePath)
	}

	file, err := os.Open(envFilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	dotEnvValues, err = godotenv.Parse(file)
	if err != nil {
		return err
	}

	for key, value := range dotEnvValues {
		_, exists := os.LookupEnv(key)

		// shell environment variables have precedence over .env file values
		if !exists {
			_ = os.Setenv(key, value)
		}
	}

	return err
}

// LoadSettings reads the portal settings file. A missing file is not an
// error, only a malformed one is.
func LoadSettings(settingsFile string) (*Settings, error) {
	settings := &Settings{}

	_, err := toml.DecodeFile(settingsFile, settings)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return nil, errors.Wrapf(err, "unable to load settings file '%s'", settingsFile)
	}

	settingsValues["token"] = settings.Token
	settingsValues["repository"] = settings.Repository
	settingsValues["ref"] = settings.Ref
	settingsValues["catalog_file"] = settings.CatalogFile
	settingsValues["session_url"] = settings.SessionURL

	return settings, nil
}

var (
	ORIGIN_ENV_SHELL  = "env (shell)"
	ORIGIN_ENV_DOTENV = "env (dotenv)"
	ORIGIN_SETTINGS   = "settings file"
	ORIGIN_FLAG       = "flag"
)

type ResolveCliParamOpts struct {
	Flag      bool
	Env       bool
	Settings  bool
	Optional  bool
	FlagValue string
	AppPrefix bool
}

// ResolveCliParam looks up a configuration value by name, with
// flag > shell env > .env > settings file precedence, and reports
// where the winning value came from.
func ResolveCliParam(name string, opts ResolveCliParamOpts) (string, string) {

	var configValue string
	var resolvedSource string

	LogOut.Debugf("looking for value: '%s'\n", name)

	if opts.Settings {
		v := settingsValues[strings.ToLower(name)]
		if v != "" {
			LogOut.Debugf("  found value in: '%s'\n", ORIGIN_SETTINGS)
			configValue = v
			resolvedSource = ORIGIN_SETTINGS
		}
	}

	if opts.Env {
		envName := name
		if opts.AppPrefix {
			envName = "ACTPORTAL_" + name
		}
		v, dotEnvSource := getEnvValue(strings.ToUpper(envName), "")
		if v != "" {
			valueSource := If(dotEnvSource, ORIGIN_ENV_DOTENV, ORIGIN_ENV_SHELL)
			LogOut.Debugf("  found value in: '%s'\n", valueSource)
			configValue = v
			resolvedSource = valueSource
		}
	}

	if opts.Flag && opts.FlagValue != "" {
		LogOut.Debug("  found value in flags\n")
		configValue = opts.FlagValue
		resolvedSource = ORIGIN_FLAG
	}

	if configValue != "" {
		LogOut.Debugf("  evaluated to: '%s'\n", RedactSensitive(name, configValue))
	}

	if configValue == "" {
		if opts.Optional {
			LogOut.Debugf("  no value (is optional) found for: '%s'\n", name)
		} else {
			log.Panicf("no value for '%s' provided", name)
		}
	}

	return configValue, resolvedSource
}

// ResolveToken finds the GitHub token, falling back to the conventional
// GITHUB_TOKEN variable when no portal-specific value is set. An empty
// result is allowed; unauthenticated calls fail later with a classified
// authentication error.
func ResolveToken(flagValue string) (string, string) {
	token, source := ResolveCliParam("token", ResolveCliParamOpts{
		Flag:      true,
		FlagValue: flagValue,
		Env:       true,
		Settings:  true,
		Optional:  true,
		AppPrefix: true,
	})
	if token != "" {
		return token, source
	}

	token, _ = getEnvValue("GITHUB_TOKEN", "")
	return token, ORIGIN_ENV_SHELL
}
