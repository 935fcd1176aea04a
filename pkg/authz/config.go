package authz

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hmis-dev/hmis-sdk/pkg/configuration"
)

// Config holds the enforcer inputs.
type Config struct {
	ModelPath  string
	PolicyPath string
	Flags      FlagProvider
	Logger     *logrus.Logger
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.ModelPath) == "" {
		errs = append(errs, errors.New("authz: missing model path"))
	}
	if strings.TrimSpace(c.PolicyPath) == "" {
		errs = append(errs, errors.New("authz: missing policy path"))
	}
	if c.Flags == nil {
		errs = append(errs, errors.New("authz: missing flag provider"))
	}
	return errors.Join(errs...)
}

// ConfigFrom reads policy locations from conf. AUTHZ_MODE is used until the
// flag file exists; without a flag file path the mode is fixed.
func ConfigFrom(conf *configuration.Configuration) Config {
	mode := ParseMode(conf.Authz.Mode)
	var flags FlagProvider = StaticFlagProvider(mode)
	if p := strings.TrimSpace(conf.Authz.FlagConfigPath); p != "" {
		flags = NewFileFlagProvider(filepath.Clean(p), mode)
	}
	return Config{
		ModelPath:  filepath.Clean(conf.Authz.ModelPath),
		PolicyPath: filepath.Clean(conf.Authz.PolicyPath),
		Flags:      flags,
		Logger:     conf.Logger(),
	}
}
