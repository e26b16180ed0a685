package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/sources"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// EnvPrefix marks environment variables that override configuration
const EnvPrefix = "ARDENTHAT_"

type Config struct {
	KnowledgeBase string    `koanf:"knowledge_base"`
	LockFile      string    `koanf:"lock_file"`
	Probe         Probe     `koanf:"probe"`
	Sources       Sources   `koanf:"sources"`
	Installer     Installer `koanf:"installer"`
	Finalizer     Finalizer `koanf:"finalizer"`
	Report        Report    `koanf:"report"`
	History       History   `koanf:"history"`
	Log           Log       `koanf:"log"`

	// Path is the config file that was loaded, empty for defaults only
	Path string `koanf:"-"`
}

type Probe struct {
	Timeout time.Duration `koanf:"timeout"`
}

type Sources struct {
	PCI Source `koanf:"pci"`
	USB Source `koanf:"usb"`
	CPU Source `koanf:"cpu"`
}

type Source struct {
	Enabled bool     `koanf:"enabled"`
	Command []string `koanf:"command"`
	File    string   `koanf:"file"`
}

type Installer struct {
	QueryCommand   []string `koanf:"query_command"`
	InstallCommand []string `koanf:"install_command"`
	ModuleCommand  []string `koanf:"module_command"`
	ModulesDir     string   `koanf:"modules_dir"`
	ProcModules    string   `koanf:"proc_modules"`
	PersistDir     string   `koanf:"persist_dir"`
	PersistCommand []string `koanf:"persist_command"`
}

type Finalizer struct {
	Command []string `koanf:"command"`
}

type Report struct {
	Path   string `koanf:"path"`
	Format string `koanf:"format"`
}

type History struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type Log struct {
	File string `koanf:"file"`
}

// candidatePaths lists config files tried in order when none is given
var candidatePaths = func() []string {
	return []string{
		"/etc/ardenthat/config.yaml",
		filepath.Join(xdg.ConfigHome, "ardenthat", "config.yaml"),
		"config.yaml",
	}
}

// Load builds the configuration from the embedded defaults, then the
// config file, then ARDENTHAT_* environment variables. An empty path
// tries the default locations; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to load defaults")
	}

	if path == "" {
		for _, c := range candidatePaths() {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "config file not found").WithDetail("path", path)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfig, "failed to load config from %s", path).
				WithDetail("path", path)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to load environment")
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToFieldsHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to unmarshal configuration")
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// stringToFieldsHookFunc splits a string on whitespace when the target is
// a string slice, so ARDENTHAT_FINALIZER__COMMAND="dracut -f" works
func stringToFieldsHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}
		return strings.Fields(reflect.ValueOf(data).String()), nil
	}
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Probe.Timeout <= 0 {
		return errors.Newf(errors.ErrConfig, "probe.timeout must be positive, got %s", c.Probe.Timeout)
	}

	for name, s := range map[string]Source{"pci": c.Sources.PCI, "usb": c.Sources.USB, "cpu": c.Sources.CPU} {
		if s.Enabled && len(s.Command) == 0 && s.File == "" {
			return errors.Newf(errors.ErrConfig, "sources.%s needs a command or a file", name)
		}
		if len(s.Command) > 0 && s.File != "" {
			return errors.Newf(errors.ErrConfig, "sources.%s sets both command and file", name)
		}
	}

	for key, cmd := range map[string][]string{
		"installer.query_command":   c.Installer.QueryCommand,
		"installer.install_command": c.Installer.InstallCommand,
		"installer.module_command":  c.Installer.ModuleCommand,
		"installer.persist_command": c.Installer.PersistCommand,
		"finalizer.command":         c.Finalizer.Command,
	} {
		if len(cmd) == 0 || strings.TrimSpace(cmd[0]) == "" {
			return errors.Newf(errors.ErrConfig, "%s must not be empty", key)
		}
	}

	switch strings.ToLower(c.Report.Format) {
	case "json", "yaml", "yml":
	default:
		return errors.Newf(errors.ErrConfig, "report.format %q is not json or yaml", c.Report.Format)
	}
	return nil
}

// SourcesConfig converts the source settings for the sources package
func (c *Config) SourcesConfig() sources.Config {
	conv := func(s Source) sources.SourceConfig {
		return sources.SourceConfig{Enabled: s.Enabled, Command: s.Command, File: s.File}
	}
	return sources.Config{
		PCI: conv(c.Sources.PCI),
		USB: conv(c.Sources.USB),
		CPU: conv(c.Sources.CPU),
	}
}
