package internal

import (
	"errors"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/watch"
)

// DefaultTheme is the theme used when none is configured.
const DefaultTheme = "paper-theme"

// devSuffix is appended to the derived output directory in serve mode.
const devSuffix = "_dev"

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Build  BuildConfig       `yaml:"build"`
	Render RenderConfig      `yaml:"render"`
	Watch  WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Build.Validate(); err != nil {
		return err
	}
	if err := c.Render.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// OutputDir returns the configured output directory, or one derived from the
// vault name under OutputsDir. dev selects the serve-mode variant.
func (c *Config) OutputDir(vaultName string, dev bool) string {
	if c.Build.Output != "" {
		return c.Build.Output
	}
	name := strings.ReplaceAll(vaultName, " ", "_")
	if dev {
		name += devSuffix
	}
	return filepath.Join(c.Build.OutputsDir, name)
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the development server address.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the source vault.
type VaultConfig struct {
	Path string `yaml:"path"`
	// ExcludeDir names a directory that is never published, at any depth.
	ExcludeDir string `yaml:"exclude_dir"`
	// HiddenPrefix marks documents that are built but kept out of navigation.
	HiddenPrefix    string `yaml:"hidden_prefix"`
	PreserveUnicode bool   `yaml:"preserve_unicode"`
	// IgnoreFile is a gitignore-style file at the vault root.
	IgnoreFile string `yaml:"ignore_file"`
}

// Validate validates the vault configuration. The path itself is checked
// when a command needs it.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ExcludeDir, validation.By(singleSegment)),
		validation.Field(&c.IgnoreFile, validation.By(singleSegment)),
	)
}

func singleSegment(value interface{}) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
		return errors.New("must be a plain name")
	}
	return nil
}

// BuildConfig holds output and theme settings.
type BuildConfig struct {
	// Output overrides the derived output directory.
	Output       string `yaml:"output"`
	OutputsDir   string `yaml:"outputs_dir"`
	ThemesDir    string `yaml:"themes_dir"`
	Theme        string `yaml:"theme"`
	DefaultTheme string `yaml:"default_theme"`
	// Concurrency bounds parallel rendering; 0 uses every CPU.
	Concurrency int  `yaml:"concurrency"`
	LiveReload  bool `yaml:"live_reload"`
}

// Validate validates the build configuration.
func (c *BuildConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputsDir, validation.Required),
		validation.Field(&c.ThemesDir, validation.Required),
		validation.Field(&c.DefaultTheme, validation.Required),
		validation.Field(&c.Concurrency, validation.Min(0)),
	)
}

// RenderConfig selects Markdown extensions.
type RenderConfig struct {
	Extensions []string `yaml:"extensions"`
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	names := render.Names()
	allowed := make([]interface{}, len(names))
	for i, n := range names {
		allowed[i] = n
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Extensions, validation.Each(validation.In(allowed...))),
	)
}

// WatchConfig tunes the live-rebuild scheduler.
type WatchConfig struct {
	QuietPeriod time.Duration `yaml:"quiet_period"`
	Throttle    time.Duration `yaml:"throttle"`
	Buffer      int           `yaml:"buffer"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.QuietPeriod, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
		validation.Field(&c.Buffer, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "localhost",
				Port: 8000,
			},
		},
		Vault: VaultConfig{
			ExcludeDir:   "Resources",
			HiddenPrefix: "_",
			IgnoreFile:   ".publishignore",
		},
		Build: BuildConfig{
			OutputsDir:   "./Outputs",
			ThemesDir:    "./themes",
			Theme:        DefaultTheme,
			DefaultTheme: DefaultTheme,
			LiveReload:   true,
		},
		Render: RenderConfig{
			Extensions: append([]string(nil), render.DefaultExtensions...),
		},
		Watch: WatchConfig{
			QuietPeriod: watch.DefaultQuietPeriod,
			Throttle:    watch.DefaultThrottle,
			Buffer:      watch.DefaultBuffer,
		},
	}
}
