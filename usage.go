package timekill

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultShaderDirectory is searched when no shader directory is configured.
const DefaultShaderDirectory = "assets/shaders/"

// Configuration holds the usage properties of a context. It corresponds to
// the JSON object read by LoadConfiguration.
type Configuration struct {
	AppName string `json:"app_name"`

	DebugEnabled           bool `json:"debug_enabled"`
	TraceEnabled           bool `json:"trace_enabled"`
	EnableValidationLayers bool `json:"enable_validation_layers"`
	EnableExtensions       bool `json:"enable_extensions"`
	EnableMSAA             bool `json:"enable_msaa"`

	RootDirectory           string   `json:"root_directory"`
	ShaderModuleDirectories []string `json:"shader_module_directories"`
	RecursiveShaderSearch   bool     `json:"recursive_shader_search"`

	LogFile string `json:"log_file"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewConfiguration returns the defaults used when no file is given.
func NewConfiguration() *Configuration {
	return &Configuration{
		AppName: "TimeKill",
		Width:   1280,
		Height:  720,
	}
}

// LoadConfiguration reads a JSON configuration. Missing fields keep the
// values of NewConfiguration.
func LoadConfiguration(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read configuration")
	}
	cfg := NewConfiguration()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse configuration %s", path)
	}
	return cfg, nil
}

// ValidationEnabled reports whether validation layers and the debug callback
// are requested.
func (c *Configuration) ValidationEnabled() bool {
	return c.DebugEnabled || c.EnableValidationLayers
}

func (c *Configuration) AddShaderDirectory(dir string) {
	c.ShaderModuleDirectories = append(c.ShaderModuleDirectories, dir)
}

// ShaderDirectories resolves the configured shader directories against
// RootDirectory.
func (c *Configuration) ShaderDirectories() []string {
	dirs := c.ShaderModuleDirectories
	if len(dirs) == 0 {
		dirs = []string{DefaultShaderDirectory}
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if c.RootDirectory != "" && !filepath.IsAbs(d) {
			d = filepath.Join(c.RootDirectory, d)
		}
		out = append(out, filepath.Clean(d))
	}
	return out
}
