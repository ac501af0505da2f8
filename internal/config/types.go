// Package config loads conceptc configuration from defaults, a YAML file,
// CONCEPTC_* environment variables and command-line flags.
package config

// Config holds all conceptc configuration options.
type Config struct {
	DSLDir                   string `koanf:"dsl_dir"`
	MacrosDir                string `koanf:"macros_dir"`
	TypesFile                string `koanf:"types_file"`
	CachePath                string `koanf:"cache_path"`
	MaxIterations            int    `koanf:"max_iterations"`
	AllowIdenticalDuplicates bool   `koanf:"allow_identical_duplicates"`
	MaxErrors                int    `koanf:"max_errors"`
	Verbose                  bool   `koanf:"verbose"`
	OutputFormat             string `koanf:"output"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultDSLDir        = "dsl"
	DefaultMacrosDir     = "macros"
	DefaultTypesFile     = "types.yaml"
	DefaultCachePath     = ".conceptc/cache.db"
	DefaultMaxIterations = 1000
	DefaultMaxErrors     = 20
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// FileNames are the config file names searched for, in order.
var FileNames = []string{"conceptc.yaml", "conceptc.yml"}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DSLDir:                   DefaultDSLDir,
		MacrosDir:                DefaultMacrosDir,
		TypesFile:                DefaultTypesFile,
		CachePath:                DefaultCachePath,
		MaxIterations:            DefaultMaxIterations,
		AllowIdenticalDuplicates: true,
		MaxErrors:                DefaultMaxErrors,
		OutputFormat:             DefaultOutput,
	}
}

func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"dsl_dir":                    d.DSLDir,
		"macros_dir":                 d.MacrosDir,
		"types_file":                 d.TypesFile,
		"cache_path":                 d.CachePath,
		"max_iterations":             d.MaxIterations,
		"allow_identical_duplicates": d.AllowIdenticalDuplicates,
		"max_errors":                 d.MaxErrors,
		"verbose":                    false,
		"output":                     d.OutputFormat,
	}
}
