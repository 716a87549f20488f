// Package config holds the session and workflow settings for a run.
//
// Settings are layered: Default values, then a YAML file, then CRASHSEV_*
// environment variables, then command-line flags applied by the caller.
package config

import (
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/crashseverity/core/parallel"
	"github.com/YuminosukeSato/crashseverity/performance"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/preprocessing"
)

// Session mirrors the settings a distributed session would be created with.
// ShufflePartitions bounds the goroutine fan-out of row-parallel stages and
// DriverMemory times MemoryFraction caps the frames and matrices a run holds.
type Session struct {
	AppName           string  `yaml:"appName"`
	DriverMemory      string  `yaml:"driverMemory"`
	MemoryFraction    float64 `yaml:"memoryFraction"`
	ShufflePartitions int     `yaml:"shufflePartitions"`
}

// Workers is the number of goroutines row-parallel stages may use.
func (s Session) Workers() int {
	return parallel.Workers(s.ShufflePartitions)
}

// MemoryBytes is the in-memory budget of a run in bytes.
func (s Session) MemoryBytes() int64 {
	n, err := performance.ParseSize(s.DriverMemory)
	if err != nil {
		return 0
	}
	b := float64(n) * s.MemoryFraction
	if b >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(b)
}

// Data locates the input CSV files.
type Data struct {
	// Paths may be files, directories (all *.csv inside) or glob patterns.
	Paths     []string `yaml:"paths"`
	ChunkSize int      `yaml:"chunkSize"`
}

// Label holds the severity thresholds. A row is severe when killed >
// KilledAbove or injured > InjuredAbove.
type Label struct {
	KilledAbove  int `yaml:"killedAbove"`
	InjuredAbove int `yaml:"injuredAbove"`
}

// Oversample configures synthetic minority rows.
type Oversample struct {
	Enabled     bool    `yaml:"enabled"`
	TargetRatio float64 `yaml:"targetRatio"`
	Seed        int64   `yaml:"seed"`
}

// Split configures the train/test partition.
type Split struct {
	TrainWeight float64 `yaml:"trainWeight"`
	TestWeight  float64 `yaml:"testWeight"`
	Seed        int64   `yaml:"seed"`
}

// Features selects the assembled input columns.
type Features struct {
	Columns       []string `yaml:"columns"`
	HandleInvalid string   `yaml:"handleInvalid"`
}

// Model holds classifier hyperparameters.
type Model struct {
	MaxIter         int     `yaml:"maxIter"`
	RegParam        float64 `yaml:"regParam"`
	Tol             float64 `yaml:"tol"`
	FitIntercept    bool    `yaml:"fitIntercept"`
	Standardization bool    `yaml:"standardization"`
	Threshold       float64 `yaml:"threshold"`
	Solver          string  `yaml:"solver"`
	ClassWeight     string  `yaml:"classWeight"`
}

// Minio holds object storage settings for the minio artifact backend.
type Minio struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	UseSSL          bool   `yaml:"useSSL"`
}

// Output configures where run artifacts go.
type Output struct {
	Dir        string `yaml:"dir"`
	Backend    string `yaml:"backend"`
	PlotFormat string `yaml:"plotFormat"`
	Minio      Minio  `yaml:"minio"`
}

// Config is the full workflow configuration.
type Config struct {
	Session    Session    `yaml:"session"`
	Data       Data       `yaml:"data"`
	Label      Label      `yaml:"label"`
	Oversample Oversample `yaml:"oversample"`
	Split      Split      `yaml:"split"`
	Features   Features   `yaml:"features"`
	Model      Model      `yaml:"model"`
	Metric     string     `yaml:"metric"`
	Output     Output     `yaml:"output"`
	LogLevel   string     `yaml:"logLevel"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Session: Session{
			AppName:           "CollisionSeverity",
			DriverMemory:      "4g",
			MemoryFraction:    0.8,
			ShufflePartitions: 8,
		},
		Data: Data{
			ChunkSize: 4096,
		},
		Label: Label{
			KilledAbove:  3,
			InjuredAbove: 5,
		},
		Oversample: Oversample{
			Enabled:     true,
			TargetRatio: 1.0,
			Seed:        42,
		},
		Split: Split{
			TrainWeight: 0.8,
			TestWeight:  0.2,
			Seed:        42,
		},
		Features: Features{
			Columns:       append([]string(nil), preprocessing.DefaultFeatureColumns...),
			HandleInvalid: "skip",
		},
		Model: Model{
			MaxIter:         100,
			RegParam:        0.0,
			Tol:             1e-6,
			FitIntercept:    true,
			Standardization: true,
			Threshold:       0.5,
			Solver:          "lbfgs",
			ClassWeight:     "none",
		},
		Metric: "areaUnderROC",
		Output: Output{
			Dir:        "out",
			Backend:    "local",
			PlotFormat: "png",
			Minio: Minio{
				Bucket: "crashsev",
				Prefix: "runs",
			},
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CRASHSEV_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := getenv("CRASHSEV_DATA_PATHS"); v != "" {
		c.Data.Paths = splitList(v)
	}
	if v := getenv("CRASHSEV_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := getenv("CRASHSEV_OUTPUT_BACKEND"); v != "" {
		c.Output.Backend = v
	}
	if v := getenv("CRASHSEV_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("CRASHSEV_MINIO_ENDPOINT"); v != "" {
		c.Output.Minio.Endpoint = v
	}
	if v := getenv("CRASHSEV_MINIO_ACCESS_KEY_ID"); v != "" {
		c.Output.Minio.AccessKeyID = v
	}
	if v := getenv("CRASHSEV_MINIO_SECRET_ACCESS_KEY"); v != "" {
		c.Output.Minio.SecretAccessKey = v
	}
	if v := getenv("CRASHSEV_MINIO_BUCKET"); v != "" {
		c.Output.Minio.Bucket = v
	}
	if v := getenv("CRASHSEV_SHUFFLE_PARTITIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError("CRASHSEV_SHUFFLE_PARTITIONS", "must be an integer", v)
		}
		c.Session.ShufflePartitions = n
	}
	if v := getenv("CRASHSEV_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.NewValidationError("CRASHSEV_SEED", "must be an integer", v)
		}
		c.Split.Seed = n
		c.Oversample.Seed = n
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Session.MemoryFraction <= 0 || c.Session.MemoryFraction > 1:
		return errors.NewValidationError("session.memoryFraction", "must be in (0, 1]", c.Session.MemoryFraction)
	case !validSize(c.Session.DriverMemory):
		return errors.NewValidationError("session.driverMemory", "must be a size such as 4g or 512m", c.Session.DriverMemory)
	case c.Session.ShufflePartitions <= 0:
		return errors.NewValidationError("session.shufflePartitions", "must be positive", c.Session.ShufflePartitions)
	case len(c.Data.Paths) == 0:
		return errors.NewValidationError("data.paths", "at least one input path is required", c.Data.Paths)
	case c.Data.ChunkSize <= 0:
		return errors.NewValidationError("data.chunkSize", "must be positive", c.Data.ChunkSize)
	case c.Label.KilledAbove < 0 || c.Label.InjuredAbove < 0:
		return errors.NewValidationError("label", "thresholds must be non-negative", c.Label)
	case c.Oversample.Enabled && (c.Oversample.TargetRatio <= 0 || c.Oversample.TargetRatio > 1):
		return errors.NewValidationError("oversample.targetRatio", "must be in (0, 1]", c.Oversample.TargetRatio)
	case c.Split.TrainWeight <= 0 || c.Split.TestWeight <= 0:
		return errors.NewValidationError("split", "train and test weights must be positive", c.Split)
	case len(c.Features.Columns) == 0:
		return errors.NewValidationError("features.columns", "at least one column is required", c.Features.Columns)
	case !oneOf(c.Features.HandleInvalid, "error", "skip", "keep"):
		return errors.NewValidationError("features.handleInvalid", "must be error, skip or keep", c.Features.HandleInvalid)
	case c.Model.MaxIter <= 0:
		return errors.NewValidationError("model.maxIter", "must be positive", c.Model.MaxIter)
	case c.Model.RegParam < 0:
		return errors.NewValidationError("model.regParam", "must be non-negative", c.Model.RegParam)
	case c.Model.Threshold <= 0 || c.Model.Threshold >= 1:
		return errors.NewValidationError("model.threshold", "must be in (0, 1)", c.Model.Threshold)
	case !oneOf(c.Model.Solver, "lbfgs", "gd"):
		return errors.NewValidationError("model.solver", "must be lbfgs or gd", c.Model.Solver)
	case !oneOf(c.Model.ClassWeight, "none", "balanced"):
		return errors.NewValidationError("model.classWeight", "must be none or balanced", c.Model.ClassWeight)
	case !oneOf(c.Metric, "areaUnderROC", "areaUnderPR"):
		return errors.NewValidationError("metric", "must be areaUnderROC or areaUnderPR", c.Metric)
	case !oneOf(c.Output.PlotFormat, "png", "svg", "pdf"):
		return errors.NewValidationError("output.plotFormat", "must be png, svg or pdf", c.Output.PlotFormat)
	}

	switch c.Output.Backend {
	case "local":
		if c.Output.Dir == "" {
			return errors.NewValidationError("output.dir", "is required for the local backend", c.Output.Dir)
		}
	case "minio":
		m := c.Output.Minio
		if m.Endpoint == "" || m.Bucket == "" {
			return errors.NewValidationError("output.minio", "endpoint and bucket are required", m.Endpoint)
		}
		if m.AccessKeyID == "" || m.SecretAccessKey == "" {
			return errors.NewValidationError("output.minio", "credentials are required", "")
		}
	default:
		return errors.NewValidationError("output.backend", "must be local or minio", c.Output.Backend)
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validSize(v string) bool {
	_, err := performance.ParseSize(v)
	return err == nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
