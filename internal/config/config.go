package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/xysim/internal/engine"
	"github.com/san-kum/xysim/internal/kernel"
	"github.com/san-kum/xysim/internal/lattice"
	"github.com/san-kum/xysim/internal/observable"
	"github.com/san-kum/xysim/internal/scan"
)

const (
	DefaultSize            = 64
	DefaultTemperature     = 1.0
	DefaultFPS             = 60
	DefaultSteps           = 1000
	DefaultPublishInterval = 500.0
	DefaultDataDir         = "./data"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Size              int         `yaml:"size" env:"SIZE"`
	Temperature       float64     `yaml:"temperature" env:"TEMPERATURE"`
	Kernel            string      `yaml:"kernel" env:"KERNEL"`
	Observable        string      `yaml:"observable" env:"OBSERVABLE"`
	Record            bool        `yaml:"record" env:"RECORD"`
	Aligned           bool        `yaml:"aligned" env:"ALIGNED"`
	Seed              int64       `yaml:"seed" env:"SEED"`
	FPS               int         `yaml:"fps" env:"FPS"`
	Steps             int         `yaml:"steps" env:"STEPS"`
	PublishIntervalMs float64     `yaml:"publish_interval_ms" env:"PUBLISH_INTERVAL_MS"`
	DataDir           string      `yaml:"data_dir" env:"DATA_DIR"`
	Sweep             SweepConfig `yaml:"sweep" envPrefix:"SWEEP_"`
	Scan              ScanConfig  `yaml:"scan" envPrefix:"SCAN_"`
}

type SweepConfig struct {
	Step          float64 `yaml:"step" env:"STEP"`
	StepsPerFrame int     `yaml:"steps_per_frame" env:"STEPS_PER_FRAME"`
	BurnIn        int     `yaml:"burn_in" env:"BURN_IN"`
}

type ScanConfig struct {
	Temperatures int    `yaml:"temperatures" env:"TEMPERATURES"`
	BurnIn       int    `yaml:"burn_in" env:"BURN_IN"`
	Samples      int    `yaml:"samples" env:"SAMPLES"`
	Workers      int    `yaml:"workers" env:"WORKERS"`
	SampleKernel string `yaml:"sample_kernel" env:"SAMPLE_KERNEL"`
}

func DefaultConfig() *Config {
	sched := engine.DefaultSweepSchedule()
	params := scan.DefaultParams()
	return &Config{
		Size:              DefaultSize,
		Temperature:       DefaultTemperature,
		Kernel:            "metropolis",
		Observable:        "magnetization",
		Record:            true,
		FPS:               DefaultFPS,
		Steps:             DefaultSteps,
		PublishIntervalMs: DefaultPublishInterval,
		DataDir:           DefaultDataDir,
		Sweep: SweepConfig{
			Step:          sched.Increment,
			StepsPerFrame: sched.StepsPerFrame,
			BurnIn:        sched.BurnIn,
		},
		Scan: ScanConfig{
			Temperatures: params.Temperatures,
			BurnIn:       params.BurnIn,
			Samples:      params.Samples,
			Workers:      params.Workers,
			SampleKernel: params.SampleKernel.String(),
		},
	}
}

// Clone returns a copy; Config holds no references.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func Load(path string) (*Config, error) {
	return LoadInto(DefaultConfig(), path)
}

// LoadInto overlays the YAML file at path onto base. Keys missing from the
// file keep their base values.
func LoadInto(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve builds a configuration from defaults, an optional preset, an
// optional file and the environment, in that order of precedence.
func Resolve(preset, path string) (*Config, error) {
	cfg := DefaultConfig()
	if preset != "" {
		p := GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, preset)
		}
		cfg = p
	}
	if path != "" {
		var err error
		if cfg, err = LoadInto(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	var errs []error
	if !lattice.ValidSize(c.Size, c.Size) {
		errs = append(errs, fmt.Errorf("size %d not in %v", c.Size, lattice.Sizes))
	}
	if c.Temperature < 0 || c.Temperature > engine.MaxTemperature {
		errs = append(errs, fmt.Errorf("temperature %v outside [0, %v]", c.Temperature, engine.MaxTemperature))
	}
	if _, err := kernel.Parse(c.Kernel); err != nil {
		errs = append(errs, err)
	}
	if _, err := observable.Parse(c.Observable); err != nil {
		errs = append(errs, err)
	}
	if _, err := kernel.Parse(c.Scan.SampleKernel); err != nil {
		errs = append(errs, fmt.Errorf("scan: %w", err))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.Steps <= 0 {
		errs = append(errs, fmt.Errorf("steps must be positive, got %d", c.Steps))
	}
	if c.PublishIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("publish interval must be positive, got %v", c.PublishIntervalMs))
	}
	if c.Sweep.Step <= 0 || c.Sweep.StepsPerFrame <= 0 || c.Sweep.BurnIn < 0 {
		errs = append(errs, fmt.Errorf("sweep schedule %+v", c.Sweep))
	}
	if c.Scan.Temperatures < 2 || c.Scan.Samples <= 0 || c.Scan.BurnIn < 0 || c.Scan.Workers < 0 {
		errs = append(errs, fmt.Errorf("scan parameters %+v", c.Scan))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// EngineOptions maps the configuration onto engine options. A zero seed
// leaves seeding to the engine.
func (c *Config) EngineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithPublishInterval(c.PublishIntervalMs),
		engine.WithSweepSchedule(engine.SweepSchedule{
			Increment:     c.Sweep.Step,
			StepsPerFrame: c.Sweep.StepsPerFrame,
			BurnIn:        c.Sweep.BurnIn,
		}),
	}
	if c.Seed != 0 {
		opts = append(opts, engine.WithSeed(c.Seed))
	}
	return opts
}

// Setup returns the batch that brings a fresh engine to this configuration.
func (c *Config) Setup(sink engine.FrameSink) []engine.Command {
	batch := []engine.Command{
		engine.Init{Width: c.Size, Height: c.Size, Sink: sink},
		engine.SetTemperature(c.Temperature),
		engine.SetKernel(c.Kernel),
		engine.SetObservable(c.Observable),
		engine.SetRecord(c.Record),
	}
	if c.Aligned {
		batch = append(batch, engine.InitializeDataAligned())
	}
	return batch
}

// ScanParams maps the scan section onto batch scan parameters.
func (c *Config) ScanParams() scan.Params {
	k, _ := kernel.Parse(c.Scan.SampleKernel)
	return scan.Params{
		Size:         c.Size,
		Temperatures: c.Scan.Temperatures,
		BurnIn:       c.Scan.BurnIn,
		Samples:      c.Scan.Samples,
		Workers:      c.Scan.Workers,
		SampleKernel: k,
		Seed:         c.Seed,
	}
}
