package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/onkernel/stillcam/lib/capture"
)

type Config struct {
	Port    string
	DataDir string

	// MinFreeSpace is the usable space to keep free under DataDir. Zero
	// disables eviction.
	MinFreeSpace datasize.ByteSize

	CapturePeriod    time.Duration
	CaptureCommand   string
	CaptureWorkers   int
	EmulateCameraDir string

	// CaptureMaxPending is how many captures may wait while the camera is
	// busy. Later ticks are skipped.
	CaptureMaxPending int

	// CaptureTimeout kills a camera process that runs longer. Zero means
	// no limit.
	CaptureTimeout time.Duration

	StreamPollInterval time.Duration
	StreamStalePolls   int
	StreamWriteTimeout time.Duration
	LoadWorkers        int

	ResourcesDir    string
	ShutdownTimeout time.Duration

	OtelEnabled     bool
	OtelEndpoint    string
	OtelServiceName string
	OtelInsecure    bool
}

// Load loads configuration from environment variables.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "1986"),
		DataDir:          getEnv("DATA_DIR", "/home/pi/image_repo"),
		CaptureCommand:   getEnv("CAPTURE_COMMAND", "raspistill-flip"),
		EmulateCameraDir: getEnv("EMULATE_CAMERA_DIR", ""),
		ResourcesDir:     getEnv("RESOURCES_DIR", ""),
		OtelEndpoint:     getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName:  getEnv("OTEL_SERVICE_NAME", "stillcam"),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := cfg.MinFreeSpace.UnmarshalText([]byte(getEnv("MIN_FREE_SPACE", "500MB"))); err != nil {
		collect(fmt.Errorf("MIN_FREE_SPACE: %w", err))
	}

	var err error
	cfg.CapturePeriod, err = getDuration("CAPTURE_PERIOD", 6*time.Second)
	collect(err)
	cfg.StreamPollInterval, err = getDuration("STREAM_POLL_INTERVAL", 500*time.Millisecond)
	collect(err)
	cfg.StreamWriteTimeout, err = getDuration("STREAM_WRITE_TIMEOUT", 10*time.Second)
	collect(err)
	cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	collect(err)
	cfg.CaptureTimeout, err = getDuration("CAPTURE_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.StreamStalePolls, err = getInt("STREAM_STALE_POLLS", 50)
	collect(err)
	cfg.CaptureWorkers, err = getInt("CAPTURE_WORKERS", 1)
	collect(err)
	cfg.CaptureMaxPending, err = getInt("CAPTURE_MAX_PENDING", 1)
	collect(err)
	cfg.LoadWorkers, err = getInt("LOAD_WORKERS", 1)
	collect(err)
	cfg.OtelEnabled, err = getBool("OTEL_ENABLED", false)
	collect(err)
	cfg.OtelInsecure, err = getBool("OTEL_INSECURE", true)
	collect(err)

	if len(errs) > 0 {
		return nil, fmt.Errorf("parse config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR must not be empty"))
	}
	if c.CapturePeriod <= 0 {
		errs = append(errs, errors.New("CAPTURE_PERIOD must be positive"))
	}
	if c.StreamPollInterval <= 0 {
		errs = append(errs, errors.New("STREAM_POLL_INTERVAL must be positive"))
	}
	if c.StreamStalePolls < 1 {
		errs = append(errs, errors.New("STREAM_STALE_POLLS must be at least 1"))
	}
	if c.CaptureWorkers < 1 {
		errs = append(errs, errors.New("CAPTURE_WORKERS must be at least 1"))
	}
	if c.CaptureMaxPending < 0 {
		errs = append(errs, errors.New("CAPTURE_MAX_PENDING must not be negative"))
	}
	if c.CaptureTimeout < 0 {
		errs = append(errs, errors.New("CAPTURE_TIMEOUT must not be negative"))
	}
	if c.LoadWorkers < 1 {
		errs = append(errs, errors.New("LOAD_WORKERS must be at least 1"))
	}
	if c.EmulateCameraDir == "" {
		if _, err := capture.ResolveCommand(c.CaptureCommand); err != nil {
			errs = append(errs, fmt.Errorf("CAPTURE_COMMAND: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
