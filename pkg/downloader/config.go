package downloader

const (
	DefaultMaxBytes  int64 = 10 << 20
	DefaultUserAgent       = "defectlens/1.0 (+image-fetch)"
)

// Config controls the HTTP transport.
type Config struct {
	// TimeoutSecs bounds one request; 0 leaves it to the transport.
	TimeoutSecs int    `yaml:"timeout_seconds"`
	UserAgent   string `yaml:"user_agent"`
	MaxBytes    int64  `yaml:"max_bytes"`
}

// WithDefaults fills zero fields.
func (c Config) WithDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.TimeoutSecs < 0 {
		c.TimeoutSecs = 0
	}
	return c
}
