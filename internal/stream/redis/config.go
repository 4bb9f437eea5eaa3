package redis

const (
	DefaultStream = "search-events"
	DefaultMaxLen = 10000
)

type StreamConfig struct {
	RedisAddr     string
	RedisPassword string
	Stream        string
	// Approximate cap on stream length; older entries are trimmed on write.
	MaxLen int64
}

func NewStreamConfig(redisAddr string, redisPassword string, stream string) *StreamConfig {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamConfig{
		RedisAddr:     redisAddr,
		RedisPassword: redisPassword,
		Stream:        stream,
		MaxLen:        DefaultMaxLen,
	}
}

// Enabled reports whether an event stream was configured at all.
func (c *StreamConfig) Enabled() bool {
	return c != nil && c.RedisAddr != ""
}
