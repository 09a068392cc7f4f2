package epictree

import (
	"log/slog"
	"time"

	"github.com/hupe1980/epictree/codec"
	"github.com/hupe1980/epictree/trace"
)

type options struct {
	codec       codec.Codec
	logger      *Logger
	fetcher     trace.Fetcher
	maskDir     string
	basename    string
	compression trace.Compression
	clock       func() time.Time
}

// Option configures Tree constructor behavior.
//
// Today options primarily exist to avoid exploding the API surface
// (e.g. codec-specific constructor variants).
type Option func(*options)

// WithCodec configures the codec used for mask files and bundle indexes.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithFetcher configures the fetcher used to load non-resident channel
// payloads during matrix extraction. Without a fetcher, extraction fails
// on the first non-resident channel.
func WithFetcher(f trace.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithMaskDir configures the directory used by SaveMaskAuto and
// LoadLatestMask. Defaults to the current directory.
func WithMaskDir(dir string) Option {
	return func(o *options) {
		o.maskDir = dir
	}
}

// WithSourceBasename configures the basename recorded in saved masks and
// used to derive timestamped mask filenames. Defaults to "epochs".
func WithSourceBasename(basename string) Option {
	return func(o *options) {
		o.basename = basename
	}
}

// WithCompression configures the compression used when writing trace
// bundles via SaveBundle.
func WithCompression(c trace.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithClock overrides the time source for mask filenames. Intended for
// tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := epictree.NewJSONLogger(slog.LevelInfo)
//	tr, _ := epictree.New(export, epictree.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:       codec.Default,
		logger:      NoopLogger(),
		maskDir:     ".",
		basename:    "epochs",
		compression: trace.CompressionZSTD,
		clock:       time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
