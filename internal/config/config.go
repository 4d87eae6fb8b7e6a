// Package config reads the server configuration from the environment.
//
// A .env file in the working directory is loaded first (godotenv autoload);
// variables already set in the environment take precedence.
//
//	PORT                listen port (8080)
//	UPLOAD_DIR          uploaded sources (uploads)
//	OUTPUT_DIR          generated outputs (output)
//	MAX_UPLOAD_MB       PDF upload limit (25)
//	MAX_IMAGE_MB        image upload limit (5)
//	SESSION_TTL         idle time before a session is removed (30m)
//	SWEEP_INTERVAL      how often expired sessions are removed (10m)
//	PREVIEW_PAGE_LIMIT  pages rendered per preview request (50)
//	PREVIEW_SCALE       preview pixel scale, 1 = 72 DPI (1.5)
//	THUMBNAIL_WIDTH     preview bitmap width in pixels (240)
//	DEFAULT_LANGUAGE    id or en (id)
//	LOG_LEVEL           logrus level (info)
//	LOG_FORMAT          text or json (text)
//	ALLOWED_ORIGINS     comma separated CORS origins (https://*,http://*)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"go-pdftools/internal/i18n"
)

type Config struct {
	Port             int
	UploadDir        string
	OutputDir        string
	MaxUploadSize    int64
	MaxImageSize     int64
	SessionTTL       time.Duration
	SweepInterval    time.Duration
	PreviewPageLimit int
	PreviewScale     float64
	ThumbnailWidth   int
	DefaultLanguage  i18n.Language
	LogLevel         logrus.Level
	LogFormat        string
	AllowedOrigins   []string
}

// Default returns the configuration used when no variables are set.
func Default() *Config {
	return &Config{
		Port:             8080,
		UploadDir:        "uploads",
		OutputDir:        "output",
		MaxUploadSize:    25 << 20,
		MaxImageSize:     5 << 20,
		SessionTTL:       30 * time.Minute,
		SweepInterval:    10 * time.Minute,
		PreviewPageLimit: 50,
		PreviewScale:     1.5,
		ThumbnailWidth:   240,
		DefaultLanguage:  i18n.Default,
		LogLevel:         logrus.InfoLevel,
		LogFormat:        "text",
		AllowedOrigins:   []string{"https://*", "http://*"},
	}
}

// Load builds a Config from the environment on top of Default. All invalid
// values are reported together.
func Load() (*Config, error) {
	c := Default()
	var errs []error
	bad := func(key string, err error) {
		errs = append(errs, fmt.Errorf("%s: %w", key, err))
	}

	if v, ok := lookup("PORT"); ok {
		if n, err := strconv.Atoi(v); err != nil || n <= 0 || n > 65535 {
			bad("PORT", fmt.Errorf("invalid port %q", v))
		} else {
			c.Port = n
		}
	}
	if v, ok := lookup("UPLOAD_DIR"); ok {
		c.UploadDir = v
	}
	if v, ok := lookup("OUTPUT_DIR"); ok {
		c.OutputDir = v
	}
	if v, ok := lookup("MAX_UPLOAD_MB"); ok {
		if n, err := positiveInt(v); err != nil {
			bad("MAX_UPLOAD_MB", err)
		} else {
			c.MaxUploadSize = int64(n) << 20
		}
	}
	if v, ok := lookup("MAX_IMAGE_MB"); ok {
		if n, err := positiveInt(v); err != nil {
			bad("MAX_IMAGE_MB", err)
		} else {
			c.MaxImageSize = int64(n) << 20
		}
	}
	if v, ok := lookup("SESSION_TTL"); ok {
		if d, err := positiveDuration(v); err != nil {
			bad("SESSION_TTL", err)
		} else {
			c.SessionTTL = d
		}
	}
	if v, ok := lookup("SWEEP_INTERVAL"); ok {
		if d, err := positiveDuration(v); err != nil {
			bad("SWEEP_INTERVAL", err)
		} else {
			c.SweepInterval = d
		}
	}
	if v, ok := lookup("PREVIEW_PAGE_LIMIT"); ok {
		if n, err := positiveInt(v); err != nil {
			bad("PREVIEW_PAGE_LIMIT", err)
		} else {
			c.PreviewPageLimit = n
		}
	}
	if v, ok := lookup("PREVIEW_SCALE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err != nil || f <= 0 || f > 8 {
			bad("PREVIEW_SCALE", fmt.Errorf("invalid scale %q", v))
		} else {
			c.PreviewScale = f
		}
	}
	if v, ok := lookup("THUMBNAIL_WIDTH"); ok {
		if n, err := positiveInt(v); err != nil {
			bad("THUMBNAIL_WIDTH", err)
		} else {
			c.ThumbnailWidth = n
		}
	}
	if v, ok := lookup("DEFAULT_LANGUAGE"); ok {
		if lang, ok := i18n.ParseLanguage(v); !ok {
			bad("DEFAULT_LANGUAGE", fmt.Errorf("unsupported language %q", v))
		} else {
			c.DefaultLanguage = lang
		}
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		if lvl, err := logrus.ParseLevel(v); err != nil {
			bad("LOG_LEVEL", err)
		} else {
			c.LogLevel = lvl
		}
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		if v != "text" && v != "json" {
			bad("LOG_FORMAT", fmt.Errorf("unsupported format %q", v))
		} else {
			c.LogFormat = v
		}
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Logger returns a logrus logger configured with the level and format.
func (c *Config) Logger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func positiveInt(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("expected a positive integer, got %q", v)
	}
	return n, nil
}

func positiveDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("expected a positive duration, got %q", v)
	}
	return d, nil
}
