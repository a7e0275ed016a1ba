package artifactcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	be "github.com/fraware/artifactcache/backend"
	"github.com/fraware/artifactcache/backend/local"
	"github.com/fraware/artifactcache/backend/memory"
	beredis "github.com/fraware/artifactcache/backend/redis"
	bes3 "github.com/fraware/artifactcache/backend/s3"
	"github.com/fraware/artifactcache/internal/wire"
)

// DefaultCacheDir is where the fallback local backend stores entries when no
// config file is present.
const DefaultCacheDir = ".cache/artifactcache"

// Config is the YAML document enumerating backends in priority order.
type Config struct {
	Backends      []BackendConfig `yaml:"backends"`
	Serialization string          `yaml:"serialization"`  // msgpack (default) | cbor | json
	PromoteOnHit  bool            `yaml:"promote_on_hit"` // backfill fallback hits; off by default
}

// BackendConfig is one tagged backend definition. The variant set is closed:
// config parsing resolves Type once, there is no runtime type registry.
type BackendConfig struct {
	Type string `yaml:"type"` // local | kv | object | memory

	// local
	CacheDir string `yaml:"cache_dir"`

	// kv
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`

	// object
	BucketName      string `yaml:"bucket_name"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// memory
	MaxBytes int64 `yaml:"max_bytes"`

	// shared
	Prefix         string `yaml:"prefix"`
	DefaultTTL     int    `yaml:"default_ttl"` // seconds; 0 = unlimited where supported
	MaxRecordBytes int    `yaml:"max_record_bytes"`
}

// DefaultConfig is a single local backend under DefaultCacheDir.
func DefaultConfig() Config {
	return Config{
		Backends: []BackendConfig{{Type: "local", CacheDir: DefaultCacheDir}},
	}
}

// LoadConfig reads a YAML config file. An absent file yields DefaultConfig;
// an unreadable or malformed file is an error.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("artifactcache: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromConfig constructs a manager from cfg. Backends that fail validation or
// construction are skipped with a warning; the manager runs with whatever
// remains, possibly nothing.
func FromConfig(ctx context.Context, cfg Config, log Logger) (Manager, error) {
	log = coalesce[Logger](log, NopLogger{})

	cd, err := serializationCodec(cfg.Serialization)
	if err != nil {
		return nil, err
	}

	backends := make([]be.Backend, 0, len(cfg.Backends))
	for i, bc := range cfg.Backends {
		b, err := buildBackend(ctx, i, bc, cd)
		if err != nil {
			log.Warn("skipping cache backend", Fields{"type": bc.Type, "index": i, "err": err})
			continue
		}
		log.Info("initialized cache backend", Fields{"type": bc.Type, "index": i})
		backends = append(backends, b)
	}

	return New(Options{
		Backends:     backends,
		Logger:       log,
		PromoteOnHit: cfg.PromoteOnHit,
	}), nil
}

func serializationCodec(name string) (wire.Codec, error) {
	switch name {
	case "", "msgpack":
		return wire.CodecMsgpack, nil
	case "cbor":
		return wire.CodecCBOR, nil
	case "json":
		return wire.CodecJSON, nil
	default:
		return 0, fmt.Errorf("artifactcache: unknown serialization %q", name)
	}
}

func buildBackend(ctx context.Context, index int, bc BackendConfig, cd wire.Codec) (be.Backend, error) {
	fail := func(err error) (be.Backend, error) {
		return nil, &BackendConfigError{Type: bc.Type, Index: index, Err: err}
	}
	defaultTTL := time.Duration(bc.DefaultTTL) * time.Second

	switch bc.Type {
	case "local":
		if bc.CacheDir == "" {
			return fail(errors.New("cache_dir is required"))
		}
		b, err := local.New(local.Config{
			Dir:            bc.CacheDir,
			DefaultTTL:     defaultTTL,
			Codec:          cd,
			MaxRecordBytes: bc.MaxRecordBytes,
		})
		if err != nil {
			return fail(err)
		}
		return b, nil

	case "kv":
		if bc.Host == "" {
			return fail(errors.New("host is required"))
		}
		if bc.Port == 0 {
			return fail(errors.New("port is required"))
		}
		b, err := beredis.New(beredis.Config{
			Host:           bc.Host,
			Port:           bc.Port,
			DB:             bc.DB,
			Password:       bc.Password,
			Prefix:         bc.Prefix,
			DefaultTTL:     defaultTTL,
			Codec:          cd,
			MaxRecordBytes: bc.MaxRecordBytes,
		})
		if err != nil {
			return fail(err)
		}
		return b, nil

	case "object":
		if bc.BucketName == "" {
			return fail(errors.New("bucket_name is required"))
		}
		if bc.Region == "" {
			return fail(errors.New("region is required"))
		}
		b, err := bes3.New(ctx, bes3.Config{
			Bucket:          bc.BucketName,
			Region:          bc.Region,
			Endpoint:        bc.Endpoint,
			AccessKeyID:     bc.AccessKeyID,
			SecretAccessKey: bc.SecretAccessKey,
			Prefix:          bc.Prefix,
			DefaultTTL:      defaultTTL,
			Codec:           cd,
			MaxRecordBytes:  bc.MaxRecordBytes,
		})
		if err != nil {
			return fail(err)
		}
		return b, nil

	case "memory":
		b, err := memory.New(memory.Config{
			MaxBytes:       bc.MaxBytes,
			DefaultTTL:     defaultTTL,
			Codec:          cd,
			MaxRecordBytes: bc.MaxRecordBytes,
		})
		if err != nil {
			return fail(err)
		}
		return b, nil

	default:
		return fail(fmt.Errorf("unknown backend type %q", bc.Type))
	}
}
