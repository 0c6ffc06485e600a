// Package objectstore stores uploaded study materials in GCS, S3 or memory.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/studyplan-backend/internal/platform/envutil"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Mode string

const (
	ModeGCS         Mode = "gcs"
	ModeGCSEmulator Mode = "gcs_emulator"
	ModeS3          Mode = "s3"
	ModeMemory      Mode = "memory"
)

type Config struct {
	Mode   Mode
	Bucket string

	// GCS
	EmulatorHost    string
	CredentialsJSON string
	CredentialsFile string

	// S3
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

func ConfigFromEnv() Config {
	return Config{
		Mode:            Mode(strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", string(ModeMemory)))),
		Bucket:          envutil.String("MATERIAL_BUCKET_NAME", ""),
		EmulatorHost:    envutil.String("STORAGE_EMULATOR_HOST", ""),
		CredentialsJSON: envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", ""),
		CredentialsFile: envutil.String("GOOGLE_APPLICATION_CREDENTIALS", ""),
		Region:          envutil.String("AWS_REGION", ""),
		AccessKey:       envutil.String("AWS_ACCESS_KEY_ID", ""),
		SecretKey:       envutil.String("AWS_SECRET_ACCESS_KEY", ""),
		Endpoint:        envutil.String("AWS_S3_ENDPOINT", ""),
	}
}

// New builds the store selected by cfg.Mode.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Store, error) {
	log = log.With("component", "ObjectStore")
	if cfg.Mode != ModeMemory && strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("objectstore: MATERIAL_BUCKET_NAME required for mode %q", cfg.Mode)
	}
	var (
		st  Store
		err error
	)
	switch cfg.Mode {
	case ModeGCS, ModeGCSEmulator:
		st, err = NewGCS(ctx, cfg)
	case ModeS3:
		st, err = NewS3(ctx, cfg)
	case ModeMemory, "":
		st = NewMemory()
	default:
		return nil, fmt.Errorf("objectstore: unsupported mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	log.Info("Object storage initialized", "mode", cfg.Mode, "bucket", cfg.Bucket)
	return st, nil
}

// ReadAll reads the whole object at key.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
