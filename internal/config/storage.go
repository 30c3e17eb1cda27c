package config

import "time"

// StorageConfig holds the settings for the third-party media store.  It is
// loaded once in main and handed to the uploader; no package keeps its own
// copy of the credentials.
type StorageConfig struct {
    Enabled   bool
    Region    string
    Endpoint  string // custom endpoint, e.g. a MinIO server; empty means AWS
    Bucket    string
    AccessKey string
    SecretKey string
    PublicURL string // base URL used to build the returned object URL
    KeyPrefix string
    Timeout   time.Duration
}

func LoadStorageConfig() StorageConfig {
    cfg := StorageConfig{
        Region:    envStr("S3_REGION", "us-east-1"),
        Endpoint:  envStr("S3_ENDPOINT", ""),
        Bucket:    envStr("S3_BUCKET", ""),
        AccessKey: envStr("S3_ACCESS_KEY", ""),
        SecretKey: envStr("S3_SECRET_KEY", ""),
        PublicURL: envStr("S3_PUBLIC_URL", ""),
        KeyPrefix: envStr("S3_KEY_PREFIX", "uploads"),
        Timeout:   envDur("S3_TIMEOUT", 30*time.Second),
    }
    cfg.Enabled = cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != ""
    return cfg
}
