package config

import "time"

const (
	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultBackendBaseURL = "http://localhost:8081"
	DefaultBackendTimeout = 10 * time.Second

	// 32-byte AES key, base64. Override in every real deployment.
	DefaultSessionKey = "lfQVRuulcL2iOhOJ2r8BYTweoSKwVAJnIF9U+AL+M60="
	DefaultSessionTTL = 30 * time.Minute

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultKafkaTopic = "voucher.submissions"

	DefaultMongoDatabaseName = "voucherdesk"
	DefaultMongoConnTimeout  = 10 * time.Second
)
