package config

const (
	defaultDataDir = "~/.local/share/turnstile"
	defaultLogDir  = "~/.local/share/turnstile/logs"
	defaultQRDir   = "~/.local/share/turnstile/qrcodes"

	defaultEventName = "Event"

	defaultFrameWidth        = 1280
	defaultFrameHeight       = 720
	defaultCameraReadTimeout = 2

	defaultDedupCooldownSeconds = 5
	defaultQueueCapacity        = 256
	defaultDrainTimeoutSeconds  = 10

	defaultWorksheet             = "Signin"
	defaultRequestTimeoutSeconds = 15
	defaultMaxAttempts           = 3
	defaultRetryBackoffMillis    = 500
	defaultRetryBackoffCapMillis = 8000

	defaultLogFormat = "auto"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			QRDir:   defaultQRDir,
		},
		Event: Event{
			Name: defaultEventName,
		},
		Camera: Camera{
			DeviceIndex: 0,
			FrameWidth:  defaultFrameWidth,
			FrameHeight: defaultFrameHeight,
			ReadTimeout: defaultCameraReadTimeout,
		},
		Pipeline: Pipeline{
			DedupCooldownSeconds: defaultDedupCooldownSeconds,
			QueueCapacity:        defaultQueueCapacity,
			DrainTimeoutSeconds:  defaultDrainTimeoutSeconds,
			SpoolDrainOnStart:    true,
		},
		Sheets: Sheets{
			Worksheet:             defaultWorksheet,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			MaxAttempts:           defaultMaxAttempts,
			RetryBackoffMillis:    defaultRetryBackoffMillis,
			RetryBackoffCapMillis: defaultRetryBackoffCapMillis,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
