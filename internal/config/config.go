package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Camera source modes.
const (
	CameraModeRemote = "remote" // frames pushed by a browser over websocket
	CameraModeDevice = "device" // local webcam opened through gocv
	CameraModeUDP    = "udp"    // network camera streaming JPEG chunks over UDP
)

type Config struct {
	Port            int
	Password        string
	PublicURL       string
	AssetDirectory  string
	ExportDirectory string
	DatabasePath    string
	LogDirectory    string
	CameraMode      string
	CameraDevice    int
	CameraUDPPort   int
	PreviewFPS      int
	JPEGQuality     int           // Export quality, 1-100
	SessionTTL      time.Duration // Idle sessions older than this are closed
	JanitorInterval time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	port := getEnvAsInt("PORT", 8080)
	return &Config{
		Port:            port,
		Password:        getEnv("PASSWORD", "quicksnap"),
		PublicURL:       strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:"+strconv.Itoa(port)), "/"),
		AssetDirectory:  getEnv("ASSET_DIR", filepath.Join(".", "public")),
		ExportDirectory: getEnv("EXPORT_DIR", filepath.Join(".", "exports")),
		DatabasePath:    getEnv("DB_PATH", filepath.Join(".", "data", "strips.db")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		CameraMode:      getEnv("CAMERA_MODE", CameraModeRemote),
		CameraDevice:    getEnvAsInt("CAMERA_DEVICE", 0),
		CameraUDPPort:   getEnvAsInt("CAMERA_UDP_PORT", 5005),
		PreviewFPS:      getEnvAsInt("PREVIEW_FPS", 10),
		JPEGQuality:     clampQuality(getEnvAsInt("JPEG_QUALITY", 95)),
		SessionTTL:      getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		JanitorInterval: getEnvAsDuration("JANITOR_INTERVAL", time.Minute),
	}
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
