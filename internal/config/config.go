package config

import (
	"os"
	"path/filepath"
)

// Config holds process-level settings. Exercise thresholds live in the
// settings store, not here.
type Config struct {
	Addr            string
	CameraID        int
	DataDir         string
	PluginDir       string
	WebDir          string
	MotionThreshold float64
	NoTray          bool
}

// Load reads Config from NECKTILT_* variables.
func Load() Config {
	dataDir := GetEnv("NECKTILT_DATA_DIR", defaultDataDir())
	return Config{
		Addr:            GetEnv("NECKTILT_ADDR", ":8080"),
		CameraID:        GetEnvInt("NECKTILT_CAMERA", 0),
		DataDir:         dataDir,
		PluginDir:       GetEnv("NECKTILT_PLUGIN_DIR", filepath.Join(dataDir, "plugins")),
		WebDir:          GetEnv("NECKTILT_WEB_DIR", ""),
		MotionThreshold: GetEnvFloat("NECKTILT_MOTION_THRESHOLD", 0.01),
		NoTray:          GetEnvBool("NECKTILT_NO_TRAY", false),
	}
}

// DBPath is the SQLite database location inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "necktilt.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".necktilt"
	}
	return filepath.Join(home, ".necktilt")
}
