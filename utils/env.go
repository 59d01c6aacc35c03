package utils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var loadOnce sync.Once

// LoadEnv loads environment variables from a .env file in the working directory or
// up to two of its parents. Existing environment variables are not overwritten.
func LoadEnv(logger *zap.Logger) {
	loadOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
		cwd, err := os.Getwd()
		if err != nil {
			return
		}
		path := findDotEnv(cwd, 3)
		if path == "" {
			return
		}
		n, err := loadDotEnv(path)
		if err != nil {
			logger.Warn("cannot read .env", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Debug("loaded .env", zap.String("path", path), zap.Int("vars", n))
	})
}

func findDotEnv(dir string, levels int) string {
	for i := 0; i < levels; i++ {
		path := filepath.Join(dir, ".env")
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadDotEnv parses path with viper's dotenv reader and exports the variables that
// are not set yet. Viper lower-cases keys, so names are exported upper-cased.
func loadDotEnv(path string) (int, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return 0, err
	}

	n := 0
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
