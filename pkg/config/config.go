package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the given dotenv files (".env" when none are given) and then
// fills cfg from the process environment. Missing dotenv files are skipped.
func Load(cfg any, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Printf("notice: %s not found, using process environment", f)
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("process env: %w", err)
	}
	return nil
}
