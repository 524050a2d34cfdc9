package configuration

import (
	"github.com/joho/godotenv"

	"repurposer/infrastructure/logger"
)

// LoadEnvFromFile exports the given .env files into the process environment
// and returns the files it read. Variables already set win, so the real
// environment always overrides a local .env.
func LoadEnvFromFile(paths ...string) []string {
	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			continue
		}
		loaded = append(loaded, p)
		logger.GetLogger().WithField("file", p).Info("Loaded env file")
	}
	return loaded
}
