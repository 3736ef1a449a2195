package logger

import "go.uber.org/zap"

// New builds the application logger. Production gets JSON output at info
// level, everything else the human readable development config.
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
