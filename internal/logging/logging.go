package logging

import "go.uber.org/zap"

// New builds the process logger. Production uses the JSON encoder, anything
// else the human readable development config.
func New(production bool, level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	if production {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
