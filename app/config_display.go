package app

import (
	"linkhub.app/config"
	"linkhub.app/pkg/logger"
)

// ConfigDisplayer logs the effective configuration at startup for
// debugging. Secret values go through the logger's redaction pass.
type ConfigDisplayer struct {
	log *logger.Logger
}

// NewConfigDisplayer creates a new configuration displayer
func NewConfigDisplayer(log *logger.Logger) *ConfigDisplayer {
	return &ConfigDisplayer{log: log}
}

// PrintConfig logs the resolved configuration sections
func (cd *ConfigDisplayer) PrintConfig(cfg *config.Config) {
	cd.log.Info("configuration loaded", map[string]interface{}{
		"server": map[string]interface{}{
			"port": cfg.Server.Port,
		},
		"database": map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"name":     cfg.Database.Name,
			"sslMode":  cfg.Database.SSLMode,
			"password": cfg.Database.Password,
		},
		"cache": map[string]interface{}{
			"type":    cfg.Cache.Type,
			"ttl":     cfg.Cache.TTL.String(),
			"maxSize": cfg.Cache.MaxSize,
		},
		"rateLimit": map[string]interface{}{
			"loginMax":  cfg.RateLimit.LoginMax,
			"signupMax": cfg.RateLimit.SignupMax,
			"clickMax":  cfg.RateLimit.ClickMax,
			"apiMax":    cfg.RateLimit.APIMax,
		},
		"lockout": map[string]interface{}{
			"maxAttempts":  cfg.Lockout.MaxAttempts,
			"baseDuration": cfg.Lockout.BaseDuration.String(),
		},
		"breaker": map[string]interface{}{
			"failureThreshold": cfg.Breaker.FailureThreshold,
			"resetTimeout":     cfg.Breaker.ResetTimeout.String(),
			"successThreshold": cfg.Breaker.SuccessThreshold,
			"requestTimeout":   cfg.Breaker.RequestTimeout.String(),
		},
		"ai": map[string]interface{}{
			"baseURL": cfg.AI.BaseURL,
			"apiKey":  cfg.AI.APIKey,
		},
		"metrics": map[string]interface{}{
			"enabled": cfg.Metrics.Enabled,
		},
		"log": map[string]interface{}{
			"level": cfg.Log.Level,
		},
	})
}
