package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ecamozu/career-agent/internal/agent"
	"github.com/ecamozu/career-agent/internal/ai/gemini"
	"github.com/ecamozu/career-agent/internal/notify"
	"github.com/ecamozu/career-agent/internal/profile"
	"github.com/ecamozu/career-agent/internal/secrets"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// buildAgent assembles the full processing pipeline from configuration:
// profile, model clients, notifier, and the loop that ties them together.
func buildAgent(ctx context.Context, config *Config, logger *zap.Logger) (*agent.Agent, *profile.Profile, error) {
	if config == nil {
		return nil, nil, errors.New("config is required")
	}
	if config.Profile == nil {
		return nil, nil, errors.New("candidate profile is required under the 'profile' key")
	}

	prof, err := profile.Load(config.Profile, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("loading candidate profile: %w", err)
	}

	drafter, critic, err := buildModelClients(ctx, config.AI, logger)
	if err != nil {
		return nil, nil, err
	}

	notifier, err := buildNotifier(config.Email, logger)
	if err != nil {
		return nil, nil, err
	}

	return agent.New(drafter, critic, notifier, prof, logger), prof, nil
}

func buildModelClients(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*gemini.Drafter, *gemini.Critic, error) {
	geminiCfg := &GeminiConfig{}
	if cfg != nil {
		if provider := strings.TrimSpace(cfg.Provider); provider != "" && provider != "gemini" {
			return nil, nil, fmt.Errorf("unsupported ai provider %q, only gemini is supported", cfg.Provider)
		}
		if cfg.Gemini != nil {
			geminiCfg = cfg.Gemini
		}
	}

	keyFile := strings.TrimSpace(geminiCfg.APIKeyFile)
	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString("api-key-file"))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: geminiCfg.APIKey,
		Env:   "GEMINI_API_KEY",
		File:  keyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading gemini api key: %w (set GEMINI_API_KEY, GEMINI_API_KEY_FILE, or the 'ai.gemini.api-key-file' config key)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, geminiCfg.Model, geminiCfg.MaxRetries, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating gemini client: %w", err)
	}

	drafter := gemini.NewDrafter(generator, logger, geminiCfg.MaxLogLength)
	critic := gemini.NewCritic(generator, logger, geminiCfg.MaxLogLength)

	return drafter, critic, nil
}

// buildNotifier returns the email notifier when configured and falls back to
// console logging otherwise, so the agent stays usable without SMTP access.
func buildNotifier(cfg *notify.EmailConfig, logger *zap.Logger) (notify.Notifier, error) {
	if cfg == nil {
		logger.Info("email not configured, notifications go to the log")
		return notify.NewConsole(logger), nil
	}

	password, err := secrets.Load(secrets.Source{
		Name: "smtp password",
		Env:  "SMTP_PASSWORD",
		File: cfg.PasswordFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading smtp password: %w (set SMTP_PASSWORD or the 'email.password-file' config key)", err)
	}

	return notify.NewEmail(cfg, password, logger)
}
