package onboarding

import (
	"github.com/arencloud/cloudgate/internal/clipboard"
	"github.com/arencloud/cloudgate/internal/config"
	"github.com/arencloud/cloudgate/internal/credentials"
	"github.com/arencloud/cloudgate/internal/logging"
	"github.com/arencloud/cloudgate/internal/notify"
	"github.com/arencloud/cloudgate/internal/registration"
)

// FromConfig builds a session from the environment configuration. h may be nil.
func FromConfig(cfg *config.Config, n notify.Notifier, clip clipboard.Clipboard, h Handoff, logger logging.Logger) *Session {
	var tokens credentials.TokenSource = credentials.RandomExternalID
	if cfg.ExternalIDMode == config.ExternalIDFixed {
		tokens = credentials.FixedExternalID(credentials.PlaceholderExternalID)
	}
	return New(Config{
		Collector: registration.New(n,
			registration.WithBcryptCost(cfg.BcryptCost),
			registration.WithDelay(cfg.SignupDelay),
		),
		Dialog: credentials.Config{
			Connector: credentials.Simulated{Delay: cfg.ConnectDelay},
			Timeout:   cfg.ConnectTimeout,
			Strict:    cfg.StrictCredentials,
			Tokens:    tokens,
			Clipboard: clip,
		},
		Notifier: n,
		Handoff:  h,
		Logger:   logger,
	})
}
