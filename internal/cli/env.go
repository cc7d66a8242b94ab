package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"snowboard-doctor/internal/chat"
	"snowboard-doctor/internal/config"
	"snowboard-doctor/internal/identity"
	"snowboard-doctor/internal/utils"
)

type commonFlags struct {
	configPath *string
	dataDir    *string
	webhookURL *string
	noIP       *bool
	verbose    *bool
}

func registerCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath: fs.String("config", config.DefaultPath(), "config file path"),
		dataDir:    fs.String("data-dir", "", "directory for the saved sign-in and logs"),
		webhookURL: fs.String("webhook-url", "", "chat webhook URL"),
		noIP:       fs.Bool("no-ip", false, "do not look up the public IP for guest sessions"),
		verbose:    fs.Bool("verbose", false, "debug logging"),
	}
}

// load applies flags on top of the file and environment configuration.
func (f *commonFlags) load() (config.Config, error) {
	cfg, err := config.Load(*f.configPath)
	if err != nil {
		return cfg, err
	}
	if *f.dataDir != "" {
		cfg.DataDir = *f.dataDir
	}
	if *f.webhookURL != "" {
		cfg.Webhook.URL = *f.webhookURL
	}
	if *f.noIP {
		cfg.Fingerprint.ResolveIP = false
	}
	if *f.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runEnv is the wiring shared by every command: one provider, one resolver
// and the webhook the conversation talks to.
type runEnv struct {
	cfg      config.Config
	logger   *utils.Logger
	provider identity.Provider
	resolver *identity.Resolver
	webhook  *chat.WebhookClient
}

func newEnv(cfg config.Config, logger *utils.Logger) *runEnv {
	provider := newProvider(cfg, logger)
	resolver := identity.NewResolver(identity.ResolverOptions{
		Provider: provider,
		Signals: func(ctx context.Context) identity.Signals {
			return collectSignals(ctx, cfg)
		},
		RedirectTarget: cfg.RedirectURL(),
		Logger:         logger.Named("identity"),
	})
	webhook := chat.NewWebhookClient(chat.WebhookOptions{
		URL:      cfg.Webhook.URL,
		Username: cfg.Webhook.Username,
		Password: cfg.Webhook.Password,
		Logger:   logger.Named("webhook"),
	})
	return &runEnv{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		resolver: resolver,
		webhook:  webhook,
	}
}

func (e *runEnv) Close() {
	e.resolver.Close()
	_ = e.logger.Close()
}

func (e *runEnv) newChannel(session identity.Session) *chat.Channel {
	return chat.NewChannel(chat.ChannelOptions{
		Session: session,
		Sender:  e.webhook,
		Logger:  e.logger.Named("chat"),
	})
}

// session resolves a stored account session, falling back to a guest
// session for email.
func (e *runEnv) session(ctx context.Context, email, name string) (identity.Session, error) {
	if e.resolver.Resolve(ctx) == identity.StateAuthenticated {
		session, _ := e.resolver.Session()
		return session, nil
	}
	if strings.TrimSpace(email) == "" {
		return identity.Session{}, errGuestEmailRequired
	}
	if err := e.resolver.BeginGuestEntry(); err != nil {
		return identity.Session{}, err
	}
	return e.resolver.SubmitGuest(ctx, email, name)
}

func newProvider(cfg config.Config, logger *utils.Logger) identity.Provider {
	if !cfg.FederatedEnabled() {
		logger.Debugf("no identity provider configured, federated sign-in disabled")
		return &identity.DisabledProvider{}
	}
	return identity.NewSupabaseProvider(identity.SupabaseOptions{
		URL:           cfg.Auth.SupabaseURL,
		AnonKey:       cfg.Auth.AnonKey,
		OAuthProvider: cfg.Auth.Provider,
		Store:         identity.NewSessionStore(cfg.AuthStatePath()),
		OpenBrowser:   identity.OpenBrowser,
		Logger:        logger.Named("supabase"),
	})
}

func collectSignals(ctx context.Context, cfg config.Config) identity.Signals {
	return identity.CollectSignals(ctx, identity.SignalOptions{
		Version:   Version,
		ResolveIP: cfg.Fingerprint.ResolveIP,
		IPEchoURL: cfg.Fingerprint.IPEchoURL,
	})
}

func stderrLogger(cfg config.Config) *utils.Logger {
	level := cfg.Logging.Level
	if level == "info" {
		// one-shot commands only surface warnings by default
		level = "warn"
	}
	return utils.NewLogger(level)
}
