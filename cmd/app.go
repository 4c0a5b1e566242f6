package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/collegebot-ai/collegebot/internal/api"
	"github.com/collegebot-ai/collegebot/internal/auth"
	"github.com/collegebot-ai/collegebot/internal/config"
	"github.com/collegebot-ai/collegebot/internal/logging"
	"github.com/collegebot-ai/collegebot/internal/store"
)

// app bundles the wired collaborators every command needs: resolved config,
// the persistent store, the API client, and the authorization gate.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *store.SQLiteStore
	client  *api.Client
	gate    *auth.Gate
	baseURL string
}

// newApp loads configuration, resolves the backend address once, and opens
// the persistent store. Callers must Close it.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if apiURLFlag != "" {
		cfg.APIURL = apiURLFlag
	}

	log := logging.New(cfg.DefaultLogPath(), cfg.Debug)

	baseURL, warning := cfg.ResolveBaseURL()
	if warning != "" {
		log.Warn(warning)
		fmt.Fprintln(os.Stderr, "warning: "+warning)
	}
	log.Info("resolved backend address", zap.String("base_url", baseURL), zap.String("env", cfg.Env))

	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("state db path: %w", err)
	}
	st, err := store.NewSQLiteStore(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	client := api.New(baseURL, st.Token, log)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		client:  client,
		gate:    auth.NewGate(st),
		baseURL: baseURL,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	_ = a.log.Sync()
}

// requireAccess checks the gate for the given role and translates a denial
// into the terminal equivalent of the web client's redirect.
func (a *app) requireAccess(role auth.Role) error {
	d := a.gate.Check(role)
	if d.Allowed {
		return nil
	}
	switch d.Redirect {
	case auth.TargetStudentLogin:
		return fmt.Errorf("not logged in: run 'collegebot login' to sign in as a student")
	case auth.TargetAdminLogin:
		return fmt.Errorf("not logged in: run 'collegebot login --admin' to sign in as an admin")
	case auth.TargetHome:
		return fmt.Errorf("your account (role %q) does not have access to this area", a.store.Role())
	default:
		return fmt.Errorf("access denied")
	}
}
