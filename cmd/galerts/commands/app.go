package commands

import (
	"context"
	"errors"
	"galerts/internal/alerts"
	"galerts/internal/components/credentials"
	"galerts/internal/components/sessionstore"
	"galerts/internal/components/telemetry"
	"galerts/pkg/restyutil"
	"galerts/pkg/serviceutil"
	"log/slog"
)

type app struct {
	store   sessionstore.Store
	session *alerts.Session
	repo    alerts.Repository
}

func (a app) Close() {
	err := a.store.Close()
	if err != nil {
		slog.Warn("failed to close session store", "err", err)
	}
}

func openSessionStore() sessionstore.Store {
	store, err := sessionstore.Open(credentials.SessionPath(configDir))
	if err != nil {
		serviceutil.Fatal("failed to open session store", err)
	}
	return store
}

func newSession(store sessionstore.Store, creds credentials.Credentials) *alerts.Session {
	var dump restyutil.MessageOutput
	if dumpHttp != "" {
		out, err := restyutil.NewFilesystemOutput(dumpHttp)
		if err != nil {
			serviceutil.Fatal("failed to create http dump directory", err)
		}
		dump = out
	}

	session, err := alerts.NewSession(alerts.SessionOptions{
		Email:     creds.Email,
		Password:  creds.Password,
		Store:     store,
		Telemetry: telemetry.SlogAPI{},
		HttpDump:  dump,
	})
	if err != nil {
		serviceutil.Fatal("failed to create session", err)
	}
	return session
}

// connect authenticates with the stored credentials or the stored session,
// whichever works. Missing credentials are fine as long as a session was
// imported.
func connect(ctx context.Context) app {
	creds, err := credentials.NewStore(configDir).Load()
	if err != nil && !errors.Is(err, credentials.ErrNotConfigured) {
		serviceutil.Fatal("failed to load credentials", err)
	}

	store := openSessionStore()
	session := newSession(store, creds)

	err = session.Authenticate(ctx)
	if errors.Is(err, alerts.ErrInvalidCredentials) && creds.Email == "" {
		store.Close()
		serviceutil.Fatal("failed to authenticate", credentials.ErrNotConfigured)
	}
	if err != nil {
		store.Close()
		serviceutil.Fatal("failed to authenticate", err)
	}

	return app{
		store:   store,
		session: session,
		repo:    alerts.NewRepository(session, telemetry.SlogAPI{}),
	}
}
