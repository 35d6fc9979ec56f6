package handlers

import (
	"sync/atomic"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/middlewares"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App carries the dependencies every handler needs. Fields must be set before MarkReady.
type App struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	Redis    *config.Redis
	Sessions middlewares.SessionStore
	Settings config.Settings
	// Now is the clock used for ledger timestamps and deadlines.
	Now func() time.Time

	ready atomic.Bool
}

func (a *App) MarkReady() {
	if a.Now == nil {
		a.Now = func() time.Time { return time.Now().UTC() }
	}
	if a.Sessions == nil {
		a.Sessions = middlewares.NewSessionStore(a.DB, a.Redis)
	}
	if a.Logger == nil {
		a.Logger = config.GetLogger()
	}
	a.ready.Store(true)
}

func (a *App) Ready() bool {
	return a.ready.Load()
}

func (a *App) now() time.Time {
	return a.Now().UTC()
}
