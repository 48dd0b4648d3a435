package calendarsync

import (
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"

	"groombook-api/core/cache"
	"groombook-api/core/config"
	"groombook-api/core/database"
	"groombook-api/core/middleware"
	"groombook-api/core/secrets"
	"groombook-api/modules/calendarsync/controller"
	"groombook-api/modules/calendarsync/provider"
	"groombook-api/modules/calendarsync/repository"
	"groombook-api/modules/calendarsync/router"
	"groombook-api/modules/calendarsync/service"
	"groombook-api/modules/calendarsync/worker"
)

// Deps are the cross-module collaborators the engine needs.
type Deps struct {
	Appointments service.AppointmentSource
	Admins       service.AdminSource
	Notifier     service.FailureNotifier
}

// Init wires the calendar sync module and registers its routes and
// background task handlers. Returns the engine for other modules that push
// through it.
func Init(e *echo.Group, db database.IDatabase, c cache.Cache, mux *asynq.ServeMux, mw *middleware.Middleware, encryptor secrets.Encryptor, deps Deps) *service.SyncService {
	cfg := config.Get()
	googleCfg := provider.GoogleConfig{
		ClientID:     cfg.GoogleAPI.ClientID,
		ClientSecret: cfg.GoogleAPI.ClientSecret,
		RedirectURI:  cfg.GoogleAPI.RedirectURI,
	}
	google := provider.NewGoogleClient(googleCfg)

	connRepo := repository.NewConnectionRepository(db)
	stateRepo := repository.NewStateRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	logRepo := repository.NewSyncLogRepository(db)
	retryRepo := repository.NewRetryQueueRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	quota := service.NewQuotaService(c)
	pause := service.NewPauseService(connRepo, c)
	tokens := service.NewTokenService(connRepo, google, encryptor, pause)
	retry := service.NewRetryService(retryRepo)

	connections := service.NewConnectionService(
		connRepo, stateRepo, mappingRepo, logRepo, retryRepo,
		google, googleCfg, encryptor, quota, deps.Admins)

	sync := service.NewSyncService(
		connRepo, mappingRepo, logRepo, settingsRepo, retryRepo,
		deps.Appointments, google, tokens, quota, pause, retry, deps.Notifier)

	ctrl := controller.NewCalendarSyncController(connections, sync, quota, pause)
	router.NewCalendarSyncRouter(ctrl).Register(e, mw)

	worker.NewWorker(sync).Register(mux)

	return sync
}
