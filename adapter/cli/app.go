package cli

import (
	"time"

	scheduleCommands "github.com/felixgeelhaar/autoplan/internal/scheduling/application/commands"
	scheduleQueries "github.com/felixgeelhaar/autoplan/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/infrastructure/planfile"
	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/autoplan/pkg/observability"
)

// App holds the CLI application dependencies.
type App struct {
	// Scheduling Command Handlers
	AutoScheduleHandler *scheduleCommands.AutoScheduleHandler

	// Scheduling Query Handlers
	GetScheduleHandler         *scheduleQueries.GetScheduleHandler
	GetLatestRunHandler        *scheduleQueries.GetLatestRunHandler
	UpcomingOccurrencesHandler *scheduleQueries.UpcomingOccurrencesHandler
	MissedReportHandler        *scheduleQueries.MissedReportHandler

	// Plan input
	PlanLoader  *planfile.Loader
	PlanPath    string
	HorizonDays int
	Location    *time.Location

	// LocalBus receives run events in-process; nil disables watch summaries.
	LocalBus *eventbus.LocalBus

	// Metrics backs --stats; nil disables it.
	Metrics *observability.InMemoryMetrics
}

// NewApp creates a new CLI application.
func NewApp(
	autoScheduleHandler *scheduleCommands.AutoScheduleHandler,
	getScheduleHandler *scheduleQueries.GetScheduleHandler,
	getLatestRunHandler *scheduleQueries.GetLatestRunHandler,
	upcomingOccurrencesHandler *scheduleQueries.UpcomingOccurrencesHandler,
	missedReportHandler *scheduleQueries.MissedReportHandler,
) *App {
	return &App{
		AutoScheduleHandler:        autoScheduleHandler,
		GetScheduleHandler:         getScheduleHandler,
		GetLatestRunHandler:        getLatestRunHandler,
		UpcomingOccurrencesHandler: upcomingOccurrencesHandler,
		MissedReportHandler:        missedReportHandler,
		Location:                   time.Local,
	}
}

// SetPlanSource sets where plans are read from and the default horizon.
func (a *App) SetPlanSource(loader *planfile.Loader, path string, horizonDays int, loc *time.Location) {
	a.PlanLoader = loader
	a.PlanPath = path
	a.HorizonDays = horizonDays
	if loc != nil {
		a.Location = loc
	}
}

// SetLocalBus sets the in-process event bus.
func (a *App) SetLocalBus(bus *eventbus.LocalBus) {
	a.LocalBus = bus
}

// SetMetrics sets the collector printed by --stats.
func (a *App) SetMetrics(m *observability.InMemoryMetrics) {
	a.Metrics = m
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
