package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	dig_container "github.com/trezcool/studywall/apps/api/di/dig"
	echoapi "github.com/trezcool/studywall/apps/api/echo"
	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/week"
)

// app holds what the API process needs once the container is resolved.
type app struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	Storage  dig_container.Storage
	Calendar week.Calendar
	Server   *echoapi.Server
}

func main() {
	c := dig_container.New(core.NewConfig)
	if err := c.Invoke(run); err != nil {
		log.Fatal(err)
	}
}

func run(a app) error {
	startedAt := time.Now()
	a.Logger.Info(fmt.Sprintf("StudyWall API starting : %s", a.Conf))
	a.Logger.Info(fmt.Sprintf("week %s in %s, storage on %s", a.Calendar.Current(), a.Calendar.Location, a.Conf.Database.Engine))

	defer func() {
		if err := a.Storage.Close(); err != nil {
			a.DBLogger.Error("closing storage", err)
		}
		a.Logger.Info(fmt.Sprintf("StudyWall API stopped after %s", time.Since(startedAt).Round(time.Second)))
	}()

	publishDebugVars(a, startedAt)
	go serveDebug(a)
	go a.Server.Start()

	return awaitShutdown(a)
}

// publishDebugVars exposes the runtime facts under /debug/vars, next to expvar's memstats.
func publishDebugVars(a app, startedAt time.Time) {
	expvar.NewString("build").Set(a.Conf.Build)
	expvar.NewString("env").Set(a.Conf.Env)
	expvar.NewString("timezone").Set(a.Calendar.Location.String())
	expvar.NewString("database_engine").Set(a.Conf.Database.Engine)
	expvar.Publish("current_week", expvar.Func(func() interface{} { return a.Calendar.Current() }))
	expvar.Publish("uptime_seconds", expvar.Func(func() interface{} { return int(time.Since(startedAt).Seconds()) }))
}

func serveDebug(a app) {
	if a.Conf.Server.DebugHost == "" {
		return
	}
	if err := http.ListenAndServe(a.Conf.Server.DebugHost, http.DefaultServeMux); err != nil {
		a.Logger.Error(fmt.Sprintf("debug server on %s closed", a.Conf.Server.DebugHost), err)
	}
}

// awaitShutdown blocks until the server fails or a stop is requested, then drains in-flight requests.
func awaitShutdown(a app) error {
	select {
	case err := <-a.Server.Errors():
		return errors.Wrap(err, "serving API")

	case sig := <-a.Server.ShutdownSignal():
		a.Logger.Info(fmt.Sprintf("%v received, draining requests for up to %s", sig, a.Conf.Server.ShutdownTimeout))

		ctx, cancel := context.WithTimeout(context.Background(), a.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(ctx); err != nil {
			a.Logger.Error("graceful shutdown failed, closing listeners", err)
			if err = a.Server.Close(); err != nil {
				return errors.Wrap(err, "force closing API server")
			}
		}
		return nil
	}
}
