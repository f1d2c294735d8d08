package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/backend/danevo"
	"github.com/yumesaki/arcanet/internal/backend/iidx"
	"github.com/yumesaki/arcanet/internal/backend/jubeat"
	"github.com/yumesaki/arcanet/internal/backend/sdvx"
	"github.com/yumesaki/arcanet/internal/config"
	"github.com/yumesaki/arcanet/internal/infra/database"
	"github.com/yumesaki/arcanet/internal/infra/repository"
	"github.com/yumesaki/arcanet/internal/present/rest"
	restmiddleware "github.com/yumesaki/arcanet/internal/present/rest/middleware"
	"github.com/yumesaki/arcanet/internal/service"
	"github.com/yumesaki/arcanet/internal/usecase"
	"github.com/yumesaki/arcanet/internal/utils"
)

func setupTracer(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("arcanet"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	domainConf := conf.Domain()

	ctx := context.Background()

	if domainConf.EnableTrace {
		shutdown, err := setupTracer(ctx, domainConf.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdown(ctx)
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}

	err = database.MigratePostgres(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	clock := utils.Clock{}

	userRepo := repository.NewUserRepository(db, mc)
	profileRepo := repository.NewProfileRepository(db, userRepo)
	scoreRepo := repository.NewScoreRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	musicRepo := repository.NewMusicRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	lobbyRepo := repository.NewLobbyRepository(rdb)

	deps := core.Deps{
		Profile:      usecase.NewProfileUsecase(userRepo, profileRepo),
		Score:        usecase.NewScoreUsecase(scoreRepo),
		Schedule:     usecase.NewScheduleUsecase(scheduleRepo, clock),
		Lobby:        usecase.NewLobbyUsecase(lobbyRepo, clock),
		Stats:        usecase.NewStatsUsecase(statsRepo, clock),
		Rivals:       usecase.NewRivalUsecase(linkRepo, profileRepo, userRepo),
		Achievements: usecase.NewAchievementUsecase(achievementRepo),
		Music:        musicRepo,
		Machines:     machineRepo,
		Clock:        clock,
	}

	registry := core.NewRegistry(deps, &domainConf)
	jubeat.RegisterTitles(registry)
	iidx.RegisterTitles(registry)
	sdvx.RegisterTitles(registry)
	danevo.RegisterTitles(registry)

	machineService := service.NewMachineService(domainConf, machineRepo)
	eventService := service.NewEventService(rdb)

	handler := rest.NewHandler(domainConf, core.NewDispatcher(registry), machineService, eventService)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if domainConf.EnableTrace {
		e.Use(otelecho.Middleware("arcanet"))
	}
	e.Use(restmiddleware.NewMachineMiddleware(machineService).IdentifyMachine)

	handler.RegisterRoutes(e)

	listen := conf.Server.Listen
	if listen == "" {
		listen = ":8000"
	}
	e.Logger.Fatal(e.Start(listen))
}
