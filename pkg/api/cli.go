package api

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/archiver"
	"github.com/travigo/livetrains/pkg/cachedresults"
	"github.com/travigo/livetrains/pkg/database"
	"github.com/travigo/livetrains/pkg/elastic_client"
	"github.com/travigo/livetrains/pkg/nsapi"
	"github.com/travigo/livetrains/pkg/realtimeevents"
	"github.com/travigo/livetrains/pkg/redis_client"
	"github.com/travigo/livetrains/pkg/snapshotqueue"
	"github.com/travigo/livetrains/pkg/trainservice"
	"github.com/travigo/livetrains/pkg/trainvisualizer"
	"github.com/travigo/livetrains/pkg/transforms"
	"github.com/urfave/cli/v2"
)

var listenerFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "archive",
		Usage: "upsert every snapshot into MongoDB",
	},
	&cli.BoolFlag{
		Name:  "publish",
		Usage: "publish every snapshot on the redis snapshot queue",
	},
	&cli.BoolFlag{
		Name:  "events",
		Usage: "index refresh cycle events in Elasticsearch",
	},
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "live-trains",
		Usage: "Polls the train API and serves the live train positions",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "poll the train API and hand every snapshot to the enabled listeners",
				Flags: listenerFlags,
				Action: func(c *cli.Context) error {
					service, _, err := setupService()
					if err != nil {
						return err
					}
					defer service.Cleanup()

					callbacks, err := setupListeners(c)
					if err != nil {
						return err
					}

					startRefresh(c.Context, service, callbacks)

					waitForSignal()
					shutdownListeners(c)

					return nil
				},
			},
			{
				Name:  "serve",
				Usage: "run the web server alongside the poller",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.BoolFlag{
						Name:  "cache",
						Value: true,
						Usage: "cache the raw train list in redis",
					},
					&cli.BoolFlag{
						Name:  "multi-select",
						Usage: "allow more than one selected train",
					},
				}, listenerFlags...),
				Action: func(c *cli.Context) error {
					service, client, err := setupService()
					if err != nil {
						return err
					}
					defer service.Cleanup()

					callbacks, err := setupListeners(c)
					if err != nil {
						return err
					}

					liveMap := NewLiveMap(trainvisualizer.LoadConfig(), c.Bool("multi-select"))
					defer liveMap.Destroy()
					callbacks = append(callbacks, liveMap.RefreshCallback())

					server := &Server{
						Client:  client,
						Service: service,
						LiveMap: liveMap,
					}

					if c.Bool("cache") {
						if err := connectRedis(); err != nil {
							return err
						}

						server.Cache = &cachedresults.Cache{}
						server.Cache.Setup()
					}

					startRefresh(c.Context, service, callbacks)

					webApp := server.App()
					go func() {
						if err := webApp.Listen(c.String("listen")); err != nil {
							log.Error().Err(err).Msg("Web server stopped")
						}
					}()

					waitForSignal()

					if err := webApp.ShutdownWithTimeout(10 * time.Second); err != nil {
						log.Error().Err(err).Msg("Failed to shut down web server")
					}
					shutdownListeners(c)

					return nil
				},
			},
		},
	}
}

func setupService() (*trainservice.Service, *nsapi.Client, error) {
	if err := transforms.SetupClient(); err != nil {
		return nil, nil, err
	}

	client := nsapi.NewClient(nsapi.LoadConfig())
	if problems := client.Validate(); len(problems) > 0 {
		return nil, nil, &nsapi.ConfigurationError{Problems: problems}
	}

	service := trainservice.New(client, trainservice.LoadConfig(), trainservice.WithOverrides(transforms.Default()))

	return service, client, nil
}

func connectRedis() error {
	if redis_client.Client != nil {
		return nil
	}

	return redis_client.Connect()
}

func setupListeners(c *cli.Context) ([]*trainservice.RefreshCallback, error) {
	var callbacks []*trainservice.RefreshCallback

	if c.Bool("archive") {
		if err := database.Connect(); err != nil {
			return nil, err
		}

		callbacks = append(callbacks, archiver.New(database.GetCollection(database.TrainPositionsCollection)).RefreshCallback())
	}

	if c.Bool("publish") {
		if err := connectRedis(); err != nil {
			return nil, err
		}

		publisher, err := snapshotqueue.NewPublisher(redis_client.QueueConnection)
		if err != nil {
			return nil, err
		}
		callbacks = append(callbacks, publisher.RefreshCallback())
	}

	if c.Bool("events") {
		if err := elastic_client.Connect(true); err != nil {
			return nil, err
		}

		callbacks = append(callbacks, realtimeevents.NewRecorder().RefreshCallback())
	}

	return callbacks, nil
}

// startRefresh registers the callbacks, runs a first cycle straight away and starts the timer
func startRefresh(ctx context.Context, service *trainservice.Service, callbacks []*trainservice.RefreshCallback) {
	interval := trainservice.LoadConfig().ConfiguredInterval()

	for _, callback := range callbacks {
		service.StartAutoRefresh(callback, interval)
	}

	service.RefreshNow(ctx)

	if !service.IsAutoRefreshing() {
		service.StartAutoRefresh(nil, interval)
	}
}

func shutdownListeners(c *cli.Context) {
	if c.Bool("events") {
		elastic_client.WaitUntilQueueEmpty()
	}

	if c.Bool("archive") {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := database.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}
}

func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	<-signals
	go func() {
		<-signals // hard exit on second signal (in case shutdown gets stuck)
		os.Exit(1)
	}()

	log.Info().Msg("Shutting down")
}
