package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/livetrains/pkg/api/routes"
	"github.com/travigo/livetrains/pkg/cachedresults"
)

type Server struct {
	Client  routes.TrainAPI
	Cache   *cachedresults.Cache
	Service routes.TrainSnapshots
	LiveMap *LiveMap
}

func (s *Server) App() *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	routes.CacheEndpointRouter(webApp, &routes.CacheEndpoint{
		Client: s.Client,
		Cache:  s.Cache,
	})

	webApp.Get("version", routes.APIVersion)

	routes.JourneysRouter(webApp.Group("/journeys"), s.Client)

	if s.Service != nil {
		routes.TrainsRouter(webApp.Group("/trains"), s.Service)
	}

	if s.LiveMap != nil {
		routes.MarkersRouter(webApp.Group("/markers"), s.LiveMap.Markers)
		routes.SelectionRouter(webApp.Group("/selection"), s.LiveMap.Selection)
	}

	return webApp
}

func (s *Server) Listen(listen string) error {
	return s.App().Listen(listen)
}
