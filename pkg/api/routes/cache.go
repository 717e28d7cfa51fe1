package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/cachedresults"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/nsapi"
)

type TrainAPI interface {
	FetchTrainLocations(ctx context.Context, filterIDs []string) (*nsapi.VehicleResponse, error)
	FetchJourneyDetails(ctx context.Context, trainNumber string) (*ctdf.JourneyDetails, error)
}

// CacheEndpoint serves the raw train list and journey lookups for browser
// clients that cannot call the upstream API themselves
type CacheEndpoint struct {
	Client TrainAPI
	Cache  *cachedresults.Cache
}

func CacheEndpointRouter(router fiber.Router, endpoint *CacheEndpoint) {
	router.Get("/", endpoint.handle)
}

func (e *CacheEndpoint) handle(c *fiber.Ctx) error {
	switch action := c.Query("action"); action {
	case "getData":
		return e.getData(c)
	case "getJourney":
		return e.getJourney(c)
	default:
		return sendError(c, fiber.StatusBadRequest, fmt.Errorf("unknown action %q", action))
	}
}

func (e *CacheEndpoint) loadTrains(ctx context.Context) (string, error) {
	response, err := e.Client.FetchTrainLocations(ctx, nil)
	if err != nil {
		return "", err
	}

	entries, ok := response.Trains()
	if !ok {
		entries = []json.RawMessage{}
	}
	log.Info().Int("trains", len(entries)).Msg("Received train positions")

	trainsJSON, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}

	return string(trainsJSON), nil
}

func (e *CacheEndpoint) getData(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var trains string
	var err error
	cacheStatus := "BYPASS"

	if e.Cache == nil {
		trains, err = e.loadTrains(ctx)
	} else {
		var hit bool
		trains, hit, err = e.Cache.GetOrLoad(ctx, cachedresults.TrainPositionsKey, e.loadTrains)
		cacheStatus = "MISS"
		if hit {
			cacheStatus = "HIT"
		}
	}

	if err != nil {
		log.Error().Err(err).Msg("Failed to get train positions")
		return sendError(c, fiber.StatusBadGateway, err)
	}

	body := json.RawMessage(trains)
	if train := strings.TrimSpace(c.Query("train")); train != "" {
		response := &nsapi.VehicleResponse{Payload: &nsapi.VehiclePayload{Treinen: body}}
		body = response.FilterTrainNumbers([]string{train}).Payload.Treinen
	}

	c.Set("X-Cache", cacheStatus)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

func (e *CacheEndpoint) getJourney(c *fiber.Ctx) error {
	train := strings.TrimSpace(c.Query("train"))
	if train == "" {
		return sendError(c, fiber.StatusBadRequest, errors.New("train is required"))
	}

	details, err := e.Client.FetchJourneyDetails(c.UserContext(), train)
	if err != nil {
		log.Error().Err(err).Str("train", train).Msg("Failed to get journey details")
		return sendError(c, fiber.StatusBadGateway, err)
	}

	return c.JSON(details)
}
