package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/util"
)

type TrainSnapshots interface {
	GetTrainLocations(ctx context.Context, filterIDs []string) ([]ctdf.TrainRecord, error)
	GetCachedSnapshot() []ctdf.TrainRecord
	GetLastUpdateTime() time.Time
	ErrorCount() int
	IsAutoRefreshing() bool
	RefreshInterval() time.Duration
}

func TrainsRouter(router fiber.Router, service TrainSnapshots) {
	router.Get("/", func(c *fiber.Ctx) error {
		return listTrains(c, service)
	})
	router.Get("/status", func(c *fiber.Ctx) error {
		return trainsStatus(c, service)
	})
	router.Post("/refresh", func(c *fiber.Ctx) error {
		return refreshTrains(c, service)
	})
}

func listTrains(c *fiber.Ctx, service TrainSnapshots) error {
	bounds, err := getBoundsQuery(c)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, err)
	}

	snapshot := service.GetCachedSnapshot()
	if snapshot == nil {
		return sendError(c, fiber.StatusServiceUnavailable, errTrainsNotLoaded)
	}

	trainNumbers := getListQuery(c, "train")
	wanted := util.StringSet(trainNumbers)

	util.InPlaceFilter(&snapshot, func(record ctdf.TrainRecord) bool {
		if len(trainNumbers) > 0 && !wanted[record.Number] {
			return false
		}
		return bounds == nil || bounds.Contains(record.Position)
	})

	groups := []string{"basic"}
	if c.Query("detail") == "detailed" {
		groups = append(groups, "detailed")
	}

	trainsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, snapshot)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce trains",
		})
	}

	return c.JSON(fiber.Map{
		"lastUpdate": service.GetLastUpdateTime(),
		"count":      len(snapshot),
		"trains":     trainsReduced,
	})
}

func trainsStatus(c *fiber.Ctx, service TrainSnapshots) error {
	status := fiber.Map{
		"lastUpdate":      nil,
		"errorCount":      service.ErrorCount(),
		"autoRefreshing":  service.IsAutoRefreshing(),
		"refreshInterval": service.RefreshInterval().Seconds(),
	}

	if lastUpdate := service.GetLastUpdateTime(); !lastUpdate.IsZero() {
		status["lastUpdate"] = lastUpdate
	}

	return c.JSON(status)
}

func refreshTrains(c *fiber.Ctx, service TrainSnapshots) error {
	records, err := service.GetTrainLocations(c.UserContext(), getListQuery(c, "train"))
	if err != nil {
		return sendError(c, fiber.StatusBadGateway, err)
	}

	return c.JSON(fiber.Map{
		"count": len(records),
	})
}
