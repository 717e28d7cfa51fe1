package routes

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/util"
)

type Bounds struct {
	BottomLeft ctdf.TrainPosition
	TopRight   ctdf.TrainPosition
}

func (b *Bounds) Contains(position *ctdf.TrainPosition) bool {
	if b == nil {
		return true
	}
	if !position.IsFinite() {
		return false
	}

	return position.Lat >= b.BottomLeft.Lat && position.Lat <= b.TopRight.Lat &&
		position.Lng >= b.BottomLeft.Lng && position.Lng <= b.TopRight.Lng
}

// getBoundsQuery reads bounds=minLng,minLat,maxLng,maxLat. A missing parameter gives nil bounds.
func getBoundsQuery(c *fiber.Ctx) (*Bounds, error) {
	bounds := c.Query("bounds")

	if bounds == "" {
		return nil, nil
	}

	boundsSplit := strings.Split(bounds, ",")
	if len(boundsSplit) != 4 {
		return nil, errors.New("Bounds must contain 4 co-ordinates")
	}

	var coordinates [4]float64
	for i, value := range boundsSplit {
		coordinate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, errors.New("Bounds must be numeric")
		}
		coordinates[i] = coordinate
	}

	return &Bounds{
		BottomLeft: ctdf.TrainPosition{Lng: coordinates[0], Lat: coordinates[1]},
		TopRight:   ctdf.TrainPosition{Lng: coordinates[2], Lat: coordinates[3]},
	}, nil
}

// getListQuery splits a comma separated query parameter into trimmed identifiers
func getListQuery(c *fiber.Ctx, key string) []string {
	value := c.Query(key)
	if value == "" {
		return nil
	}

	return util.NormaliseIdentifiers(strings.Split(value, ","))
}

var errTrainsNotLoaded = errors.New("train positions have not been loaded yet")

func sendError(c *fiber.Ctx, status int, err error) error {
	c.Status(status)
	return c.JSON(fiber.Map{
		"error": err.Error(),
	})
}
