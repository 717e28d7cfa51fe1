package routes

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/travigo/livetrains/pkg/trainvisualizer"
)

func MarkersRouter(router fiber.Router, markers *trainvisualizer.GeoJSONMap) {
	router.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(markers.FeatureCollection())
	})

	router.Post("/:identifier/activate", func(c *fiber.Ctx) error {
		identifier := utils.CopyString(c.Params("identifier"))

		if !markers.Activate(identifier) {
			return sendError(c, fiber.StatusNotFound, fmt.Errorf("no marker for train %s", identifier))
		}

		return c.SendStatus(fiber.StatusNoContent)
	})
}
