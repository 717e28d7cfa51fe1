package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/livetrains/pkg/nsapi"
)

const maxJourneyLookups = 25

func JourneysRouter(router fiber.Router, client TrainAPI) {
	router.Get("/", func(c *fiber.Ctx) error {
		trainNumbers := getListQuery(c, "trains")
		if len(trainNumbers) == 0 {
			return sendError(c, fiber.StatusBadRequest, errors.New("trains is required"))
		}
		if len(trainNumbers) > maxJourneyLookups {
			return sendError(c, fiber.StatusBadRequest, errors.New("too many trains requested"))
		}

		return c.JSON(nsapi.LookupJourneys(c.UserContext(), client, trainNumbers))
	})

	router.Get("/:identifier", func(c *fiber.Ctx) error {
		details, err := client.FetchJourneyDetails(c.UserContext(), c.Params("identifier"))
		if err != nil {
			return sendError(c, fiber.StatusBadGateway, err)
		}

		return c.JSON(details)
	})
}
