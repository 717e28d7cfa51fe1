package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/travigo/livetrains/pkg/trainvisualizer"
)

type selectionRequest struct {
	IDs    []string `json:"ids"`
	Toggle bool     `json:"toggle"`
}

func SelectionRouter(router fiber.Router, selection *trainvisualizer.SelectionStore) {
	sendSelection := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"selected": selection.Selected(),
		})
	}

	router.Get("/", sendSelection)

	router.Put("/", func(c *fiber.Ctx) error {
		var request selectionRequest
		if err := c.BodyParser(&request); err != nil {
			return sendError(c, fiber.StatusBadRequest, err)
		}

		selection.SelectValues(request.IDs, request.Toggle)

		return sendSelection(c)
	})

	router.Delete("/", func(c *fiber.Ctx) error {
		selection.Clear()

		return sendSelection(c)
	})

	router.Post("/:identifier/toggle", func(c *fiber.Ctx) error {
		selection.Toggle(utils.CopyString(c.Params("identifier")))

		return sendSelection(c)
	})
}
