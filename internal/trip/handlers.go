package trip

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"backend-mapssaver/internal/auth"
	"backend-mapssaver/internal/gpx"
	"backend-mapssaver/internal/storage"
	"backend-mapssaver/internal/validation"
)

// uploadField is the multipart key of the GPX file.
const uploadField = "trip"

// RegisterRoutes mounts the trip endpoints. Every route runs behind
// authMiddleware and acts for the principal it stores.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, maxUploadBytes int64) {
	r.Use(authMiddleware)

	r.Get("/", func(c *fiber.Ctx) error {
		userID, err := principal(c)
		if err != nil {
			return err
		}
		trips, err := svc.List(c.UserContext(), userID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": trips})
	})

	r.Post("/", func(c *fiber.Ctx) error {
		userID, err := principal(c)
		if err != nil {
			return err
		}
		name := c.FormValue("name")

		fh, _ := c.FormFile(uploadField)
		data, uerr := storage.ReadUpload(fh, maxUploadBytes)
		if uerr != nil {
			errs := validation.Errors{}
			errs.Add(uploadField, storage.Message(uerr))
			if err := svc.ValidateName(c.UserContext(), userID, name, ""); err != nil {
				verrs, ok := validation.AsErrors(err)
				if !ok {
					return err
				}
				for field, msgs := range verrs {
					for _, msg := range msgs {
						errs.Add(field, msg)
					}
				}
			}
			return renderError(c, errs)
		}

		if _, err := svc.Import(c.UserContext(), userID, name, data); err != nil {
			return renderError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Successfully saved trip!"})
	})

	r.Get("/gpx/:id", func(c *fiber.Ctx) error {
		userID, err := principal(c)
		if err != nil {
			return err
		}
		out, err := svc.Export(c.UserContext(), userID, c.Params("id"))
		if err != nil {
			return renderError(c, err)
		}
		return c.JSON(fiber.Map{"response": out})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		userID, err := principal(c)
		if err != nil {
			return err
		}
		t, err := svc.LoadGraph(c.UserContext(), userID, c.Params("id"))
		if err != nil {
			return renderError(c, err)
		}
		return c.JSON(fiber.Map{
			"id":         t.ID,
			"name":       t.Name,
			"creator":    t.Creator,
			"metadata":   t.Metadata,
			"created_at": t.CreatedAt,
			"updated_at": t.UpdatedAt,
			"tracks":     t.Tracks,
			"routes":     t.Routes,
			"waypoints":  t.Points,
			"summary":    Summarize(t),
		})
	})

	r.Put("/:id", func(c *fiber.Ctx) error {
		userID, err := principal(c)
		if err != nil {
			return err
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if _, err := svc.Rename(c.UserContext(), userID, c.Params("id"), body.Name); err != nil {
			return renderError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Trip successfully updated."})
	})

	r.Delete("/:id", func(c *fiber.Ctx) error {
		userID, err := principal(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
			return renderError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Successfully deleted trip."})
	})
}

func principal(c *fiber.Ctx) (string, error) {
	userID, ok := auth.PrincipalFrom(c)
	if !ok {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing principal")
	}
	return userID, nil
}

func renderError(c *fiber.Ctx, err error) error {
	if verrs, ok := validation.AsErrors(err); ok {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(verrs)
	}
	switch {
	case errors.Is(err, gpx.ErrMalformedInput):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Error while loading gpx file!"})
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Trip not found.")
	}
	return err
}
