package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jpelletier/weatherfuse/internal/cache"
	"github.com/jpelletier/weatherfuse/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, store *cache.RefreshCache) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		coord, err := parseCoordinateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snap, err := store.Ensure(c.Context(), coord)
		if err != nil {
			if errors.Is(err, weather.ErrInvalidCoordinate) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			if errors.Is(err, weather.ErrAllSourcesFailed) || errors.Is(err, weather.ErrUpstreamUnavailable) {
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}
		return c.JSON(snap)
	})

	v1.Get("/weather/cached", func(c *fiber.Ctx) error {
		coord, err := parseCoordinateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snap, ok := store.Get(coord)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no cached weather for requested coordinate")
		}
		return c.JSON(snap)
	})

	v1.Get("/cache/stats", func(c *fiber.Ctx) error {
		return c.JSON(store.Stats())
	})

	v1.Delete("/cache", func(c *fiber.Ctx) error {
		coord, err := parseCoordinateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		store.Stop(coord)
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// coordinateQuery holds the raw lat/lon query parameters.
type coordinateQuery struct {
	Lat string `validate:"required,latitude"`
	Lon string `validate:"required,longitude"`
}

func parseCoordinateQuery(c *fiber.Ctx) (weather.Coordinate, error) {
	q := coordinateQuery{
		Lat: c.Query("lat"),
		Lon: c.Query("lon"),
	}
	if err := validate.Struct(q); err != nil {
		return weather.Coordinate{}, err
	}

	lat, err := strconv.ParseFloat(q.Lat, 64)
	if err != nil {
		return weather.Coordinate{}, err
	}
	lon, err := strconv.ParseFloat(q.Lon, 64)
	if err != nil {
		return weather.Coordinate{}, err
	}

	coord := weather.Coordinate{Lat: lat, Lon: lon}
	return coord, coord.Validate()
}
