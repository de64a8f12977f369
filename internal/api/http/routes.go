package httpapi

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/ensemble-forecast/internal/common"
	"github.com/i474232898/ensemble-forecast/internal/weather"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report query parameter names instead of struct field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return v
}

// Forecaster answers ensemble queries.
type Forecaster interface {
	Forecast(ctx context.Context, q weather.Query) (*weather.Result, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Forecaster, logger zerolog.Logger) {
	v1 := app.Group("/v1", requestContext(logger))

	v1.Get("/ensemble", func(c *fiber.Ctx) error {
		var req ensembleQuery
		req.bind(c)

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, describeValidation(err))
		}

		q, err := req.toQuery()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := service.Forecast(c.UserContext(), q)
		if err != nil {
			var verr *weather.ValidationError
			switch {
			case errors.As(err, &verr), errors.Is(err, weather.ErrNoDataForLocation):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			default:
				zerolog.Ctx(c.UserContext()).Error().Err(err).Msg("forecast failed")
				return fiber.NewError(fiber.StatusBadGateway, "failed to read grid data")
			}
		}

		return c.JSON(render(res, req.TimeFormat))
	})
}

// ErrorHandler renders every error as {"error": true, "reason": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":  true,
		"reason": err.Error(),
	})
}

// requestContext tags every request with an id and puts a logger carrying
// it into the user context.
func requestContext(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, id)

		logger := base.With().Str("request_id", id).Logger()
		c.SetUserContext(logger.WithContext(c.UserContext()))
		return c.Next()
	}
}

// ensembleQuery holds the raw query parameters of the ensemble endpoint.
type ensembleQuery struct {
	Latitude      string `query:"latitude" validate:"required,numeric"`
	Longitude     string `query:"longitude" validate:"required,numeric"`
	Elevation     string `query:"elevation" validate:"omitempty,numeric"`
	ForecastDays  string `query:"forecast_days" validate:"omitempty,number"`
	PastDays      string `query:"past_days" validate:"omitempty,number"`
	StartDate     string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Timezone      string `query:"timezone"`
	TimeFormat    string `query:"timeformat" validate:"omitempty,oneof=iso8601 unixtime"`
	CellSelection string `query:"cell_selection" validate:"omitempty,oneof=nearest land sea"`

	Hourly []string `query:"hourly"`
	Daily  []string `query:"daily"`
	Models []string `query:"models"`
}

func (q *ensembleQuery) bind(c *fiber.Ctx) {
	q.Latitude = c.Query("latitude")
	q.Longitude = c.Query("longitude")
	q.Elevation = c.Query("elevation")
	q.ForecastDays = c.Query("forecast_days")
	q.PastDays = c.Query("past_days")
	q.StartDate = c.Query("start_date")
	q.EndDate = c.Query("end_date")
	q.Timezone = c.Query("timezone")
	q.TimeFormat = c.Query("timeformat", "iso8601")
	q.CellSelection = c.Query("cell_selection")

	q.Hourly = listParam(c, "hourly")
	q.Daily = listParam(c, "daily")
	q.Models = listParam(c, "models")
}

// listParam accepts both repeated keys and comma separated values.
func listParam(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		out = append(out, common.SplitList(string(raw))...)
	}
	return out
}

func (q ensembleQuery) toQuery() (weather.Query, error) {
	out := weather.Query{
		Hourly:        q.Hourly,
		Daily:         q.Daily,
		Models:        q.Models,
		CellSelection: q.CellSelection,
		Timezone:      q.Timezone,
		StartDate:     q.StartDate,
		EndDate:       q.EndDate,
	}

	var err error
	if out.Latitude, err = strconv.ParseFloat(q.Latitude, 64); err != nil {
		return out, fmt.Errorf("invalid latitude: %w", err)
	}
	if out.Longitude, err = strconv.ParseFloat(q.Longitude, 64); err != nil {
		return out, fmt.Errorf("invalid longitude: %w", err)
	}
	if q.Elevation != "" {
		e, err := strconv.ParseFloat(q.Elevation, 64)
		if err != nil {
			return out, fmt.Errorf("invalid elevation: %w", err)
		}
		out.Elevation = &e
	}
	if out.ForecastDays, err = optionalInt("forecast_days", q.ForecastDays); err != nil {
		return out, err
	}
	if out.PastDays, err = optionalInt("past_days", q.PastDays); err != nil {
		return out, err
	}
	return out, nil
}

func optionalInt(name, s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &n, nil
}

// describeValidation turns the first validator failure into a message
// shaped like weather.ValidationError.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	allowed := fe.Tag()
	if fe.Param() != "" {
		allowed += " " + fe.Param()
	}
	if fe.Tag() == "oneof" {
		allowed = strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return (&weather.ValidationError{Param: fe.Field(), Given: fe.Value(), Allowed: allowed}).Error()
}
