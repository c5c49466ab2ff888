package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core/report"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{svc: deps.ReportSvc}

	ag := g.Group("/admin", jwt, adminMiddleware())
	ag.GET("/schools/:id/stats", api.schoolStats)
	ag.GET("/schools/:id/stats/top", api.topClassrooms)
	ag.GET("/schools/:id/stats/export", api.exportSchoolStats)
	ag.GET("/districts/:id/stats", api.districtStats)
}

// Handlers

func (api *reportApi) schoolStats(ctx echo.Context) error {
	stats, err := api.svc.SchoolStats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reportApi) topClassrooms(ctx echo.Context) error {
	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	ranked, err := api.svc.TopClassrooms(ctx.Request().Context(), ctx.Param("id"), limit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ranked)
}

func (api *reportApi) exportSchoolStats(ctx echo.Context) error {
	stats, err := api.svc.SchoolStats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = report.WriteXLSX(stats, &buf); err != nil {
		return errors.Wrap(err, "exporting school stats")
	}

	filename := fmt.Sprintf("school-stats-%s.xlsx", ctx.Param("id"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return ctx.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (api *reportApi) districtStats(ctx echo.Context) error {
	stats, err := api.svc.DistrictStats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

// seedHandler idempotently creates the fixed demo district and schools.
func seedHandler(svc *report.Service) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		res, err := svc.Seed(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "seeding demo data")
		}
		return ctx.JSON(http.StatusOK, res)
	}
}
