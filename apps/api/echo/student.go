package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/kalasi/darasa/core"
	"github.com/kalasi/darasa/core/school"
	filesvc "github.com/kalasi/darasa/services/files"
)

type studentAPI struct {
	svc      *school.Service
	storage  filesvc.Storage
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, svc *school.Service, storage filesvc.Storage, validate *validator.Validate) {
	api := studentAPI{svc: svc, storage: storage, validate: validate}

	g.GET("/notifications", api.notifications)
	g.DELETE("/notifications/:id", api.clearNotification)
	g.POST("/queries", api.submitQuery)
	g.POST("/link-teacher", api.linkTeacher)
	g.GET("/assignments", api.assignments)
	g.POST("/assignments/submit", api.submitAssignment)
	g.GET("/attendance", api.attendance)
	g.GET("/results", api.results)
}

func (api studentAPI) notifications(ctx echo.Context) error {
	email, err := requireQueryParam(ctx, "studentEmail", true /* lower */)
	if err != nil {
		return err
	}
	feed, err := api.svc.ListNotifications(email, school.RoleStudent)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, feed)
}

func (api studentAPI) clearNotification(ctx echo.Context) error {
	email, err := requireQueryParam(ctx, "studentEmail", true /* lower */)
	if err != nil {
		return err
	}
	if err = api.svc.ClearNotification(email, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api studentAPI) submitQuery(ctx echo.Context) error {
	var nq school.NewQuery
	if err := ctx.Bind(&nq); err != nil {
		return err
	}
	if err := nq.Validate(api.validate); err != nil {
		return err
	}
	qry, err := api.svc.SubmitQuery(nq)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, qry)
}

func (api studentAPI) linkTeacher(ctx echo.Context) error {
	var nl school.NewLink
	if err := ctx.Bind(&nl); err != nil {
		return err
	}
	if err := nl.Validate(api.validate); err != nil {
		return err
	}
	link, err := api.svc.LinkTeacher(nl)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, link)
}

func (api studentAPI) assignments(ctx echo.Context) error {
	email, err := requireQueryParam(ctx, "studentEmail", true /* lower */)
	if err != nil {
		return err
	}
	assignments, err := api.svc.StudentAssignments(email, core.CleanString(ctx.QueryParam("subjectId")))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api studentAPI) submitAssignment(ctx echo.Context) error {
	var ns school.NewSubmission
	if err := ctx.Bind(&ns); err != nil {
		return err
	}
	file, err := ctx.FormFile("file")
	if err != nil && err != http.ErrMissingFile { // the file is optional
		return err
	}
	if err == nil {
		path, err := api.storage.Store(file)
		if err != nil {
			return err
		}
		ns.FilePath = path
	}
	if err := ns.Validate(api.validate); err != nil {
		return err
	}
	sub, err := api.svc.SubmitAssignment(ns)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api studentAPI) attendance(ctx echo.Context) error {
	email, err := requireQueryParam(ctx, "studentEmail", true /* lower */)
	if err != nil {
		return err
	}
	records, err := api.svc.StudentAttendance(
		email,
		core.CleanString(ctx.QueryParam("subjectId")),
		core.CleanString(ctx.QueryParam("teacherEmail"), true /* lower */),
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api studentAPI) results(ctx echo.Context) error {
	email, err := requireQueryParam(ctx, "studentEmail", true /* lower */)
	if err != nil {
		return err
	}
	view, err := api.svc.StudentResults(
		email,
		core.CleanString(ctx.QueryParam("subjectId")),
		core.CleanString(ctx.QueryParam("teacherEmail"), true /* lower */),
		core.CleanString(ctx.QueryParam("semester")),
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

func requireQueryParam(ctx echo.Context, name string, lower ...bool) (string, error) {
	val := core.CleanString(ctx.QueryParam(name), lower...)
	if val == "" {
		return "", core.NewValidationError(nil, core.FieldError{Field: name, Error: "this query parameter is required"})
	}
	return val, nil
}
