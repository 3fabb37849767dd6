package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/kalasi/darasa/core/school"
	filesvc "github.com/kalasi/darasa/services/files"
)

type teacherAPI struct {
	svc      *school.Service
	storage  filesvc.Storage
	validate *validator.Validate
}

func registerTeacherAPI(g *echo.Group, svc *school.Service, storage filesvc.Storage, validate *validator.Validate) {
	api := teacherAPI{svc: svc, storage: storage, validate: validate}

	g.GET("/notifications", api.notifications)
	g.DELETE("/notifications/:id", api.clearNotification)
	g.GET("/queries", api.queries)
	g.POST("/queries/:id/reply", api.reply)
	g.POST("/assignments/upload", api.uploadAssignment)
	g.GET("/assignments/submissions", api.submissions)
	g.GET("/assignments/:id/submissions", api.assignmentSubmissions)
	g.GET("/classes/:teacherEmail/students", api.classStudents)
	g.POST("/classes/:teacherEmail/attendance", api.recordAttendance)
	g.GET("/classes/:teacherEmail/results", api.classResults)
	g.POST("/classes/:teacherEmail/results", api.recordResults)
}

func (api teacherAPI) notifications(ctx echo.Context) error {
	email, err := requireQueryParam(ctx, "teacherEmail", true /* lower */)
	if err != nil {
		return err
	}
	feed, err := api.svc.ListNotifications(email, school.RoleTeacher)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, feed)
}

func (api teacherAPI) clearNotification(ctx echo.Context) error {
	email, err := requireQueryParam(ctx, "teacherEmail", true /* lower */)
	if err != nil {
		return err
	}
	if err = api.svc.ClearNotification(email, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api teacherAPI) queries(ctx echo.Context) error {
	email, err := requireQueryParam(ctx, "teacherEmail", true /* lower */)
	if err != nil {
		return err
	}
	queries, err := api.svc.Queries(email)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, queries)
}

func (api teacherAPI) reply(ctx echo.Context) error {
	var qr school.QueryReply
	if err := ctx.Bind(&qr); err != nil {
		return err
	}
	if qr.TeacherEmail == "" {
		qr.TeacherEmail = ctx.QueryParam("teacherEmail")
	}
	if err := qr.Validate(api.validate); err != nil {
		return err
	}
	qry, err := api.svc.Reply(ctx.Param("id"), qr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, qry)
}

func (api teacherAPI) uploadAssignment(ctx echo.Context) error {
	var na school.NewAssignment
	if err := ctx.Bind(&na); err != nil {
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
		na.FilePath = path
	}
	if err := na.Validate(api.validate); err != nil {
		return err
	}
	assignment, err := api.svc.CreateAssignment(na)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, assignment)
}

func (api teacherAPI) submissions(ctx echo.Context) error {
	email, err := requireQueryParam(ctx, "teacherEmail", true /* lower */)
	if err != nil {
		return err
	}
	view, err := api.svc.TeacherSubmissions(email)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api teacherAPI) assignmentSubmissions(ctx echo.Context) error {
	view, err := api.svc.AssignmentSubmissions(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api teacherAPI) classStudents(ctx echo.Context) error {
	subjectID, err := requireQueryParam(ctx, "subjectId")
	if err != nil {
		return err
	}
	roster, err := api.svc.ClassStudents(ctx.Param("teacherEmail"), subjectID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, roster)
}

func (api teacherAPI) recordAttendance(ctx echo.Context) error {
	subjectID, err := requireQueryParam(ctx, "subjectId")
	if err != nil {
		return err
	}
	var sheet school.AttendanceSheet
	if err = ctx.Bind(&sheet); err != nil {
		return err
	}
	if err = sheet.Validate(api.validate); err != nil {
		return err
	}
	if err = api.svc.RecordAttendance(ctx.Param("teacherEmail"), subjectID, sheet); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api teacherAPI) classResults(ctx echo.Context) error {
	subjectID, err := requireQueryParam(ctx, "subjectId")
	if err != nil {
		return err
	}
	results, err := api.svc.ClassResults(ctx.Param("teacherEmail"), subjectID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api teacherAPI) recordResults(ctx echo.Context) error {
	subjectID, err := requireQueryParam(ctx, "subjectId")
	if err != nil {
		return err
	}
	var sheet school.ResultSheet
	if err = ctx.Bind(&sheet); err != nil {
		return err
	}
	if err = sheet.Validate(api.validate); err != nil {
		return err
	}
	if err = api.svc.RecordResults(ctx.Param("teacherEmail"), subjectID, sheet); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
