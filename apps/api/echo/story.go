package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core/classroom"
	"github.com/hallpass-app/hallpass/core/story"
	"github.com/hallpass-app/hallpass/core/user"
)

type storyApi struct {
	svc          *story.Service
	classroomSvc *classroom.Service
	userSvc      *user.Service
	validate     *validator.Validate
}

func registerStoryAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := storyApi{
		svc:          deps.StorySvc,
		classroomSvc: deps.ClassroomSvc,
		userSvc:      deps.UserSvc,
		validate:     deps.Validate,
	}

	cg := g.Group("/classrooms/:id", jwt)
	cg.GET("/stories", api.stories)
	cg.POST("/stories", api.postStory, roleMiddleware(user.RoleTeacher))
	cg.POST("/points", api.recordPoints, roleMiddleware(user.RoleTeacher))

	sg := g.Group("/students/:id/points", jwt)
	sg.GET("", api.points)
}

// Handlers

func (api *storyApi) stories(ctx echo.Context) error {
	cls, err := api.memberClassroom(ctx)
	if err != nil {
		return err
	}

	stories, err := api.svc.Stories(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "listing stories")
	}
	return ctx.JSON(http.StatusOK, stories)
}

func (api *storyApi) postStory(ctx echo.Context) error {
	var data story.NewStory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStory")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.ownClassroom(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	st, err := api.svc.PostStory(ctx.Request().Context(), cls.ID, ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "posting story")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *storyApi) recordPoints(ctx echo.Context) error {
	var data story.NewPointRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPointRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.ownClassroom(ctx)
	if err != nil {
		return err
	}

	// the student must belong to this classroom
	st, err := api.classroomSvc.GetStudent(ctx.Request().Context(), data.StudentID)
	if err != nil {
		return err
	}
	if st.ClassID != cls.ID {
		return classroom.ErrStudentNotFound
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rec, err := api.svc.RecordPoints(ctx.Request().Context(), cls.ID, claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *storyApi) points(ctx echo.Context) error {
	st, err := api.classroomSvc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	cls, err := api.classroomSvc.GetByID(ctx.Request().Context(), st.ClassID)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if cls.TeacherID != claims.Subject && !st.HasParent(claims.Subject) && !claims.IsAdmin {
		return errHttpNotFound
	}

	balance, err := api.svc.StudentBalance(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "reading points balance")
	}
	history, err := api.svc.PointHistory(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "reading points history")
	}
	return ctx.JSON(http.StatusOK, PointsResponse{Balance: balance, History: history})
}

// memberClassroom loads the classroom and refuses callers with no tie to it.
func (api *storyApi) memberClassroom(ctx echo.Context) (classroom.Classroom, error) {
	cls, err := api.classroomSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return classroom.Classroom{}, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "getting context claims")
	}
	if cls.TeacherID != claims.Subject && !cls.HasParent(claims.Subject) && !claims.IsAdmin {
		return classroom.Classroom{}, errHttpNotFound
	}
	return cls, nil
}

// ownClassroom loads the classroom and refuses teachers that do not own it.
func (api *storyApi) ownClassroom(ctx echo.Context) (classroom.Classroom, error) {
	cls, err := api.classroomSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return classroom.Classroom{}, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "getting context claims")
	}
	if cls.TeacherID != claims.Subject {
		return classroom.Classroom{}, errHttpForbidden
	}
	return cls, nil
}

type PointsResponse struct {
	Balance int                 `json:"balance"`
	History []story.PointRecord `json:"history"`
}
