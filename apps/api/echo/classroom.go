package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/classroom"
	"github.com/hallpass-app/hallpass/core/user"
)

// Join-link eligibility outcomes.
const (
	EligibilityUnauthenticated = "unauthenticated"
	EligibilityIneligible      = "ineligible"
	EligibilityJoinable        = "joinable"
	EligibilityMember          = "member"
)

type classroomApi struct {
	svc      *classroom.Service
	userSvc  *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerClassroomAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classroomApi{
		svc:      deps.ClassroomSvc,
		userSvc:  deps.UserSvc,
		conf:     deps.Conf,
		validate: deps.Validate,
	}

	// join links are shared publicly; auth is optional here
	g.GET("/join/:code", api.joinInfo, optionalJWT(jwt))

	cg := g.Group("/classrooms", jwt)
	cg.POST("", api.create, roleMiddleware(user.RoleTeacher))
	cg.GET("", api.list)
	cg.POST("/join", api.join, roleMiddleware(user.RoleParent))
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/students", api.students)
	cg.POST("/:id/students", api.addStudent, roleMiddleware(user.RoleTeacher))

	sg := g.Group("/students", jwt)
	sg.POST("/:id/parents", api.linkParent, roleMiddleware(user.RoleTeacher))
}

// optionalJWT runs the JWT middleware only when credentials are presented.
func optionalJWT(jwt echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(ctx)
			}
			return jwt(next)(ctx)
		}
	}
}

// Handlers

func (api *classroomApi) create(ctx echo.Context) error {
	var data classroom.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if data.SchoolID == "" {
		data.SchoolID = ctxUsr.SchoolID
	}

	cls, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classroomApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	classrooms, err := api.svc.ListForUser(ctx.Request().Context(), claims.Subject, claims.Role)
	if err != nil {
		return errors.Wrap(err, "listing classrooms")
	}
	return ctx.JSON(http.StatusOK, classrooms)
}

func (api *classroomApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !api.canSee(cls, claims) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, cls)
}

// joinInfo resolves a shared join link and reports the caller's eligibility.
func (api *classroomApi) joinInfo(ctx echo.Context) error {
	cls, err := api.svc.GetByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			return classroom.ErrInvalidCode
		}
		return err
	}

	info := JoinInfoResponse{
		ClassName:   cls.Name,
		TeacherID:   cls.TeacherID,
		Code:        cls.Code,
		Eligibility: EligibilityUnauthenticated,
	}
	if claims, err := getContextClaims(ctx); err == nil {
		switch {
		case claims.Role != user.RoleParent:
			info.Eligibility = EligibilityIneligible
		case cls.HasParent(claims.Subject):
			info.Eligibility = EligibilityMember
		default:
			info.Eligibility = EligibilityJoinable
		}
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *classroomApi) join(ctx echo.Context) error {
	var data classroom.JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cls, err := api.svc.JoinWithCode(ctx.Request().Context(), data.Code, ctxUsr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classroomApi) students(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !api.canSee(cls, claims) {
		return errHttpNotFound
	}

	students, err := api.svc.Students(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classroomApi) addStudent(ctx echo.Context) error {
	var data classroom.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if cls.TeacherID != claims.Subject {
		return errHttpForbidden
	}

	st, err := api.svc.AddStudent(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *classroomApi) linkParent(ctx echo.Context) error {
	var data LinkParentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LinkParentRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	st, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	cls, err := api.svc.GetByID(ctx.Request().Context(), st.ClassID)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if cls.TeacherID != claims.Subject {
		return errHttpForbidden
	}

	st, err = api.svc.LinkParent(ctx.Request().Context(), st.ID, data.ParentID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

// canSee limits classroom detail access to its teacher, its parents and admins.
func (api *classroomApi) canSee(cls classroom.Classroom, claims Claims) bool {
	return cls.TeacherID == claims.Subject || cls.HasParent(claims.Subject) || claims.IsAdmin
}

type (
	JoinInfoResponse struct {
		ClassName   string `json:"class_name"`
		TeacherID   string `json:"teacher_id"`
		Code        string `json:"code"`
		Eligibility string `json:"eligibility"`
	}

	LinkParentRequest struct {
		ParentID string `json:"parent_id" validate:"required"`
	}
)
