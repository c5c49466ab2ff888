package classroom

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/user"
	"github.com/hallpass-app/hallpass/realtime"
)

var (
	// errors
	ErrNotFound        = errors.New("classroom not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrInvalidCode     = errors.New("no classroom matches this code")
	ErrNotEligible     = errors.New("only parents can join a classroom by code")
	ErrCodeExists      = errors.New("class code already in use")
)

// codeRetries bounds code generation attempts on collision.
const codeRetries = 5

type (
	Repository interface {
		CreateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		GetClassroomByID(ctx context.Context, id string) (Classroom, error)
		GetClassroomByCode(ctx context.Context, code string) (Classroom, error)
		// QueryClassroomsByTeacher returns classrooms in creation order.
		QueryClassroomsByTeacher(ctx context.Context, teacherID string) ([]Classroom, error)
		// QueryClassroomsByParent returns classrooms whose parent list contains parentID, in creation order.
		QueryClassroomsByParent(ctx context.Context, parentID string) ([]Classroom, error)
		// AddClassroomParent appends parentID to the classroom's parent list if absent.
		AddClassroomParent(ctx context.Context, classID, parentID string) (Classroom, error)
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		QueryStudentsByClass(ctx context.Context, classID string) ([]Student, error)
		// LinkStudentParent appends parentID to the student's parent list if absent.
		LinkStudentParent(ctx context.Context, studentID, parentID string) (Student, error)
	}

	// UserGetter resolves user identities for notification emails.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		users   UserGetter
		mailSvc core.EmailService
		hub     *realtime.Hub
		conf    *core.Config
	}
)

func NewService(repo Repository, users UserGetter, mailSvc core.EmailService, hub *realtime.Hub, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		mailSvc: mailSvc,
		hub:     hub,
		conf:    conf,
	}
}

// Realtime topics.

func Topic(classID string) string       { return "classroom:" + classID }
func RosterTopic(classID string) string { return "roster:" + classID }

// Create makes a new classroom owned by the teacher, with a fresh class code.
func (svc *Service) Create(ctx context.Context, teacherID string, nc NewClassroom) (Classroom, error) {
	now := time.Now().UTC()

	var cls Classroom
	var err error
	for attempt := 0; attempt < codeRetries; attempt++ {
		var code string
		code, err = GenerateCode()
		if err != nil {
			return Classroom{}, err
		}
		cls, err = svc.repo.CreateClassroom(ctx, Classroom{
			SchoolID:  nc.SchoolID,
			TeacherID: teacherID,
			Name:      nc.Name,
			Code:      code,
			ParentIDs: []string{},
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != ErrCodeExists {
			break
		}
	}
	if err != nil {
		return Classroom{}, pkgerrors.Wrap(err, "creating classroom")
	}
	return cls, nil
}

// ListForUser returns the classrooms visible to a user, per their role:
// teachers see classrooms they own, parents see classrooms they joined.
func (svc *Service) ListForUser(ctx context.Context, userID, role string) ([]Classroom, error) {
	switch role {
	case user.RoleTeacher:
		return svc.repo.QueryClassroomsByTeacher(ctx, userID)
	case user.RoleParent:
		return svc.repo.QueryClassroomsByParent(ctx, userID)
	}
	return []Classroom{}, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

// GetByCode resolves a classroom by class code, case-insensitively.
func (svc *Service) GetByCode(ctx context.Context, code string) (Classroom, error) {
	return svc.repo.GetClassroomByCode(ctx, NormalizeCode(code))
}

// JoinWithCode adds a parent to the classroom matching code. Joining a
// classroom the parent already belongs to is a no-op, not an error.
func (svc *Service) JoinWithCode(ctx context.Context, code string, parent user.User) (Classroom, error) {
	if !parent.IsParent() {
		return Classroom{}, ErrNotEligible
	}

	cls, err := svc.repo.GetClassroomByCode(ctx, NormalizeCode(code))
	if err != nil {
		if err == ErrNotFound {
			return Classroom{}, ErrInvalidCode
		}
		return Classroom{}, pkgerrors.Wrap(err, "finding classroom by code")
	}
	if cls.HasParent(parent.ID) {
		return cls, nil
	}

	cls, err = svc.repo.AddClassroomParent(ctx, cls.ID, parent.ID)
	if err != nil {
		return Classroom{}, pkgerrors.Wrap(err, "adding parent to classroom")
	}

	svc.notifyTeacherOfJoin(ctx, cls, parent)
	svc.hub.Publish(Topic(cls.ID), cls)
	return cls, nil
}

func (svc *Service) Students(ctx context.Context, classID string) ([]Student, error) {
	return svc.repo.QueryStudentsByClass(ctx, classID)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

// AddStudent adds a student to the classroom roster.
func (svc *Service) AddStudent(ctx context.Context, classID string, ns NewStudent) (Student, error) {
	st, err := svc.repo.CreateStudent(ctx, Student{
		ClassID:   classID,
		Name:      ns.Name,
		ParentIDs: []string{},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Student{}, pkgerrors.Wrap(err, "creating student")
	}
	svc.publishRoster(ctx, classID)
	return st, nil
}

// LinkParent links a parent to a student. Idempotent.
func (svc *Service) LinkParent(ctx context.Context, studentID, parentID string) (Student, error) {
	st, err := svc.repo.LinkStudentParent(ctx, studentID, parentID)
	if err != nil {
		return Student{}, err
	}
	svc.publishRoster(ctx, st.ClassID)
	return st, nil
}

// publishRoster pushes the full current roster snapshot for a classroom.
func (svc *Service) publishRoster(ctx context.Context, classID string) {
	roster, err := svc.repo.QueryStudentsByClass(ctx, classID)
	if err != nil {
		return // best-effort: subscribers keep their last snapshot
	}
	svc.hub.Publish(RosterTopic(classID), roster)
}

func (svc *Service) notifyTeacherOfJoin(ctx context.Context, cls Classroom, parent user.User) {
	teacher, err := svc.users.GetByID(ctx, cls.TeacherID)
	if err != nil {
		return // notification is best-effort; the join already succeeded
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: teacher.Name, Address: teacher.Email}},
		Subject:      fmt.Sprintf("%s joined %s", parent.Name, cls.Name),
		TemplateName: "parent-joined",
		TemplateData: struct {
			TeacherName string
			ParentName  string
			ClassName   string
		}{teacher.Name, parent.Name, cls.Name},
	})
}
