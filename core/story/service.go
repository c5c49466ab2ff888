package story

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/classroom"
	"github.com/hallpass-app/hallpass/core/user"
)

// pointsMilestone is the balance step that triggers a parent notification.
const pointsMilestone = 50

var ErrNotFound = errors.New("story not found")

type (
	Repository interface {
		CreateStory(ctx context.Context, st Story) (Story, error)
		// QueryStoriesByClass returns stories newest first.
		QueryStoriesByClass(ctx context.Context, classID string) ([]Story, error)
		CreatePointRecord(ctx context.Context, rec PointRecord) (PointRecord, error)
		// QueryPointRecordsByStudent returns records in creation order.
		QueryPointRecordsByStudent(ctx context.Context, studentID string) ([]PointRecord, error)
		// StudentPointsTotal returns the signed sum of a student's points.
		StudentPointsTotal(ctx context.Context, studentID string) (int, error)
	}

	// StudentGetter resolves students for milestone notifications.
	StudentGetter interface {
		GetStudent(ctx context.Context, id string) (classroom.Student, error)
	}

	// UserGetter resolves user identities for notification emails.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		students StudentGetter
		users    UserGetter
		mailSvc  core.EmailService
		conf     *core.Config
	}
)

func NewService(repo Repository, students StudentGetter, users UserGetter, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		students: students,
		users:    users,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

// PostStory publishes a story to a classroom feed.
func (svc *Service) PostStory(ctx context.Context, classID string, author user.User, ns NewStory) (Story, error) {
	return svc.repo.CreateStory(ctx, Story{
		ClassID:    classID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Content:    ns.Content,
		CreatedAt:  time.Now().UTC(),
	})
}

func (svc *Service) Stories(ctx context.Context, classID string) ([]Story, error) {
	return svc.repo.QueryStoriesByClass(ctx, classID)
}

// RecordPoints awards (positive) or deducts (negative) behavior points for a
// student, and notifies the student's parents when the balance crosses a
// milestone.
func (svc *Service) RecordPoints(ctx context.Context, classID, teacherID string, np NewPointRecord) (PointRecord, error) {
	before, err := svc.repo.StudentPointsTotal(ctx, np.StudentID)
	if err != nil {
		return PointRecord{}, pkgerrors.Wrap(err, "reading points balance")
	}

	rec, err := svc.repo.CreatePointRecord(ctx, PointRecord{
		ClassID:   classID,
		StudentID: np.StudentID,
		TeacherID: teacherID,
		Points:    np.Points,
		Reason:    np.Reason,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return PointRecord{}, pkgerrors.Wrap(err, "creating point record")
	}

	after := before + np.Points
	if crossedMilestone(before, after) {
		svc.notifyParentsOfMilestone(ctx, np.StudentID, after)
	}
	return rec, nil
}

// StudentBalance returns the student's current point balance.
func (svc *Service) StudentBalance(ctx context.Context, studentID string) (int, error) {
	return svc.repo.StudentPointsTotal(ctx, studentID)
}

func (svc *Service) PointHistory(ctx context.Context, studentID string) ([]PointRecord, error) {
	return svc.repo.QueryPointRecordsByStudent(ctx, studentID)
}

// crossedMilestone reports whether the balance moved up past a multiple of
// pointsMilestone.
func crossedMilestone(before, after int) bool {
	if after <= before {
		return false
	}
	return after/pointsMilestone > before/pointsMilestone && after >= pointsMilestone
}

func (svc *Service) notifyParentsOfMilestone(ctx context.Context, studentID string, balance int) {
	st, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return // notification is best-effort
	}
	for _, parentID := range st.ParentIDs {
		parent, err := svc.users.GetByID(ctx, parentID)
		if err != nil {
			continue
		}
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: parent.Name, Address: parent.Email}},
			Subject:      fmt.Sprintf("%s reached %d points!", st.Name, balance),
			TemplateName: "points-milestone",
			TemplateData: struct {
				ParentName  string
				StudentName string
				Balance     int
			}{parent.Name, st.Name, balance},
		})
	}
}
