package story_test

import (
	"context"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/classroom"
	"github.com/hallpass-app/hallpass/core/story"
	"github.com/hallpass-app/hallpass/core/user"
	appfs "github.com/hallpass-app/hallpass/fs"
	"github.com/hallpass-app/hallpass/realtime"
	emailsvc "github.com/hallpass-app/hallpass/services/email"
	inmemdb "github.com/hallpass-app/hallpass/storage/database/inmem"
)

var tmplOnce sync.Once

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	svc          *story.Service
	classroomSvc *classroom.Service
	usrRepo      user.Repository
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := &core.Config{
		AppName:          "Hall Pass",
		TestMode:         true,
		SecretKey:        []byte("secret"),
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Hall Pass", Address: "noreply@hallpass.app"},
	}
	tmplOnce.Do(func() { core.ParseEmailTemplates(appfs.FS, "assets/templates/email", conf, nopLogger{}) })
	emailsvc.ClearSentMessages()

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	hub := realtime.NewHub()
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	classroomSvc := classroom.NewService(inmemdb.NewClassroomRepository(db), usrSvc, mailSvc, hub, conf)
	svc := story.NewService(inmemdb.NewStoryRepository(db), classroomSvc, usrSvc, mailSvc, conf)
	return testEnv{svc: svc, classroomSvc: classroomSvc, usrRepo: usrRepo}
}

func createUser(t *testing.T, repo user.Repository, name, email, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	isActive := true
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:           name,
		Email:          email,
		Role:           role,
		IsActive:       &isActive,
		EmailConfirmed: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func TestService_Stories(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := createUser(t, env.usrRepo, "Mr Kim", "kim@school.test", user.RoleTeacher)

	cls, err := env.classroomSvc.Create(ctx, teacher.ID, classroom.NewClassroom{Name: "Math 101"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	first, err := env.svc.PostStory(ctx, cls.ID, teacher, story.NewStory{Content: "Field trip on Friday"})
	if err != nil {
		t.Fatalf("PostStory() failed: %v", err)
	}
	second, err := env.svc.PostStory(ctx, cls.ID, teacher, story.NewStory{Content: "Great job on the quiz"})
	if err != nil {
		t.Fatalf("PostStory() failed: %v", err)
	}
	assert.Equal(t, teacher.Name, first.AuthorName)

	// feed is newest first
	stories, err := env.svc.Stories(ctx, cls.ID)
	if err != nil {
		t.Fatalf("Stories() failed: %v", err)
	}
	if assert.Len(t, stories, 2) {
		assert.Equal(t, second.ID, stories[0].ID)
		assert.Equal(t, first.ID, stories[1].ID)
	}
}

func TestService_RecordPoints(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := createUser(t, env.usrRepo, "Mr Kim", "kim@school.test", user.RoleTeacher)
	parent := createUser(t, env.usrRepo, "Alice", "alice@test.test", user.RoleParent)

	cls, err := env.classroomSvc.Create(ctx, teacher.ID, classroom.NewClassroom{Name: "Math 101"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	st, err := env.classroomSvc.AddStudent(ctx, cls.ID, classroom.NewStudent{Name: "Bobby"})
	if err != nil {
		t.Fatalf("AddStudent() failed: %v", err)
	}
	if _, err = env.classroomSvc.LinkParent(ctx, st.ID, parent.ID); err != nil {
		t.Fatalf("LinkParent() failed: %v", err)
	}
	emailsvc.ClearSentMessages()

	award := func(points int) {
		t.Helper()
		if _, err := env.svc.RecordPoints(ctx, cls.ID, teacher.ID,
			story.NewPointRecord{StudentID: st.ID, Points: points, Reason: "participation"}); err != nil {
			t.Fatalf("RecordPoints(%d) failed: %v", points, err)
		}
	}

	award(45)
	assert.Empty(t, emailsvc.Sent(), "no milestone crossed yet")

	// 45 -> 55 crosses 50: linked parents get notified
	award(10)
	sent := emailsvc.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, []mail.Address{{Name: parent.Name, Address: parent.Email}}, sent[0].To)
		assert.Contains(t, sent[0].Subject, st.Name)
		assert.Contains(t, sent[0].Subject, "55")
	}

	// deductions never notify
	award(-20)
	assert.Len(t, emailsvc.Sent(), 1)

	balance, err := env.svc.StudentBalance(ctx, st.ID)
	if err != nil {
		t.Fatalf("StudentBalance() failed: %v", err)
	}
	assert.Equal(t, 35, balance)

	history, err := env.svc.PointHistory(ctx, st.ID)
	if err != nil {
		t.Fatalf("PointHistory() failed: %v", err)
	}
	if assert.Len(t, history, 3) {
		assert.Equal(t, []int{45, 10, -20}, []int{history[0].Points, history[1].Points, history[2].Points})
	}
}
