package classroom_test

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/classroom"
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

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "Hall Pass",
		TestMode:         true,
		SecretKey:        []byte("secret"),
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Hall Pass", Address: "noreply@hallpass.app"},
	}
}

func setup(t *testing.T) (*classroom.Service, user.Repository, *realtime.Hub) {
	t.Helper()
	conf := testConfig()
	tmplOnce.Do(func() { core.ParseEmailTemplates(appfs.FS, "assets/templates/email", conf, nopLogger{}) })
	emailsvc.ClearSentMessages()

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	hub := realtime.NewHub()
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	svc := classroom.NewService(inmemdb.NewClassroomRepository(db), usrSvc, mailSvc, hub, conf)
	return svc, usrRepo, hub
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

func receiveEvent(t *testing.T, sub *realtime.Subscription) realtime.Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return realtime.Event{}
}

func TestService_Create(t *testing.T) {
	svc, usrRepo, _ := setup(t)
	ctx := context.Background()
	teacher := createUser(t, usrRepo, "Mr Kim", "kim@school.test", user.RoleTeacher)

	cls, err := svc.Create(ctx, teacher.ID, classroom.NewClassroom{Name: "Math 101"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	assert.True(t, classroom.IsValidCode(cls.Code), "Create() code = %q, not a valid class code", cls.Code)
	assert.Equal(t, teacher.ID, cls.TeacherID)
	assert.Empty(t, cls.ParentIDs)

	owned, err := svc.ListForUser(ctx, teacher.ID, user.RoleTeacher)
	if err != nil {
		t.Fatalf("ListForUser() failed: %v", err)
	}
	if assert.Len(t, owned, 1) {
		assert.Equal(t, cls.ID, owned[0].ID)
	}
}

func TestService_JoinWithCode(t *testing.T) {
	svc, usrRepo, hub := setup(t)
	ctx := context.Background()
	teacher := createUser(t, usrRepo, "Mr Kim", "kim@school.test", user.RoleTeacher)
	parent := createUser(t, usrRepo, "Alice", "alice@test.test", user.RoleParent)

	cls, err := svc.Create(ctx, teacher.ID, classroom.NewClassroom{Name: "Math 101"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	sub := hub.Subscribe(classroom.Topic(cls.ID))
	defer sub.Close()
	emailsvc.ClearSentMessages()

	// a human-typed lowercase code still matches
	joined, err := svc.JoinWithCode(ctx, "  "+strings.ToLower(cls.Code)+" ", parent)
	if err != nil {
		t.Fatalf("JoinWithCode() failed: %v", err)
	}
	assert.True(t, joined.HasParent(parent.ID))

	// the teacher is notified
	sent := emailsvc.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, []mail.Address{{Name: teacher.Name, Address: teacher.Email}}, sent[0].To)
		assert.Equal(t, fmt.Sprintf("%s joined %s", parent.Name, cls.Name), sent[0].Subject)
		assert.Contains(t, sent[0].TextContent, parent.Name)
	}

	// subscribers get the updated classroom snapshot
	ev := receiveEvent(t, sub)
	snap, ok := ev.Payload.(classroom.Classroom)
	if !ok {
		t.Fatalf("event payload = %T, want classroom.Classroom", ev.Payload)
	}
	assert.True(t, snap.HasParent(parent.ID))

	// re-joining is a no-op: no duplicate membership, no second email
	again, err := svc.JoinWithCode(ctx, cls.Code, parent)
	if err != nil {
		t.Fatalf("JoinWithCode() failed on re-join: %v", err)
	}
	assert.Len(t, again.ParentIDs, 1)
	assert.Len(t, emailsvc.Sent(), 1)

	// unknown code
	if _, err = svc.JoinWithCode(ctx, "ZZZZZZ", parent); err != classroom.ErrInvalidCode {
		t.Errorf("JoinWithCode() error = %v, want %v", err, classroom.ErrInvalidCode)
	}

	// teachers cannot join by code
	if _, err = svc.JoinWithCode(ctx, cls.Code, teacher); err != classroom.ErrNotEligible {
		t.Errorf("JoinWithCode() error = %v, want %v", err, classroom.ErrNotEligible)
	}

	mine, err := svc.ListForUser(ctx, parent.ID, user.RoleParent)
	if err != nil {
		t.Fatalf("ListForUser() failed: %v", err)
	}
	assert.Len(t, mine, 1)
}

func TestService_Roster(t *testing.T) {
	svc, usrRepo, hub := setup(t)
	ctx := context.Background()
	teacher := createUser(t, usrRepo, "Mr Kim", "kim@school.test", user.RoleTeacher)
	parent := createUser(t, usrRepo, "Alice", "alice@test.test", user.RoleParent)

	cls, err := svc.Create(ctx, teacher.ID, classroom.NewClassroom{Name: "Math 101"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	sub := hub.Subscribe(classroom.RosterTopic(cls.ID))
	defer sub.Close()

	st, err := svc.AddStudent(ctx, cls.ID, classroom.NewStudent{Name: "Bobby"})
	if err != nil {
		t.Fatalf("AddStudent() failed: %v", err)
	}
	ev := receiveEvent(t, sub)
	roster, ok := ev.Payload.([]classroom.Student)
	if !ok {
		t.Fatalf("event payload = %T, want []classroom.Student", ev.Payload)
	}
	assert.Len(t, roster, 1)

	// linking twice leaves a single parent entry
	if _, err = svc.LinkParent(ctx, st.ID, parent.ID); err != nil {
		t.Fatalf("LinkParent() failed: %v", err)
	}
	linked, err := svc.LinkParent(ctx, st.ID, parent.ID)
	if err != nil {
		t.Fatalf("LinkParent() failed on relink: %v", err)
	}
	assert.Equal(t, []string{parent.ID}, linked.ParentIDs)

	if _, err = svc.LinkParent(ctx, "nope", parent.ID); err != classroom.ErrStudentNotFound {
		t.Errorf("LinkParent() error = %v, want %v", err, classroom.ErrStudentNotFound)
	}

	students, err := svc.Students(ctx, cls.ID)
	if err != nil {
		t.Fatalf("Students() failed: %v", err)
	}
	if assert.Len(t, students, 1) {
		assert.True(t, students[0].HasParent(parent.ID))
	}
}
