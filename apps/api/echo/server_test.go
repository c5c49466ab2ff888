package echoapi

import (
	"context"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/classroom"
	"github.com/hallpass-app/hallpass/core/messaging"
	"github.com/hallpass-app/hallpass/core/report"
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
	srv  *Server
	conf *core.Config
	hub  *realtime.Hub

	usrRepo       user.Repository
	classroomRepo classroom.Repository
	reportRepo    report.Repository

	usrSvc       *user.Service
	classroomSvc *classroom.Service
	messagingSvc *messaging.Service
	storySvc     *story.Service
	reportSvc    *report.Service
}

func testConfig() *core.Config {
	return &core.Config{
		AppName:                   "Hall Pass",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 []byte("secret"),
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Hall Pass", Address: "noreply@hallpass.app"},
		SessionCookiePrefix:       "hp_session",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			ReadTimeout:               5 * time.Second,
			WriteTimeout:              10 * time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := testConfig()
	tmplOnce.Do(func() { core.ParseEmailTemplates(appfs.FS, "assets/templates/email", conf, nopLogger{}) })
	emailsvc.ClearSentMessages()

	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)

	db := inmemdb.NewDB()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	hub := realtime.NewHub()

	usrRepo := inmemdb.NewUserRepository(db)
	classroomRepo := inmemdb.NewClassroomRepository(db)
	reportRepo := inmemdb.NewReportRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	classroomSvc := classroom.NewService(classroomRepo, usrSvc, mailSvc, hub, conf)
	messagingSvc := messaging.NewService(inmemdb.NewMessagingRepository(db), usrSvc, mailSvc, hub, conf)
	storySvc := story.NewService(inmemdb.NewStoryRepository(db), classroomSvc, usrSvc, mailSvc, conf)
	reportSvc := report.NewService(reportRepo)

	srv := NewServer(ServerDeps{
		Conf:         conf,
		Logger:       nopLogger{},
		Validate:     validate,
		Translator:   translator,
		UserSvc:      usrSvc,
		ClassroomSvc: classroomSvc,
		MessagingSvc: messagingSvc,
		StorySvc:     storySvc,
		ReportSvc:    reportSvc,
		Hub:          hub,
	})

	return testEnv{
		srv:           srv,
		conf:          conf,
		hub:           hub,
		usrRepo:       usrRepo,
		classroomRepo: classroomRepo,
		reportRepo:    reportRepo,
		usrSvc:        usrSvc,
		classroomSvc:  classroomSvc,
		messagingSvc:  messagingSvc,
		storySvc:      storySvc,
		reportSvc:     reportSvc,
	}
}

func (env testEnv) createUser(t *testing.T, name, email, pwd, role string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:           name,
		Email:          email,
		Role:           role,
		IsActive:       &isActive,
		EmailConfirmed: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (env testEnv) createAdmin(t *testing.T, name, email, level string) user.User {
	t.Helper()
	usr := env.createUser(t, name, email, "", user.RoleAdmin, true)
	usr.AdminLevel = level
	usr.UpdatedAt = time.Now().UTC()
	usr, err := env.usrRepo.UpdateUser(context.Background(), usr, nil)
	if err != nil {
		t.Fatalf("createAdmin() failed: %v", err)
	}
	return usr
}

func (env testEnv) createClassroom(t *testing.T, teacher user.User, name string) classroom.Classroom {
	t.Helper()
	cls, err := env.classroomSvc.Create(context.Background(), teacher.ID, classroom.NewClassroom{Name: name})
	if err != nil {
		t.Fatalf("createClassroom() failed: %v", err)
	}
	return cls
}
