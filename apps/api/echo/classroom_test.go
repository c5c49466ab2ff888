package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hallpass-app/hallpass/core/classroom"
	"github.com/hallpass-app/hallpass/core/user"
)

func Test_classroomApi_create(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Mr Kim", "kim@school.test", "s3cr3t", user.RoleTeacher, true)
	parent := env.createUser(t, "Alice", "alice@test.test", "s3cr3t", user.RoleParent, true)

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms", getToken(t, teacher, env.conf),
			[]byte(`{"name": "Math 101"}`))
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var cls classroom.Classroom
		if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, teacher.ID, cls.TeacherID)
		assert.True(t, classroom.IsValidCode(cls.Code))
	})

	tests := []httpTest{
		{name: "no token", body: []byte(`{"name": "Math 101"}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "parents cannot create", token: getToken(t, parent, env.conf), body: []byte(`{"name": "Math 101"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "name required", token: getToken(t, teacher, env.conf), body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms", tt.token, tt.body)
			env.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classroomApi_list(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Mr Kim", "kim@school.test", "s3cr3t", user.RoleTeacher, true)
	rival := env.createUser(t, "Ms Lee", "lee@school.test", "s3cr3t", user.RoleTeacher, true)
	cls := env.createClassroom(t, teacher, "Math 101")

	tests := []httpTest{
		{name: "teacher sees own classrooms", token: getToken(t, teacher, env.conf),
			wantCode: http.StatusOK, wantData: marchallObj(t, []classroom.Classroom{cls})},
		{name: "other teachers see nothing", token: getToken(t, rival, env.conf),
			wantCode: http.StatusOK, wantData: marchallObj(t, []classroom.Classroom{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/classrooms", tt.token)
			env.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classroomApi_join(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Mr Kim", "kim@school.test", "s3cr3t", user.RoleTeacher, true)
	parent := env.createUser(t, "Alice", "alice@test.test", "s3cr3t", user.RoleParent, true)
	cls := env.createClassroom(t, teacher, "Math 101")
	parentToken := getToken(t, parent, env.conf)

	t.Run("ok", func(t *testing.T) {
		// codes are matched case insensitively
		req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/join", parentToken,
			[]byte(`{"code": "`+strings.ToLower(cls.Code)+`"}`))
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var joined classroom.Classroom
		if err := json.Unmarshal(rec.Body.Bytes(), &joined); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.True(t, joined.HasParent(parent.ID))
	})

	t.Run("joining again is a no-op", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/join", parentToken,
			[]byte(`{"code": "`+cls.Code+`"}`))
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var joined classroom.Classroom
		if err := json.Unmarshal(rec.Body.Bytes(), &joined); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Len(t, joined.ParentIDs, 1)
	})

	tests := []httpTest{
		{name: "teachers cannot join", token: getToken(t, teacher, env.conf), body: []byte(`{"code": "` + cls.Code + `"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "malformed code", token: parentToken, body: []byte(`{"code": "AB10"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"code": "must be a 6-character class code"})},
		{name: "unknown code", token: parentToken, body: []byte(`{"code": "ZZZZZZ"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "no classroom matches this code"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/join", tt.token, tt.body)
			env.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classroomApi_joinInfo(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Mr Kim", "kim@school.test", "s3cr3t", user.RoleTeacher, true)
	parent := env.createUser(t, "Alice", "alice@test.test", "s3cr3t", user.RoleParent, true)
	member := env.createUser(t, "Carol", "carol@test.test", "s3cr3t", user.RoleParent, true)
	cls := env.createClassroom(t, teacher, "Math 101")
	if _, err := env.classroomSvc.JoinWithCode(context.Background(), cls.Code, member); err != nil {
		t.Fatalf("JoinWithCode() failed: %v", err)
	}

	info := func(eligibility string) []byte {
		return marchallObj(t, JoinInfoResponse{
			ClassName:   cls.Name,
			TeacherID:   cls.TeacherID,
			Code:        cls.Code,
			Eligibility: eligibility,
		})
	}

	tests := []httpTest{
		{name: "anonymous visitor", path: "/v1/join/" + cls.Code,
			wantCode: http.StatusOK, wantData: info(EligibilityUnauthenticated)},
		{name: "parent can join", path: "/v1/join/" + cls.Code, token: getToken(t, parent, env.conf),
			wantCode: http.StatusOK, wantData: info(EligibilityJoinable)},
		{name: "member already joined", path: "/v1/join/" + cls.Code, token: getToken(t, member, env.conf),
			wantCode: http.StatusOK, wantData: info(EligibilityMember)},
		{name: "teacher is not eligible", path: "/v1/join/" + cls.Code, token: getToken(t, teacher, env.conf),
			wantCode: http.StatusOK, wantData: info(EligibilityIneligible)},
		{name: "link codes are case insensitive", path: "/v1/join/" + strings.ToLower(cls.Code),
			wantCode: http.StatusOK, wantData: info(EligibilityUnauthenticated)},
		{name: "unknown code", path: "/v1/join/ZZZZZZ",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "no classroom matches this code"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classroomApi_students(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Mr Kim", "kim@school.test", "s3cr3t", user.RoleTeacher, true)
	rival := env.createUser(t, "Ms Lee", "lee@school.test", "s3cr3t", user.RoleTeacher, true)
	parent := env.createUser(t, "Alice", "alice@test.test", "s3cr3t", user.RoleParent, true)
	stranger := env.createUser(t, "Eve", "eve@test.test", "s3cr3t", user.RoleParent, true)
	cls := env.createClassroom(t, teacher, "Math 101")
	if _, err := env.classroomSvc.JoinWithCode(context.Background(), cls.Code, parent); err != nil {
		t.Fatalf("JoinWithCode() failed: %v", err)
	}

	var st classroom.Student
	t.Run("teacher adds a student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/"+cls.ID+"/students",
			getToken(t, teacher, env.conf), []byte(`{"name": "Bobby"}`))
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, cls.ID, st.ClassID)
	})

	t.Run("only the owner adds students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/"+cls.ID+"/students",
			getToken(t, rival, env.conf), []byte(`{"name": "Mallory"}`))
		env.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("member parent sees the roster", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classrooms/"+cls.ID+"/students",
			getToken(t, parent, env.conf))
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var students []classroom.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Len(t, students, 1)
	})

	t.Run("outsiders get a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classrooms/"+cls.ID+"/students",
			getToken(t, stranger, env.conf))
		env.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}, rec)
	})

	t.Run("teacher links a parent", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students/"+st.ID+"/parents",
			getToken(t, teacher, env.conf), marchallObj(t, LinkParentRequest{ParentID: parent.ID}))
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var linked classroom.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &linked); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, []string{parent.ID}, linked.ParentIDs)
	})
}
