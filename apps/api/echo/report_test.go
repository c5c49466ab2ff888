package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hallpass-app/hallpass/core/report"
	"github.com/hallpass-app/hallpass/core/user"
)

func Test_seed(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Mr Kim", "kim@school.test", "s3cr3t", user.RoleTeacher, true)
	schoolAdmin := env.createAdmin(t, "Clerk", "clerk@hallpass.app", user.AdminLevelSchool)
	superAdmin := env.createAdmin(t, "Root", "root@hallpass.app", user.AdminLevelSuper)

	tests := []httpTest{
		{name: "no token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "teachers cannot seed", token: getToken(t, teacher, env.conf),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "school admins cannot seed", token: getToken(t, schoolAdmin, env.conf),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/admin/seed", tt.token)
			env.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("super admin seeds, twice", func(t *testing.T) {
		token := getToken(t, superAdmin, env.conf)

		req, rec := newAuthRequest(http.MethodPost, "/api/admin/seed", token)
		env.srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		var first report.SeedResult
		if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Len(t, first.Created, 4)
		assert.Empty(t, first.Existing)

		req, rec = newAuthRequest(http.MethodPost, "/api/admin/seed", token)
		env.srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		var second report.SeedResult
		if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Empty(t, second.Created)
		assert.Len(t, second.Existing, 4)
	})
}

func Test_reportApi(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	teacher := env.createUser(t, "Mr Kim", "kim@school.test", "s3cr3t", user.RoleTeacher, true)
	admin := env.createAdmin(t, "Clerk", "clerk@hallpass.app", user.AdminLevelSchool)
	adminToken := getToken(t, admin, env.conf)

	district, err := env.reportRepo.CreateDistrict(ctx, report.District{Name: "Lakeview Unified", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateDistrict() failed: %v", err)
	}
	school, err := env.reportRepo.CreateSchool(ctx, report.School{DistrictID: district.ID, Name: "Lakeview Elementary", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}

	t.Run("admins only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools/"+school.ID+"/stats",
			getToken(t, teacher, env.conf))
		env.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("school stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools/"+school.ID+"/stats", adminToken)
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var stats report.SchoolStats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, school.Name, stats.SchoolName)
	})

	t.Run("unknown school", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools/nope/stats", adminToken)
		env.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "school not found"}),
		}, rec)
	})

	t.Run("top classrooms rejects a negative limit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools/"+school.ID+"/stats/top?limit=-1", adminToken)
		env.srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "limit must be a non-negative integer"}),
		}, rec)
	})

	t.Run("top classrooms", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools/"+school.ID+"/stats/top?limit=3", adminToken)
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var ranked []report.ClassroomStats
		if err := json.Unmarshal(rec.Body.Bytes(), &ranked); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Empty(t, ranked)
	})

	t.Run("district stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/districts/"+district.ID+"/stats", adminToken)
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var stats report.DistrictStats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, 1, stats.SchoolCount)
	})

	t.Run("xlsx export", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools/"+school.ID+"/stats/export", adminToken)
		env.srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "school-stats-"+school.ID+".xlsx")
		assert.NotEmpty(t, rec.Body.Bytes())
	})
}
