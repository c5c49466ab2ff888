package user

import "testing"

func TestResolveDashboard(t *testing.T) {
	tests := []struct {
		name string
		st   AuthState
		want Screen
	}{
		{name: "loading", st: AuthState{Phase: PhaseLoading}, want: ScreenLoading},
		{name: "needs confirmation", st: AuthState{Phase: PhaseNeedsConfirmation}, want: ScreenConfirmEmail},
		{name: "unauthenticated", st: AuthState{Phase: PhaseUnauthenticated}, want: ScreenLogin},
		{name: "no profile", st: AuthState{Phase: PhaseNoProfile}, want: ScreenAccountSetup},
		{name: "no profile ignores role", st: AuthState{Phase: PhaseNoProfile, Role: RoleTeacher}, want: ScreenAccountSetup},
		{name: "teacher", st: AuthState{Phase: PhaseAuthenticated, Role: RoleTeacher}, want: ScreenTeacher},
		{name: "parent", st: AuthState{Phase: PhaseAuthenticated, Role: RoleParent}, want: ScreenParent},
		{name: "student", st: AuthState{Phase: PhaseAuthenticated, Role: RoleStudent}, want: ScreenStudent},
		{name: "super admin", st: AuthState{Phase: PhaseAuthenticated, Role: RoleAdmin, AdminLevel: AdminLevelSuper}, want: ScreenSuperAdmin},
		{name: "district admin", st: AuthState{Phase: PhaseAuthenticated, Role: RoleAdmin, AdminLevel: AdminLevelDistrict}, want: ScreenDistrictAdmin},
		{name: "principal", st: AuthState{Phase: PhaseAuthenticated, Role: RoleAdmin, AdminLevel: AdminLevelPrincipal}, want: ScreenPrincipal},
		{name: "school admin", st: AuthState{Phase: PhaseAuthenticated, Role: RoleAdmin, AdminLevel: AdminLevelSchool}, want: ScreenSchoolAdmin},
		{name: "admin without level", st: AuthState{Phase: PhaseAuthenticated, Role: RoleAdmin}, want: ScreenSchoolAdmin},
		{name: "admin with unknown level", st: AuthState{Phase: PhaseAuthenticated, Role: RoleAdmin, AdminLevel: "galactic_admin"}, want: ScreenSchoolAdmin},
		{name: "unknown role", st: AuthState{Phase: PhaseAuthenticated, Role: "janitor"}, want: ScreenAccountSetup},
		{name: "empty role", st: AuthState{Phase: PhaseAuthenticated}, want: ScreenAccountSetup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveDashboard(tt.st); got != tt.want {
				t.Errorf("ResolveDashboard() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthStateFor(t *testing.T) {
	unconfirmed := User{Role: RoleParent}
	if st := AuthStateFor(unconfirmed); st.Phase != PhaseNeedsConfirmation {
		t.Errorf("AuthStateFor() phase = %v, want %v", st.Phase, PhaseNeedsConfirmation)
	}

	confirmed := User{Role: RoleAdmin, AdminLevel: AdminLevelDistrict, EmailConfirmed: true}
	st := AuthStateFor(confirmed)
	if st.Phase != PhaseAuthenticated {
		t.Errorf("AuthStateFor() phase = %v, want %v", st.Phase, PhaseAuthenticated)
	}
	if st.Role != RoleAdmin || st.AdminLevel != AdminLevelDistrict {
		t.Errorf("AuthStateFor() = %+v, role/level not carried over", st)
	}
}
