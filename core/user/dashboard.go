package user

// Screen is one of the app's top-level views.
type Screen string

const (
	ScreenLoading       Screen = "loading"
	ScreenConfirmEmail  Screen = "confirm_email"
	ScreenLogin         Screen = "login"
	ScreenAccountSetup  Screen = "account_setup"
	ScreenTeacher       Screen = "teacher_dashboard"
	ScreenParent        Screen = "parent_dashboard"
	ScreenStudent       Screen = "student_dashboard"
	ScreenSchoolAdmin   Screen = "school_admin_dashboard"
	ScreenPrincipal     Screen = "principal_dashboard"
	ScreenDistrictAdmin Screen = "district_admin_dashboard"
	ScreenSuperAdmin    Screen = "super_admin_dashboard"
)

// AuthPhase enumerates the client auth lifecycle states.
type AuthPhase int

const (
	PhaseLoading AuthPhase = iota
	PhaseNeedsConfirmation
	PhaseUnauthenticated
	PhaseNoProfile // authenticated but no profile row yet
	PhaseAuthenticated
)

// AuthState is the full input to dashboard resolution.
type AuthState struct {
	Phase      AuthPhase
	Role       string
	AdminLevel string
}

// ResolveDashboard maps an auth state to the screen to show. It is total:
// every phase/role/level combination resolves to exactly one screen.
//
// An admin with a missing or unrecognized admin level lands on the
// school-admin screen, the least privileged admin view. Routing such
// accounts to the super-admin view would be a privilege escalation.
func ResolveDashboard(st AuthState) Screen {
	switch st.Phase {
	case PhaseLoading:
		return ScreenLoading
	case PhaseNeedsConfirmation:
		return ScreenConfirmEmail
	case PhaseUnauthenticated:
		return ScreenLogin
	case PhaseNoProfile:
		return ScreenAccountSetup
	}

	switch st.Role {
	case RoleTeacher:
		return ScreenTeacher
	case RoleParent:
		return ScreenParent
	case RoleStudent:
		return ScreenStudent
	case RoleAdmin:
		switch st.AdminLevel {
		case AdminLevelSuper:
			return ScreenSuperAdmin
		case AdminLevelDistrict:
			return ScreenDistrictAdmin
		case AdminLevelPrincipal:
			return ScreenPrincipal
		case AdminLevelSchool:
			return ScreenSchoolAdmin
		default:
			return ScreenSchoolAdmin
		}
	}
	// unknown role: force account setup rather than guessing a portal
	return ScreenAccountSetup
}

// AuthStateFor derives the auth state of a loaded, authenticated user.
func AuthStateFor(usr User) AuthState {
	if !usr.EmailConfirmed {
		return AuthState{Phase: PhaseNeedsConfirmation}
	}
	return AuthState{Phase: PhaseAuthenticated, Role: usr.Role, AdminLevel: usr.AdminLevel}
}
