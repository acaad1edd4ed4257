package models

import (
	"fmt"

	"github.com/dmitrijs2005/logingate/internal/common"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// Column is the principal table column holding this provider's id.
func (p Provider) Column() string {
	return string(p) + "_id"
}

// Title is the provider name as shown to users.
func (p Provider) Title() string {
	switch p {
	case ProviderGoogle:
		return "Google"
	case ProviderFacebook:
		return "Facebook"
	default:
		return string(p)
	}
}

func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGoogle, ProviderFacebook:
		return Provider(s), nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// RoleConfig parameterizes the authentication pipeline for one principal
// type: where its rows live and where its users are sent.
type RoleConfig struct {
	Role           Role
	Table          string
	LoginPath      string
	DashboardPath  string
	SignupPath     string
	LoginPostPath  string
	ErrorFlash     string
	SuccessFlash   string
	LinkByEmail    bool
	DashboardTitle string
}

// CallbackPath is the OAuth redirect path for provider.
func (rc RoleConfig) CallbackPath(provider Provider) string {
	return fmt.Sprintf("/auth/%s/%s/callback", provider, rc.Role)
}

// StartPath is the path that kicks off the OAuth dance for provider.
func (rc RoleConfig) StartPath(provider Provider) string {
	return fmt.Sprintf("/auth/%s/%s", provider, rc.Role)
}

var (
	Students = RoleConfig{
		Role:           RoleStudent,
		Table:          "users",
		LoginPath:      "/logincard_student",
		DashboardPath:  "/student_dashboard",
		SignupPath:     "/signup",
		LoginPostPath:  "/login",
		ErrorFlash:     common.FlashError,
		SuccessFlash:   common.FlashSuccess,
		DashboardTitle: "Student dashboard",
	}

	// Teachers are often provisioned out-of-band, so OAuth logins link to an
	// existing row with the same email instead of creating a duplicate.
	Teachers = RoleConfig{
		Role:           RoleTeacher,
		Table:          "teachers",
		LoginPath:      "/logincard_teacher",
		DashboardPath:  "/teacher_dashboard",
		SignupPath:     "/teacher/signup",
		LoginPostPath:  "/teacher/login",
		ErrorFlash:     common.FlashTeacherError,
		SuccessFlash:   common.FlashTeacherSuccess,
		LinkByEmail:    true,
		DashboardTitle: "Teacher dashboard",
	}
)

// Roles lists both configs in a stable order.
func Roles() []RoleConfig {
	return []RoleConfig{Students, Teachers}
}

// ConfigFor returns the RoleConfig for role. Unknown or empty roles map to
// Students, matching the session default.
func ConfigFor(role Role) RoleConfig {
	if role == RoleTeacher {
		return Teachers
	}
	return Students
}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTeacher:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}
