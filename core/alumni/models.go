package alumni

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/alumnihub/backend/core"
)

// Roles
const (
	RoleAlumni     = "ALUMNI"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPERADMIN"
)

// Dashboards are the SPA routes each role lands on after signing in.
const (
	DashboardAlumni     = "/profile"
	DashboardAdmin      = "/admin"
	DashboardSuperAdmin = "/superadmin"
)

var (
	AllRoles = []string{RoleSuperAdmin, RoleAdmin, RoleAlumni}

	rolePriorities = map[string]int{
		RoleSuperAdmin: 30,
		RoleAdmin:      20,
		RoleAlumni:     1,
	}

	Roles = []Role{
		{Name: "Alumni", Value: RoleAlumni},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Super Admin", Value: RoleSuperAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Alumni struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	EnrollmentYear int       `json:"enrollment_year"`
	GraduationYear int       `json:"graduation_year"`
	Department     string    `json:"department"`
	College        string    `json:"college"`
	Course         string    `json:"course"`
	IsVerified     bool      `json:"is_verified"`
	IsActive       bool      `json:"is_active"`
	Role           string    `json:"role"`
	City           string    `json:"city"`
	Country        string    `json:"country"`
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	PasswordHash   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
	LastLogin      time.Time `json:"last_login"` // UTC
}

func (a *Alumni) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Alumni) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// HasRole reports whether a's role is at least as privileged as role.
func (a *Alumni) HasRole(role string) bool {
	return RolePriority(a.Role) >= RolePriority(role)
}

func (a *Alumni) IsAdmin() bool      { return a.HasRole(RoleAdmin) }
func (a *Alumni) IsSuperAdmin() bool { return a.HasRole(RoleSuperAdmin) }

// CanManage reports whether a may verify, deactivate, delete or re-role other.
func (a *Alumni) CanManage(other Alumni) bool {
	return a.ID != other.ID && RolePriority(a.Role) > RolePriority(other.Role)
}

func (a *Alumni) HasLocation() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Dashboard returns the SPA route a should be redirected to after signing in.
func (a *Alumni) Dashboard() string {
	switch {
	case a.IsSuperAdmin():
		return DashboardSuperAdmin
	case a.IsAdmin():
		return DashboardAdmin
	default:
		return DashboardAlumni
	}
}

func (a *Alumni) marker() LocationMarker {
	return LocationMarker{
		ID:             a.ID,
		FullName:       a.FullName,
		Department:     a.Department,
		Course:         a.Course,
		GraduationYear: a.GraduationYear,
		City:           a.City,
		Country:        a.Country,
		Latitude:       *a.Latitude,
		Longitude:      *a.Longitude,
	}
}

// RegistrationDetails holds the registration form. It is validated in full before an OTP is sent.
type RegistrationDetails struct {
	FullName        string   `json:"full_name" validate:"required,max=150"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"required,phone"`
	EnrollmentYear  int      `json:"enrollment_year" validate:"required,min=1900,max=2100"`
	GraduationYear  int      `json:"graduation_year" validate:"required,min=1900,max=2100,gtefield=EnrollmentYear"`
	Department      string   `json:"department" validate:"required,max=150"`
	College         string   `json:"college" validate:"required,max=150"`
	Course          string   `json:"course" validate:"required,max=150"`
	City            string   `json:"city" validate:"max=100"`
	Country         string   `json:"country" validate:"max=100"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rd *RegistrationDetails) clean() {
	rd.FullName = core.CollapseSpaces(rd.FullName)
	rd.Email = core.NormalizeEmail(rd.Email)
	rd.Phone = strings.TrimSpace(rd.Phone)
	rd.Department = core.CollapseSpaces(rd.Department)
	rd.College = core.CollapseSpaces(rd.College)
	rd.Course = core.CollapseSpaces(rd.Course)
	rd.City = core.CollapseSpaces(rd.City)
	rd.Country = core.CollapseSpaces(rd.Country)
}

func (rd *RegistrationDetails) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	rd.clean()
	if err := validate.Struct(rd); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, rd.Email)
}

// NewAlumni contains information needed to create a new Alumni: the registration form and the emailed code.
type NewAlumni struct {
	RegistrationDetails
	OTP string `json:"otp" validate:"required,numeric"`
}

func (na *NewAlumni) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	na.RegistrationDetails.clean()
	na.OTP = strings.TrimSpace(na.OTP)
	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, na.Email)
}

// UpdateProfile defines what information an alumnus may change on their own profile.
// Empty text fields keep their current value.
type UpdateProfile struct {
	FullName        string   `json:"full_name" validate:"max=150"`
	Phone           string   `json:"phone" validate:"omitempty,phone"`
	EnrollmentYear  int      `json:"enrollment_year" validate:"omitempty,min=1900,max=2100"`
	GraduationYear  int      `json:"graduation_year" validate:"omitempty,min=1900,max=2100,gtefield=EnrollmentYear"`
	Department      string   `json:"department" validate:"max=150"`
	College         string   `json:"college" validate:"max=150"`
	Course          string   `json:"course" validate:"max=150"`
	City            string   `json:"city" validate:"max=100"`
	Country         string   `json:"country" validate:"max=100"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	ClearLocation   bool     `json:"clear_location"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	email string // used by the password policy
}

func (up *UpdateProfile) Validate(orig Alumni, validate *validator.Validate) error {
	keep := func(val, origVal string) string {
		if val = core.CollapseSpaces(val); val != "" {
			return val
		}
		return origVal
	}
	up.FullName = keep(up.FullName, orig.FullName)
	up.Phone = keep(up.Phone, orig.Phone)
	up.Department = keep(up.Department, orig.Department)
	up.College = keep(up.College, orig.College)
	up.Course = keep(up.Course, orig.Course)
	up.City = keep(up.City, orig.City)
	up.Country = keep(up.Country, orig.Country)
	if up.EnrollmentYear == 0 {
		up.EnrollmentYear = orig.EnrollmentYear
	}
	if up.GraduationYear == 0 {
		up.GraduationYear = orig.GraduationYear
	}
	if up.ClearLocation {
		up.Latitude, up.Longitude = nil, nil
	} else if up.Latitude == nil && up.Longitude == nil {
		up.Latitude, up.Longitude = orig.Latitude, orig.Longitude
	}
	up.email = orig.Email
	return validate.Struct(up)
}

// AdminUpdate is the set of account flags an admin may change; nil fields are left untouched.
type AdminUpdate struct {
	IsVerified *bool `json:"is_verified"`
	IsActive   *bool `json:"is_active"`
}

type VerifyAlumni struct {
	IDs      []string `json:"ids" validate:"required,min=1,dive,required"`
	Verified *bool    `json:"verified" validate:"required"`
}

func (va *VerifyAlumni) Validate(validate *validator.Validate) error {
	return validate.Struct(va)
}

type SetRole struct {
	Role string `json:"role" validate:"required,oneof=ALUMNI ADMIN SUPERADMIN"`
}

func (sr *SetRole) Validate(validate *validator.Validate) error {
	sr.Role = strings.TrimSpace(sr.Role)
	return validate.Struct(sr)
}

type ResetPassword struct {
	Email           string `json:"email" validate:"required,email"`
	OTP             string `json:"otp" validate:"required,numeric"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	rp.Email = core.NormalizeEmail(rp.Email)
	rp.OTP = strings.TrimSpace(rp.OTP)
	return validate.Struct(rp)
}

// QueryFilter is the admin directory filter. Every set field narrows the result (AND).
// Search does a case-insensitive "contains" match on one of FullName, Email or Course.
// Text fields match case-insensitively.
type QueryFilter struct {
	Search             string    `query:"search"`
	Department         string    `query:"department"`
	College            string    `query:"college"`
	Course             string    `query:"course"`
	Country            string    `query:"country"`
	City               string    `query:"city"`
	Roles              []string  `query:"role"`
	IsVerified         *bool     `query:"is_verified"`
	IsActive           *bool     `query:"is_active"`
	GraduationYearFrom int       `query:"graduation_year_from"`
	GraduationYearTo   int       `query:"graduation_year_to"`
	CreatedFrom        time.Time `query:"created_from"`
	CreatedTo          time.Time `query:"created_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CollapseSpaces(qf.Search)
	qf.Department = core.CollapseSpaces(qf.Department)
	qf.College = core.CollapseSpaces(qf.College)
	qf.Course = core.CollapseSpaces(qf.Course)
	qf.Country = core.CollapseSpaces(qf.Country)
	qf.City = core.CollapseSpaces(qf.City)
}

// LocationFilter narrows the alumni globe. Search matches FullName, Course, Department, City or Country.
type LocationFilter struct {
	Search         string `query:"search"`
	Department     string `query:"department"`
	College        string `query:"college"`
	Course         string `query:"course"`
	Country        string `query:"country"`
	GraduationYear int    `query:"graduation_year"`
}

func (lf *LocationFilter) Clean() {
	lf.Search = core.CollapseSpaces(lf.Search)
	lf.Department = core.CollapseSpaces(lf.Department)
	lf.College = core.CollapseSpaces(lf.College)
	lf.Course = core.CollapseSpaces(lf.Course)
	lf.Country = core.CollapseSpaces(lf.Country)
}

// LocationMarker is an alumnus as plotted on the globe.
type LocationMarker struct {
	ID             string  `json:"id"`
	FullName       string  `json:"full_name"`
	Department     string  `json:"department"`
	Course         string  `json:"course"`
	GraduationYear int     `json:"graduation_year"`
	City           string  `json:"city"`
	Country        string  `json:"country"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

type StatCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalAlumni         int         `json:"total_alumni"`
	VerifiedAlumni      int         `json:"verified_alumni"`
	PendingVerification int         `json:"pending_verification"`
	LocatedAlumni       int         `json:"located_alumni"`
	Countries           int         `json:"countries"`
	ByCountry           []StatCount `json:"by_country"`
	ByDepartment        []StatCount `json:"by_department"`
	ByGraduationYear    []StatCount `json:"by_graduation_year"`
}

// GetFilter selects a single Alumni by ID or, when ID is empty, by Email.
type GetFilter struct {
	ID    string
	Email string
}

// MailData is the data made available to email templates under `.Data`.
type MailData struct {
	Name      string
	Code      string
	ExpiresIn string
}

// OrderingFields maps the fields the admin directory can be ordered by to their column names.
var OrderingFields = map[string]string{
	"full_name":       "full_name",
	"email":           "email",
	"created_at":      "created_at",
	"graduation_year": "graduation_year",
	"enrollment_year": "enrollment_year",
	"department":      "department",
	"country":         "country",
	"is_verified":     "is_verified",
	"is_active":       "is_active",
	"role":            "role",
}

func yearLabel(year int) string { return strconv.Itoa(year) }
