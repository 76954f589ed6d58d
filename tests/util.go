package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
	logsvc "github.com/alumnihub/backend/services/logger"
)

// NewConfig returns the default configuration in test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.Debug = false
	conf.TestMode = true
	conf.SecretKey = "test-secret-key"
	conf.Server.OTPRateLimit = 0
	return conf
}

// NewLogger returns a silent logger that never reports to rollbar.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every custom validator and translation registered.
func NewValidator(logger core.Logger) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	alumni.InitValidators(validate, translator)
	alumni.LoadCommonPasswords(logger)
	return validate, translator
}

// AlumniOption customizes the Alumni created by CreateAlumni.
type AlumniOption func(a *alumni.Alumni)

func Verified() AlumniOption {
	return func(a *alumni.Alumni) { a.IsVerified = true }
}

func Inactive() AlumniOption {
	return func(a *alumni.Alumni) { a.IsActive = false }
}

func CreatedAt(t time.Time) AlumniOption {
	return func(a *alumni.Alumni) {
		a.CreatedAt = t.UTC()
		a.UpdatedAt = t.UTC()
	}
}

func Studies(department, college, course string, enrollmentYear, graduationYear int) AlumniOption {
	return func(a *alumni.Alumni) {
		a.Department = department
		a.College = college
		a.Course = course
		a.EnrollmentYear = enrollmentYear
		a.GraduationYear = graduationYear
	}
}

func Located(city, country string, lat, lng float64) AlumniOption {
	return func(a *alumni.Alumni) {
		a.City = city
		a.Country = country
		a.Latitude = &lat
		a.Longitude = &lng
	}
}

func CreateAlumni(
	t *testing.T,
	repo alumni.Repository,
	name, email, pwd, role string,
	opts ...AlumniOption,
) alumni.Alumni {
	tstamp := time.Now().UTC()
	a := alumni.Alumni{
		FullName:       name,
		Email:          email,
		Phone:          "+243 810 000 000",
		EnrollmentYear: 2010,
		GraduationYear: 2014,
		Department:     "Computer Science",
		College:        "Engineering",
		Course:         "BSc Computer Science",
		IsActive:       true,
		Role:           role,
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	}
	for _, opt := range opts {
		opt(&a)
	}
	if pwd != "" {
		if err := a.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAlumni() failed: %v", err)
		}
	}
	a, err := repo.CreateAlumni(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateAlumni() failed: %v", err)
	}
	return a
}
