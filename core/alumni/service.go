package alumni

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
)

var (
	// errors
	ErrNotFound    = errors.New("alumni not found")
	ErrEmailExists = errors.New("an account with this email already exists")
)

// Events
const (
	EventRegistered     = "alumni.registered"
	EventProfileUpdated = "alumni.profile_updated"
	EventVerified       = "alumni.verified"
	EventActivated      = "alumni.activated"
	EventRoleChanged    = "alumni.role_changed"
	EventDeleted        = "alumni.deleted"
)

var defaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded []Alumni, exec ...core.DBExecutor) error
		CreateAlumni(ctx context.Context, a Alumni, exec ...core.DBExecutor) (Alumni, error)
		// QueryAlumni applies AND operation on available QueryFilter fields.
		QueryAlumni(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Alumni, error)
		// QueryLocations returns the verified and active Alumni that have coordinates, ordered by full name.
		QueryLocations(ctx context.Context, filter *LocationFilter, exec ...core.DBExecutor) ([]Alumni, error)
		GetAlumni(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Alumni, error)
		GetStats(ctx context.Context, exec ...core.DBExecutor) (Stats, error)
		UpdateAlumni(ctx context.Context, a Alumni, exec ...core.DBExecutor) (Alumni, error)
		UpdateOrCreateAlumni(ctx context.Context, a Alumni, exec ...core.DBExecutor) (Alumni, error)
		DeleteAlumniByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Alumni) error
		SendRegistrationOTP(ctx context.Context, rd RegistrationDetails) error
		Register(ctx context.Context, na NewAlumni) (Alumni, error)
		GetByID(ctx context.Context, id string) (Alumni, error)
		GetByEmail(ctx context.Context, email string) (Alumni, error)
		SetLastLogin(ctx context.Context, a Alumni) (Alumni, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Alumni, error)
		QueryAdmins(ctx context.Context) ([]Alumni, error)
		UpdateProfile(ctx context.Context, a Alumni, up UpdateProfile) (Alumni, error)
		AdminUpdate(ctx context.Context, a Alumni, au AdminUpdate) (Alumni, error)
		SetVerified(ctx context.Context, verified bool, items ...Alumni) ([]Alumni, error)
		SetRole(ctx context.Context, a Alumni, role string) (Alumni, error)
		Delete(ctx context.Context, ids ...string) (int, error)
		Locations(ctx context.Context, filter *LocationFilter) ([]LocationMarker, error)
		Stats(ctx context.Context) (Stats, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetPassword) error
	}

	service struct {
		repo      Repository
		otps      OTPStore
		mailSvc   core.EmailService
		publisher core.EventPublisher
		conf      *core.Config
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	otps OTPStore,
	mailSvc core.EmailService,
	publisher core.EventPublisher,
	conf *core.Config,
	logger core.Logger,
) Service {
	return &service{
		repo:      repo,
		otps:      otps,
		mailSvc:   mailSvc,
		publisher: publisher,
		conf:      conf,
		logger:    logger,
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, excluded ...Alumni) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excluded); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewFieldValidationError("email", ErrEmailExists)
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *service) SendRegistrationOTP(ctx context.Context, rd RegistrationDetails) error {
	return svc.issueOTP(ctx, PurposeRegister, rd.Email, rd.FullName)
}

func (svc *service) Register(ctx context.Context, na NewAlumni) (Alumni, error) {
	if err := svc.verifyOTP(ctx, PurposeRegister, na.Email, na.OTP); err != nil {
		return Alumni{}, err
	}

	now := NowFunc().UTC()
	a := Alumni{
		FullName:       na.FullName,
		Email:          na.Email,
		Phone:          na.Phone,
		EnrollmentYear: na.EnrollmentYear,
		GraduationYear: na.GraduationYear,
		Department:     na.Department,
		College:        na.College,
		Course:         na.Course,
		IsActive:       true,
		Role:           RoleAlumni,
		City:           na.City,
		Country:        na.Country,
		Latitude:       na.Latitude,
		Longitude:      na.Longitude,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.SetPassword(na.Password); err != nil {
		return Alumni{}, errors.Wrap(err, "setting password")
	}

	a, err := svc.repo.CreateAlumni(ctx, a)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Alumni{}, core.NewFieldValidationError("email", ErrEmailExists)
		}
		return Alumni{}, errors.Wrap(err, "creating alumni")
	}
	// the code is spent only once the account exists
	svc.discardOTP(ctx, PurposeRegister, a.Email)

	svc.mailSvc.SendMessages(svc.newMessage(a, "Welcome to "+svc.conf.AppName, "welcome", MailData{Name: a.FullName}))
	svc.publish(ctx, newEvent(EventRegistered, a.ID, a))
	return a, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Alumni, error) {
	return svc.repo.GetAlumni(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Alumni, error) {
	return svc.repo.GetAlumni(ctx, GetFilter{Email: core.NormalizeEmail(email)})
}

func (svc *service) SetLastLogin(ctx context.Context, a Alumni) (Alumni, error) {
	a.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateAlumni(ctx, a)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Alumni, error) {
	ordering = core.MapOrdering(ordering, OrderingFields)
	if len(ordering) == 0 {
		ordering = defaultOrdering
	}
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryAlumni(ctx, filter, ordering)
}

func (svc *service) QueryAdmins(ctx context.Context) ([]Alumni, error) {
	return svc.Query(
		ctx,
		&QueryFilter{Roles: []string{RoleSuperAdmin, RoleAdmin}},
		[]core.DBOrdering{{Field: "role", Ascending: false}, {Field: "full_name", Ascending: true}},
	)
}

func (svc *service) UpdateProfile(ctx context.Context, a Alumni, up UpdateProfile) (Alumni, error) {
	a.FullName = up.FullName
	a.Phone = up.Phone
	a.EnrollmentYear = up.EnrollmentYear
	a.GraduationYear = up.GraduationYear
	a.Department = up.Department
	a.College = up.College
	a.Course = up.Course
	a.City = up.City
	a.Country = up.Country
	a.Latitude = up.Latitude
	a.Longitude = up.Longitude
	a.UpdatedAt = NowFunc().UTC()
	if up.Password != "" {
		if err := a.SetPassword(up.Password); err != nil {
			return Alumni{}, errors.Wrap(err, "setting password")
		}
	}

	a, err := svc.repo.UpdateAlumni(ctx, a)
	if err != nil {
		return Alumni{}, errors.Wrap(err, "updating alumni")
	}
	svc.publish(ctx, newEvent(EventProfileUpdated, a.ID, a))
	return a, nil
}

func (svc *service) AdminUpdate(ctx context.Context, a Alumni, au AdminUpdate) (Alumni, error) {
	var events []core.Event
	wasVerified := a.IsVerified

	if au.IsVerified != nil && *au.IsVerified != a.IsVerified {
		a.IsVerified = *au.IsVerified
		events = append(events, newEvent(EventVerified, a.ID, flagChange{ID: a.ID, Value: a.IsVerified}))
	}
	if au.IsActive != nil && *au.IsActive != a.IsActive {
		a.IsActive = *au.IsActive
		events = append(events, newEvent(EventActivated, a.ID, flagChange{ID: a.ID, Value: a.IsActive}))
	}
	if len(events) == 0 {
		return a, nil
	}

	a.UpdatedAt = NowFunc().UTC()
	a, err := svc.repo.UpdateAlumni(ctx, a)
	if err != nil {
		return Alumni{}, errors.Wrap(err, "updating alumni")
	}

	if !wasVerified && a.IsVerified {
		svc.mailSvc.SendMessages(svc.newMessage(a, "Your alumni status has been verified", "verified", MailData{Name: a.FullName}))
	}
	svc.publish(ctx, events...)
	return a, nil
}

func (svc *service) SetVerified(ctx context.Context, verified bool, items ...Alumni) ([]Alumni, error) {
	updated := make([]Alumni, 0, len(items))
	for _, a := range items {
		a, err := svc.AdminUpdate(ctx, a, AdminUpdate{IsVerified: &verified})
		if err != nil {
			return nil, err
		}
		updated = append(updated, a)
	}
	return updated, nil
}

func (svc *service) SetRole(ctx context.Context, a Alumni, role string) (Alumni, error) {
	if a.Role == role {
		return a, nil
	}
	prev := a.Role
	a.Role = role
	a.UpdatedAt = NowFunc().UTC()

	a, err := svc.repo.UpdateAlumni(ctx, a)
	if err != nil {
		return Alumni{}, errors.Wrap(err, "updating alumni")
	}
	svc.publish(ctx, newEvent(EventRoleChanged, a.ID, roleChange{ID: a.ID, From: prev, To: role}))
	return a, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	cnt, err := svc.repo.DeleteAlumniByID(ctx, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting alumni")
	}

	events := make([]core.Event, 0, len(ids))
	for _, id := range ids {
		events = append(events, newEvent(EventDeleted, id, deletion{ID: id}))
	}
	svc.publish(ctx, events...)
	return cnt, nil
}

func (svc *service) Locations(ctx context.Context, filter *LocationFilter) ([]LocationMarker, error) {
	if filter != nil {
		filter.Clean()
	}
	items, err := svc.repo.QueryLocations(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying locations")
	}
	markers := make([]LocationMarker, 0, len(items))
	for _, a := range items {
		if a.HasLocation() {
			markers = append(markers, a.marker())
		}
	}
	return markers, nil
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	st, err := svc.repo.GetStats(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "computing stats")
	}
	return st, nil
}

// RequestPasswordReset emails a password reset code to the active account registered with email.
// It returns ErrNotFound when there is no such account.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	a, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !a.IsActive {
		return ErrNotFound
	}
	return svc.issueOTP(ctx, PurposePasswordReset, a.Email, a.FullName)
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	a, err := svc.GetByEmail(ctx, rp.Email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewFieldValidationError("otp", ErrOTPInvalid) // do not reveal unknown emails
		}
		return errors.Wrap(err, "finding alumni by email")
	}
	if err = svc.verifyOTP(ctx, PurposePasswordReset, a.Email, rp.OTP); err != nil {
		return err
	}
	if err = svc.consumeOTP(ctx, PurposePasswordReset, a.Email); err != nil {
		return err
	}

	if err = a.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	a.UpdatedAt = NowFunc().UTC()
	if _, err = svc.repo.UpdateAlumni(ctx, a); err != nil {
		return errors.Wrap(err, "updating alumni")
	}
	return nil
}

// issueOTP generates a new code for (purpose, email), replacing any previous one, and emails it.
func (svc *service) issueOTP(ctx context.Context, purpose, email, name string) error {
	now := NowFunc().UTC()

	prev, err := svc.otps.GetOTP(ctx, purpose, email)
	switch {
	case err == nil:
		if now.Before(prev.SentAt.Add(svc.conf.OTP.ResendCooldown)) {
			return ErrOTPCooldown
		}
	case errors.Cause(err) != ErrOTPNotFound:
		return errors.Wrap(err, "getting previous otp")
	}

	code, err := GenerateOTPCode(svc.conf.OTP.Length)
	if err != nil {
		return err
	}
	digest, err := digestOTP(svc.conf.SecretKey, purpose, email, code)
	if err != nil {
		return errors.Wrap(err, "signing otp")
	}

	rec := OTPRecord{
		Purpose:   purpose,
		Email:     email,
		Digest:    digest,
		SentAt:    now,
		ExpiresAt: now.Add(svc.conf.OTP.TTL),
	}
	// keep expired records around for a while so that late submissions get "code expired"
	retention := 2 * svc.conf.OTP.TTL
	if retention < svc.conf.OTP.ResendCooldown {
		retention = svc.conf.OTP.ResendCooldown
	}
	if err = svc.otps.SaveOTP(ctx, rec, retention); err != nil {
		return errors.Wrap(err, "saving otp")
	}

	subject, tmpl := "Your verification code", "otp"
	if purpose == PurposePasswordReset {
		subject, tmpl = "Reset your password", "password_reset"
	}
	svc.mailSvc.SendMessages(svc.newMessage(
		Alumni{FullName: name, Email: email},
		subject,
		tmpl,
		MailData{Name: name, Code: code, ExpiresIn: humanizeDuration(svc.conf.OTP.TTL)},
	))
	return nil
}

// verifyOTP checks code against the record issued for (purpose, email) without consuming it.
// Failures are returned as a validation error on the "otp" field.
func (svc *service) verifyOTP(ctx context.Context, purpose, email, code string) error {
	rec, err := svc.otps.GetOTP(ctx, purpose, email)
	if err != nil {
		if errors.Cause(err) == ErrOTPNotFound {
			return core.NewFieldValidationError("otp", ErrOTPInvalid)
		}
		return errors.Wrap(err, "getting otp")
	}

	if NowFunc().After(rec.ExpiresAt) {
		svc.discardOTP(ctx, purpose, email)
		return core.NewFieldValidationError("otp", ErrOTPExpired)
	}
	if rec.Attempts >= svc.conf.OTP.MaxAttempts {
		svc.discardOTP(ctx, purpose, email)
		return core.NewFieldValidationError("otp", ErrOTPExhausted)
	}

	if !checkOTPDigest(svc.conf.SecretKey, rec, code) {
		attempts, err := svc.otps.IncrementOTPAttempts(ctx, purpose, email)
		if err != nil {
			return errors.Wrap(err, "incrementing otp attempts")
		}
		if attempts >= svc.conf.OTP.MaxAttempts {
			svc.discardOTP(ctx, purpose, email)
			return core.NewFieldValidationError("otp", ErrOTPExhausted)
		}
		return core.NewFieldValidationError("otp", ErrOTPInvalid)
	}

	return nil
}

// consumeOTP deletes the record for (purpose, email). It fails when another request already consumed it.
func (svc *service) consumeOTP(ctx context.Context, purpose, email string) error {
	deleted, err := svc.otps.DeleteOTP(ctx, purpose, email)
	if err != nil {
		return errors.Wrap(err, "consuming otp")
	}
	if !deleted {
		return core.NewFieldValidationError("otp", ErrOTPInvalid)
	}
	return nil
}

func (svc *service) discardOTP(ctx context.Context, purpose, email string) {
	if _, err := svc.otps.DeleteOTP(ctx, purpose, email); err != nil {
		svc.logger.Error(fmt.Sprintf("deleting otp: %v", err), err)
	}
}

func (svc *service) newMessage(to Alumni, subject, tmpl string, data MailData) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: to.FullName, Address: to.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	}
}

// publish logs publishing failures: events are notifications and must not fail the request.
func (svc *service) publish(ctx context.Context, events ...core.Event) {
	if err := svc.publisher.Publish(ctx, events...); err != nil {
		svc.logger.Error(fmt.Sprintf("publishing events: %v", err), err)
	}
}

type (
	flagChange struct {
		ID    string `json:"id"`
		Value bool   `json:"value"`
	}

	deletion struct {
		ID string `json:"id"`
	}

	roleChange struct {
		ID   string `json:"id"`
		From string `json:"from"`
		To   string `json:"to"`
	}
)

func newEvent(typ, key string, data interface{}) core.Event {
	return core.Event{Type: typ, Key: key, OccurredAt: NowFunc().UTC(), Data: data}
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h > 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute:
		if m := int(d / time.Minute); m > 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	default:
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
}
