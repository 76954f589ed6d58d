package tests

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/alumnihub/backend/apps/api/echo"
	"github.com/alumnihub/backend/core/alumni"
	emailsvc "github.com/alumnihub/backend/services/email"
	testutil "github.com/alumnihub/backend/tests"
)

const reqMsg = "this field is required"

func registrationDetails(email string) alumni.RegistrationDetails {
	lat, lng := -4.3217, 15.3125
	return alumni.RegistrationDetails{
		FullName:        "Grace Mbuyi",
		Email:           email,
		Phone:           "+243 810 000 001",
		EnrollmentYear:  2012,
		GraduationYear:  2016,
		Department:      "Computer Science",
		College:         "Engineering",
		Course:          "BSc Computer Science",
		City:            "Kinshasa",
		Country:         "DR Congo",
		Latitude:        &lat,
		Longitude:       &lng,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	}
}

func newAlumni(email, otp string) alumni.NewAlumni {
	return alumni.NewAlumni{RegistrationDetails: registrationDetails(email), OTP: otp}
}

func sendOTP(t *testing.T, rd alumni.RegistrationDetails) {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/api/auth/send-otp", marchallObj(t, rd))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_accountApi_sendOTP(t *testing.T) {
	reset(t)
	fixOTPCode(t, "482913")

	existing := testutil.CreateAlumni(t, alumniRepo, "Jean Kabila", "jean@test.cd", testPassword, alumni.RoleAlumni)

	invalid := registrationDetails("lol")
	invalid.Phone = "call me"
	invalid.Latitude = nil
	invalid.Password = "12345678"
	invalid.PasswordConfirm = "87654321"

	weak := registrationDetails("grace@test.cd")
	weak.Password, weak.PasswordConfirm = "lol", "lol"

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"full_name":        reqMsg,
				"email":            reqMsg,
				"phone":            reqMsg,
				"enrollment_year":  reqMsg,
				"graduation_year":  reqMsg,
				"department":       reqMsg,
				"college":          reqMsg,
				"course":           reqMsg,
				"password":         reqMsg,
				"password_confirm": reqMsg,
			}),
		},
		{
			name: "empty object", wantCode: http.StatusBadRequest, body: []byte(`{}`),
			wantData: marchallObj(t, map[string]string{
				"full_name":        reqMsg,
				"email":            reqMsg,
				"phone":            reqMsg,
				"enrollment_year":  reqMsg,
				"graduation_year":  reqMsg,
				"department":       reqMsg,
				"college":          reqMsg,
				"course":           reqMsg,
				"password":         reqMsg,
				"password_confirm": reqMsg,
			}),
		},
		{
			name: "invalid fields", wantCode: http.StatusBadRequest, body: marchallObj(t, invalid),
			wantData: marchallObj(t, map[string]string{
				"email":            "email must be a valid email address",
				"phone":            "phone must be a valid phone number",
				"latitude":         "latitude and longitude must be provided together",
				"password":         "password cannot be entirely numeric",
				"password_confirm": "password_confirm must be equal to Password",
			}),
		},
		{
			name: "weak password", wantCode: http.StatusBadRequest, body: marchallObj(t, weak),
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "email exists", wantCode: http.StatusBadRequest, body: marchallObj(t, registrationDetails(strings.ToUpper(existing.Email))),
			wantData: marchallObj(t, map[string]string{"email": "an account with this email already exists"}),
		},
		{
			name: "code sent", wantCode: http.StatusOK, body: marchallObj(t, registrationDetails(" Grace@Test.cd ")),
			wantData: marchallObj(t, SuccessResponse{Success: "A verification code has been sent to grace@test.cd."}),
			extra:    true, // email sent
		},
		{
			name: "cooldown", wantCode: http.StatusTooManyRequests, body: marchallObj(t, registrationDetails("grace@test.cd")),
			wantData: marchallObj(t, httpErr{Error: "please wait before requesting another code"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/send-otp"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if sent, _ := tt.extra.(bool); sent {
				require.Len(t, emailsvc.SentMessages, 1)
				msg := emailsvc.SentMessages[0]
				assert.Equal(t, "grace@test.cd", msg.To[0].Address)
				assert.Equal(t, "Grace Mbuyi", msg.To[0].Name)
				assert.Contains(t, msg.TextContent, "482913")
				assert.Contains(t, msg.HTMLContent, "482913")
				assert.Contains(t, msg.TextContent, "10 minutes")
			} else {
				assert.Empty(t, emailsvc.SentMessages)
			}
		})
	}
}

func Test_accountApi_sendOTP_afterCooldown(t *testing.T) {
	reset(t)
	fixOTPCode(t, "482913")

	sendOTP(t, registrationDetails("grace@test.cd"))

	alumni.NowFunc = func() time.Time { return time.Now().Add(conf.OTP.ResendCooldown + time.Second) }
	fixOTPCode(t, "111222")
	sendOTP(t, registrationDetails("grace@test.cd"))

	require.Len(t, emailsvc.SentMessages, 2)
	assert.Contains(t, emailsvc.SentMessages[1].TextContent, "111222")

	// the first code was replaced
	req, rec := newRequest(http.MethodPost, "/api/auth/register", marchallObj(t, newAlumni("grace@test.cd", "482913")))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"otp": "invalid code"}),
	}, rec)
}

func Test_accountApi_register(t *testing.T) {
	reset(t)
	fixOTPCode(t, "482913")

	sendOTP(t, registrationDetails("grace@test.cd"))
	emailsvc.ResetSentMessages()

	tests := []httpTest{
		{
			name: "otp required", wantCode: http.StatusBadRequest, body: marchallObj(t, newAlumni("grace@test.cd", "")),
			wantData: marchallObj(t, map[string]string{"otp": reqMsg}),
		},
		{
			name: "otp not numeric", wantCode: http.StatusBadRequest, body: marchallObj(t, newAlumni("grace@test.cd", "abcdef")),
			wantData: marchallObj(t, map[string]string{"otp": "otp must be a valid numeric value"}),
		},
		{
			name: "wrong code", wantCode: http.StatusBadRequest, body: marchallObj(t, newAlumni("grace@test.cd", "000000")),
			wantData: marchallObj(t, map[string]string{"otp": "invalid code"}),
		},
		{
			name: "no code sent to this email", wantCode: http.StatusBadRequest, body: marchallObj(t, newAlumni("other@test.cd", "482913")),
			wantData: marchallObj(t, map[string]string{"otp": "invalid code"}),
		},
		{name: "registered", wantCode: http.StatusCreated, body: marchallObj(t, newAlumni("grace@test.cd", "482913"))},
		{
			name: "already registered", wantCode: http.StatusBadRequest, body: marchallObj(t, newAlumni("grace@test.cd", "482913")),
			wantData: marchallObj(t, map[string]string{"email": "an account with this email already exists"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode != http.StatusCreated {
				return
			}
			var resp RegisterResponse
			unmarshal(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, alumni.DashboardAlumni, resp.Dashboard)
			assert.NotEmpty(t, resp.Alumni.ID)
			assert.Equal(t, "Grace Mbuyi", resp.Alumni.FullName)
			assert.Equal(t, "grace@test.cd", resp.Alumni.Email)
			assert.Equal(t, alumni.RoleAlumni, resp.Alumni.Role)
			assert.False(t, resp.Alumni.IsVerified)
			assert.True(t, resp.Alumni.IsActive)
			require.NotNil(t, resp.Alumni.Latitude)
			assert.Equal(t, -4.3217, *resp.Alumni.Latitude)
			assert.NotContains(t, rec.Body.String(), "password")

			stored, err := alumniRepo.GetAlumni(req.Context(), alumni.GetFilter{ID: resp.Alumni.ID})
			require.NoError(t, err)
			assert.NoError(t, stored.CheckPassword(testPassword))

			assert.Equal(t, []string{alumni.EventRegistered}, publisher.Types())
			require.Len(t, emailsvc.SentMessages, 1)
			assert.Equal(t, "grace@test.cd", emailsvc.SentMessages[0].To[0].Address)
		})
	}
}

func Test_accountApi_register_expiredCode(t *testing.T) {
	reset(t)
	fixOTPCode(t, "482913")

	sendOTP(t, registrationDetails("grace@test.cd"))
	alumni.NowFunc = func() time.Time { return time.Now().Add(conf.OTP.TTL + time.Minute) }

	tests := []httpTest{
		{name: "expired", wantData: marchallObj(t, map[string]string{"otp": "code expired"})},
		{name: "discarded", wantData: marchallObj(t, map[string]string{"otp": "invalid code"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/register"
		tt.body = marchallObj(t, newAlumni("grace@test.cd", "482913"))
		tt.wantCode = http.StatusBadRequest

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_register_exhaustedCode(t *testing.T) {
	reset(t)
	fixOTPCode(t, "482913")

	sendOTP(t, registrationDetails("grace@test.cd"))

	register := func(code string) httpTest {
		req, rec := newRequest(http.MethodPost, "/api/auth/register", marchallObj(t, newAlumni("grace@test.cd", code)))
		app.ServeHTTP(rec, req)
		return httpTest{wantCode: rec.Code, wantData: rec.Body.Bytes()}
	}

	invalid := marchallObj(t, map[string]string{"otp": "invalid code"})
	for i := 1; i < conf.OTP.MaxAttempts; i++ {
		res := register("000000")
		assert.Equal(t, http.StatusBadRequest, res.wantCode)
		assert.JSONEq(t, string(invalid), string(res.wantData), "attempt %d", i)
	}

	res := register("000000")
	assert.Equal(t, http.StatusBadRequest, res.wantCode)
	assert.JSONEq(t, `{"otp": "too many attempts, request a new code"}`, string(res.wantData))

	// the right code is useless once the record is discarded
	res = register("482913")
	assert.Equal(t, http.StatusBadRequest, res.wantCode)
	assert.JSONEq(t, string(invalid), string(res.wantData))
}

func Test_accountApi_login(t *testing.T) {
	reset(t)

	graduate := testutil.CreateAlumni(t, alumniRepo, "Grace Mbuyi", "grace@test.cd", testPassword, alumni.RoleAlumni)
	admin := testutil.CreateAlumni(t, alumniRepo, "Admin", "admin@test.cd", testPassword, alumni.RoleAdmin)
	superAdmin := testutil.CreateAlumni(t, alumniRepo, "Super", "super@test.cd", testPassword, alumni.RoleSuperAdmin)
	testutil.CreateAlumni(t, alumniRepo, "N Dog", "ndog@test.cd", testPassword, alumni.RoleAlumni, testutil.Inactive())

	failed := marchallObj(t, httpErr{Error: "authentication failed"})
	login := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": reqMsg, "password": reqMsg}),
		},
		{name: "unknown email", wantCode: http.StatusBadRequest, body: login("lol@test.cd", testPassword), wantData: failed},
		{name: "wrong password", wantCode: http.StatusBadRequest, body: login(graduate.Email, "lol"), wantData: failed},
		{
			name: "deactivated account", wantCode: http.StatusForbidden, body: login("ndog@test.cd", testPassword),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "alumni", wantCode: http.StatusOK, body: login(" GRACE@test.cd", testPassword), extra: graduate},
		{name: "admin", wantCode: http.StatusOK, body: login(admin.Email, testPassword), extra: admin},
		{name: "superadmin", wantCode: http.StatusOK, body: login(superAdmin.Email, testPassword), extra: superAdmin},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if a, ok := tt.extra.(alumni.Alumni); ok {
				var resp LoginResponse
				unmarshal(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, a.Dashboard(), resp.Dashboard)

				stored, err := alumniRepo.GetAlumni(req.Context(), alumni.GetFilter{ID: a.ID})
				require.NoError(t, err)
				assert.False(t, stored.LastLogin.IsZero())
			}
		})
	}
}

func Test_accountApi_refreshToken(t *testing.T) {
	reset(t)

	naughty := testutil.CreateAlumni(t, alumniRepo, "N Dog", "ndog@test.cd", "", alumni.RoleAlumni, testutil.Inactive())
	graduate := testutil.CreateAlumni(t, alumniRepo, "Grace Mbuyi", "grace@test.cd", "", alumni.RoleAlumni)
	ghost := alumni.Alumni{ID: "9b2f3a57-0d5c-4c86-8a4e-3c1f5d7e9a10", Email: "ghost@test.cd", Role: alumni.RoleAlumni}

	unrefreshable := GetUserClaims(conf, graduate, time.Now().Add(-2*conf.Server.JWTRefreshExpirationDelta).Unix())
	unrefreshableToken, err := GenerateToken(conf, unrefreshable)
	require.NoError(t, err)

	expired := GetUserClaims(conf, graduate)
	expired.ExpiresAt.Time = time.Now().Add(-time.Minute)
	expiredToken, err := GenerateToken(conf, expired)
	require.NoError(t, err)

	otherConf := *conf
	otherConf.SecretKey = "not-the-secret-key"
	forgedToken, err := GenerateToken(&otherConf, GetUserClaims(&otherConf, graduate))
	require.NoError(t, err)

	invalidJWT := marchallObj(t, httpErr{Error: "invalid or expired jwt"})
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Garbage token", token: "lol", wantCode: http.StatusUnauthorized, wantData: invalidJWT},
		{name: "Expired token", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: invalidJWT},
		{name: "Bad signature", token: forgedToken, wantCode: http.StatusUnauthorized, wantData: invalidJWT},
		{
			name: "Deleted user", token: getToken(t, ghost), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, graduate), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code)
				var resp LoginResponse
				unmarshal(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, alumni.DashboardAlumni, resp.Dashboard)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_me(t *testing.T) {
	reset(t)

	graduate := testutil.CreateAlumni(t, alumniRepo, "Grace Mbuyi", "grace@test.cd", "", alumni.RoleAlumni)
	admin := testutil.CreateAlumni(t, alumniRepo, "Admin", "admin@test.cd", "", alumni.RoleAdmin)
	superAdmin := testutil.CreateAlumni(t, alumniRepo, "Super", "super@test.cd", "", alumni.RoleSuperAdmin)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "alumni", token: getToken(t, graduate), wantCode: http.StatusOK,
			wantData: marchallObj(t, MeResponse{Alumni: graduate, Dashboard: "/profile"}),
		},
		{
			name: "admin", token: getToken(t, admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, MeResponse{Alumni: admin, Dashboard: "/admin"}),
		},
		{
			name: "superadmin", token: getToken(t, superAdmin), wantCode: http.StatusOK,
			wantData: marchallObj(t, MeResponse{Alumni: superAdmin, Dashboard: "/superadmin"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/auth/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_resetPassword(t *testing.T) {
	reset(t)
	fixOTPCode(t, "730519")

	graduate := testutil.CreateAlumni(t, alumniRepo, "Grace Mbuyi", "grace@test.cd", testPassword, alumni.RoleAlumni)
	testutil.CreateAlumni(t, alumniRepo, "N Dog", "ndog@test.cd", testPassword, alumni.RoleAlumni, testutil.Inactive())

	successData := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with a code to reset your password.",
	})

	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": reqMsg})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, PasswordResetRequest{Email: "lol@test.cd"}),
			wantData: successData, extra: false,
		},
		{
			name: "deactivated account", wantCode: http.StatusOK, body: marchallObj(t, PasswordResetRequest{Email: "ndog@test.cd"}),
			wantData: successData, extra: false,
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, PasswordResetRequest{Email: graduate.Email}),
			wantData: successData, extra: true,
		},
		{
			name: "known email within cooldown", wantCode: http.StatusOK, body: marchallObj(t, PasswordResetRequest{Email: graduate.Email}),
			wantData: successData, extra: false,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if sent, ok := tt.extra.(bool); ok {
				if sent {
					require.Len(t, emailsvc.SentMessages, 1)
					msg := emailsvc.SentMessages[0]
					assert.Equal(t, graduate.Email, msg.To[0].Address)
					assert.Contains(t, msg.TextContent, graduate.FullName)
					assert.Contains(t, msg.HTMLContent, graduate.FullName)
					assert.Contains(t, msg.TextContent, "730519")
					assert.Contains(t, msg.HTMLContent, "730519")
				} else {
					assert.Empty(t, emailsvc.SentMessages)
				}
			}
		})
	}
}

func Test_accountApi_confirmPasswordReset(t *testing.T) {
	reset(t)
	fixOTPCode(t, "730519")

	graduate := testutil.CreateAlumni(t, alumniRepo, "Grace Mbuyi", "grace@test.cd", testPassword, alumni.RoleAlumni)
	newPassword := "Kwet@2030!sun"

	req, rec := newRequest(http.MethodPost, "/api/auth/password-reset", marchallObj(t, PasswordResetRequest{Email: graduate.Email}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	confirm := func(email, otp, pwd, pwdConfirm string) []byte {
		return marchallObj(t, alumni.ResetPassword{Email: email, OTP: otp, Password: pwd, PasswordConfirm: pwdConfirm})
	}

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": reqMsg, "otp": reqMsg, "password": reqMsg, "password_confirm": reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest, body: confirm(graduate.Email, "730519", "lol", "lol"),
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "invalid pwd: complexity", wantCode: http.StatusBadRequest, body: confirm(graduate.Email, "730519", "lol12345", "lol12345"),
			wantData: marchallObj(t, map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			}),
		},
		{
			name: "invalid pwd: too common", wantCode: http.StatusBadRequest, body: confirm(graduate.Email, "730519", "P@$$w0rd", "P@$$w0rd"),
			wantData: marchallObj(t, map[string]string{"password": "password is too common"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest, body: confirm(graduate.Email, "730519", newPassword, "lol"),
			wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "unknown email", wantCode: http.StatusBadRequest, body: confirm("lol@test.cd", "730519", newPassword, newPassword),
			wantData: marchallObj(t, map[string]string{"otp": "invalid code"}),
		},
		{
			name: "wrong code", wantCode: http.StatusBadRequest, body: confirm(graduate.Email, "000000", newPassword, newPassword),
			wantData: marchallObj(t, map[string]string{"otp": "invalid code"}),
		},
		{
			name: "valid code", wantCode: http.StatusOK, body: confirm(graduate.Email, "730519", newPassword, newPassword),
			wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "code is single use", wantCode: http.StatusBadRequest, body: confirm(graduate.Email, "730519", newPassword, newPassword),
			wantData: marchallObj(t, map[string]string{"otp": "invalid code"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				stored, err := alumniRepo.GetAlumni(req.Context(), alumni.GetFilter{ID: graduate.ID})
				require.NoError(t, err)
				assert.NoError(t, stored.CheckPassword(newPassword))
				assert.Error(t, stored.CheckPassword(testPassword))
			}
		})
	}
}
