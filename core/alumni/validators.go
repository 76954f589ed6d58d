package alumni

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/alumnihub/backend/core"
	appfs "github.com/alumnihub/backend/fs"
)

const (
	locationPairTag = "locpair"

	pwdMinLen = 8
	pwdMaxSim = .7

	commonPasswordsPath = "assets/common-passwords.txt"
)

var (
	specialRegex    = regexp.MustCompile("[^A-Za-z0-9]")
	commonPasswords []string // sorted, lowercase

	// passwordRules run in order; the first broken rule is the one reported.
	passwordRules = []passwordRule{
		{"pwdminlen", fmt.Sprintf("password must contain at least %d characters", pwdMinLen), func(p pwdInfo) bool {
			return p.length >= pwdMinLen
		}},
		{"pwdnospace", "password must not contain whitespace", func(p pwdInfo) bool {
			return !p.hasSpace
		}},
		{"pwdnotallnum", "password cannot be entirely numeric", func(p pwdInfo) bool {
			return p.digits < p.length
		}},
		{"pwdcplx", "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character", func(p pwdInfo) bool {
			return p.hasUpper && p.hasLower && p.digits > 0 && specialRegex.MatchString(p.raw)
		}},
		{"pwdtoosim", "password cannot be similar to your personal information", func(p pwdInfo) bool {
			for _, attr := range p.attrs {
				if passwordTooSimilar(p.lower, strings.ToLower(attr)) {
					return false
				}
			}
			return true
		}},
		{"pwdnocommon", "password is too common", func(p pwdInfo) bool {
			idx := sort.SearchStrings(commonPasswords, p.lower)
			return idx == len(commonPasswords) || commonPasswords[idx] != p.lower
		}},
	}
)

type (
	passwordRule struct {
		tag  string
		text string
		ok   func(pwdInfo) bool
	}

	pwdInfo struct {
		raw, lower         string
		length, digits     int
		hasSpace           bool
		hasUpper, hasLower bool
		attrs              []string // personal information the password must not resemble
	}
)

func newPwdInfo(pwd string, attrs []string) pwdInfo {
	info := pwdInfo{raw: pwd, lower: strings.ToLower(pwd), attrs: attrs}
	for _, r := range pwd {
		info.length++
		switch {
		case unicode.IsSpace(r):
			info.hasSpace = true
		case unicode.IsDigit(r):
			info.digits++
		case unicode.IsUpper(r):
			info.hasUpper = true
		case unicode.IsLower(r):
			info.hasLower = true
		}
	}
	return info
}

// InitValidators registers the alumni validators and their english translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(alumniStructValidation, RegistrationDetails{}, UpdateProfile{}, ResetPassword{})

	core.RegisterTranslation(validate, translator, locationPairTag, "latitude and longitude must be provided together")
	for _, rule := range passwordRules {
		core.RegisterTranslation(validate, translator, rule.tag, rule.text)
	}
}

// LoadCommonPasswords loads the embedded list of passwords refused by the password policy.
func LoadCommonPasswords(logger core.Logger) {
	file, err := appfs.FS.Open(commonPasswordsPath)
	if err != nil {
		logger.Error(fmt.Sprintf("opening %s: %v", commonPasswordsPath, err), errors.WithStack(err))
		return
	}
	defer func() { _ = file.Close() }()

	pwds := make([]string, 0, 200)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.ToLower(strings.TrimSpace(scanner.Text())); pwd != "" {
			pwds = append(pwds, pwd)
		}
	}
	if err = scanner.Err(); err != nil {
		logger.Error(fmt.Sprintf("reading %s: %v", commonPasswordsPath, err), errors.WithStack(err))
		return
	}
	sort.Strings(pwds)
	commonPasswords = pwds
}

// alumniStructValidation does struct level validation on the alumni request structs.
func alumniStructValidation(sl validator.StructLevel) {
	switch req := sl.Current().Interface().(type) {
	case RegistrationDetails:
		validateLocationPair(req.Latitude, req.Longitude, sl)
		if req.Password != "" {
			validatePassword(req.Password, sl, req.FullName, req.Email)
		}
	case UpdateProfile:
		validateLocationPair(req.Latitude, req.Longitude, sl)
		if req.Password != "" {
			validatePassword(req.Password, sl, req.FullName, req.email)
		}
	case ResetPassword:
		if req.Password != "" {
			validatePassword(req.Password, sl, req.Email)
		}
	}
}

// validateLocationPair checks that coordinates are either both set or both empty.
func validateLocationPair(lat, lng *float64, sl validator.StructLevel) {
	if lat == nil && lng != nil {
		sl.ReportError(lat, "latitude", "Latitude", locationPairTag, "")
	} else if lat != nil && lng == nil {
		sl.ReportError(lng, "longitude", "Longitude", locationPairTag, "")
	}
}

// validatePassword reports the first password rule pwd breaks, if any.
func validatePassword(pwd string, sl validator.StructLevel, attrs ...string) {
	info := newPwdInfo(pwd, attrs)
	for _, rule := range passwordRules {
		if !rule.ok(info) {
			sl.ReportError(pwd, "password", "Password", rule.tag, "")
			return
		}
	}
}

func passwordTooSimilar(pwd, attr string) bool {
	if attr == "" {
		return false
	}
	getRatio := func(a, b string) float64 {
		return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).QuickRatio()
	}
	if getRatio(pwd, attr) >= pwdMaxSim {
		return true
	}
	// compare with each part of the attribute too, e.g. the local part of an email or each name
	for _, part := range strings.FieldsFunc(attr, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if len(part) > 2 && getRatio(pwd, part) >= pwdMaxSim {
			return true
		}
	}
	return false
}
