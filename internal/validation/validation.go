// Package validation binds the captcha rule to go-playground/validator as the
// "recaptcha" struct tag and translates violations for the caller's locale.
package validation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	de_translations "github.com/go-playground/validator/v10/translations/de"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
	"golang.org/x/text/language"

	"github.com/qolzam/telar/apps/recaptcha/internal/captcha"
	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
)

// Tag is the struct tag that applies the captcha rule to a field.
const Tag = "recaptcha"

// DefaultLocale is used when no requested language is supported.
const DefaultLocale = "en"

// translation keys per violation code
const (
	keyIsTrue      = "recaptcha"
	keyInvalidHost = "recaptcha_host"
)

var catalog = map[string]map[string]string{
	"en": {
		keyIsTrue:      captcha.DefaultMessage,
		keyInvalidHost: captcha.DefaultInvalidHostMessage,
	},
	"fr": {
		keyIsTrue:      "Cette valeur n'est pas un captcha valide.",
		keyInvalidHost: "Le captcha n'a pas été résolu sur le bon domaine.",
	},
	"de": {
		keyIsTrue:      "Dieser Wert ist kein gültiges Captcha.",
		keyInvalidHost: "Das Captcha wurde nicht auf der richtigen Domain gelöst.",
	},
}

var supported = language.NewMatcher([]language.Tag{language.English, language.French, language.German})

type ctxKey uint8

const stateKey ctxKey = iota

// state carries the current request into the tag function and collects what
// it found, since validator tag functions can only answer true or false.
// Violations are kept in the order the validator visited the fields, which is
// also the order of the resulting field errors, so nested fields sharing a
// name stay apart.
type state struct {
	req captcha.Request

	mu         sync.Mutex
	violations []recorded
	err        error
}

type recorded struct {
	field     string
	violation *captcha.Violation
}

func (s *state) record(field string, v *captcha.Violation, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v != nil {
		s.violations = append(s.violations, recorded{field: field, violation: v})
	}
	if err != nil && s.err == nil {
		s.err = err
	}
}

// next pops the earliest violation recorded for field.
func (s *state) next(field string) *captcha.Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.violations {
		if r.field == field {
			s.violations = append(s.violations[:i], s.violations[i+1:]...)
			return r.violation
		}
	}
	return nil
}

// Service validates structs with the captcha tag registered.
type Service struct {
	validate   *validator.Validate
	uni        *ut.UniversalTranslator
	rule       *captcha.IsTrueValidator
	constraint captcha.IsTrue
}

// New builds a validator whose "recaptcha" tag runs rule with constraint.
func New(rule *captcha.IsTrueValidator, constraint captcha.IsTrue) (*Service, error) {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc, fr.New(), de.New())

	v := validator.New(validator.WithRequiredStructEnabled())

	// prefer json tag names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag == "" {
			return fld.Name
		}
		return tag
	})

	s := &Service{validate: v, uni: uni, rule: rule, constraint: constraint}

	if err := v.RegisterValidationCtx(Tag, s.checkCaptcha); err != nil {
		return nil, err
	}

	defaults := map[string]func(*validator.Validate, ut.Translator) error{
		"en": en_translations.RegisterDefaultTranslations,
		"fr": fr_translations.RegisterDefaultTranslations,
		"de": de_translations.RegisterDefaultTranslations,
	}
	for locale, register := range defaults {
		trans, _ := uni.GetTranslator(locale)
		if err := register(v, trans); err != nil {
			return nil, err
		}
		if err := registerCaptcha(v, trans, catalog[locale]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func registerCaptcha(v *validator.Validate, trans ut.Translator, messages map[string]string) error {
	if err := trans.Add(keyInvalidHost, messages[keyInvalidHost], true); err != nil {
		return err
	}
	return v.RegisterTranslation(Tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(keyIsTrue, messages[keyIsTrue], true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(keyIsTrue)
			return msg
		},
	)
}

func (s *Service) checkCaptcha(ctx context.Context, fl validator.FieldLevel) bool {
	st, _ := ctx.Value(stateKey).(*state)
	if st == nil {
		// no request bound: nothing to verify against
		return !s.rule.Enabled()
	}
	value := ""
	if fl.Field().Kind() == reflect.String {
		value = fl.Field().String()
	}
	v, err := s.rule.Validate(ctx, st.req, value, s.constraint)
	st.record(fl.StructFieldName(), v, err)
	return v == nil && err == nil
}

// ValidateStruct validates obj for req and returns violations translated for
// locales, an Accept-Language style list. A non-nil error means the rule was
// misused, not that validation failed.
func (s *Service) ValidateStruct(ctx context.Context, req captcha.Request, obj any, locales string) ([]captcha.Violation, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st := &state{req: req}
	err := s.validate.StructCtx(context.WithValue(ctx, stateKey, st), obj)
	if st.err != nil {
		return nil, st.err
	}
	if err == nil {
		return nil, nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil, invalid
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}

	locale := s.Locale(locales)
	trans, _ := s.uni.GetTranslator(locale)

	out := make([]captcha.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() != Tag {
			out = append(out, captcha.Violation{
				Code:    strings.ToUpper(fe.Tag()) + "_ERROR",
				Message: fe.Translate(trans),
				Field:   fe.Field(),
			})
			continue
		}
		out = append(out, s.translateCaptcha(trans, locale, fe, st.next(fe.StructField())))
	}
	return out, nil
}

func (s *Service) translateCaptcha(trans ut.Translator, locale string, fe validator.FieldError, v *captcha.Violation) captcha.Violation {
	if v == nil {
		// the rule rejected without recording, e.g. no request was bound
		return captcha.Violation{Code: captcha.IsTrueErrorCode, Message: fe.Translate(trans), Field: fe.Field()}
	}
	out := captcha.Violation{Code: v.Code, Message: v.Message, Field: fe.Field()}
	if locale == DefaultLocale {
		// configured messages are written in the default locale
		return out
	}
	key := keyIsTrue
	if v.Code == captcha.InvalidHostErrorCode {
		key = keyInvalidHost
	}
	if msg, err := trans.T(key); err == nil {
		out.Message = msg
	} else {
		log.Warn("[Validation] missing %s translation for %s: %v", key, locale, err)
	}
	return out
}

// Locale picks the best supported locale for an Accept-Language value.
func (s *Service) Locale(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, idx, confidence := supported.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	return []string{"en", "fr", "de"}[idx]
}
