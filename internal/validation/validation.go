// Package validation registers the request rules that gin's binding cannot
// express with built-in tags and turns validator errors into client details.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	bannerSizePattern = regexp.MustCompile(`^\d+[x×]\d+$`)
	hexColorPattern   = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg", ".ico", ".tiff", ".tif"}
)

// IsBannerSize accepts "1800x600" and "1800×600", ignoring whitespace.
func IsBannerSize(s string) bool {
	return bannerSizePattern.MatchString(whitespacePattern.ReplaceAllString(s, ""))
}

// IsHexColor accepts six-digit #RRGGBB colors only.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// IsImageURL checks the path (query string ignored) for a known image extension.
func IsImageURL(s string) bool {
	path := strings.ToLower(strings.SplitN(s, "?", 2)[0])
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Register installs the custom tags on v.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	rules := map[string]func(string) bool{
		"bannersize": IsBannerSize,
		"hexcolor6":  IsHexColor,
		"imageurl":   IsImageURL,
	}
	for tag, fn := range rules {
		fn := fn
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
		if err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

var registerOnce sync.Once

// RegisterWithGin installs the custom tags on gin's default validator. Safe to
// call more than once.
func RegisterWithGin() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := Register(v); err != nil {
				panic(err)
			}
		}
	})
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// FieldError is one client-facing validation problem.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Details converts a binding error into FieldErrors. Errors that are not
// validator errors (malformed JSON, wrong types) become a single entry.
func Details(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return []FieldError{{Field: typeErr.Field, Message: fmt.Sprintf("must be of type %s", typeErr.Type)}}
		}
		return []FieldError{{Field: "body", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Message: message(fe)})
	}
	return out
}

// fieldPath drops the struct type prefix from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be %s characters or less", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return "must be a positive integer"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "bannersize":
		return `must be in format "width×height" or "widthxheight" (e.g., "1800×600" or "1800x600")`
	case "hexcolor6":
		return "must be a valid hex code"
	case "imageurl":
		return "must be an image URL"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
