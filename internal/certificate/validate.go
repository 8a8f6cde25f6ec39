package certificate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding/charmap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("winansi", isWinANSI); err != nil {
		panic(err)
	}
	return v
}

// isWinANSI holds when every rune can be drawn with the core PDF fonts,
// which only carry the Windows-1252 repertoire. Anything else would be
// printed as a placeholder and no longer hash to the same identifier.
func isWinANSI(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsControl(r) {
			return false
		}
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}

// Validate trims f and checks it against the issuance rules: every member
// present, subject id at most 50 characters, subject name at most 100 and
// course name at most 200. On success the trimmed fields are returned.
//
// Verification never calls this; documents are parsed as rendered.
func Validate(f Fields) (Fields, error) {
	f = f.Trimmed()

	err := validate.Struct(f)
	if err == nil {
		return f, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Fields{}, fmt.Errorf("validate fields: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			problems = append(problems, fmt.Sprintf("%s is too long (max %s characters)", fe.Field(), fe.Param()))
		case "winansi":
			problems = append(problems, fmt.Sprintf("%s contains characters that cannot be printed on the certificate", fe.Field()))
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return Fields{}, &ValidationError{Problems: problems}
}
