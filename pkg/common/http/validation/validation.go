package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// IsRequestValid runs struct tag validation and returns a readable message
// listing the violated fields
func IsRequestValid(req any) (bool, string) {
	err := getValidator().Struct(req)
	if err == nil {
		return true, ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false, err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field %s failed on %s", fe.Field(), fe.Tag()))
	}
	return false, strings.Join(msgs, "; ")
}
