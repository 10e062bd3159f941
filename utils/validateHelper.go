package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct checks `validate:"..."` tags on operation inputs.
// Only document operations with genuinely required params use this; the
// generic CRUD path stays lenient on purpose.
func ValidateStruct(s any) error {
	return validate.Struct(s)
}
