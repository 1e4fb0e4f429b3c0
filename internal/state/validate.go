package state

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ColorTag validates the hex colors the rasterizer can parse: #rgb, #rrggbb
// and #rrggbbaa. The stock hexcolor tag also admits #rgba, which renders as
// black.
const ColorTag = "drawcolor"

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

func ValidColor(s string) bool {
	return colorPattern.MatchString(s)
}

// NewValidator returns a validator that understands ColorTag.
func NewValidator() *validator.Validate {
	v := validator.New()
	lo.Must0(v.RegisterValidation(ColorTag, func(fl validator.FieldLevel) bool {
		return ValidColor(fl.Field().String())
	}))
	return v
}
