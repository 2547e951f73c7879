// Package validation provides input validation for configuration and
// request parameters.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Both return an
// INVALID_INPUT AppError whose details list every failing field.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    High      int64  `mapstructure:"high" validate:"gte=0"`
//	    Transport string `mapstructure:"transport" validate:"oneof=chan pipe"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Min("low", low, 0).Max("high", high, maxHigh)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
