// Package validation checks configuration structs and command arguments.
//
// Struct validation uses go-playground/validator tags and reports fields by
// their config key. A "duration" tag accepts strings such as "5s".
//
//	type Config struct {
//	    Timeout string `mapstructure:"timeout" validate:"required,duration"`
//	}
//	err := validation.Validate(cfg)
//
// The programmatic Validator collects errors for loose values:
//
//	err := validation.New().Required("target", target).Validate()
package validation
