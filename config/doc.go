// Package config loads the declarative server configuration and resolves it
// into exactly one deployment Variant.
//
// The document is "{app_name}.yaml" (or .yml, .toml, .json) in the working
// directory, falling back to "/etc/{app_name}.<ext>". It is parsed with
// Viper; unknown keys are ignored.
//
// # Usage
//
//	values, err := config.Load(ctx, "billing")
//	if err != nil {
//		return err // *errors.AppError with a CONFIG_* or MISSING_FIELD code
//	}
//	variant := values.Variant()
//
// Applications that carry their own settings embed Values:
//
//	type AppConfig struct {
//		config.Values `mapstructure:",squash"`
//		Greeting string `mapstructure:"greeting"`
//	}
//
//	var cfg AppConfig
//	err := config.LoadInto(ctx, "billing", &cfg)
package config
