// Package config loads the facility service configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// GRAYLOGIC_* environment variables. Validate reports every problem at
// once so a bad deployment fails with one complete message.
//
// Keep secrets (JWT secret, broker and InfluxDB credentials) out of the
// file and supply them through the environment.
//
//	cfg, err := config.Load(os.Getenv("GRAYLOGIC_CONFIG"))
//	if err != nil {
//	    return err
//	}
//	interval := cfg.CompileInterval()
package config
