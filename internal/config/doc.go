// Package config loads the server configuration with viper.
//
// Every setting has a key usable in a YAML config file, a cobra flag of the
// same name and an environment variable (for example backend-url,
// --backend-url and BOOKING_API_URL). PORT is honored as ":PORT" when no
// listen address is configured explicitly.
package config
