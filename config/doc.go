// Package config loads the balancer configuration from config.yaml and
// environment variables: listen address and idle timeout, server list file,
// probe settings, selection strategy, error page overrides, the optional
// metrics endpoint and logging.
package config
