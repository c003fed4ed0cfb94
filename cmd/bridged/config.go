package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	socketDir        string
	socketPrefix     string
	pushInterval     time.Duration
	heartbeatTO      time.Duration
	handshakeTO      time.Duration
	readPollTO       time.Duration
	logFormat        string
	logLevel         string
	metricsAddr      string
	mdnsEnable       bool
	mdnsName         string
	relayBaseURL     string
	relayPollEvery   time.Duration
	samplerEnable    bool
	samplerInterval  time.Duration
	coreVersion      string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	socketDir := flag.String("socket-dir", defaultSocketDir(), "Directory holding the cmd/evt unix sockets")
	socketPrefix := flag.String("socket-prefix", "obsbridge", "Socket file name prefix")
	pushInterval := flag.Duration("push-interval", 1000*time.Millisecond, "Status snapshot push interval")
	heartbeatTO := flag.Duration("heartbeat-timeout", 3500*time.Millisecond, "Heartbeat watchdog timeout")
	handshakeTO := flag.Duration("handshake-timeout", 5*time.Second, "Handshake deadline from accept")
	readPollTO := flag.Duration("read-poll-timeout", 250*time.Millisecond, "Inbound read poll granularity")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Introspection HTTP listen address (e.g., :9100); empty disables")
	mdnsEnable := flag.Bool("mdns-enable", false, "Advertise the introspection endpoint via mDNS")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default obsbridge-<hostname>)")
	relayBaseURL := flag.String("relay-base-url", "", "Relay control-plane base URL; empty disables polling")
	relayPollEvery := flag.Duration("relay-poll-interval", 5*time.Second, "Relay control-plane poll interval")
	samplerEnable := flag.Bool("sampler-enable", false, "Run the synthetic telemetry sampler (development only)")
	samplerInterval := flag.Duration("sampler-interval", time.Second, "Synthetic telemetry sampler cadence")
	coreVersion := flag.String("core-version", "0.1.0", "Core version advertised in hello_ack")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.socketDir = *socketDir
	cfg.socketPrefix = *socketPrefix
	cfg.pushInterval = *pushInterval
	cfg.heartbeatTO = *heartbeatTO
	cfg.handshakeTO = *handshakeTO
	cfg.readPollTO = *readPollTO
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.relayBaseURL = *relayBaseURL
	cfg.relayPollEvery = *relayPollEvery
	cfg.samplerEnable = *samplerEnable
	cfg.samplerInterval = *samplerInterval
	cfg.coreVersion = *coreVersion

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func defaultSocketDir() string {
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return filepath.Join(os.TempDir(), "obsbridge-"+u.Username)
	}
	return filepath.Join(os.TempDir(), "obsbridge")
}

func (c *appConfig) cmdSocketPath() string {
	return filepath.Join(c.socketDir, c.socketPrefix+"_cmd_v1.sock")
}

func (c *appConfig) evtSocketPath() string {
	return filepath.Join(c.socketDir, c.socketPrefix+"_evt_v1.sock")
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open sockets or listeners, only checks values.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.socketPrefix == "" {
		return errors.New("socket-prefix must not be empty")
	}
	if c.pushInterval <= 0 {
		return errors.New("push-interval must be > 0")
	}
	if c.heartbeatTO <= 0 {
		return errors.New("heartbeat-timeout must be > 0")
	}
	if c.handshakeTO <= 0 {
		return errors.New("handshake-timeout must be > 0")
	}
	if c.readPollTO <= 0 {
		return errors.New("read-poll-timeout must be > 0")
	}
	if c.relayPollEvery <= 0 {
		return errors.New("relay-poll-interval must be > 0")
	}
	return nil
}

// applyEnvOverrides maps OBSBRIDGE_* environment variables to config fields
// unless a corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["socket-dir"]; !ok {
		if v, ok := get("OBSBRIDGE_SOCKET_DIR"); ok && v != "" {
			c.socketDir = v
		}
	}
	if _, ok := set["socket-prefix"]; !ok {
		if v, ok := get("OBSBRIDGE_SOCKET_PREFIX"); ok && v != "" {
			c.socketPrefix = v
		}
	}
	if _, ok := set["push-interval"]; !ok {
		if v, ok := get("OBSBRIDGE_PUSH_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.pushInterval = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid OBSBRIDGE_PUSH_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["heartbeat-timeout"]; !ok {
		if v, ok := get("OBSBRIDGE_HEARTBEAT_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.heartbeatTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid OBSBRIDGE_HEARTBEAT_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["handshake-timeout"]; !ok {
		if v, ok := get("OBSBRIDGE_HANDSHAKE_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.handshakeTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid OBSBRIDGE_HANDSHAKE_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["read-poll-timeout"]; !ok {
		if v, ok := get("OBSBRIDGE_READ_POLL_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.readPollTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid OBSBRIDGE_READ_POLL_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("OBSBRIDGE_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("OBSBRIDGE_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("OBSBRIDGE_METRICS_ADDR"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("OBSBRIDGE_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("OBSBRIDGE_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["relay-base-url"]; !ok {
		if v, ok := get("OBSBRIDGE_RELAY_BASE_URL"); ok {
			c.relayBaseURL = v
		}
	}
	if _, ok := set["relay-poll-interval"]; !ok {
		if v, ok := get("OBSBRIDGE_RELAY_POLL_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.relayPollEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid OBSBRIDGE_RELAY_POLL_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["core-version"]; !ok {
		if v, ok := get("OBSBRIDGE_CORE_VERSION"); ok && v != "" {
			c.coreVersion = v
		}
	}
	return firstErr
}

var _ = strconv.Itoa // kept available for future numeric env parsing
