package config

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_receiver/internal/decode"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// Config holds all application configuration values.
type Config struct {
	// Receivers
	ListenHost         string
	OrientationPort    int
	AccelPort          int
	AcceptPollInterval int // milliseconds
	ErrorBackoff       int // milliseconds
	ReadBufferSize     int // bytes
	ReadTimeout        int // milliseconds, 0 = none
	Framing            decode.Framing
	Codec              decode.Codec

	// Consumers
	CubeRenderInterval  int // milliseconds
	AccelRenderInterval int // milliseconds

	// MQTT
	MQTTBroker            string
	MQTTClientIDPublisher string
	MQTTClientIDConsole   string

	// Topics
	TopicOrientation string
	TopicAccel       string

	// Web Server
	WebServerPort int

	// Serial bridge
	BridgeSerialPort    string
	BridgeBaudRate      int
	BridgeHost          string
	BridgeOrientation   bool
	BridgeAccel         bool
	BridgeRetryInterval int // milliseconds

	// Local IMU producer
	IMUSPIDevice      string
	IMUCSPin          string
	IMUSampleInterval int // milliseconds

	// Display
	DisplayI2CAddr        uint16
	DisplayContent        sample.Kind
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify it without locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock for initialization,
//     read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		ListenHost:         "127.0.0.1",
		OrientationPort:    65432,
		AccelPort:          65433,
		AcceptPollInterval: 1000,
		ErrorBackoff:       1000,
		ReadBufferSize:     1024,
		ReadTimeout:        0,
		Framing:            decode.FramingRead,
		Codec:              decode.CodecJSON,

		CubeRenderInterval:  20,
		AccelRenderInterval: 50,

		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDPublisher: "inertial-receiver-publisher",
		MQTTClientIDConsole:   "inertial-receiver-console",

		TopicOrientation: "inertial/orientation",
		TopicAccel:       "inertial/accel",

		WebServerPort: 8080,

		BridgeSerialPort:    "/dev/ttyACM0",
		BridgeBaudRate:      115200,
		BridgeHost:          "127.0.0.1",
		BridgeRetryInterval: 3000,

		IMUSPIDevice:      "/dev/spidev0.0",
		IMUCSPin:          "GPIO8",
		IMUSampleInterval: 20,

		DisplayI2CAddr:        0x3C,
		DisplayContent:        sample.Orientation,
		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default().
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parsePort(key, value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%s must be 1-65535, got %d", key, port)
	}
	return port, nil
}

// parseNonNegative parses an integer that may be 0 (e.g. a disabled timeout).
func parseNonNegative(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, n)
	}
	return n, nil
}

func parsePositive(key, value string) (int, error) {
	n, err := parseNonNegative(key, value)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// Receivers
	case "LISTEN_HOST":
		c.ListenHost = value
	case "ORIENTATION_PORT":
		c.OrientationPort, err = parsePort(key, value)
	case "ACCEL_PORT":
		c.AccelPort, err = parsePort(key, value)
	case "ACCEPT_POLL_INTERVAL":
		c.AcceptPollInterval, err = parsePositive(key, value)
	case "ERROR_BACKOFF":
		c.ErrorBackoff, err = parsePositive(key, value)
	case "READ_BUFFER_SIZE":
		c.ReadBufferSize, err = parsePositive(key, value)
	case "READ_TIMEOUT":
		c.ReadTimeout, err = parseNonNegative(key, value)
	case "FRAMING":
		c.Framing, err = decode.ParseFraming(value)
	case "CODEC":
		if _, err = decode.ForCodec(decode.Codec(value)); err == nil {
			c.Codec = decode.Codec(value)
		}

	// Consumers
	case "CUBE_RENDER_INTERVAL":
		c.CubeRenderInterval, err = parsePositive(key, value)
	case "ACCEL_RENDER_INTERVAL":
		c.AccelRenderInterval, err = parsePositive(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PUBLISHER":
		c.MQTTClientIDPublisher = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_ACCEL":
		c.TopicAccel = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parsePort(key, value)

	// Serial bridge
	case "BRIDGE_SERIAL_PORT":
		c.BridgeSerialPort = value
	case "BRIDGE_BAUD_RATE":
		c.BridgeBaudRate, err = parsePositive(key, value)
	case "BRIDGE_HOST":
		c.BridgeHost = value
	case "BRIDGE_ORIENTATION":
		c.BridgeOrientation, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid BRIDGE_ORIENTATION %q: %w", value, err)
		}
	case "BRIDGE_ACCEL":
		c.BridgeAccel, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid BRIDGE_ACCEL %q: %w", value, err)
		}
	case "BRIDGE_RETRY_INTERVAL":
		c.BridgeRetryInterval, err = parsePositive(key, value)

	// Local IMU producer
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_SAMPLE_INTERVAL":
		c.IMUSampleInterval, err = parsePositive(key, value)

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_CONTENT":
		c.DisplayContent, err = sample.ParseKind(value)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parsePositive(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field constraints.
func (c *Config) validate() error {
	if c.ListenHost == "" {
		return fmt.Errorf("LISTEN_HOST is required")
	}
	if c.OrientationPort == c.AccelPort {
		return fmt.Errorf("ORIENTATION_PORT and ACCEL_PORT must be different (both %d)", c.OrientationPort)
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	return nil
}

// ValidateBridge checks the settings only the serial bridge needs.
func (c *Config) ValidateBridge() error {
	if !c.BridgeOrientation && !c.BridgeAccel {
		return fmt.Errorf("at least one of BRIDGE_ORIENTATION or BRIDGE_ACCEL must be true")
	}
	if c.BridgeSerialPort == "" {
		return fmt.Errorf("BRIDGE_SERIAL_PORT is required")
	}
	return nil
}

// OrientationAddr is the host:port of the orientation receiver.
func (c *Config) OrientationAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.OrientationPort))
}

// AccelAddr is the host:port of the acceleration receiver.
func (c *Config) AccelAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.AccelPort))
}

// Millis converts one of the millisecond fields to a Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// InitGlobalOrDefault is InitGlobal that falls back to Default() when the
// file does not exist.
func InitGlobalOrDefault(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configOnce.Do(func() {
			configMu.Lock()
			defer configMu.Unlock()
			globalConfig = Default()
		})
		return nil
	}
	return InitGlobal(configPath)
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
