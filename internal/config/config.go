package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	serial "github.com/luhtfiimanal/go-serial-poll"
)

// Keys shared by the config file, SERIALMON_* variables and CLI flags.
const (
	KeyPort        = "port"
	KeyBaud        = "baud"
	KeyCharSize    = "char-size"
	KeyParity      = "parity"
	KeyStopBits    = "stop-bits"
	KeyFlow        = "flow"
	KeyIdleTimeout = "idle-timeout"
	KeyMetricsAddr = "metrics-addr"
	KeyPushGateway = "push-gateway"
	KeyDebug       = "debug"
	KeyEOL         = "eol"
)

const (
	// EnvPrefix prefixes the variables viper reads, as in SERIALMON_BAUD.
	EnvPrefix = "SERIALMON"
	// PortEnv is the variable the port name is read from when no argument
	// is given.
	PortEnv = "SERIAL_PORT"
)

// Config is the resolved configuration of serialmon.
type Config struct {
	Port        string
	Settings    serial.Settings
	IdleTimeout time.Duration
	MetricsAddr string
	PushGateway string
	Debug       bool
	EOL         string
}

// DefaultPath returns ~/.serialmon/config.yaml.
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".serialmon", "config.yaml")
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	d := serial.DefaultSettings()
	v.SetDefault(KeyBaud, int(d.BaudRate))
	v.SetDefault(KeyCharSize, int(d.CharSize))
	v.SetDefault(KeyParity, d.Parity.String())
	v.SetDefault(KeyStopBits, int(d.StopBits))
	v.SetDefault(KeyFlow, d.FlowControl.String())
	v.SetDefault(KeyIdleTimeout, time.Duration(0))
	v.SetDefault(KeyEOL, "lf")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyPort, EnvPrefix+"_PORT", PortEnv)
	return v
}

// LoadDotEnv exports the variables of a dotenv file that are not already
// set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	for _, key := range ev.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, ev.GetString(key)); err != nil {
			return errors.Wrapf(err, "export %s", name)
		}
	}
	return nil
}

// Load resolves the configuration from, lowest precedence first: defaults,
// the YAML file at path (DefaultPath when empty, skipped if absent), the
// environment and overrides.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := New()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			_, statErr := os.Stat(path)
			if explicit || !os.IsNotExist(statErr) {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}
	return Decode(v)
}

// Decode builds a Config from v, validating the serial settings.
func Decode(v *viper.Viper) (*Config, error) {
	baud, err := serial.ParseBaudRate(v.GetInt(KeyBaud))
	if err != nil {
		return nil, errors.Wrap(err, KeyBaud)
	}
	charSize, err := serial.ParseCharSize(v.GetInt(KeyCharSize))
	if err != nil {
		return nil, errors.Wrap(err, KeyCharSize)
	}
	parity, err := serial.ParseParity(v.GetString(KeyParity))
	if err != nil {
		return nil, errors.Wrap(err, KeyParity)
	}
	stopBits, err := serial.ParseStopBits(v.GetInt(KeyStopBits))
	if err != nil {
		return nil, errors.Wrap(err, KeyStopBits)
	}
	flow, err := serial.ParseFlowControl(v.GetString(KeyFlow))
	if err != nil {
		return nil, errors.Wrap(err, KeyFlow)
	}

	idle := v.GetDuration(KeyIdleTimeout)
	if idle < 0 {
		return nil, errors.Errorf("%s: negative duration %s", KeyIdleTimeout, idle)
	}
	eol := strings.ToLower(v.GetString(KeyEOL))
	if _, ok := lineEndings[eol]; !ok {
		return nil, errors.Errorf("%s: unknown line ending %q", KeyEOL, eol)
	}

	return &Config{
		Port: v.GetString(KeyPort),
		Settings: serial.Settings{
			BaudRate:    baud,
			CharSize:    charSize,
			Parity:      parity,
			StopBits:    stopBits,
			FlowControl: flow,
		},
		IdleTimeout: idle,
		MetricsAddr: v.GetString(KeyMetricsAddr),
		PushGateway: v.GetString(KeyPushGateway),
		Debug:       v.GetBool(KeyDebug),
		EOL:         eol,
	}, nil
}

var lineEndings = map[string]string{
	"lf":   "\n",
	"crlf": "\r\n",
	"cr":   "\r",
}

// LineEnding returns the bytes appended to console lines.
func (c *Config) LineEnding() string {
	return lineEndings[c.EOL]
}
