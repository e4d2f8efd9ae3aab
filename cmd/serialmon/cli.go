package main

import (
	"time"

	"github.com/luci/go-render/render"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	serial "github.com/luhtfiimanal/go-serial-poll"
	"github.com/luhtfiimanal/go-serial-poll/internal/config"
	"github.com/luhtfiimanal/go-serial-poll/internal/logs"
	"github.com/luhtfiimanal/go-serial-poll/internal/metrics"
)

var (
	flagConfig = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML config file, defaults to ~/.serialmon/config.yaml when present.",
		EnvVars: []string{"SERIALMON_CONFIG"},
	}
	flagDebug = &cli.BoolFlag{
		Name:    config.KeyDebug,
		Aliases: []string{"d"},
		Usage:   "log debug records, including every registration.",
		EnvVars: []string{"SERIALMON_DEBUG"},
	}
	flagMetricsAddr = &cli.StringFlag{
		Name:    config.KeyMetricsAddr,
		Usage:   "serve Prometheus metrics on this address, e.g. :9100.",
		EnvVars: []string{"SERIALMON_METRICS_ADDR"},
	}
	flagPushGateway = &cli.StringFlag{
		Name:    config.KeyPushGateway,
		Usage:   "push metrics to this Prometheus push gateway URL.",
		EnvVars: []string{"SERIALMON_PUSH_GATEWAY"},
	}
	flagBaud = &cli.IntFlag{
		Name:    config.KeyBaud,
		Aliases: []string{"b"},
		Usage:   "baud rate, one of the standard rates 110 to 230400.",
		Action: func(c *cli.Context, baud int) error {
			if _, err := serial.ParseBaudRate(baud); err != nil {
				logs.Error(err.Error(), zap.String("params", config.KeyBaud), zap.Int("value", baud))
				return err
			}
			return nil
		},
		EnvVars: []string{"SERIALMON_BAUD"},
	}
	flagCharSize = &cli.IntFlag{
		Name:  config.KeyCharSize,
		Usage: "data bits per character, 5 to 8.",
		Action: func(c *cli.Context, size int) error {
			if _, err := serial.ParseCharSize(size); err != nil {
				logs.Error(err.Error(), zap.String("params", config.KeyCharSize), zap.Int("value", size))
				return err
			}
			return nil
		},
		EnvVars: []string{"SERIALMON_CHAR_SIZE"},
	}
	flagParity = &cli.StringFlag{
		Name:  config.KeyParity,
		Usage: "none, odd or even.",
		Action: func(c *cli.Context, parity string) error {
			if _, err := serial.ParseParity(parity); err != nil {
				logs.Error(err.Error(), zap.String("params", config.KeyParity), zap.String("value", parity))
				return err
			}
			return nil
		},
		EnvVars: []string{"SERIALMON_PARITY"},
	}
	flagStopBits = &cli.IntFlag{
		Name:  config.KeyStopBits,
		Usage: "1 or 2.",
		Action: func(c *cli.Context, bits int) error {
			if _, err := serial.ParseStopBits(bits); err != nil {
				logs.Error(err.Error(), zap.String("params", config.KeyStopBits), zap.Int("value", bits))
				return err
			}
			return nil
		},
		EnvVars: []string{"SERIALMON_STOP_BITS"},
	}
	flagFlow = &cli.StringFlag{
		Name:  config.KeyFlow,
		Usage: "none, software (xonxoff) or hardware (rtscts).",
		Action: func(c *cli.Context, flow string) error {
			if _, err := serial.ParseFlowControl(flow); err != nil {
				logs.Error(err.Error(), zap.String("params", config.KeyFlow), zap.String("value", flow))
				return err
			}
			return nil
		},
		EnvVars: []string{"SERIALMON_FLOW"},
	}
	flagIdleTimeout = &cli.DurationFlag{
		Name:    config.KeyIdleTimeout,
		Aliases: []string{"i"},
		Usage:   "exit after the port has been silent this long, 0 disables.",
		EnvVars: []string{"SERIALMON_IDLE_TIMEOUT"},
	}
	flagEOL = &cli.StringFlag{
		Name:    config.KeyEOL,
		Usage:   "line ending appended to console input: lf, crlf or cr.",
		EnvVars: []string{"SERIALMON_EOL"},
	}
)

// overridable lists the flags that take precedence over the config file
// when given.
var overridable = []string{
	config.KeyDebug,
	config.KeyMetricsAddr,
	config.KeyPushGateway,
	config.KeyBaud,
	config.KeyCharSize,
	config.KeyParity,
	config.KeyStopBits,
	config.KeyFlow,
	config.KeyIdleTimeout,
	config.KeyEOL,
}

type Wrapper struct {
	app *cli.App
}

func NewWrapper() *Wrapper {
	wrapper := &Wrapper{
		app: &cli.App{
			Name:    "serialmon",
			Usage:   "watch and talk to a serial port from a single readiness loop",
			Version: "0.1.0",
		},
	}
	wrapper.withFlags()
	wrapper.withCommands()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *Wrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *Wrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagConfig,
		flagDebug,
		flagMetricsAddr,
		flagPushGateway,
		flagBaud,
		flagCharSize,
		flagParity,
		flagStopBits,
		flagFlow,
	}
}

func (wrapper *Wrapper) withCommands() {
	wrapper.app.Commands = []*cli.Command{
		{
			Name:      "monitor",
			Usage:     "print everything the port receives",
			ArgsUsage: "[PORT]",
			Flags:     []cli.Flag{flagIdleTimeout},
			Action:    monitorAction,
		},
		{
			Name:      "console",
			Usage:     "interactive prompt: send lines, print what comes back",
			ArgsUsage: "[PORT]",
			Flags:     []cli.Flag{flagEOL},
			Action:    consoleAction,
		},
		{
			Name:   "list",
			Usage:  "list serial devices",
			Action: listAction,
		},
	}
}

func (wrapper *Wrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name: "luhtfiimanal",
		},
	}
}

// session is what every port command needs before opening the device.
type session struct {
	cfg     *config.Config
	port    string
	metrics *metrics.Helper
	stops   []func()
}

func newSession(c *cli.Context) (*session, error) {
	overrides := make(map[string]any)
	for _, name := range overridable {
		if c.IsSet(name) {
			overrides[name] = c.Value(name)
		}
	}
	cfg, err := config.Load(c.String(flagConfig.Name), overrides)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.Debug {
		logs.SetDebug()
	}

	s := &session{cfg: cfg, port: c.Args().First(), metrics: metrics.New()}
	if s.port == "" {
		s.port = cfg.Port
	}
	if s.port == "" {
		return nil, errors.Errorf("serial port name must be given as argument or in %s", config.PortEnv)
	}

	logger := logs.Named("metrics")
	if cfg.MetricsAddr != "" {
		s.stops = append(s.stops, s.metrics.Serve(cfg.MetricsAddr, logger))
	}
	if cfg.PushGateway != "" {
		s.stops = append(s.stops, s.metrics.StartPush(cfg.PushGateway, "serialmon", 5*time.Second, logger))
	}
	logs.Debug("session ready", zap.String("port", s.port), zap.String("config", render.Render(cfg)))
	return s, nil
}

func (s *session) open() (*serial.Port, error) {
	port, err := serial.OpenWithSettings(s.port, s.cfg.Settings)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.port)
	}
	logs.Info("port opened", zap.String("port", s.port), zap.Stringer("settings", port.Settings()))
	return port, nil
}

func (s *session) close() {
	for i := len(s.stops) - 1; i >= 0; i-- {
		s.stops[i]()
	}
}

func listAction(c *cli.Context) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return errors.Wrap(err, "list ports")
	}
	for _, p := range ports {
		if _, err := c.App.Writer.Write([]byte(p + "\n")); err != nil {
			return err
		}
	}
	return nil
}
