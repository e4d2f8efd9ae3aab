package main

import (
	"path/filepath"
	"strings"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/chzyer/readline"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/luhtfiimanal/go-serial-poll/internal/logs"
	"github.com/luhtfiimanal/go-serial-poll/poll"
)

// inputDone ends the console when the prompt stops producing lines.
type inputDone struct{ err error }

func historyFile() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".serialmon", "history")
}

func consoleAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()
	logger := logs.Named("console")

	port, err := s.open()
	if err != nil {
		return err
	}
	defer port.Close()

	p, err := poll.New(poll.WithLogger(logs.Named("poll")))
	if err != nil {
		return errors.Wrap(err, "create poll")
	}
	defer p.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.port + "> ",
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return errors.Wrap(err, "start prompt")
	}
	defer rl.Close()

	lines := poll.NewNotifier(64)
	defer lines.Close()
	if err := p.Register(lines, inputToken, poll.Readable, poll.Level); err != nil {
		return errors.Wrap(err, "register input")
	}
	if err := p.Register(port, portToken, poll.Readable, poll.Level); err != nil {
		return errors.Wrap(err, "register port")
	}

	gopool.Go(func() {
		for {
			line, err := rl.Readline()
			if err != nil {
				_ = lines.Send(inputDone{err: err})
				return
			}
			if lines.Send(line) != nil {
				return
			}
		}
	})

	eol := s.cfg.LineEnding()
	var pending []byte
	writing := false
	events := poll.NewEvents(poll.DefaultEventsCapacity)
	buf := make([]byte, 4096)
	for {
		if err := p.Wait(events, poll.Forever); err != nil {
			return errors.Wrap(err, "wait")
		}
		s.metrics.Waits.Inc()

		for _, ev := range events.All() {
			switch ev.Token {
			case portToken:
				s.metrics.Observe("port", ev)
				if ev.IsReadable() {
					if _, err := drain(port, buf, rl.Stdout(), s.metrics); err != nil {
						return err
					}
				}
				if ev.IsWritable() {
					if pending, err = flushPending(port, pending, s.metrics); err != nil {
						return err
					}
				}
			case inputToken:
				s.metrics.Observe("input", ev)
				for {
					msg, ok := lines.TryRecv()
					if !ok {
						break
					}
					s.metrics.Messages.Inc()
					switch v := msg.(type) {
					case string:
						if strings.TrimSpace(v) == "exit" {
							return nil
						}
						pending = append(pending, v...)
						pending = append(pending, eol...)
					case inputDone:
						logger.Debug("prompt closed", zap.Error(v.err))
						return nil
					}
				}
			}
		}

		// writable interest only while there is something to send
		if want := len(pending) > 0; want != writing {
			interest := poll.Readable
			if want {
				interest |= poll.Writable
			}
			if err := p.Reregister(port, portToken, interest, poll.Level); err != nil {
				return errors.Wrap(err, "reregister port")
			}
			writing = want
		}
	}
}
