// Package remote maps user actions to device commands.
package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vmorsell/microrail-remote/internal/ratelimit"
	"github.com/vmorsell/microrail-remote/pkg/model"
	"go.uber.org/zap"
)

var (
	ErrThrottled = errors.New("command throttled")
	ErrQuit      = errors.New("quit requested")
)

// CommandSender delivers command literals to the device.
type CommandSender interface {
	SendCommand(cmd model.Command) error
}

type Controller struct {
	logger   *zap.Logger
	sender   CommandSender
	throttle *ratelimit.RateLimiter
}

func NewController(logger *zap.Logger, sender CommandSender, throttle *ratelimit.RateLimiter) *Controller {
	if throttle == nil {
		throttle = ratelimit.NewRateLimiter(0, ratelimit.DefaultWindowSize)
	}
	return &Controller{
		logger:   logger,
		sender:   sender,
		throttle: throttle,
	}
}

func (c *Controller) Backward() error { return c.click("BACKWARD", model.CommandBackward) }
func (c *Controller) Forward() error  { return c.click("FORWARD", model.CommandForward) }
func (c *Controller) Slower() error   { return c.click("SLOWER", model.CommandSlower) }
func (c *Controller) Faster() error   { return c.click("FASTER", model.CommandFaster) }
func (c *Controller) Stop() error     { return c.click("STOP", model.CommandStop) }

func (c *Controller) click(button string, cmd model.Command) error {
	c.logger.Info("click", zap.String("button", button))

	// STOP is never throttled
	if cmd != model.CommandStop && !c.throttle.Allow(string(cmd)) {
		c.logger.Warn("dropping click, too many commands", zap.String("command", string(cmd)))
		return ErrThrottled
	}
	return c.sender.SendCommand(cmd)
}

// Keymap binds single keys to controller actions.
var Keymap = map[string]func(*Controller) error{
	"f": (*Controller).Forward,
	"w": (*Controller).Forward,
	"b": (*Controller).Backward,
	"r": (*Controller).Backward,
	"+": (*Controller).Faster,
	"=": (*Controller).Faster,
	"-": (*Controller).Slower,
	"s": (*Controller).Stop,
	" ": (*Controller).Stop,
}

// Press runs the action bound to key. It returns ErrQuit for "q".
func (c *Controller) Press(key string) error {
	if key == "q" {
		return ErrQuit
	}
	action, ok := Keymap[key]
	if !ok {
		return fmt.Errorf("no action bound to key %q", key)
	}
	return action(c)
}

// ReadKeys reads one key per line from r until EOF, "q", or ctx is done.
// Failed actions are logged and do not stop the loop.
func (c *Controller) ReadKeys(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Text()
		key := strings.ToLower(strings.TrimSpace(line))
		if key == "" && line != "" {
			key = " "
		}
		if key == "" {
			continue
		}

		err := c.Press(key)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			c.logger.Warn("key action failed", zap.String("key", key), zap.Error(err))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read keys: %w", err)
	}
	return nil
}
