// Package console implements the interactive operator loop: setting the
// message of the day, tuning options, and shutting the server down, with the
// relevant settings persisted across restarts.
package console

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/mcoot/flightlobby/internal/config"
)

// ServerControl is the slice of the lobby server the console drives.
type ServerControl interface {
	DayMessage() string
	SetDayMessage(msg string)
	HandshakeTimeout() time.Duration
	SetHandshakeTimeout(d time.Duration)

	// ArmReboot starts the five-minute shutdown countdown.
	ArmReboot()
	// ImmediateExit drains the server with no countdown.
	ImmediateExit()
}

// Console reads operator commands line by line until a shutdown command.
type Console struct {
	control      ServerControl
	settingsPath string
	logger       *slog.Logger

	in  *bufio.Scanner
	out io.Writer

	prompt *color.Color
	ack    *color.Color
	warn   *color.Color
}

// New creates a Console reading from in and writing to out. Tests pass
// buffers; main wires stdin and stdout.
func New(control ServerControl, settingsPath string, in io.Reader, out io.Writer, logger *slog.Logger) *Console {
	return &Console{
		control:      control,
		settingsPath: settingsPath,
		logger:       logger,
		in:           bufio.NewScanner(in),
		out:          out,
		prompt:       color.New(color.FgCyan),
		ack:          color.New(color.FgGreen),
		warn:         color.New(color.FgYellow),
	}
}

// Run drives the command loop. It returns when the operator issues exit or
// shutdown, or when input ends.
func (c *Console) Run() {
	for {
		_, _ = c.prompt.Fprintln(c.out, "Enter message to set a message of the day, options to change options, shutdown to shutdown the server with a five minute warning to all players, and exit to shutdown the server immediately.")
		line, ok := c.readLine()
		if !ok {
			return
		}
		input := strings.ToLower(strings.TrimSpace(line))

		switch input {
		case "message":
			c.setMessage()
		case "shutdown":
			c.control.ArmReboot()
		case "exit":
			c.control.ImmediateExit()
		case "options":
			c.options()
		}

		_, _ = c.ack.Fprintln(c.out, "Ok")
		if input == "exit" || input == "shutdown" {
			return
		}
	}
}

func (c *Console) setMessage() {
	_, _ = c.prompt.Fprintf(c.out, "Enter message. Press ENTER for %q.\n", c.control.DayMessage())
	line, ok := c.readLine()
	if !ok {
		return
	}
	c.control.SetDayMessage(line)
	c.persist()
}

func (c *Console) options() {
	switch c.menu("Select an option:", "Set server timeout") {
	case 1:
		c.setTimeout()
	}
	c.persist()
}

func (c *Console) setTimeout() {
	current := int(c.control.HandshakeTimeout().Seconds())
	_, _ = c.prompt.Fprintf(c.out, "Enter the timeout in seconds. Press ENTER for %d seconds.\n", current)
	line, ok := c.readLine()
	if !ok || strings.TrimSpace(line) == "" {
		return
	}
	secs, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || secs <= 0 {
		_, _ = c.warn.Fprintln(c.out, "Invalid choice.")
		return
	}
	c.control.SetHandshakeTimeout(time.Duration(secs) * time.Second)
}

// menu presents numbered options and returns the chosen one-based index, or 0
// for cancel.
func (c *Console) menu(prompt string, options ...string) int {
	for {
		_, _ = c.prompt.Fprintln(c.out, prompt)
		for i, option := range options {
			_, _ = fmt.Fprintf(c.out, "%d: %s\n", i+1, option)
		}
		line, ok := c.readLine()
		if !ok {
			return 0
		}
		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || choice < 0 || choice > len(options) {
			_, _ = c.warn.Fprintln(c.out, "Invalid choice.")
			continue
		}
		return choice
	}
}

// persist writes the current operator-tunable settings to disk.
func (c *Console) persist() {
	s := config.Settings{
		DayMessage:           c.control.DayMessage(),
		HandshakeTimeoutSecs: int32(c.control.HandshakeTimeout().Seconds()),
	}
	if err := config.SaveSettings(c.settingsPath, s); err != nil {
		c.logger.Error("failed to save settings",
			slog.String("path", c.settingsPath),
			slog.String("error", err.Error()))
	}
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}
