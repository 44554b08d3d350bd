package notify

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsService = "org.freedesktop.Notifications"
	notificationsPath    = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod         = notificationsService + ".Notify"

	defaultAppName = "threadtrack"
	defaultExpire  = 10 * time.Second
	// maxExpire is the largest timeout the Notify call's int32 milliseconds
	// can carry.
	maxExpire = time.Duration(math.MaxInt32) * time.Millisecond
	defaultCommand = "notify-send"
)

// busNotifier sends one desktop notification over D-Bus.
type busNotifier func(ctx context.Context, app, title, body string, expire time.Duration) error

// commandRunner runs the fallback notification command.
type commandRunner func(ctx context.Context, name string, args ...string) error

// Desktop shows freedesktop.org notifications. It talks to the session bus
// directly and falls back to the notify-send command when no bus is
// reachable.
type Desktop struct {
	AppName string
	Expire  time.Duration
	Command string

	once sync.Once
	bus  busNotifier
	run  commandRunner
}

// NewDesktop creates a desktop notifier. Empty fields take defaults.
func NewDesktop(appName string, expire time.Duration, command string) *Desktop {
	return &Desktop{AppName: appName, Expire: expire, Command: command}
}

// Name implements Named.
func (d *Desktop) Name() string { return "desktop" }

func (d *Desktop) init() {
	if d.AppName == "" {
		d.AppName = defaultAppName
	}
	if d.Expire <= 0 {
		d.Expire = defaultExpire
	}
	d.Expire = min(d.Expire, maxExpire)
	if d.Command == "" {
		d.Command = defaultCommand
	}
	if d.bus == nil {
		d.bus = sessionBusNotify
	}
	if d.run == nil {
		d.run = runCommand
	}
}

// Deliver implements Notifier.
func (d *Desktop) Deliver(ctx context.Context, title, body string) error {
	d.once.Do(d.init)

	busErr := d.bus(ctx, d.AppName, title, body, d.Expire)
	if busErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return busErr
	}

	ms := strconv.FormatInt(d.Expire.Milliseconds(), 10)
	if err := d.run(ctx, d.Command, "-a", d.AppName, "-t", ms, title, body); err != nil {
		return fmt.Errorf("dbus: %v; %s: %w", busErr, d.Command, err)
	}
	return nil
}

func sessionBusNotify(ctx context.Context, app, title, body string, expire time.Duration) error {
	// SessionBus returns a shared connection that must not be closed.
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	obj := conn.Object(notificationsService, notificationsPath)
	// Arguments: app_name, replaces_id, app_icon, summary, body, actions,
	// hints, expire_timeout.
	call := obj.CallWithContext(ctx, notifyMethod, 0,
		app, uint32(0), "", title, body, []string{}, map[string]dbus.Variant{},
		int32(min(expire, maxExpire).Milliseconds()), //nolint:gosec // clamped to maxExpire
	)
	if call.Err != nil {
		return fmt.Errorf("notify call: %w", call.Err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec // G204 - command from operator config
	if err != nil {
		return fmt.Errorf("%w (output: %s)", err, out)
	}
	return nil
}
