package harvest

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/law-makers/pdfharvest/internal/browser"
)

// Keystroker sends a keyboard shortcut to the foreground tab
type Keystroker interface {
	Press(ctx context.Context, tab browser.Tab, key string, mod browser.Modifier) error
}

// NewKeystroker returns the backend named by name: "cdp" or "os"
func NewKeystroker(name string) (Keystroker, error) {
	switch name {
	case "", "cdp":
		return CDPKeystroker{}, nil
	case "os":
		return NewOSKeystroker(runtime.GOOS), nil
	default:
		return nil, fmt.Errorf("unknown keystroke backend %q", name)
	}
}

// CDPKeystroker dispatches the key event into the tab over DevTools
type CDPKeystroker struct{}

func (CDPKeystroker) Press(ctx context.Context, tab browser.Tab, key string, mod browser.Modifier) error {
	return tab.PressKey(ctx, key, mod)
}

// OSKeystroker injects the keystroke at the OS level, for browsers that only
// honour the save shortcut from real input.
type OSKeystroker struct {
	goos string
	run  func(ctx context.Context, name string, args ...string) error
}

// NewOSKeystroker uses osascript on darwin and xdotool elsewhere
func NewOSKeystroker(goos string) *OSKeystroker {
	return &OSKeystroker{goos: goos, run: runCommand}
}

func (k *OSKeystroker) Press(ctx context.Context, _ browser.Tab, key string, mod browser.Modifier) error {
	name, args, err := k.command(key, mod)
	if err != nil {
		return err
	}
	if err := k.run(ctx, name, args...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (k *OSKeystroker) command(key string, mod browser.Modifier) (string, []string, error) {
	switch k.goos {
	case "darwin":
		script := fmt.Sprintf("tell application \"System Events\" to keystroke %q", key)
		switch mod {
		case browser.ModMeta:
			script += " using command down"
		case browser.ModCtrl:
			script += " using control down"
		}
		return "osascript", []string{"-e", script}, nil
	case "windows":
		return "", nil, fmt.Errorf("os keystroke backend is not supported on windows")
	default:
		combo := key
		switch mod {
		case browser.ModCtrl:
			combo = "ctrl+" + key
		case browser.ModMeta:
			combo = "super+" + key
		}
		return "xdotool", []string{"key", "--clearmodifiers", combo}, nil
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
