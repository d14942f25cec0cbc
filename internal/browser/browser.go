// Package browser provides the page fetchers the harvester drives: a Chrome
// engine built on chromedp and a static engine built on net/http.
package browser

import (
	"context"
	"runtime"

	"github.com/law-makers/pdfharvest/pkg/models"
)

// Browser navigates to a URL and returns the rendered document.
type Browser interface {
	// Name returns the engine name
	Name() string

	// Navigate loads url, waiting until the page has settled or the
	// navigation timeout expires. Failures are returned as *NavError.
	Navigate(ctx context.Context, url string) (*models.Page, error)

	// Close releases the engine's resources
	Close() error
}

// Tab is a short-lived secondary tab used to open a single link.
type Tab interface {
	Navigate(ctx context.Context, url string) (*models.Page, error)

	// SetDownloadDir routes downloads started from this tab into dir
	SetDownloadDir(ctx context.Context, dir string) error

	BringToFront(ctx context.Context) error

	// PressKey sends key with mod held to the tab's page
	PressKey(ctx context.Context, key string, mod Modifier) error

	// DownloadCompleted reports whether the browser finished a download of url
	// started from this tab.
	DownloadCompleted(url string) bool

	Close() error
}

// TabOpener is implemented by engines that can open secondary tabs.
type TabOpener interface {
	OpenTab(ctx context.Context) (Tab, error)
}

// DownloadDirSetter is implemented by engines whose own navigations can
// start downloads.
type DownloadDirSetter interface {
	SetDownloadDir(ctx context.Context, dir string) error
}

// Modifier is a keyboard modifier held during a keystroke
type Modifier int

const (
	ModNone Modifier = iota
	ModCtrl
	ModMeta
)

func (m Modifier) String() string {
	switch m {
	case ModCtrl:
		return "ctrl"
	case ModMeta:
		return "meta"
	default:
		return ""
	}
}

// PlatformModifier is the modifier of the platform's save shortcut
func PlatformModifier() Modifier {
	return modifierFor(runtime.GOOS)
}

func modifierFor(goos string) Modifier {
	if goos == "darwin" {
		return ModMeta
	}
	return ModCtrl
}
