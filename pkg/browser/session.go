package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Options controls how a Session reaches Chromium.
type Options struct {
	// ControlURL attaches to an already running browser when set.
	ControlURL string
	Headless   bool
	// Bin overrides the Chromium binary used by the launcher.
	Bin        string
	DefaultURL string
	Width      int
	Height     int
}

// Session owns the browser and the single tab jobs run against.
type Session struct {
	browser    *rod.Browser
	page       *rod.Page
	launcher   *launcher.Launcher
	controlURL string
}

// Open connects to opts.ControlURL or launches a local Chromium, then opens
// the default URL in a new tab.
func Open(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{}

	controlURL := opts.ControlURL
	if controlURL == "" {
		bin := opts.Bin
		if bin == "" {
			bin, _ = launcher.LookPath()
		}
		s.launcher = launcher.New().Bin(bin).Headless(opts.Headless)
		if opts.Width > 0 && opts.Height > 0 {
			s.launcher = s.launcher.Set("window-size", fmt.Sprintf("%d,%d", opts.Width, opts.Height))
		}
		u, err := s.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}
	s.controlURL = controlURL

	s.browser = rod.New().Context(ctx).ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		s.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	target := opts.DefaultURL
	if target == "" {
		target = "about:blank"
	}
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open %s: %w", target, err)
	}
	if opts.Width > 0 && opts.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Width,
			Height:            opts.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	if err := page.WaitLoad(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed waiting for %s to load: %w", target, err)
	}
	s.page = page
	return s, nil
}

// Page returns the tab as a Page.
func (s *Session) Page() Page {
	return NewRodPage(s.page)
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	img, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return img, nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page html: %w", err)
	}
	return html, nil
}

func (s *Session) CurrentState(ctx context.Context) (State, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return State{}, fmt.Errorf("failed to read page info: %w", err)
	}
	return State{URL: info.URL, Title: info.Title}, nil
}

// Close releases the tab. A browser reached through ControlURL is left
// running; one this session launched is shut down and cleaned up.
func (s *Session) Close() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.launcher == nil {
		return
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	s.launcher.Cleanup()
}
