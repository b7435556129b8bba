// Package navigator hands URLs and payment URIs to the operating system.
package navigator

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
	"go.uber.org/zap"
)

// Opener opens a URI somewhere outside the terminal.
type Opener interface {
	Open(uri string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(uri string) error

func (f OpenerFunc) Open(uri string) error { return f(uri) }

var ErrEmptyURI = errors.New("empty uri")

// System opens URIs with the platform's default handler.
type System struct {
	open func(uri string) error
}

func NewSystem() *System {
	// the handler's own output would draw over the UI
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &System{open: browser.OpenURL}
}

func (s *System) Open(uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return ErrEmptyURI
	}
	if err := s.open(uri); err != nil {
		return fmt.Errorf("failed to open %s uri: %w", scheme(uri), err)
	}
	return nil
}

// Clipboard copies the URI so the user can paste it into the wallet.
type Clipboard struct {
	write func(string) error
}

var ErrClipboardUnsupported = errors.New("clipboard unsupported")

func NewClipboard() *Clipboard {
	if clipboard.Unsupported {
		return &Clipboard{}
	}
	return &Clipboard{write: clipboard.WriteAll}
}

func (c *Clipboard) Open(uri string) error {
	if c.write == nil {
		return ErrClipboardUnsupported
	}
	if err := c.write(uri); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// Chain tries the primary opener and falls back to the secondary one.
type Chain struct {
	Primary  Opener
	Fallback Opener
	logger   *zap.Logger

	// OnFallback is told when the fallback was used successfully.
	OnFallback func(uri string)
}

func NewChain(primary, fallback Opener, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{Primary: primary, Fallback: fallback, logger: logger.Named("navigator")}
}

// Open returns the fallback's error when both openers fail.
func (c *Chain) Open(uri string) error {
	err := c.Primary.Open(uri)
	if err == nil {
		return nil
	}
	c.logger.Warn("Primary navigation failed", zap.String("scheme", scheme(uri)), zap.Error(err))
	if c.Fallback == nil {
		return err
	}
	if err := c.Fallback.Open(uri); err != nil {
		return err
	}
	if c.OnFallback != nil {
		c.OnFallback(uri)
	}
	return nil
}

func scheme(uri string) string {
	if i := strings.IndexByte(uri, ':'); i > 0 {
		return strings.ToLower(uri[:i])
	}
	return ""
}
