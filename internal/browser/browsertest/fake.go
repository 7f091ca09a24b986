// Package browsertest provides scripted in-memory sessions for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/maltedev/listing-scraper/internal/browser"
)

var (
	ErrUnknownURL = errors.New("net::ERR_NAME_NOT_RESOLVED")
	ErrTimeout    = errors.New("timeout exceeded")
)

// Document scripts what a URL renders.
type Document struct {
	Title string
	HTML  string
	// Ready lists the selectors that appear once loaded. ReadyAll makes
	// every selector appear.
	Ready    []string
	ReadyAll bool
	GotoErr  error
	// Dismiss reports whether an overlay button is present.
	Dismiss bool
}

// Session is a scripted browser.Session. It records every call.
type Session struct {
	mu sync.Mutex

	DeviceClass browser.Device
	Documents   map[string]Document
	Shot        []byte
	ShotErr     error
	CloseErr    error
	// OnGoto runs before each navigation, e.g. to advance a fake clock.
	OnGoto func(url string)

	current  string
	Gotos    []string
	Timeouts []time.Duration
	Waits    []string
	Clicks   []string
	Keys     []string
	Scrolls  int
	Shots    int
	Closed   int
}

func NewSession(device browser.Device, docs map[string]Document) *Session {
	if docs == nil {
		docs = make(map[string]Document)
	}
	return &Session{DeviceClass: device, Documents: docs}
}

func (s *Session) Device() browser.Device {
	return s.DeviceClass
}

func (s *Session) Goto(url string, timeout time.Duration) error {
	if s.OnGoto != nil {
		s.OnGoto(url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Gotos = append(s.Gotos, url)
	s.Timeouts = append(s.Timeouts, timeout)
	doc, ok := s.Documents[url]
	if !ok {
		return fmt.Errorf("goto %s: %w", url, ErrUnknownURL)
	}
	if doc.GotoErr != nil {
		return doc.GotoErr
	}
	s.current = url
	return nil
}

func (s *Session) Title() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Documents[s.current].Title, nil
}

func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) WaitForSelector(selector string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Waits = append(s.Waits, selector)
	doc := s.Documents[s.current]
	if doc.ReadyAll || slices.Contains(doc.Ready, selector) {
		return nil
	}
	return fmt.Errorf("waiting for %q: %w", selector, ErrTimeout)
}

func (s *Session) Content() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Documents[s.current].HTML, nil
}

func (s *Session) ClickIfPresent(selector string, timeout time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Documents[s.current].Dismiss {
		return false, nil
	}
	s.Clicks = append(s.Clicks, selector)
	return true, nil
}

func (s *Session) PressKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Keys = append(s.Keys, key)
	return nil
}

func (s *Session) ScrollToBottom() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scrolls++
	return nil
}

func (s *Session) Screenshot(quality int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Shots++
	return s.Shot, s.ShotErr
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed++
	return s.CloseErr
}

// Factory hands out the scripted session for each device class.
type Factory struct {
	mu sync.Mutex

	Desktop *Session
	Mobile  *Session
	Err     error

	Opened []browser.Device
}

func (f *Factory) NewSession(ctx context.Context, device browser.Device) (browser.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Opened = append(f.Opened, device)
	if f.Err != nil {
		return nil, f.Err
	}

	var s *Session
	if device == browser.Mobile {
		s = f.Mobile
	} else {
		s = f.Desktop
	}
	if s == nil {
		s = NewSession(device, nil)
		if device == browser.Mobile {
			f.Mobile = s
		} else {
			f.Desktop = s
		}
	}
	return s, nil
}

// OpenCount returns how many sessions were requested.
func (f *Factory) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Opened)
}
