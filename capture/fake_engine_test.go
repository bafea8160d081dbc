package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"page-recorder/browser"
)

// pageBehavior scripts how a fake page reacts to one URL
type pageBehavior struct {
	gotoErr         error
	screenshotErr   error
	screenshotPanic bool
	noVideo         bool
}

type fakeEngine struct {
	launchErr  error
	sessionErr error
	behaviors  map[string]pageBehavior

	launched bool
	closed   bool
	opts     browser.SessionOptions
	session  *fakeSession
}

func (e *fakeEngine) Launch(ctx context.Context) error {
	if e.launchErr != nil {
		return e.launchErr
	}
	e.launched = true
	return nil
}

func (e *fakeEngine) NewSession(ctx context.Context, opts browser.SessionOptions) (browser.Session, error) {
	if e.sessionErr != nil {
		return nil, e.sessionErr
	}
	e.opts = opts
	e.session = &fakeSession{dir: opts.VideoDir, behaviors: e.behaviors}
	return e.session, nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

type fakeSession struct {
	dir       string
	behaviors map[string]pageBehavior
	pages     []*fakePage
	closed    bool
}

func (s *fakeSession) NewPage(ctx context.Context) (browser.Page, error) {
	p := &fakePage{session: s}
	// Like a real engine, recording starts with the page under a generated name.
	p.video = filepath.Join(s.dir, fmt.Sprintf("page-%d.webm", len(s.pages)+1))
	if err := os.WriteFile(p.video, []byte("webm"), 0644); err != nil {
		return nil, err
	}
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSession) urls() []string {
	var urls []string
	for _, p := range s.pages {
		urls = append(urls, p.url)
	}
	return urls
}

type fakePage struct {
	session  *fakeSession
	url      string
	behavior pageBehavior
	video    string
	closed   bool
}

func (p *fakePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p.url = url
	p.behavior = p.session.behaviors[url]
	return p.behavior.gotoErr
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error {
	if p.behavior.screenshotPanic {
		panic("renderer crashed")
	}
	if p.behavior.screenshotErr != nil {
		return p.behavior.screenshotErr
	}
	return os.WriteFile(path, []byte("png"), 0644)
}

func (p *fakePage) VideoPath() (string, error) {
	if p.behavior.noVideo {
		return "", browser.ErrNoVideo
	}
	return p.video, nil
}

func (p *fakePage) Close() error {
	if p.closed {
		return errors.New("page closed twice")
	}
	p.closed = true
	return nil
}
