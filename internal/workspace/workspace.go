package workspace

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/pace-platform/pace-admin/internal/theme"
)

// Workspace is the in-process state of one browser: its theme and, in
// credentials mode, the cookies the backend has set for it. None of it is
// written to storage.
type Workspace struct {
	Theme *theme.Context
	Jar   http.CookieJar

	lastSeen time.Time
}

// Registry keeps one Workspace per visitor ID and forgets idle ones
type Registry struct {
	mu           sync.Mutex
	workspaces   map[string]*Workspace
	idle         time.Duration
	defaultTheme theme.Name
	now          func() time.Time
}

func NewRegistry(idle time.Duration, defaultTheme theme.Name) *Registry {
	if defaultTheme == "" {
		defaultTheme = theme.Default
	}
	return &Registry{
		workspaces:   make(map[string]*Workspace),
		idle:         idle,
		defaultTheme: defaultTheme,
		now:          time.Now,
	}
}

func (r *Registry) Get(visitorID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[visitorID]
	if !ok {
		ws = r.newWorkspace()
		r.workspaces[visitorID] = ws
	}
	ws.lastSeen = r.now()
	return ws
}

func (r *Registry) newWorkspace() *Workspace {
	themes := theme.NewContext()
	_ = themes.SetThemeName(string(r.defaultTheme))

	// cookiejar.New never returns an error
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &Workspace{Theme: themes, Jar: jar}
}

// Forget drops the workspace of one visitor, if any
func (r *Registry) Forget(visitorID string) {
	r.mu.Lock()
	delete(r.workspaces, visitorID)
	r.mu.Unlock()
}

// Sweep forgets workspaces idle for longer than the configured lifetime and
// returns how many were dropped
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	count := 0
	for id, ws := range r.workspaces {
		if ws.lastSeen.Before(cutoff) {
			delete(r.workspaces, id)
			count++
		}
	}
	return count
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Run sweeps every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
