package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// NavigateTimeout bounds navigation plus the load wait of a tab.
const NavigateTimeout = 30 * time.Second

// Tab wraps a Rod page opened for one audit pass: stealth, resource
// blocking, and a network log armed before navigation.
type Tab struct {
	Page    *rod.Page
	PageURL string
	PageID  string
	Stealth StealthLevel
	Network *NetworkLog

	manager *Manager
	stopNet context.CancelFunc
}

// OpenTab creates a new tab, arms the network log, navigates to the URL
// and waits for the load event.
func OpenTab(ctx context.Context, mgr *Manager, pageURL, pageID string) (*Tab, error) {
	b, err := mgr.acquire(ctx)
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		mgr.release()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	tab := &Tab{
		Page:    page,
		PageURL: pageURL,
		PageID:  pageID,
		Stealth: mgr.cfg.Stealth,
		manager: mgr,
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	netCtx, stopNet := context.WithCancel(context.Background())
	tab.stopNet = stopNet
	tab.Network, err = startNetworkLog(netCtx, page)
	if err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: network log: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return tab, nil
}

// EvalString runs a JS function expression that returns a string (usually
// JSON.stringify output) and returns that string.
func (t *Tab) EvalString(ctx context.Context, script string) (string, error) {
	res, err := t.Page.Context(ctx).Eval(script)
	if err != nil {
		return "", fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value.Str(), nil
}

// Close closes the tab and returns its slot to the manager.
func (t *Tab) Close() error {
	if t.stopNet != nil {
		t.stopNet()
	}
	var err error
	if t.Page != nil {
		err = t.Page.Close()
		t.Page = nil
		t.manager.release()
	}
	return err
}

// ensureDocument requests the document root so DOM node ids can be pushed
// to the frontend.
func (t *Tab) ensureDocument(ctx context.Context) error {
	depth := 0
	_, err := proto.DOMGetDocument{Depth: &depth}.Call(t.Page.Context(ctx))
	return err
}

// NetworkRecords returns the requests recorded since the tab was opened.
func (t *Tab) NetworkRecords() []artifact.NetworkRecord {
	if t.Network == nil {
		return nil
	}
	return t.Network.Records()
}
