package browser

import (
	"context"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// NetworkLog folds Network domain events of one tab into records, in
// request order.
type NetworkLog struct {
	mu    sync.Mutex
	byID  map[proto.NetworkRequestID]int
	order []artifact.NetworkRecord
}

func newNetworkLog() *NetworkLog {
	return &NetworkLog{byID: make(map[proto.NetworkRequestID]int)}
}

// startNetworkLog enables the Network domain and subscribes to request
// events until ctx is cancelled. Must run before navigation.
func startNetworkLog(ctx context.Context, page *rod.Page) (*NetworkLog, error) {
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, err
	}

	nl := newNetworkLog()
	wait := page.Context(ctx).EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			if e.Request == nil {
				return
			}
			nl.requestSent(e.RequestID, e.Request.URL, string(e.Type), seconds(e.Timestamp))
		},
		func(e *proto.NetworkResponseReceived) {
			if e.Response == nil {
				return
			}
			nl.responseReceived(e.RequestID, e.Response.MIMEType, string(e.Type))
		},
		func(e *proto.NetworkLoadingFinished) {
			nl.loadingFinished(e.RequestID, int64(e.EncodedDataLength), seconds(e.Timestamp))
		},
	)
	go wait()

	return nl, nil
}

func seconds(t proto.MonotonicTime) float64 {
	return t.Duration().Seconds()
}

func (nl *NetworkLog) requestSent(id proto.NetworkRequestID, url, resType string, start float64) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	// Redirects reuse the request id: the last hop wins.
	if i, ok := nl.byID[id]; ok {
		nl.order[i].URL = url
		nl.order[i].StartTime = start
		return
	}
	nl.byID[id] = len(nl.order)
	nl.order = append(nl.order, artifact.NetworkRecord{URL: url, ResourceType: resType, StartTime: start})
}

func (nl *NetworkLog) responseReceived(id proto.NetworkRequestID, mime, resType string) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	if i, ok := nl.byID[id]; ok {
		nl.order[i].MIMEType = mime
		if resType != "" {
			nl.order[i].ResourceType = resType
		}
	}
}

func (nl *NetworkLog) loadingFinished(id proto.NetworkRequestID, size int64, end float64) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	if i, ok := nl.byID[id]; ok {
		nl.order[i].TransferSize = size
		nl.order[i].EndTime = end
	}
}

// Records returns a snapshot of the log.
func (nl *NetworkLog) Records() []artifact.NetworkRecord {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	out := make([]artifact.NetworkRecord, len(nl.order))
	copy(out, nl.order)
	return out
}
