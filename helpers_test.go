package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

// memoryStore is an ItemStore for handler tests.
type memoryStore struct {
	mu    sync.Mutex
	items []ShoppingItem
	loads int
	saves int
}

func newMemoryStore(items ...ShoppingItem) *memoryStore {
	return &memoryStore{items: items}
}

func (s *memoryStore) Load() []ShoppingItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	cp := make([]ShoppingItem, len(s.items))
	copy(cp, s.items)
	return cp
}

func (s *memoryStore) Save(items []ShoppingItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.items = make([]ShoppingItem, len(items))
	copy(s.items, items)
}

func (s *memoryStore) snapshot() []ShoppingItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]ShoppingItem, len(s.items))
	copy(cp, s.items)
	return cp
}

type fakeUploader struct {
	mu          sync.Mutex
	err         error
	url         string
	keys        []string
	paths       []string
	hadDeadline bool
}

func (u *fakeUploader) Upload(ctx context.Context, localPath, key string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, u.hadDeadline = ctx.Deadline()
	u.keys = append(u.keys, key)
	u.paths = append(u.paths, localPath)
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

type failingLedger struct{}

func (failingLedger) Record(context.Context, BackupRecord) error {
	return errors.New("ledger down")
}

func (failingLedger) List(context.Context) ([]BackupRecord, error) {
	return nil, errors.New("ledger down")
}

var fixedNow = time.Date(2024, 5, 17, 9, 30, 15, 123456000, time.Local)

func newTestServer(store ItemStore, connector *BackupConnector, ledger BackupLedger) (*Server, http.Handler) {
	srv := NewServer(store, connector, ledger, testLogger())
	srv.now = func() time.Time { return fixedNow }
	return srv, srv.Routes()
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
