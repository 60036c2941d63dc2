package lsp

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/dbtls/pkg/project"
	"gitlab.com/tozd/go/errors"
)

// Document represents a text document with its metadata
type Document struct {
	URI        string
	Path       string
	LanguageID string
	Version    int32
	Content    string
	File       *project.File
}

// ParseFunc turns a document snapshot into a parsed file.
type ParseFunc func(ctx context.Context, path, text string) (*project.File, error)

type pendingParse struct {
	seq    uint64
	cancel context.CancelFunc
}

// DocumentManager handles document operations. Parses run on their own
// goroutine, at most one per document: a newer Update cancels the parse of
// the snapshot it replaces and a superseded result is never stored.
type DocumentManager struct {
	store *sync.Map // map[string]*Document
	fs    afero.Fs
	parse ParseFunc

	// OnCommit, when set, runs for every stored parse before Update's
	// channel yields it, without the manager lock held. Commits of one
	// document happen in Update order and a snapshot replaced before its
	// commit is skipped.
	OnCommit func(ctx context.Context, doc *Document)

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingParse
	commits map[string]*sync.Mutex
	wg      sync.WaitGroup
}

func NewDocumentManager(fs afero.Fs, parse ParseFunc) *DocumentManager {
	if parse == nil {
		parse = project.ParseFile
	}
	return &DocumentManager{
		store:   &sync.Map{},
		fs:      fs,
		parse:   parse,
		pending: map[string]*pendingParse{},
		commits: map[string]*sync.Mutex{},
	}
}

// commitLock serializes the commits of one document. m.mu must be held.
func (m *DocumentManager) commitLock(key string) *sync.Mutex {
	l, ok := m.commits[key]
	if !ok {
		l = &sync.Mutex{}
		m.commits[key] = l
	}
	return l
}

// current reports whether doc is still the stored snapshot of key.
func (m *DocumentManager) current(key string, doc *Document) bool {
	cur, ok := m.store.Load(key)
	return ok && cur.(*Document) == doc
}

// URIToPath converts a file:// URI to a clean slash separated path. Other
// URIs are returned unchanged.
func URIToPath(uri string) string {
	if !strings.HasPrefix(uri, "file:") {
		return uri
	}
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Path == "" {
		return strings.TrimPrefix(strings.TrimPrefix(uri, "file://"), "file:")
	}
	return path.Clean(parsed.Path)
}

// PathToURI is the inverse of URIToPath for absolute paths.
func PathToURI(p string) string {
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// normalizeURI keys the store by path so "file:///a" and "file:/a" agree.
func normalizeURI(uri string) string {
	return URIToPath(uri)
}

func (m *DocumentManager) GetNoFallback(uri string) (*Document, bool) {
	content, ok := m.store.Load(normalizeURI(uri))
	if !ok {
		return nil, false
	}
	return content.(*Document), true
}

// Get returns the newest parsed snapshot of uri. Documents that were never
// opened are read from the filesystem and parsed on the spot.
func (m *DocumentManager) Get(ctx context.Context, uri string) (*Document, bool) {
	if doc, ok := m.GetNoFallback(uri); ok {
		return doc, true
	}
	if m.fs == nil {
		return nil, false
	}

	p := URIToPath(uri)
	data, err := afero.ReadFile(m.fs, p)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Str("path", p).Err(err).Msg("document not found on disk")
		return nil, false
	}
	f, err := m.parse(ctx, p, string(data))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Str("path", p).Err(err).Msg("parsing document from disk")
		return nil, false
	}
	doc := &Document{URI: uri, Path: p, Content: string(data), File: f}
	actual, _ := m.store.LoadOrStore(normalizeURI(uri), doc)
	return actual.(*Document), true
}

// Update records text as the newest snapshot of uri and parses it in the
// background. The returned channel yields the stored document once, or is
// closed empty when the parse failed or a later Update superseded it.
func (m *DocumentManager) Update(ctx context.Context, uri, languageID string, version int32, text string) <-chan *Document {
	key := normalizeURI(uri)
	out := make(chan *Document, 1)
	pctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.seq++
	seq := m.seq
	if prev, ok := m.pending[key]; ok {
		prev.cancel()
	}
	m.pending[key] = &pendingParse{seq: seq, cancel: cancel}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(out)
		defer cancel()

		p := URIToPath(uri)
		f, err := m.parse(pctx, p, text)

		m.mu.Lock()
		if cur, ok := m.pending[key]; !ok || cur.seq != seq {
			m.mu.Unlock()
			zerolog.Ctx(ctx).Debug().Str("uri", uri).Int32("version", version).Msg("parse superseded")
			return
		}
		delete(m.pending, key)
		if err != nil {
			m.mu.Unlock()
			if !errors.Is(err, context.Canceled) {
				zerolog.Ctx(ctx).Error().Str("uri", uri).Int32("version", version).Err(err).Msg("parsing document")
			}
			return
		}

		doc := &Document{
			URI:        uri,
			Path:       p,
			LanguageID: languageID,
			Version:    version,
			Content:    text,
			File:       f,
		}
		m.store.Store(key, doc)
		commit := m.commitLock(key)
		m.mu.Unlock()

		// commits of one document stay in order; other documents and new
		// updates do not wait for the client
		commit.Lock()
		defer commit.Unlock()
		if !m.current(key, doc) {
			zerolog.Ctx(ctx).Debug().Str("uri", uri).Int32("version", version).Msg("parse superseded")
			return
		}
		if m.OnCommit != nil {
			m.OnCommit(ctx, doc)
		}
		out <- doc
	}()
	return out
}

// Close forgets uri and cancels its pending parse.
func (m *DocumentManager) Close(uri string) {
	key := normalizeURI(uri)
	m.mu.Lock()
	if prev, ok := m.pending[key]; ok {
		prev.cancel()
		delete(m.pending, key)
	}
	m.mu.Unlock()
	m.store.Delete(key)
}

// Wait blocks until every started parse has finished.
func (m *DocumentManager) Wait() {
	m.wg.Wait()
}
