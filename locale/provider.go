package locale

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when a turn carries no language hint.
const DefaultLanguage = "en"

// Provider resolves the string bundle of one skill in one language.
type Provider interface {
	Strings(ctx context.Context, bundleID, lang string) (Bundle, error)
}

// FSProvider reads bundles from <lang>/<bundleID>.yaml inside an fs.FS.
// Parsed bundles are cached until Reset.
type FSProvider struct {
	fsys        fs.FS
	defaultLang string
	logger      *zap.Logger

	mu    sync.RWMutex
	cache map[string]Bundle
	group singleflight.Group
}

// NewFSProvider creates a bundle provider over fsys.
func NewFSProvider(fsys fs.FS, defaultLang string, logger *zap.Logger) *FSProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLang == "" {
		defaultLang = DefaultLanguage
	}
	return &FSProvider{
		fsys:        fsys,
		defaultLang: defaultLang,
		logger:      logger.With(zap.String("component", "locale")),
		cache:       make(map[string]Bundle),
	}
}

// Strings returns the bundle for bundleID in lang, falling back to the
// default language and then to an empty bundle when no file exists.
func (p *FSProvider) Strings(ctx context.Context, bundleID, lang string) (Bundle, error) {
	lang = BaseLanguage(lang)
	if lang == "" {
		lang = p.defaultLang
	}
	key := lang + "/" + bundleID

	p.mu.RLock()
	b, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return b, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		b, err := p.load(bundleID, lang)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.cache[key] = b
		p.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Bundle), nil
}

// Reset drops every cached bundle so the next lookup rereads the files.
func (p *FSProvider) Reset() {
	p.mu.Lock()
	n := len(p.cache)
	p.cache = make(map[string]Bundle)
	p.mu.Unlock()
	p.logger.Info("bundle cache cleared", zap.Int("entries", n))
}

func (p *FSProvider) load(bundleID, lang string) (Bundle, error) {
	candidates := []string{lang}
	if lang != p.defaultLang {
		candidates = append(candidates, p.defaultLang)
	}
	for _, l := range candidates {
		b, err := p.readFile(path.Join(l, bundleID+".yaml"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if l != lang {
			p.logger.Debug("bundle language fallback",
				zap.String("bundle", bundleID),
				zap.String("requested", lang),
				zap.String("used", l))
		}
		return b, nil
	}
	p.logger.Debug("no bundle found", zap.String("bundle", bundleID), zap.String("lang", lang))
	return Bundle{}, nil
}

func (p *FSProvider) readFile(name string) (Bundle, error) {
	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return nil, err
	}
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bundle %s: %w", name, err)
	}
	if b == nil {
		b = Bundle{}
	}
	return b, nil
}

// LoadChain fetches the bundles of every id concurrently and merges them in
// the given order, so later ids override earlier ones.
func LoadChain(ctx context.Context, p Provider, ids []string, lang string) (Bundle, error) {
	bundles := make([]Bundle, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			b, err := p.Strings(gctx, id, lang)
			if err != nil {
				return fmt.Errorf("load strings for %s: %w", id, err)
			}
			bundles[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(bundles...), nil
}

// BaseLanguage reduces a BCP-47 tag to its primary language subtag ("en-US" -> "en").
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
