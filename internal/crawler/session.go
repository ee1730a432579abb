package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studenthousing/internal/config"
	"studenthousing/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxPageBytes = 5 << 20

// Options configures a crawl session
type Options struct {
	UserAgent string
	MaxPages  int
	MaxWords  int
	Timeout   time.Duration
	Language  string
}

// OptionsFromConfig builds session options from the crawler configuration
func OptionsFromConfig(cfg config.CrawlerConfig) Options {
	return Options{
		UserAgent: cfg.UserAgent,
		MaxPages:  cfg.MaxPages,
		MaxWords:  cfg.MaxWords,
		Timeout:   time.Duration(cfg.Timeout) * time.Second,
		Language:  cfg.Language,
	}
}

// ProgressFunc reports the number of pages visited so far
type ProgressFunc func(visited, max int)

// Session crawls one site. It owns the visited, enqueued and chunk de-duplication
// sets, so two sessions never share state.
type Session struct {
	opts     Options
	client   *http.Client
	logger   zerolog.Logger
	visited  map[string]bool
	enqueued map[string]bool
	seen     map[string]bool
	chunks   []model.Chunk
}

// NewSession creates a new crawl session
func NewSession(opts Options, logger zerolog.Logger) *Session {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Language == "" {
		opts.Language = "fr"
	}
	return &Session{
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
		logger:   logger.With().Str("component", "crawler").Logger(),
		visited:  make(map[string]bool),
		enqueued: make(map[string]bool),
		seen:     make(map[string]bool),
	}
}

// Crawl walks the site breadth-first from startURL, staying on its host, until
// MaxPages pages have been visited or no link is left. Unreachable pages are skipped.
func (s *Session) Crawl(ctx context.Context, startURL string, progress ProgressFunc) ([]model.Chunk, error) {
	start, err := url.Parse(startURL)
	if err != nil || start.Host == "" {
		return nil, fmt.Errorf("invalid start url %q", startURL)
	}
	start.Fragment = ""

	queue := []string{start.String()}
	s.enqueued[start.String()] = true
	for len(queue) > 0 && len(s.visited) < s.opts.MaxPages {
		if err := ctx.Err(); err != nil {
			return s.chunks, err
		}

		next := queue[0]
		queue = queue[1:]
		if s.visited[next] {
			continue
		}
		s.visited[next] = true

		// a URL enters the queue at most once per session
		for _, link := range s.processPage(ctx, next, start.Host) {
			if !s.enqueued[link] {
				s.enqueued[link] = true
				queue = append(queue, link)
			}
		}

		if progress != nil {
			progress(len(s.visited), s.opts.MaxPages)
		}
	}

	s.logger.Info().
		Str("start_url", startURL).
		Int("pages", len(s.visited)).
		Int("chunks", len(s.chunks)).
		Msg("crawl finished")

	return s.chunks, nil
}

// Chunks returns the chunks collected so far
func (s *Session) Chunks() []model.Chunk {
	return s.chunks
}

// Visited returns the number of pages visited
func (s *Session) Visited() int {
	return len(s.visited)
}

func (s *Session) processPage(ctx context.Context, pageURL, host string) []string {
	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", pageURL).Msg("page skipped")
		return nil
	}

	stripNodes(doc)

	for _, content := range SplitChunks(readableText(doc), s.opts.MaxWords) {
		hash := HashChunk(content)
		if s.seen[hash] {
			continue
		}
		s.seen[hash] = true
		s.chunks = append(s.chunks, model.Chunk{
			Content: content,
			Metadata: model.ChunkMetadata{
				URL:  pageURL,
				Lang: s.opts.Language,
				Hash: hash,
			},
		})
	}

	base, _ := url.Parse(pageURL)
	return sameHostLinks(doc, base, host)
}

func (s *Session) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if s.opts.UserAgent != "" {
		req.Header.Set("User-Agent", s.opts.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return html.Parse(io.LimitReader(resp.Body, maxPageBytes))
}

// HashChunk returns the hex SHA-256 of a chunk
func HashChunk(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func sameHostLinks(doc *html.Node, base *url.URL, host string) []string {
	var links []string
	found := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				ref, err := url.Parse(strings.TrimSpace(attr.Val))
				if err != nil {
					break
				}
				abs := base.ResolveReference(ref)
				if abs.Host != host || (abs.Scheme != "http" && abs.Scheme != "https") {
					break
				}
				abs.Fragment = ""
				abs.RawFragment = ""
				if link := abs.String(); !found[link] {
					found[link] = true
					links = append(links, link)
				}
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}
