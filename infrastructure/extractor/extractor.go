package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/logger"

	"github.com/PuerkitoBio/goquery"
)

const (
	minParagraph = 50
	minArticle   = 100
	attempts     = 3
)

var (
	ErrUnsupportedSource = errors.New("content source is not supported by this extractor")
	ErrNoArticleContent  = errors.New("Could not extract article content. The page may be behind a paywall, require login, or block automated access. Try copying the text directly instead.")
	ErrForbidden         = errors.New("This website blocks automated access (403 Forbidden). Please copy the article text and paste it in the 'Text' tab instead.")
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// Extractor turns raw text and blog URLs into plain text. YouTube transcripts
// and PDFs are handled by an external service.
type Extractor struct {
	client *http.Client
}

func NewExtractor(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Extractor{client: &http.Client{Timeout: timeout}}
}

func (e *Extractor) Extract(ctx context.Context, sourceType model.SourceType, url, rawText string) (string, string, error) {
	switch sourceType {
	case model.SourceText:
		text := strings.TrimSpace(rawText)
		if text == "" {
			return "", "", errors.New("text content is empty")
		}
		return text, "Text Input", nil
	case model.SourceBlog:
		return e.blog(ctx, url)
	case model.SourceYouTube, model.SourcePDF:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedSource, sourceType)
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedSource, sourceType)
}

func (e *Extractor) blog(ctx context.Context, url string) (string, string, error) {
	var resp *http.Response
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", "", fmt.Errorf("Could not access the URL: %w", err)
		}
		req.Header.Set("User-Agent", userAgents[i%len(userAgents)])
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		resp, err = e.client.Do(req)
		if err != nil {
			logger.GetLogger().WithField("url", url).WithField("error", err).Error("Error fetching blog content")
			return "", "", fmt.Errorf("Could not access the URL: %w", err)
		}
		if resp.StatusCode == http.StatusForbidden && i < attempts-1 {
			resp.Body.Close()
			continue
		}
		break
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden {
		return "", "", ErrForbidden
	}
	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("Could not access the URL: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("parsing article: %w", err)
	}
	text, title := ArticleText(doc)
	if len(text) < minArticle {
		return "", "", ErrNoArticleContent
	}
	return text, title, nil
}

// ArticleText picks paragraphs from <article>, then the main content
// container, then the whole page, dropping short ones. Pages without usable
// paragraphs fall back to the body text.
func ArticleText(doc *goquery.Document) (string, string) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "Blog Article"
	}

	var paragraphs *goquery.Selection
	if article := doc.Find("article").First(); article.Length() > 0 {
		paragraphs = article.Find("p")
	} else if main := doc.Find("main, div.content, div.post-content, div.article-content, div.story-content").First(); main.Length() > 0 {
		paragraphs = main.Find("p")
	} else {
		paragraphs = doc.Find("p")
	}

	var parts []string
	paragraphs.Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); len(t) > minParagraph {
			parts = append(parts, t)
		}
	})
	text := strings.Join(parts, "\n\n")
	if text == "" {
		doc.Find("br").AfterHtml("\n")
		var lines []string
		for _, l := range strings.Split(doc.Find("body").Text(), "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		text = strings.Join(lines, "\n")
	}
	return text, title
}
