// Package webfetch implements the page_reader tool: headless rendering
// via chromedp with readability extraction, for inputs that are URLs.
package webfetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/dualmind/config"
)

// Tool fetches and extracts readable page content.
type Tool struct {
	timeout  time.Duration
	maxChars int
}

// New creates the tool from config.
func New(cfg config.WebFetchConfig) *Tool {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 20000
	}
	return &Tool{timeout: timeout, maxChars: maxChars}
}

// Run implements registry.Tool. Input must be an absolute http(s) URL.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	target := strings.TrimSpace(input)
	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", errors.New("page_reader requires an absolute http(s) url as input")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	html, err := fetchHTML(ctx, target)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", target, err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", target, err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no readable content at %s", target)
	}
	if len(text) > t.maxChars {
		text = text[:t.maxChars]
	}
	title := strings.TrimSpace(article.Title)
	if title != "" {
		return title + "\n\n" + text, nil
	}
	return text, nil
}

func fetchHTML(ctx context.Context, target string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("dualmind/1.0"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
