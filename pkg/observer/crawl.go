package observer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jhmac/elon/pkg/capability"
)

const (
	crawlPageTimeout = 8 * time.Second
	slowResponse     = 3 * time.Second
)

var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// CrawlOptions bounds one site crawl.
type CrawlOptions struct {
	Root          string
	MaxPages      int
	Mode          CrawlMode
	Authenticated bool
}

// Crawl visits up to opts.MaxPages pages reachable from opts.Root over
// plain HTTP (backend-only mode) or, in full mode when a "crawler"
// capability is registered, delegates to it for a JS-rendered session.
// It returns aggregated issues already pre-filtered: 401/403 responses
// are split into authExpected rather than issues when the session is
// unauthenticated.
func Crawl(ctx context.Context, client *http.Client, capabilities *capability.Registry, opts CrawlOptions) (issues []Issue, authExpected []Issue) {
	if opts.Mode == CrawlModeFull && capabilities != nil {
		if crawler, ok := capabilities.Get("crawler"); ok {
			res := crawler.Run(ctx, capability.Task{Name: "crawl", Payload: map[string]any{
				"root": opts.Root, "maxPages": opts.MaxPages,
			}})
			return splitAuthEvidence(decodeCrawlIssues(res), opts.Authenticated)
		}
	}

	return splitAuthEvidence(backendOnlyCrawl(ctx, client, opts), opts.Authenticated)
}

func decodeCrawlIssues(res capability.Result) []Issue {
	if res.Err != nil {
		return []Issue{{Severity: SeverityMedium, Source: "crawl", Summary: res.Err.Error()}}
	}
	raw, ok := res.Output["issues"].([]Issue)
	if !ok {
		return nil
	}
	return raw
}

func backendOnlyCrawl(ctx context.Context, client *http.Client, opts CrawlOptions) []Issue {
	root, err := url.Parse(opts.Root)
	if err != nil {
		return []Issue{{Severity: SeverityMedium, Source: "crawl", Summary: "invalid crawl root: " + err.Error()}}
	}

	var issues []Issue
	visited := map[string]bool{}
	queue := []string{opts.Root}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}

	for len(queue) > 0 && len(visited) < maxPages {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true

		body, statusCode, latency, fetchErr := fetchPage(ctx, client, next)
		if fetchErr != nil {
			issues = append(issues, Issue{Severity: SeverityMedium, Source: "crawl", Summary: "navigation error", Detail: fetchErr.Error(), URL: next})
			continue
		}

		issues = append(issues, classifyResponse(next, statusCode, latency)...)

		for _, link := range extractSameOriginLinks(root, body) {
			if !visited[link] {
				queue = append(queue, link)
			}
		}
	}

	return issues
}

func fetchPage(ctx context.Context, client *http.Client, pageURL string) (body string, statusCode int, latency time.Duration, err error) {
	ctx, cancel := context.WithTimeout(ctx, crawlPageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", 0, 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency = time.Since(start)
	if err != nil {
		return "", 0, latency, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return string(data), resp.StatusCode, latency, nil
}

func classifyResponse(pageURL string, statusCode int, latency time.Duration) []Issue {
	var issues []Issue
	switch {
	case statusCode >= 500:
		issues = append(issues, Issue{Severity: SeverityHigh, Source: "crawl", Summary: fmt.Sprintf("server error %d", statusCode), URL: pageURL, StatusCode: statusCode})
	case statusCode == 401 || statusCode == 403:
		issues = append(issues, Issue{Severity: SeverityMedium, Source: "crawl", Summary: fmt.Sprintf("auth error %d", statusCode), URL: pageURL, StatusCode: statusCode})
	case statusCode >= 400:
		issues = append(issues, Issue{Severity: SeverityLow, Source: "crawl", Summary: fmt.Sprintf("client error %d", statusCode), URL: pageURL, StatusCode: statusCode})
	}
	if latency > slowResponse {
		issues = append(issues, Issue{Severity: SeverityLow, Source: "crawl", Summary: fmt.Sprintf("slow response (%s)", latency), URL: pageURL})
	}
	return issues
}

// splitAuthEvidence quarantines 401/403 issues into authExpected when the
// crawl ran unauthenticated, since they are expected rather than bugs.
func splitAuthEvidence(all []Issue, authenticated bool) (issues, authExpected []Issue) {
	for _, issue := range all {
		if !authenticated && (issue.StatusCode == 401 || issue.StatusCode == 403) {
			authExpected = append(authExpected, issue)
			continue
		}
		issues = append(issues, issue)
	}
	return issues, authExpected
}

func extractSameOriginLinks(root *url.URL, body string) []string {
	var links []string
	for _, match := range hrefPattern.FindAllStringSubmatch(body, -1) {
		href := match[1]
		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			continue
		}
		resolved, err := root.Parse(href)
		if err != nil || resolved.Host != root.Host {
			continue
		}
		links = append(links, resolved.String())
	}
	return links
}
