// Package input parses raw URL lists and blacklists into clean sets.
package input

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// urlToken matches the longest scheme://non-space run anchored at line start.
var urlToken = regexp.MustCompile(`^https?://[^ ]+`)

// LoadURLs reads the list of URLs to process. Lines without a leading URL
// token are dropped and logged. A read failure or undecodable input is
// returned as an error and treated as fatal by callers.
func LoadURLs(r io.Reader, logger *zap.Logger) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !utf8.ValidString(line) {
			return nil, fmt.Errorf("input is not valid UTF-8")
		}
		match := urlToken.FindString(strings.TrimSpace(line))
		if match == "" {
			logger.Warn("not a URL, discarding line", zap.String("line", line))
			continue
		}
		urls = append(urls, match)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

// LoadBlacklist reads unwanted URLs. Every entry is stored under both its
// http and https form, so scheme-mismatched listings still match.
func LoadBlacklist(r io.Reader) (map[string]struct{}, error) {
	blacklist := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		url := strings.TrimSpace(scanner.Text())
		if url == "" {
			continue
		}
		if !utf8.ValidString(url) {
			return nil, fmt.Errorf("blacklist is not valid UTF-8")
		}
		blacklist[url] = struct{}{}
		if strings.HasPrefix(url, "https") {
			blacklist[strings.Replace(url, "https:", "http:", 1)] = struct{}{}
		} else {
			blacklist[strings.Replace(url, "http:", "https:", 1)] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blacklist: %w", err)
	}
	return blacklist, nil
}

// FilterAndDedupe drops blacklisted and syntactically invalid URLs and
// deduplicates the rest, preserving first-occurrence order. An empty result
// is reported but not fatal.
func FilterAndDedupe(urls []string, blacklist map[string]struct{}, validate func(string) bool, logger *zap.Logger) []string {
	seen := make(map[string]struct{}, len(urls))
	var kept []string
	for _, url := range urls {
		if _, listed := blacklist[url]; listed {
			logger.Debug("blacklisted URL", zap.String("url", url))
			continue
		}
		if validate != nil && !validate(url) {
			logger.Debug("invalid URL", zap.String("url", url))
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		kept = append(kept, url)
	}
	if len(kept) == 0 {
		logger.Error("no URLs to process, invalid or blacklisted input")
	}
	return kept
}
