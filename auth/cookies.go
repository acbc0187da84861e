package auth

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCookieFile parses a Netscape-format cookie file (the standard
// browser-export format). Expired cookies are skipped.
//
// Line format: domain \t includeSubdomains \t path \t secure \t expiry \t name \t value
func LoadCookieFile(path string) ([]*http.Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer f.Close()

	var cookies []*http.Cookie
	now := time.Now()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}

		var expires time.Time
		if secs, err := strconv.ParseInt(parts[4], 10, 64); err == nil && secs > 0 {
			expires = time.Unix(secs, 0)
			if expires.Before(now) {
				continue
			}
		}

		cookies = append(cookies, &http.Cookie{
			Name:    parts[5],
			Value:   parts[6],
			Domain:  parts[0],
			Path:    parts[2],
			Secure:  strings.EqualFold(parts[3], "TRUE"),
			Expires: expires,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	return cookies, nil
}
