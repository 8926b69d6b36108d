// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
)

// normalizeURL strips the fragment and any trailing slash in place so
// the same page is never queued twice under different spellings.
func normalizeURL(u *url.URL) {
	u.Fragment = ""
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
}

// isInternal reports whether link belongs to the crawl scope: same host
// as the start page and a path under the start page's path.
func isInternal(base, link *url.URL) bool {
	if link.Host != base.Host {
		return false
	}
	if link.Scheme != "http" && link.Scheme != "https" {
		return false
	}
	if link.Path == "" || link.Path == "/" {
		return false
	}
	return strings.HasPrefix(link.Path, base.Path)
}

// pageID derives a stable file name from the normalized URL.
func pageID(u *url.URL) string {
	h := sha256.Sum256([]byte(u.String()))
	return fmt.Sprintf("%x", h)[:12]
}
