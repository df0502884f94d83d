package config

import (
	"regexp"
	"strings"
	"sync"
)

var globCache sync.Map // pattern -> *regexp.Regexp

// MatchGlob reports whether pattern occurs anywhere in name. '*' matches any
// run of characters including path separators and '?' matches exactly one
// character; everything else is literal. The match is not anchored, so
// "node_modules/**" also matches "web/node_modules/x.js".
func MatchGlob(pattern, name string) bool {
	return compileGlob(pattern).MatchString(name)
}

func compileGlob(pattern string) *regexp.Regexp {
	if re, ok := globCache.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	var b strings.Builder
	b.WriteString("(?s)")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	re := regexp.MustCompile(b.String())
	globCache.Store(pattern, re)
	return re
}
