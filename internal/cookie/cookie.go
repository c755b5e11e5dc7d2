// Package cookie turns a pasted browser cookie string into the set of cookies
// forwarded to the media host.
package cookie

import (
	"net/http"
	"slices"
	"strings"
)

// attributes are Set-Cookie attribute names; they never name a user cookie.
var attributes = map[string]struct{}{
	"path":        {},
	"domain":      {},
	"expires":     {},
	"max-age":     {},
	"secure":      {},
	"httponly":    {},
	"samesite":    {},
	"comment":     {},
	"version":     {},
	"partitioned": {},
}

// Jar maps cookie names to values.
type Jar map[string]string

// Parse reads a semicolon separated cookie string. Segments that are not valid
// name=value pairs, or that are cookie attributes, are dropped silently.
// A later duplicate name overrides an earlier one.
func Parse(raw string) Jar {
	jar := make(Jar)
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if !strings.Contains(segment, "=") {
			continue
		}

		parsed, err := http.ParseCookie(segment)
		if err != nil || len(parsed) != 1 {
			continue
		}

		c := parsed[0]
		if _, isAttr := attributes[strings.ToLower(c.Name)]; isAttr {
			continue
		}
		jar[c.Name] = c.Value
	}
	return jar
}

// Names returns the cookie names in sorted order.
func (j Jar) Names() []string {
	names := make([]string, 0, len(j))
	for name := range j {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Apply sets the Cookie header of req from the jar. Values are written exactly
// as parsed; http.Request.AddCookie would quote values holding spaces or commas.
func (j Jar) Apply(req *http.Request) {
	if len(j) == 0 {
		return
	}
	pairs := make([]string, 0, len(j))
	for _, name := range j.Names() {
		pairs = append(pairs, name+"="+j[name])
	}
	req.Header.Set("Cookie", strings.Join(pairs, "; "))
}

// AccountID returns the account id carried by the session cookies, or "" when
// none is present. It is only used to give log lines some context.
func (j Jar) AccountID() string {
	for _, name := range []string{"ltuid_v2", "ltuid", "account_id_v2", "account_id"} {
		if v := j[name]; v != "" {
			return v
		}
	}
	return ""
}
