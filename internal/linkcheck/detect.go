package linkcheck

import (
	"bytes"
	"net/http"
	"slices"
	"strings"
)

// Page is the part of an HTTP response the bot-wall detectors look at.
type Page struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// signature describes how one bot-protection vendor answers a blocked client.
type signature struct {
	source   string
	statuses []int
	// server matches a substring of the lower-cased Server header.
	server string
	// headers match when any of them is present.
	headers []string
	// bodies match when every marker of any one group appears in the body.
	bodies [][]string
}

var signatures = []signature{
	{
		source:   "Cloudflare",
		statuses: []int{http.StatusForbidden, http.StatusServiceUnavailable},
		server:   "cloudflare",
		bodies: [][]string{
			{"cf-browser-verification"},
			{"cloudflare-nginx"},
			{"cf-turnstile"},
			{"Attention Required! | Cloudflare"},
		},
	},
	{
		source:   "Akamai",
		statuses: []int{http.StatusForbidden},
		server:   "akamai",
		bodies:   [][]string{{"Reference #", "Access Denied"}},
	},
	{
		source:   "DataDome",
		statuses: []int{http.StatusForbidden},
		server:   "datadome",
		headers:  []string{"X-DataDome", "X-DataDome-Response"},
		bodies:   [][]string{{"geo.captcha-delivery.com"}, {"datadome"}},
	},
	{
		source:   "PerimeterX",
		statuses: []int{http.StatusForbidden},
		headers:  []string{"X-Px-Captcha"},
		bodies:   [][]string{{"client.perimeterx.net"}, {"px-captcha"}, {"_pxBlock"}},
	},
}

func (s signature) match(p Page) bool {
	if !slices.Contains(s.statuses, p.StatusCode) {
		return false
	}
	if s.server != "" && strings.Contains(strings.ToLower(p.Header.Get("Server")), s.server) {
		return true
	}
	for _, h := range s.headers {
		if p.Header.Get(h) != "" {
			return true
		}
	}
	for _, group := range s.bodies {
		all := true
		for _, marker := range group {
			if !bytes.Contains(p.Body, []byte(marker)) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// Detect reports the vendor whose challenge or block page p looks like.
func Detect(p Page) (source string, detected bool) {
	for _, s := range signatures {
		if s.match(p) {
			return s.source, true
		}
	}
	return "", false
}
