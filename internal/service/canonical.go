package service

import (
	"net/url"
	"strings"

	"qrlink/internal/domain"
)

type platformRule struct {
	prefix string
	domain string
}

// Tabla cerrada: cada Platform tiene exactamente una regla.
var platformRules = map[domain.Platform]platformRule{
	domain.PlatformInstagram: {prefix: "https://instagram.com/"},
	domain.PlatformTwitter:   {prefix: "https://twitter.com/"},
	domain.PlatformTikTok:    {prefix: "https://tiktok.com/@"},
	domain.PlatformYouTube:   {prefix: "https://youtube.com/@"},
	domain.PlatformLinkedIn:  {prefix: "https://linkedin.com/in/", domain: "linkedin.com"},
	domain.PlatformFacebook:  {prefix: "https://facebook.com/", domain: "facebook.com"},
}

// Canonicalize convierte un handle o URL crudo en un link completo.
// Devuelve false cuando no hay nada que enlazar.
func Canonicalize(platform domain.Platform, raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	if hasHTTPScheme(value) {
		return value, true
	}

	rule, ok := platformRules[platform]
	if !ok {
		return "", false
	}
	if rule.domain != "" && strings.Contains(strings.ToLower(value), rule.domain) {
		return "https://" + value, true
	}

	handle := strings.TrimPrefix(value, "@")
	if handle == "" {
		return "", false
	}
	return rule.prefix + url.PathEscape(handle), true
}

// CanonicalizeWebsite completa el esquema de la web personal si falta.
func CanonicalizeWebsite(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	if hasHTTPScheme(value) {
		return value, true
	}
	return "https://" + value, true
}

func hasHTTPScheme(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
