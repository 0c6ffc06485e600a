package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
)

type rule int

const (
	keep rule = iota
	redact
	hash
)

// Learner profile answers are free text and are dropped like credentials.
var exactRules = map[string]rule{
	"goal":          redact,
	"study_routine": redact,
	"background":    redact,
	"content":       redact,
	"user_id":       hash,
	"owner_id":      hash,
	"owner_user_id": hash,
	"session_id":    hash,
}

var redactFragments = []string{"authorization", "password", "secret", "cookie", "api_key", "apikey", "email"}

type scrubber struct {
	once    sync.Once
	enabled bool
	salt    string
}

var defaultScrubber scrubber

func (s *scrubber) load() {
	s.once.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
		default:
			s.enabled = true
		}
		s.salt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
}

func scrubKVs(kv []interface{}) []interface{} {
	defaultScrubber.load()
	if len(kv) == 0 || !defaultScrubber.enabled {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, kv[i], defaultScrubber.value(keyOf(kv[i]), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func keyOf(k interface{}) string {
	return strings.ToLower(strings.TrimSpace(fmt.Sprint(k)))
}

func ruleFor(key string) rule {
	if r, ok := exactRules[key]; ok {
		return r
	}
	if strings.Contains(key, "token") && !strings.Contains(key, "tokens") {
		return redact
	}
	for _, f := range redactFragments {
		if strings.Contains(key, f) {
			return redact
		}
	}
	return keep
}

func (s *scrubber) value(key string, val interface{}) interface{} {
	switch ruleFor(key) {
	case redact:
		return "[REDACTED]"
	case hash:
		return s.digest(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = s.value(keyOf(k), inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = s.value("", inner)
		}
		return out
	case string:
		if looksLikeJWT(v) {
			return "[REDACTED]"
		}
	}
	return val
}

func (s *scrubber) digest(val interface{}) string {
	raw := strings.TrimSpace(fmt.Sprint(val))
	if val == nil || raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}
