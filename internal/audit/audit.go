// Package audit writes one structured record at the start and end of every
// CLI command: the command, where its configuration came from and the
// relevant environment, with secrets reduced to "set" or "unset".
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// auditEntry is one environment variable included in the start record.
type auditEntry struct {
	key    string
	secret bool
}

// auditKeys is the ordered list of env vars in every start record.
var auditKeys = []auditEntry{
	{"MODEL_PROVIDER", false},
	{"GEMINI_API_KEY", true},
	{"GOOGLE_API_KEY", true},
	{"GEMINI_MODEL", false},
	{"JUDGE_MODEL", false},
	{"JUDGE_TEMPERATURE", false},
	{"MODEL_TEMPERATURE", false},
	{"OPENAI_API_KEY", true},
	{"OPENAI_MODEL", false},
	{"AZURE_OPENAI_API_KEY", true},
	{"AZURE_OPENAI_ENDPOINT", false},
	{"AZURE_OPENAI_DEPLOYMENT", false},
	{"OLLAMA_HOST", false},
	{"OLLAMA_MODEL", false},
	{"ARK_API_KEY", true},
	{"ARK_MODEL", false},
	{"EMBEDDING_PROVIDER", false},
	{"EMBEDDING_MODEL", false},
	{"EMBEDDING_DIMENSIONS", false},
	{"EMBEDDING_API_KEY", true},
	{"VECTOR_STORE", false},
	{"VECTOR_INDEX", false},
	{"QDRANT_HOST", false},
	{"QDRANT_PORT", false},
	{"QDRANT_API_KEY", true},
	{"CHEFAI_VECTOR_DB", false},
	{"CHEFAI_KNOWLEDGE_BASE", false},
	{"CHEFAI_PROMPTS_DIR", false},
	{"CHEFAI_API_KEY", true},
	{"LOG_LEVEL", false},
	{"LOG_FORMAT", false},
	{"LANGFUSE_PUBLIC_KEY", true},
	{"LANGFUSE_SECRET_KEY", true},
	{"LANGFUSE_HOST", false},
}

// secretSuffixes catch credentials not listed in auditKeys.
var secretSuffixes = []string{"_API_KEY", "_SECRET_KEY", "_TOKEN", "_PASSWORD"}

// LogCommandStart emits the start record for command.
func LogCommandStart(ctx context.Context, log *slog.Logger, command, configPath string, extra ...slog.Attr) {
	attrs := make([]slog.Attr, 0, len(auditKeys)+len(extra)+2)
	attrs = append(attrs,
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	)
	for _, e := range auditKeys {
		attrs = append(attrs, slog.String(e.key, SanitiseKey(e.key, os.Getenv(e.key))))
	}
	attrs = append(attrs, extra...)

	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start", attrs...)
}

// LogCommandEnd emits the end record for command with its outcome and
// duration. A non-nil err is logged at ERROR.
func LogCommandEnd(ctx context.Context, log *slog.Logger, command string, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.Duration("duration", time.Since(start)),
	}
	level := slog.LevelInfo
	outcome := "ok"
	if err != nil {
		level = slog.LevelError
		outcome = "error"
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	attrs = append(attrs, slog.String("outcome", outcome))

	log.LogAttrs(ctx, level, "audit: command end", attrs...)
}

// SanitiseKey returns the loggable form of an env var value: secrets become
// "set" or "unset", other values pass through with "" shown as "unset".
func SanitiseKey(key, val string) string {
	if isSecret(key) {
		return presence(val)
	}
	if val == "" {
		return "unset"
	}
	return val
}

func isSecret(key string) bool {
	for _, e := range auditKeys {
		if e.key == key {
			return e.secret
		}
	}
	for _, s := range secretSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// presence returns "set" for a non-empty value, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// sanitiseConfigPath returns the config path with the home directory
// replaced by "~", or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
