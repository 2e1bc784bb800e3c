package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DefaultCodePrefix = "ARDEN"

// CodeGenerator produces PREFIX-DDMMYYYY-NNNN codes. It reads the current
// maximum and adds one, so two concurrent callers can get the same code;
// callers insert through CreateWithCodeRetry and rely on the unique index.
type CodeGenerator struct {
	store   CodeStore
	prefix  string
	timeout time.Duration
}

func NewCodeGenerator(store CodeStore, prefix string, callTimeout time.Duration) *CodeGenerator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	return &CodeGenerator{store: store, prefix: prefix, timeout: callTimeout}
}

func (g *CodeGenerator) Prefix() string { return g.prefix }

func (g *CodeGenerator) Generate(ctx context.Context, date time.Time) (string, error) {
	callCtx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	maxSeq, err := g.store.MaxCodeSequence(callCtx, DateToken(date))
	if err != nil {
		return "", storageErr("max code sequence", err)
	}
	return FormatOrderCode(g.prefix, date, maxSeq+1), nil
}

func DateToken(date time.Time) string {
	return date.Format("02012006")
}

func FormatOrderCode(prefix string, date time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, DateToken(date), seq)
}

// MaxSequenceDigits bounds the sequence part considered when looking for the
// next free code, so a hand-typed key such as X-19102026-99999999999 cannot
// overflow the sequence and block generation for that day.
const MaxSequenceDigits = 9

// ParseOrderCode splits a generated code. Prefixes may themselves contain
// dashes; the token and sequence are always the last two parts.
func ParseOrderCode(code string) (prefix, dateToken string, seq int, ok bool) {
	parts := strings.Split(strings.TrimSpace(code), "-")
	if len(parts) < 3 {
		return "", "", 0, false
	}
	dateToken = parts[len(parts)-2]
	seqPart := parts[len(parts)-1]
	if len(dateToken) != 8 || !isDigits(dateToken) || len(seqPart) > MaxSequenceDigits || !isDigits(seqPart) {
		return "", "", 0, false
	}
	seq, err := strconv.Atoi(seqPart)
	if err != nil {
		return "", "", 0, false
	}
	prefix = strings.Join(parts[:len(parts)-2], "-")
	if prefix == "" {
		return "", "", 0, false
	}
	return prefix, dateToken, seq, true
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}
