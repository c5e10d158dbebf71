// Package trade builds shareable trade card images for /okx and /forex.
package trade

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m3rciful/pdfbot/internal/render"
)

// Template names inside the trade template directory.
const (
	LongTemplate  = "long.html"
	ShortTemplate = "short.html"
	ForexTemplate = "forex.html"

	iconDir     = "icons"
	defaultIcon = "default.png"
)

// Usage texts.
const (
	OKXUsage   = "Неверный формат. Пример: <code>/okx SOLUSDT Шорт 50,00x +25,31 +2531,3 165,90 165,06 01.10.2025 15:26:49</code>"
	ForexUsage = "Пример Forex: <code>/forex pair=EURUSD side=buy side_price=1.06 ticket=54814272772 " +
		`desc="Euro vs US Dollar" open=1.16540 close=1.16252 delta=521 pct=0.35 ` +
		`profit=6108.01 open_dt="2026.01.26 10:12:45" close_dt="2026.01.26 10:35:23" ` +
		"sl=154.335 swap=2.10 tp=153.536 fee=-5.30</code>"
)

var iconExts = []string{".png", ".svg", ".webp", ".jpg"}

// Card is a parsed command ready to render.
type Card struct {
	Template string
	Values   map[string]string
	FileName string
}

// UsageError carries the text shown to the operator for malformed input.
type UsageError struct {
	Text string
}

func (e *UsageError) Error() string { return "trade: bad arguments" }

// Code implements the err_code contract used in handler logs.
func (e *UsageError) Code() string { return "TRADE_USAGE" }

// ParseOKX reads "<pair> <side> <leverage> <profit_pct> <profit_amount>
// <entry> <exit> [date time]". Tokens may also be separated by '|'. dir is
// the trade template directory used for the icon lookup.
func ParseOKX(args, dir string, now time.Time) (Card, error) {
	tokens := strings.FieldsFunc(args, func(r rune) bool {
		return r == '|' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(tokens) < 7 {
		return Card{}, &UsageError{Text: OKXUsage}
	}
	pair := strings.ToUpper(tokens[0])
	side := tokens[1]
	date, clock := now.Format("02.01.2006"), now.Format("15:04:05")
	if len(tokens) >= 9 {
		date, clock = tokens[7], tokens[8]
	}

	sideLower := strings.ToLower(side)
	template := LongTemplate
	if strings.Contains(sideLower, "шорт") || strings.Contains(sideLower, "short") {
		template = ShortTemplate
	}

	return Card{
		Template: template,
		Values: map[string]string{
			"pair":              pair,
			"position_type":     side,
			"leverage":          tokens[2],
			"profit_percentage": render.GroupSigned(tokens[3]),
			"profit_amount":     render.GroupSigned(tokens[4]),
			"entry_price":       render.GroupSigned(tokens[5]),
			"exit_price":        render.GroupSigned(tokens[6]),
			"share_date":        date,
			"share_time":        clock,
			"icon":              Icon(dir, pair),
		},
		FileName: fmt.Sprintf("%s_%s.png", pair, sideLower),
	}, nil
}

var (
	forexRequired = []string{"pair", "side", "open", "close", "profit"}
	forexOptional = []string{"side_price", "ticket", "desc", "delta", "pct", "open_dt", "close_dt", "sl", "tp", "swap", "fee"}
	forexNumeric  = map[string]bool{"profit": true, "swap": true, "fee": true, "delta": true}
)

// ParseForex reads key=value pairs; values may be double-quoted.
func ParseForex(args string) (Card, error) {
	fields, err := splitQuoted(args)
	if err != nil {
		return Card{}, &UsageError{Text: "Незакрытая кавычка.\n\n" + ForexUsage}
	}
	kv := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		kv[strings.ToLower(strings.TrimSpace(k))] = v
	}

	var missing []string
	for _, k := range forexRequired {
		if strings.TrimSpace(kv[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Card{}, &UsageError{Text: "Не хватает полей: " + strings.Join(missing, ", ") + "\n\n" + ForexUsage}
	}

	values := make(map[string]string, len(forexRequired)+len(forexOptional)+1)
	for _, k := range append(append([]string(nil), forexRequired...), forexOptional...) {
		v := kv[k]
		if forexNumeric[k] {
			v = render.GroupSigned(v)
		}
		values[k] = v
	}
	values["side"] = strings.ToLower(values["side"])
	values["pair"] = strings.ToUpper(values["pair"])
	values["profit_class"] = "positive"
	if strings.HasPrefix(strings.TrimSpace(kv["profit"]), "-") {
		values["profit_class"] = "negative"
	}

	return Card{
		Template: ForexTemplate,
		Values:   values,
		FileName: fmt.Sprintf("%s_%s.png", values["pair"], values["side"]),
	}, nil
}

// Icon returns the workspace-relative icon path for pair, falling back to
// the default icon when no file for the pair exists under dir.
func Icon(dir, pair string) string {
	for _, ext := range iconExts {
		name := pair + ext
		if _, err := os.Stat(filepath.Join(dir, iconDir, name)); err == nil {
			return iconDir + "/" + name
		}
	}
	return iconDir + "/" + defaultIcon
}

var errUnclosedQuote = fmt.Errorf("trade: unclosed quote")

// splitQuoted splits on whitespace while keeping double-quoted runs
// together. Quotes are dropped from the output.
func splitQuoted(s string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if pending {
				out = append(out, cur.String())
				cur.Reset()
				pending = false
			}
		default:
			cur.WriteRune(r)
			pending = true
		}
	}
	if quoted {
		return nil, errUnclosedQuote
	}
	if pending {
		out = append(out, cur.String())
	}
	return out, nil
}
