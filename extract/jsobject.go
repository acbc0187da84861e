package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kaptinlin/jsonrepair"
	"github.com/tabfetch/tabfetch/models"
)

// JSObjectStrategy scrapes data embedded in inline <script> blocks.
// Many sites ship the table as a JS literal assigned to a global; the
// literal is close to JSON but often not valid JSON (single quotes,
// unquoted keys, trailing commas), so candidates go through a repair
// pass before decoding.
type JSObjectStrategy struct {
	fetcher Fetcher
}

// assignRe matches global assignments of object or array literals.
var assignRe = regexp.MustCompile(`(?:window\.|self\.|var\s+|let\s+|const\s+)([A-Za-z_$][\w$.]*)\s*=\s*([\[{])`)

// preferredNames score candidate variables by how data-like their name
// is, so the row array beats config blobs on the same page.
var preferredNames = []string{"data", "table", "rows", "quotes", "prices", "chart", "series", "records", "state"}

func (s *JSObjectStrategy) Tag() models.Strategy { return models.StrategyJSObject }

func (s *JSObjectStrategy) Attempt(ctx context.Context, job *Job) (*models.Table, error) {
	resp, err := s.fetcher.Do(ctx, job.Request)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "unparseable HTML", Err: err}
	}

	type candidate struct {
		name    string
		literal string
		score   int
	}
	var candidates []candidate

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		src := sel.Text()
		for _, m := range assignRe.FindAllStringSubmatchIndex(src, -1) {
			name := src[m[2]:m[3]]
			literal := balancedLiteral(src[m[4]:])
			if literal == "" {
				continue
			}
			candidates = append(candidates, candidate{name: name, literal: literal, score: nameScore(name)})
		}
	})

	if len(candidates) == 0 {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "no embedded data objects found in page scripts"}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	for _, c := range candidates {
		repaired, repairErr := jsonrepair.JSONRepair(c.literal)
		if repairErr != nil {
			continue
		}
		var parsed any
		if json.Unmarshal([]byte(repaired), &parsed) != nil {
			continue
		}
		table, tableErr := tableFromJSON(parsed, s.Tag())
		if tableErr != nil {
			continue
		}
		return finishTable(table, job, s.Tag())
	}

	return nil, &models.ParseError{Strategy: s.Tag(), Reason: "embedded objects found but none held a row array"}
}

func nameScore(name string) int {
	lower := strings.ToLower(name)
	for i, want := range preferredNames {
		if strings.Contains(lower, want) {
			return len(preferredNames) - i
		}
	}
	return 0
}

// balancedLiteral extracts the complete bracketed literal starting at
// src[0], tracking string contexts so braces inside strings don't
// unbalance the scan. Returns "" when the literal never closes.
func balancedLiteral(src string) string {
	if len(src) == 0 {
		return ""
	}
	open := src[0]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return ""
	}

	depth := 0
	var quote byte
	escaped := false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			quote = ch
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return src[:i+1]
			}
		}
	}
	return ""
}
