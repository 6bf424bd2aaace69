package stockquote

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Quote is the structured answer produced by the search/format agent.
type Quote struct {
	Ticker string `json:"ticker"`
	Price  string `json:"price"`
	Date   string `json:"date"`
}

var (
	priceRe = regexp.MustCompile(`^\d+(\.\d+)?$`)
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	jsonRe  = regexp.MustCompile(`\{[^{}]*\}`)
)

// ParseQuote decodes and checks a JSON quote payload. The price must look
// decimal and the date ISO-like (YYYY-MM-DD); violations are reported as
// errors so callers can flag malformed model output without failing a run.
func ParseQuote(data []byte) (Quote, error) {
	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	return q, q.Validate()
}

// Validate checks the quote's field shapes.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Ticker) == "" {
		return fmt.Errorf("quote missing ticker")
	}
	if !priceRe.MatchString(q.Price) {
		return fmt.Errorf("quote price %q is not decimal", q.Price)
	}
	if !dateRe.MatchString(q.Date) {
		return fmt.Errorf("quote date %q is not YYYY-MM-DD", q.Date)
	}
	return nil
}

// ExtractQuote finds the first JSON object embedded in free-form model text
// and parses it as a quote. Returns false when no parsable quote exists.
func ExtractQuote(text string) (Quote, bool) {
	for _, match := range jsonRe.FindAllString(text, -1) {
		if q, err := ParseQuote([]byte(match)); err == nil {
			return q, true
		}
	}
	return Quote{}, false
}
