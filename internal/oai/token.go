package oai

import (
	"net/url"
	"strconv"
	"time"
)

// resumptionToken carries list state between harvest batches. It is
// serialized as a URL query string so every field survives round-trips
// without a server-side session.
type resumptionToken struct {
	Prefix string
	From   time.Time
	Until  time.Time
	Cursor int
}

func (t resumptionToken) Encode() string {
	values := url.Values{}
	values.Set("prefix", t.Prefix)
	values.Set("from", t.From.UTC().Format(time.RFC3339))
	values.Set("until", t.Until.UTC().Format(time.RFC3339))
	values.Set("cursor", strconv.Itoa(t.Cursor))
	return values.Encode()
}

func decodeResumptionToken(token string) (resumptionToken, error) {
	values, err := url.ParseQuery(token)
	if err != nil {
		return resumptionToken{}, badResumptionToken("the resumption token could not be decoded")
	}
	from, err := time.Parse(time.RFC3339, values.Get("from"))
	if err != nil {
		return resumptionToken{}, badResumptionToken("the resumption token carries an invalid from date")
	}
	until, err := time.Parse(time.RFC3339, values.Get("until"))
	if err != nil {
		return resumptionToken{}, badResumptionToken("the resumption token carries an invalid until date")
	}
	cursor, err := strconv.Atoi(values.Get("cursor"))
	if err != nil || cursor < 0 {
		return resumptionToken{}, badResumptionToken("the resumption token carries an invalid cursor")
	}
	prefix := values.Get("prefix")
	if prefix == "" {
		return resumptionToken{}, badResumptionToken("the resumption token carries no metadata prefix")
	}
	return resumptionToken{Prefix: prefix, From: from, Until: until, Cursor: cursor}, nil
}
