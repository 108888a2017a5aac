package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ISOFormat is the timestamp layout the API expects in query strings.
const ISOFormat = "2006-01-02T15:04:05.000000Z"

// Params builds query values from loosely typed parameters. Nil values are
// dropped, times are sent in ISOFormat.
func Params(params map[string]any) url.Values {
	q := url.Values{}
	for k, v := range params {
		switch tv := v.(type) {
		case nil:
			continue
		case string:
			q.Add(k, tv)
		case *string:
			if tv != nil {
				q.Add(k, *tv)
			}
		case bool:
			q.Add(k, strconv.FormatBool(tv))
		case int:
			q.Add(k, strconv.Itoa(tv))
		case int64:
			q.Add(k, strconv.FormatInt(tv, 10))
		case float64:
			q.Add(k, strconv.FormatFloat(tv, 'f', -1, 64))
		case time.Time:
			q.Add(k, tv.UTC().Format(ISOFormat))
		case []string:
			for _, s := range tv {
				q.Add(k, s)
			}
		default:
			q.Add(k, fmt.Sprint(tv))
		}
	}
	return q
}

// redact strips the query (usually a SAS token) from a blob URL.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<blob url>"
	}
	u.RawQuery = ""
	return u.String()
}
