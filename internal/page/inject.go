package page

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Inject performs a single streaming rewrite over doc: head is written
// immediately before the closing </head> tag and body immediately before
// the closing </body> tag. All other markup passes through byte-for-byte
// from the tokenizer's raw input.
func Inject(w io.Writer, doc, head, body string) error {
	z := html.NewTokenizer(strings.NewReader(doc))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return nil
			}
			return z.Err()
		}

		if tt == html.EndTagToken {
			name, _ := z.TagName()
			switch string(name) {
			case "head":
				if head != "" {
					if _, err := io.WriteString(w, head); err != nil {
						return err
					}
				}
			case "body":
				if body != "" {
					if _, err := io.WriteString(w, body); err != nil {
						return err
					}
				}
			}
		}

		if _, err := w.Write(z.Raw()); err != nil {
			return err
		}
	}
}
