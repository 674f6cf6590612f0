package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// Parser converts raw RSS 2.0 / Atom bytes into loosely-typed items.
// gofeed tolerates the schema variants we care about: namespaced fields,
// single-item channels, and vendor media extensions.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []*gofeed.Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrParse, err)
	}

	metadata := &Metadata{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
		Language:    parsed.Language,
	}

	if parsed.Image != nil {
		metadata.ImageURL = parsed.Image.URL
	}
	if parsed.PublishedParsed != nil {
		metadata.FeedPublishedAt = parsed.PublishedParsed
	}

	items := make([]*gofeed.Item, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item != nil {
			items = append(items, item)
		}
	}

	return metadata, items, nil
}
